package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/execgate/pkg/lib"
)

// HealthCommand checks a gateway health.
type HealthCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	gatewayURL string
	format     string
}

// NewHealthCommand returns the health command.
func NewHealthCommand(rootCmd *RootCommand, app *kingpin.Application) *HealthCommand {
	c := &HealthCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("health", "Check a gateway health.")
	c.Cmd.Flag("gateway-url", "Gateway URL.").Default(lib.DefaultURL).StringVar(&c.gatewayURL)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c HealthCommand) Name() string { return c.Cmd.FullCommand() }

func (c HealthCommand) Run(ctx context.Context) error {
	client, err := lib.New(lib.Config{
		URL:    c.gatewayURL,
		Logger: c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create client: %w", err)
	}

	h, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("could not check health: %w", err)
	}

	msg := fmt.Sprintf("%s is %s", h.Service, h.Status)
	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintMessage(msg); err != nil {
		return fmt.Errorf("could not print health: %w", err)
	}

	return nil
}
