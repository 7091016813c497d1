package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/execgate/internal/model"
	"github.com/slok/execgate/pkg/lib"
)

// RunCommand sends a command to a gateway.
type RunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	gatewayURL string
	command    []string
	format     string
}

// NewRunCommand returns the run command.
func NewRunCommand(rootCmd *RootCommand, app *kingpin.Application) *RunCommand {
	c := &RunCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("run", "Run a command on a gateway.")
	c.Cmd.Arg("command", "Command to run (use -- before command).").Required().StringsVar(&c.command)
	c.Cmd.Flag("gateway-url", "Gateway URL.").Default(lib.DefaultURL).StringVar(&c.gatewayURL)
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c RunCommand) Name() string { return c.Cmd.FullCommand() }

func (c RunCommand) Run(ctx context.Context) error {
	client, err := lib.New(lib.Config{
		URL:    c.gatewayURL,
		Logger: c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create client: %w", err)
	}

	res, err := client.Run(ctx, strings.Join(c.command, " "))
	if err != nil {
		return fmt.Errorf("could not run command: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintRunResult(toGatewayResponse(*res)); err != nil {
		return fmt.Errorf("could not print result: %w", err)
	}

	return res.Err()
}

func toGatewayResponse(r lib.RunResult) model.GatewayResponse {
	resp := model.GatewayResponse{
		Success:   r.Success,
		Timestamp: model.EpochSeconds(r.Timestamp),
	}
	if !r.Success {
		resp.Error = &r.Message
		return resp
	}

	resp.Command = &r.Command
	resp.Output = &r.Output
	resp.Error = &r.Stderr
	resp.ExitCode = &r.ExitCode
	return resp
}
