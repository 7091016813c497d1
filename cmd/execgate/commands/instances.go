package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/execgate/internal/storage/sqlite"
)

// InstancesCommand lists the instance liveness records of a router using the SQLite state store.
type InstancesCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewInstancesCommand returns the instances command.
func NewInstancesCommand(rootCmd *RootCommand, app *kingpin.Application) *InstancesCommand {
	c := &InstancesCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("instances", "List the instances last request time.")
	c.Cmd.Flag("format", "Output format (table, json).").Default("table").EnumVar(&c.format, "table", "json")

	return c
}

func (c InstancesCommand) Name() string { return c.Cmd.FullCommand() }

func (c InstancesCommand) Run(ctx context.Context) error {
	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.ResolvedDBPath(),
		Logger: c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	records, err := repo.ListInstances(ctx)
	if err != nil {
		return fmt.Errorf("could not list instances: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintInstances(records); err != nil {
		return fmt.Errorf("could not print instances: %w", err)
	}

	return nil
}
