package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/execgate/internal/app/run"
	"github.com/slok/execgate/internal/denylist"
	"github.com/slok/execgate/internal/executor/shell"
	"github.com/slok/execgate/internal/gateway"
	"github.com/slok/execgate/internal/model"
	"github.com/slok/execgate/internal/storage/io"
)

// GatewayCommand runs the command execution gateway HTTP server.
type GatewayCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	listenAddr string
	configPath string
	workDir    string
	timeout    time.Duration
	deny       []string
}

// NewGatewayCommand returns the gateway command.
func NewGatewayCommand(rootCmd *RootCommand, app *kingpin.Application) *GatewayCommand {
	c := &GatewayCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("gateway", "Run the command execution gateway.")
	c.Cmd.Flag("listen-addr", "Address the gateway listens on.").Default(gateway.DefaultListenAddr).StringVar(&c.listenAddr)
	c.Cmd.Flag("config", "Path to a gateway YAML config file.").StringVar(&c.configPath)
	c.Cmd.Flag("workdir", "Working directory of the commands (overrides the config one).").StringVar(&c.workDir)
	c.Cmd.Flag("timeout", "Command timeout (overrides the config one).").DurationVar(&c.timeout)
	c.Cmd.Flag("deny", "Extra denied command pattern. Can be repeated.").StringsVar(&c.deny)

	return c
}

func (c GatewayCommand) Name() string { return c.Cmd.FullCommand() }

func (c GatewayCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	var cfg model.GatewayConfig
	if c.configPath != "" {
		path, err := rootRelPath(c.configPath)
		if err != nil {
			return err
		}

		cfg, err = io.NewConfigYAMLRepository(os.DirFS("/")).GetGatewayConfig(ctx, path)
		if err != nil {
			return fmt.Errorf("could not load gateway config: %w", err)
		}
	}

	// Flags take precedence over the config file.
	if c.workDir != "" {
		cfg.WorkDir = c.workDir
	}
	if c.timeout > 0 {
		cfg.Timeout = c.timeout
	}
	cfg.ExtraDenylistPatterns = append(cfg.ExtraDenylistPatterns, c.deny...)

	executor, err := shell.NewExecutor(shell.ExecutorConfig{
		WorkDir: cfg.WorkDir,
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create executor: %w", err)
	}

	svc, err := run.NewService(run.ServiceConfig{
		Executor:  executor,
		Validator: denylist.Default().WithExtra(cfg.ExtraDenylistPatterns...),
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	srv, err := gateway.NewServer(gateway.ServerConfig{
		ListenAddr: c.listenAddr,
		Service:    svc,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create gateway server: %w", err)
	}

	logger.Infof("commands run in %s", executor.WorkDir())

	return srv.Run(ctx)
}
