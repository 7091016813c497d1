package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/execgate/internal/backend"
)

// BackendCommand runs the demo instance application.
type BackendCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	listenAddr string
	message    string
}

// NewBackendCommand returns the backend command.
func NewBackendCommand(rootCmd *RootCommand, app *kingpin.Application) *BackendCommand {
	c := &BackendCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("backend", "Run the demo instance application served behind the router.")
	c.Cmd.Flag("listen-addr", "Address the backend listens on.").Default(backend.DefaultListenAddr).StringVar(&c.listenAddr)
	c.Cmd.Flag("message", "Message returned by the API.").Default(backend.DefaultMessage).StringVar(&c.message)

	return c
}

func (c BackendCommand) Name() string { return c.Cmd.FullCommand() }

func (c BackendCommand) Run(ctx context.Context) error {
	srv, err := backend.NewServer(backend.ServerConfig{
		ListenAddr: c.listenAddr,
		Message:    c.message,
		Logger:     c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create backend server: %w", err)
	}

	return srv.Run(ctx)
}
