package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/execgate/internal/conventions"
	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/printer"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	DataDir    string
	DBPath     string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultDataDir := filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir)
	app.Flag("data-dir", "Directory for the execgate state (database, blobs).").Envar(conventions.EnvVarPrefix + "_DATA_DIR").Default(defaultDataDir).StringVar(&c.DataDir)
	app.Flag("db-path", "Path to the SQLite database file (defaults to the data dir one).").Envar(conventions.EnvVarPrefix + "_DB_PATH").StringVar(&c.DBPath)

	return c
}

// ResolvedDBPath returns the SQLite path, the data dir one when not set.
func (r RootCommand) ResolvedDBPath() string {
	if r.DBPath != "" {
		return r.DBPath
	}
	return conventions.DBPath(r.DataDir)
}

func newPrinter(format string, w io.Writer) printer.Printer {
	if format == "json" {
		return printer.NewJSONPrinter(w)
	}
	return printer.NewTablePrinter(w)
}

// rootRelPath returns path relative to the root filesystem (os.DirFS("/")) used by the config loaders.
func rootRelPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("could not resolve config path: %w", err)
	}
	return abs[1:], nil
}
