package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/slok/execgate/internal/conventions"
	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/model"
)

const (
	// DefaultTimeout is the wall-clock budget of a command.
	DefaultTimeout = 30 * time.Second
	// DefaultShell is the interpreter that parses the command line.
	DefaultShell = "/bin/sh"

	// waitDelay bounds the time spent draining output pipes once the shell
	// exited or was killed (e.g. a background child holding stdout open).
	waitDelay = 2 * time.Second
)

// ExecutorConfig is the configuration for the shell executor.
type ExecutorConfig struct {
	// WorkDir is the isolated working directory of the commands. Created if missing.
	WorkDir string
	// Timeout is the hard wall-clock budget, after it the process group is killed.
	Timeout time.Duration
	// Shell is the interpreter used as `<shell> -c <command>`.
	Shell  string
	Logger log.Logger
}

func (c *ExecutorConfig) defaults() error {
	if c.WorkDir == "" {
		c.WorkDir = filepath.Join(os.TempDir(), conventions.WorkDirName)
	}

	workDir, err := filepath.Abs(c.WorkDir)
	if err != nil {
		return fmt.Errorf("could not resolve working dir: %w", err)
	}
	if workDir == string(filepath.Separator) {
		return fmt.Errorf("working dir can't be the filesystem root: %w", model.ErrNotValid)
	}
	c.WorkDir = workDir

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}

	if c.Shell == "" {
		c.Shell = DefaultShell
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "executor.Shell"})

	return nil
}

// Executor runs commands through a shell with a hard timeout inside an isolated working directory.
type Executor struct {
	workDir string
	timeout time.Duration
	shell   string
	logger  log.Logger
}

// NewExecutor creates a new shell executor, the working directory is created if it doesn't exist.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(cfg.WorkDir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create working dir: %w", err)
	}

	return &Executor{
		workDir: cfg.WorkDir,
		timeout: cfg.Timeout,
		shell:   cfg.Shell,
		logger:  cfg.Logger,
	}, nil
}

// WorkDir returns the working directory the commands run in.
func (e *Executor) WorkDir() string { return e.workDir }

// Execute runs the command and always returns a result. When it returns no
// process of the command process group is left running.
func (e *Executor) Execute(ctx context.Context, command string) model.ExecutionResult {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.shell, "-c", command) //nolint:gosec // G204: running the command is the whole point.
	cmd.Dir = e.workDir
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	logger := e.logger.WithValues(log.Kv{"duration": time.Since(start).String()})

	if rerr := reapProcessGroup(cmd); rerr != nil {
		logger.Errorf("could not kill the process group: %s", rerr)
	}

	if err != nil {
		// Timeout, the process group has been killed.
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logger.Warningf("command timed out after %s", e.timeout)
			return model.ExecutionResult{
				Stdout:   "",
				Stderr:   timeoutMessage(e.timeout),
				ExitCode: -1,
				TimedOut: true,
			}
		}

		// The shell exited but its background children held the output open past the wait delay.
		if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil {
			exitCode := cmd.ProcessState.ExitCode()
			logger.Debugf("command exited with code %d leaving background processes", exitCode)
			return model.ExecutionResult{
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
				ExitCode: exitCode,
			}
		}

		// Command ran but returned non-zero.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode := exitErr.ExitCode()
			stderrS := stderr.String()
			if stderrS == "" {
				stderrS = err.Error()
			}
			logger.Debugf("command exited with code %d", exitCode)
			return model.ExecutionResult{
				Stdout:   stdout.String(),
				Stderr:   stderrS,
				ExitCode: exitCode,
			}
		}

		// The process could not be spawned (missing shell, bad working dir...).
		logger.Errorf("could not run command: %s", err)
		return model.ExecutionResult{
			Stdout:   stdout.String(),
			Stderr:   err.Error(),
			ExitCode: -1,
		}
	}

	logger.Debugf("command exited with code 0")
	return model.ExecutionResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
}

func timeoutMessage(timeout time.Duration) string {
	if timeout%time.Second == 0 {
		return fmt.Sprintf("Command timed out after %d seconds", int(timeout/time.Second))
	}
	return fmt.Sprintf("Command timed out after %s", timeout)
}
