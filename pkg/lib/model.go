package lib

import (
	"errors"
	"fmt"
	"time"

	"github.com/slok/execgate/internal/model"
)

var (
	// ErrNotValid is returned when the input is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrRejected is returned when the gateway refused to run a command.
	ErrRejected = errors.New("rejected")
	// ErrUnavailable is returned when the gateway can't be reached.
	ErrUnavailable = errors.New("unavailable")
)

// Health is the gateway health check result.
type Health struct {
	Status    string
	Service   string
	Timestamp time.Time
}

// RunResult is the gateway answer to a command request.
type RunResult struct {
	// Success is false when the gateway refused the command or failed before running it.
	Success bool
	// Command is the trimmed command the gateway ran.
	Command string
	// Output is the command stdout.
	Output string
	// Stderr is the command stderr.
	Stderr string
	// ExitCode is the command exit code, -1 when it timed out or could not start.
	ExitCode int
	// Message is the gateway error message when Success is false.
	Message   string
	Timestamp time.Time
}

// Err returns an [ErrRejected] error when the gateway didn't run the command.
func (r RunResult) Err() error {
	if r.Success {
		return nil
	}
	return fmt.Errorf("%s: %w", r.Message, ErrRejected)
}

func fromGatewayResponse(resp model.GatewayResponse) RunResult {
	r := RunResult{
		Success:   resp.Success,
		Command:   deref(resp.Command),
		Output:    deref(resp.Output),
		Timestamp: model.FromEpochSeconds(resp.Timestamp),
	}

	// The gateway reuses the error field for stderr on executed commands.
	if resp.Success {
		r.Stderr = deref(resp.Error)
	} else {
		r.Message = deref(resp.Error)
	}

	if resp.ExitCode != nil {
		r.ExitCode = *resp.ExitCode
	}

	return r
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
