package model

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// CommandRequest is the inbound payload of a command execution.
type CommandRequest struct {
	// Command is the raw command line. It's kept raw so non string values can be
	// told apart from missing ones.
	Command json.RawMessage `json:"command"`
}

// NewCommandRequest returns a request for a text command.
func NewCommandRequest(command string) CommandRequest {
	raw, _ := json.Marshal(command)
	return CommandRequest{Command: raw}
}

// Text returns the command as text and if it was a valid, non empty command.
// The returned command is trimmed.
func (c CommandRequest) Text() (string, bool) {
	if len(c.Command) == 0 {
		return "", false
	}

	var cmd string
	if err := json.Unmarshal(c.Command, &cmd); err != nil {
		return "", false
	}

	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return "", false
	}

	return cmd, true
}

// ExecutionResult contains the result of running a command.
type ExecutionResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// GatewayResponse is the response returned for every command request.
// Success false means the request was rejected or the gateway failed, a command
// that ran and exited non zero is still a success.
type GatewayResponse struct {
	Success   bool    `json:"success"`
	Command   *string `json:"command,omitempty"`
	Output    *string `json:"output,omitempty"`
	Error     *string `json:"error,omitempty"`
	ExitCode  *int    `json:"exit_code,omitempty"`
	Timestamp float64 `json:"timestamp"`
}

// EpochSeconds returns t as fractional seconds since the unix epoch.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// FromEpochSeconds is the inverse of EpochSeconds, with microsecond precision.
func FromEpochSeconds(s float64) time.Time {
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(math.Round(frac*1e6))*int64(time.Microsecond)).UTC()
}
