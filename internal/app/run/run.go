package run

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/execgate/internal/denylist"
	"github.com/slok/execgate/internal/executor"
	"github.com/slok/execgate/internal/log"
	"github.com/slok/execgate/internal/model"
)

const (
	ErrMsgNoCommand  = "No command provided"
	ErrMsgNotAllowed = "Command not allowed for security reasons"
)

// Validator decides if a command must be denied.
type Validator interface {
	IsDangerous(command string) bool
}

// ServiceConfig is the configuration for the run service.
type ServiceConfig struct {
	Executor  executor.Executor
	Validator Validator
	Logger    log.Logger
	// TimeNow is used to timestamp the responses.
	TimeNow func() time.Time
}

func (c *ServiceConfig) defaults() error {
	if c.Executor == nil {
		return fmt.Errorf("executor is required")
	}
	if c.Validator == nil {
		c.Validator = denylist.Default()
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Run"})
	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}
	return nil
}

// Service validates and runs single command requests.
type Service struct {
	executor  executor.Executor
	validator Validator
	logger    log.Logger
	timeNow   func() time.Time
}

// NewService creates a new run service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		executor:  cfg.Executor,
		validator: cfg.Validator,
		logger:    cfg.Logger,
		timeNow:   cfg.TimeNow,
	}, nil
}

// Handle validates and executes the command request. It always returns a well
// formed response, internal faults are reported in the response.
func (s *Service) Handle(ctx context.Context, req model.CommandRequest) (resp model.GatewayResponse) {
	logger := s.logger.WithCtxValues(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("server error: %v", r)
			resp = s.failure(fmt.Sprintf("Server error: %v", r))
		}
	}()

	// 1. Validate input.
	command, ok := req.Text()
	if !ok {
		logger.Debugf("rejected request without command")
		return s.failure(ErrMsgNoCommand)
	}

	// 2. Security check, denied commands are never executed.
	if s.validator.IsDangerous(command) {
		logger.Warningf("denied dangerous command: %q", command)
		return s.failure(ErrMsgNotAllowed)
	}

	// 3. Execute.
	logger.Infof("executing command: %q", command)
	result := s.executor.Execute(ctx, command)
	if result.TimedOut {
		logger.Warningf("command timed out: %q", command)
	}

	return model.GatewayResponse{
		Success:   true,
		Command:   &command,
		Output:    &result.Stdout,
		Error:     &result.Stderr,
		ExitCode:  &result.ExitCode,
		Timestamp: model.EpochSeconds(s.timeNow()),
	}
}

func (s *Service) failure(msg string) model.GatewayResponse {
	return model.GatewayResponse{
		Success:   false,
		Error:     &msg,
		Timestamp: model.EpochSeconds(s.timeNow()),
	}
}
