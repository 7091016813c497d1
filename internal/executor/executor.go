package executor

import (
	"context"

	"github.com/slok/execgate/internal/model"
)

// Executor runs a command line and returns its result.
//
// Implementations must always return a result, failures to spawn the process
// are reported in the result and not as errors.
type Executor interface {
	Execute(ctx context.Context, command string) model.ExecutionResult
}

//go:generate mockery --case underscore --output executormock --outpkg executormock --name Executor
