package step

import (
	"context"

	"github.com/fmeurisse/maestro-sub001/pkg/cache"
	"github.com/fmeurisse/maestro-sub001/pkg/logger"
	"github.com/fmeurisse/maestro-sub001/pkg/spec"
)

// Context is what a registered executor receives when the engine visits
// its step: the run's go context, a scoped cache, a derived logger, and a
// callback into the engine for any child step. Orchestration kinds
// (Sequence, If) call Execute on their children instead of walking them
// directly — that's how the registry's executor "calls the engine back",
// per the step model's contract.
type Context interface {
	Go() context.Context
	Logger() *logger.Logger
	Cache() cache.Cache
	Cancelled() bool

	// WithCache returns a Context identical to this one but scoped to a
	// different cache, for orchestration steps that fork a child scope.
	WithCache(c cache.Cache) Context

	// Execute hands a child step back to the engine for visiting: task
	// steps are checkpointed, orchestration steps recurse.
	Execute(s spec.Step) (spec.StepStatus, map[string]interface{}, error)
}
