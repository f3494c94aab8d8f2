package step

import (
	"context"

	"github.com/fmeurisse/maestro-sub001/pkg/cache"
	"github.com/fmeurisse/maestro-sub001/pkg/logger"
	"github.com/fmeurisse/maestro-sub001/pkg/spec"
)

// testCtx is a minimal Context for driving one kind's Execute function
// directly, without the engine's checkpointing or cache-scope forking.
type testCtx struct {
	reg       *Registry
	scope     cache.Cache
	cancelled bool
}

func newTestCtx(reg *Registry) *testCtx {
	return &testCtx{reg: reg, scope: cache.NewExecutionCache()}
}

func (c *testCtx) Go() context.Context    { return context.Background() }
func (c *testCtx) Logger() *logger.Logger { return logger.Get() }
func (c *testCtx) Cache() cache.Cache     { return c.scope }
func (c *testCtx) Cancelled() bool        { return c.cancelled }

func (c *testCtx) WithCache(newCache cache.Cache) Context {
	clone := *c
	clone.scope = newCache
	return &clone
}

func (c *testCtx) Execute(s spec.Step) (spec.StepStatus, map[string]interface{}, error) {
	if c.cancelled {
		return spec.StepSkipped, nil, nil
	}
	return c.reg.Execute(c, s)
}
