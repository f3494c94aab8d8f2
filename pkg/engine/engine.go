// Package engine implements the Execution Engine (component F): a
// tree-walk interpreter that visits a revision's step tree and commits a
// durable checkpoint for every leaf step before continuing.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fmeurisse/maestro-sub001/pkg/cache"
	"github.com/fmeurisse/maestro-sub001/pkg/executionstore"
	"github.com/fmeurisse/maestro-sub001/pkg/logger"
	"github.com/fmeurisse/maestro-sub001/pkg/spec"
	"github.com/fmeurisse/maestro-sub001/pkg/step"
)

// Engine walks one step tree at a time, synchronously, on the caller's
// goroutine — "one task per execution" per the scheduling model. Multiple
// executions may call Run concurrently; they only share the Execution
// Store.
type Engine struct {
	registry *step.Registry
	store    executionstore.Store
	log      *logger.Logger

	mu          sync.Mutex
	cancelFlags map[spec.ExecutionID]*atomic.Bool
}

// New builds an Engine over reg (the step registry to resolve tags
// against), store (where checkpoints land), and log (the base logger to
// derive per-execution loggers from).
func New(reg *step.Registry, store executionstore.Store, log *logger.Logger) *Engine {
	return &Engine{
		registry:    reg,
		store:       store,
		log:         log,
		cancelFlags: make(map[spec.ExecutionID]*atomic.Bool),
	}
}

// Cancel sets the cooperative cancellation flag for a running execution.
// It reports whether that execution was actually found running.
func (e *Engine) Cancel(id spec.ExecutionID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	flag, ok := e.cancelFlags[id]
	if !ok {
		return false
	}
	flag.Store(true)
	return true
}

// Run walks root to completion (or failure, or cancellation), committing
// a checkpoint for every leaf step visited. It returns the aggregated
// terminal status and, on failure, the first error's message.
func (e *Engine) Run(goCtx context.Context, executionID spec.ExecutionID, root spec.Step, inputParameters map[string]interface{}) (spec.ExecutionStatus, string) {
	cancelled := &atomic.Bool{}
	e.mu.Lock()
	e.cancelFlags[executionID] = cancelled
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.cancelFlags, executionID)
		e.mu.Unlock()
	}()

	rootCache := cache.NewExecutionCache()
	for k, v := range inputParameters {
		rootCache.Set(k, v)
	}

	var counter int64
	rc := &runContext{
		engine:      e,
		goCtx:       goCtx,
		executionID: executionID,
		cacheScope:  rootCache,
		log:         e.log.With("execution", string(executionID)),
		cancelled:   cancelled,
		counter:     &counter,
	}

	status, _, err := rc.Execute(root)
	if err != nil {
		return spec.ExecutionFailed, err.Error()
	}
	if status == spec.StepFailed {
		return spec.ExecutionFailed, "workflow failed"
	}
	if cancelled.Load() {
		return spec.ExecutionCancelled, ""
	}
	return spec.ExecutionCompleted, ""
}

// runContext implements step.Context. It is cloned (not mutated) whenever
// traversal forks a new cache scope, so a step's siblings never see a
// cache fork made for one of their cousins.
type runContext struct {
	engine      *Engine
	goCtx       context.Context
	executionID spec.ExecutionID
	cacheScope  cache.Cache
	log         *logger.Logger
	cancelled   *atomic.Bool
	counter     *int64
}

func (c *runContext) Go() context.Context   { return c.goCtx }
func (c *runContext) Logger() *logger.Logger { return c.log }
func (c *runContext) Cache() cache.Cache     { return c.cacheScope }
func (c *runContext) Cancelled() bool        { return c.cancelled.Load() }

func (c *runContext) WithCache(newCache cache.Cache) step.Context {
	clone := *c
	clone.cacheScope = newCache
	return &clone
}

// Execute is the single entry point both the engine and orchestration
// executors use to visit a child step. Orchestration steps fork a node
// cache scope and recurse via the registry (which calls back into
// Execute for each child); leaf steps run the checkpoint protocol and do
// not recurse further.
func (c *runContext) Execute(s spec.Step) (spec.StepStatus, map[string]interface{}, error) {
	if c.Cancelled() {
		return spec.StepSkipped, nil, nil
	}
	if _, ok := s.(spec.Orchestration); ok {
		nodeCtx := c.WithCache(cache.NewNodeCache(c.cacheScope)).(*runContext)
		nodeCtx.log = c.log.With("node", s.Tag())
		return c.engine.registry.Execute(nodeCtx, s)
	}
	return c.runLeaf(s)
}

// runLeaf runs one leaf step's executor and commits its checkpoint
// before returning — the core crash-recovery contract (§4.6).
func (c *runContext) runLeaf(s spec.Step) (spec.StepStatus, map[string]interface{}, error) {
	startedAt := time.Now().UTC()

	leafCache := cache.NewStepCache(c.cacheScope)
	leafCtx := c.WithCache(leafCache).(*runContext)
	leafCtx.log = c.log.With("step", s.Meta().Name, "stepType", s.Tag())

	status, outputs, execErr := c.engine.registry.Execute(leafCtx, s)
	completedAt := time.Now().UTC()

	if execErr != nil {
		status = spec.StepFailed
	}

	idx := int(atomic.AddInt64(c.counter, 1) - 1)
	result := &spec.ExecutionStepResult{
		ResultID:    uuid.NewString(),
		ExecutionID: c.executionID,
		StepIndex:   idx,
		StepID:      s.Meta().Name,
		StepType:    s.Tag(),
		Status:      status,
		OutputData:  outputs,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
	}
	if execErr != nil {
		result.ErrorMessage = execErr.Error()
	}

	if err := c.engine.store.SaveStepResult(result); err != nil {
		return spec.StepFailed, nil, fmt.Errorf("committing checkpoint for step %q: %w", s.Meta().Name, err)
	}

	for k, v := range outputs {
		c.cacheScope.Set(k, v)
	}

	return status, outputs, execErr
}
