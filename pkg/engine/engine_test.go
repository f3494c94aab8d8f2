package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmeurisse/maestro-sub001/pkg/executionstore"
	"github.com/fmeurisse/maestro-sub001/pkg/logger"
	"github.com/fmeurisse/maestro-sub001/pkg/spec"
	"github.com/fmeurisse/maestro-sub001/pkg/step"
)

func newBootstrappedRegistry() *step.Registry {
	reg := step.NewRegistry()
	reg.Register(bareSequenceKind())
	reg.Register(bareIfKind())
	reg.Register(bareLogTaskKind())
	return reg
}

// bareSequenceKind/bareLogTaskKind stand in for the real built-in kinds'
// Execute behavior without importing package step's unexported
// constructors (the engine only needs the Execute side for these tests);
// bareIfKind registers the "If" tag with no executor.
func bareLogTaskKind() step.KindInfo {
	return step.KindInfo{
		Tag: "LogTask",
		Execute: func(ctx step.Context, s spec.Step) (spec.StepStatus, map[string]interface{}, error) {
			return spec.StepCompleted, map[string]interface{}{"ran": s.Meta().Name}, nil
		},
	}
}

func bareSequenceKind() step.KindInfo {
	return step.KindInfo{
		Tag: "Sequence",
		Execute: func(ctx step.Context, s spec.Step) (spec.StepStatus, map[string]interface{}, error) {
			seq := s.(*bareSequence)
			for _, child := range seq.children {
				if ctx.Cancelled() {
					return spec.StepSkipped, nil, nil
				}
				status, _, err := ctx.Execute(child)
				if err != nil || status == spec.StepFailed {
					return spec.StepFailed, nil, err
				}
			}
			return spec.StepCompleted, nil, nil
		},
	}
}

func bareIfKind() step.KindInfo {
	return step.KindInfo{Tag: "If"}
}

type bareSequence struct {
	meta     spec.StepMeta
	children []spec.Step
}

func (s *bareSequence) Tag() string           { return "Sequence" }
func (s *bareSequence) Meta() *spec.StepMeta  { return &s.meta }
func (s *bareSequence) Children() []spec.Step { return s.children }

type bareLeaf struct {
	meta spec.StepMeta
}

func (l *bareLeaf) Tag() string          { return "LogTask" }
func (l *bareLeaf) Meta() *spec.StepMeta { return &l.meta }

func namedLeaf(name string) *bareLeaf {
	return &bareLeaf{meta: spec.StepMeta{Name: name}}
}

func TestRunCompletesOnAllSuccessfulSteps(t *testing.T) {
	store := executionstore.New()
	eng := New(newBootstrappedRegistry(), store, logger.Get())

	root := &bareSequence{children: []spec.Step{namedLeaf("a"), namedLeaf("b"), namedLeaf("c")}}
	status, msg := eng.Run(context.Background(), "exec-1", root, nil)

	assert.Equal(t, spec.ExecutionCompleted, status)
	assert.Empty(t, msg)

	results := store.FindStepResultsByExecutionID("exec-1")
	require.Len(t, results, 3)
	assert.Equal(t, 0, results[0].StepIndex)
	assert.Equal(t, 1, results[1].StepIndex)
	assert.Equal(t, 2, results[2].StepIndex)
	assert.Equal(t, "a", results[0].StepID)
}

func TestRunStopsAndFailsOnLeafFailure(t *testing.T) {
	store := executionstore.New()
	reg := step.NewRegistry()
	reg.Register(bareSequenceKind())
	ran := 0
	reg.Register(step.KindInfo{
		Tag: "LogTask",
		Execute: func(ctx step.Context, s spec.Step) (spec.StepStatus, map[string]interface{}, error) {
			ran++
			if s.Meta().Name == "fails" {
				return spec.StepFailed, nil, nil
			}
			return spec.StepCompleted, nil, nil
		},
	})
	eng := New(reg, store, logger.Get())

	root := &bareSequence{children: []spec.Step{namedLeaf("ok"), namedLeaf("fails"), namedLeaf("never")}}
	status, _ := eng.Run(context.Background(), "exec-2", root, nil)

	assert.Equal(t, spec.ExecutionFailed, status)
	assert.Equal(t, 2, ran, "the third step must not run after the second fails")

	results := store.FindStepResultsByExecutionID("exec-2")
	require.Len(t, results, 2)
	assert.Equal(t, spec.StepFailed, results[1].Status)
}

// failAfterNStore wraps a real Store and errors on the Nth SaveStepResult
// call, simulating a crash mid-traversal for the checkpoint-durability
// property: steps committed before the failure must remain visible.
type failAfterNStore struct {
	executionstore.Store
	mu    sync.Mutex
	calls int
	failN int
}

func (f *failAfterNStore) SaveStepResult(r *spec.ExecutionStepResult) error {
	f.mu.Lock()
	f.calls++
	shouldFail := f.calls == f.failN
	f.mu.Unlock()
	if shouldFail {
		return assert.AnError
	}
	return f.Store.SaveStepResult(r)
}

func TestCheckpointsCommittedBeforeFailureSurvive(t *testing.T) {
	inner := executionstore.New()
	store := &failAfterNStore{Store: inner, failN: 3}
	eng := New(newBootstrappedRegistry(), store, logger.Get())

	root := &bareSequence{children: []spec.Step{namedLeaf("a"), namedLeaf("b"), namedLeaf("c")}}
	status, msg := eng.Run(context.Background(), "exec-3", root, nil)

	assert.Equal(t, spec.ExecutionFailed, status)
	assert.NotEmpty(t, msg)

	results := inner.FindStepResultsByExecutionID("exec-3")
	require.Len(t, results, 2, "only the two steps committed before the injected failure are durable")
	assert.Equal(t, "a", results[0].StepID)
	assert.Equal(t, "b", results[1].StepID)
}

func TestCancelSkipsRemainingSteps(t *testing.T) {
	store := executionstore.New()
	reg := step.NewRegistry()
	reg.Register(bareSequenceKind())

	var eng *Engine
	ran := map[string]bool{}
	reg.Register(step.KindInfo{
		Tag: "LogTask",
		Execute: func(ctx step.Context, s spec.Step) (spec.StepStatus, map[string]interface{}, error) {
			ran[s.Meta().Name] = true
			if s.Meta().Name == "a" {
				eng.Cancel("exec-4")
			}
			return spec.StepCompleted, nil, nil
		},
	})
	eng = New(reg, store, logger.Get())

	root := &bareSequence{children: []spec.Step{namedLeaf("a"), namedLeaf("b"), namedLeaf("c")}}
	status, _ := eng.Run(context.Background(), "exec-4", root, nil)

	assert.Equal(t, spec.ExecutionCancelled, status)
	assert.True(t, ran["a"])
	assert.False(t, ran["b"], "steps after a mid-traversal cancel must not run")
	assert.False(t, ran["c"])
}
