// Package executionstore implements the append-only Execution Store
// (component D): execution headers and per-step checkpoint rows, with
// the uniqueness and durability guarantees the engine's per-step commit
// protocol depends on.
package executionstore

import (
	"sort"
	"sync"
	"time"

	"github.com/fmeurisse/maestro-sub001/pkg/config"
	"github.com/fmeurisse/maestro-sub001/pkg/errors"
	"github.com/fmeurisse/maestro-sub001/pkg/spec"
)

// ListOptions filters and paginates a workflow's execution history.
type ListOptions struct {
	Version *int
	Status  *spec.ExecutionStatus
	Limit   int
	Offset  int
}

func (o ListOptions) normalized() ListOptions {
	limits := config.Active()
	n := o
	if n.Limit <= 0 {
		n.Limit = limits.DefaultPageLimit
	}
	if n.Limit > limits.MaxPageLimit {
		n.Limit = limits.MaxPageLimit
	}
	if n.Offset < 0 {
		n.Offset = 0
	}
	return n
}

// Store is the Execution Store's operation contract (§4.4).
type Store interface {
	CreateExecution(e *spec.WorkflowExecution) error
	SaveStepResult(r *spec.ExecutionStepResult) error
	UpdateExecutionStatus(id spec.ExecutionID, status spec.ExecutionStatus, errorMessage string) error
	FindByID(id spec.ExecutionID) (*spec.WorkflowExecution, bool)
	FindStepResultsByExecutionID(id spec.ExecutionID) []*spec.ExecutionStepResult
	FindByWorkflow(wid spec.WorkflowID, opts ListOptions) ([]*spec.WorkflowExecution, error)
	CountByWorkflow(wid spec.WorkflowID, opts ListOptions) (int, error)
}

type stepKey struct {
	execution spec.ExecutionID
	index     int
}

// memStore is an in-process append-only implementation of Store. Per
// §4.4, saveStepResult "must commit immediately" — here that means the
// write is visible under the lock before the call returns, same
// no-SQL-driver-in-the-corpus justification as revisionstore.
type memStore struct {
	mu          sync.Mutex
	headers     map[spec.ExecutionID]*spec.WorkflowExecution
	resultsByID map[stepKey]*spec.ExecutionStepResult
	order       map[spec.ExecutionID][]int // stepIndex order of insertion, per execution
}

// New returns an empty in-memory Execution Store.
func New() Store {
	return &memStore{
		headers:     make(map[spec.ExecutionID]*spec.WorkflowExecution),
		resultsByID: make(map[stepKey]*spec.ExecutionStepResult),
		order:       make(map[spec.ExecutionID][]int),
	}
}

func (s *memStore) CreateExecution(e *spec.WorkflowExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.headers[e.ExecutionID]; exists {
		return errors.New(errors.KindAlreadyExists, "execution %s already exists", e.ExecutionID)
	}
	clone := *e
	s.headers[e.ExecutionID] = &clone
	return nil
}

func (s *memStore) SaveStepResult(r *spec.ExecutionStepResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := stepKey{execution: r.ExecutionID, index: r.StepIndex}
	if _, exists := s.resultsByID[key]; exists {
		return errors.New(errors.KindAlreadyExists, "step result %s/%d already exists", r.ExecutionID, r.StepIndex)
	}
	// Round-trip inputData/outputData through the opaque JSON codec so
	// the stored value is decoupled from the caller's map, the same way
	// a JSON-column store would be.
	inBlob, err := encodeOpaque(r.InputData)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "encoding step input data")
	}
	outBlob, err := encodeOpaque(r.OutputData)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "encoding step output data")
	}

	clone := *r
	clone.InputData = decodeOpaque(inBlob)
	clone.OutputData = decodeOpaque(outBlob)
	s.resultsByID[key] = &clone
	s.order[r.ExecutionID] = append(s.order[r.ExecutionID], r.StepIndex)
	return nil
}

func (s *memStore) UpdateExecutionStatus(id spec.ExecutionID, status spec.ExecutionStatus, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	header, ok := s.headers[id]
	if !ok {
		return errors.New(errors.KindExecutionNotFound, "execution %s not found", id)
	}
	header.Status = status
	header.ErrorMessage = errorMessage
	now := time.Now().UTC()
	header.LastUpdatedAt = now
	if status.Terminal() {
		header.CompletedAt = &now
	}
	return nil
}

func (s *memStore) FindByID(id spec.ExecutionID) (*spec.WorkflowExecution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.headers[id]
	if !ok {
		return nil, false
	}
	clone := *h
	return &clone, true
}

func (s *memStore) FindStepResultsByExecutionID(id spec.ExecutionID) []*spec.ExecutionStepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	indices := append([]int(nil), s.order[id]...)
	sort.Ints(indices)
	out := make([]*spec.ExecutionStepResult, 0, len(indices))
	for _, idx := range indices {
		r := s.resultsByID[stepKey{execution: id, index: idx}]
		clone := *r
		out = append(out, &clone)
	}
	return out
}

func (s *memStore) matching(wid spec.WorkflowID, opts ListOptions) []*spec.WorkflowExecution {
	var out []*spec.WorkflowExecution
	for _, h := range s.headers {
		if h.RevisionID.WorkflowID() != wid {
			continue
		}
		if opts.Version != nil && h.RevisionID.Version != *opts.Version {
			continue
		}
		if opts.Status != nil && h.Status != *opts.Status {
			continue
		}
		clone := *h
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ExecutionID > out[j].ExecutionID
	})
	return out
}

func (s *memStore) FindByWorkflow(wid spec.WorkflowID, opts ListOptions) ([]*spec.WorkflowExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	opts = opts.normalized()
	all := s.matching(wid, opts)
	start := opts.Offset
	if start > len(all) {
		start = len(all)
	}
	end := start + opts.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (s *memStore) CountByWorkflow(wid spec.WorkflowID, opts ListOptions) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.matching(wid, opts)), nil
}
