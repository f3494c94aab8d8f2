// Package workflow implements the Use-Case Layer (component E): the
// transactional operations over the Revision Store, Execution Store,
// Codec, and Execution Engine, enforcing the invariants the storage
// schemas alone don't (optimistic locking, version assignment, the
// active gate).
package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fmeurisse/maestro-sub001/pkg/codec"
	"github.com/fmeurisse/maestro-sub001/pkg/engine"
	"github.com/fmeurisse/maestro-sub001/pkg/errors"
	"github.com/fmeurisse/maestro-sub001/pkg/executionstore"
	"github.com/fmeurisse/maestro-sub001/pkg/logger"
	"github.com/fmeurisse/maestro-sub001/pkg/revisionstore"
	"github.com/fmeurisse/maestro-sub001/pkg/spec"
	"github.com/fmeurisse/maestro-sub001/pkg/step"
)

// Service composes the stores, codec, and engine into the business
// operations described in §4.5.
type Service struct {
	registry   *step.Registry
	revisions  revisionstore.Store
	executions executionstore.Store
	engine     *engine.Engine
	log        *logger.Logger

	now func() time.Time
}

// New builds a Service. reg must already have its step kinds registered
// (step.Bootstrap or equivalent) before any workflow is parsed.
func New(reg *step.Registry, revisions revisionstore.Store, executions executionstore.Store, eng *engine.Engine, log *logger.Logger) *Service {
	return &Service{
		registry:   reg,
		revisions:  revisions,
		executions: executions,
		engine:     eng,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateWorkflow implements §4.5.1: parse, assign version 1, stamp times,
// force inactive, persist both representations.
func (s *Service) CreateWorkflow(source string) (*spec.WorkflowRevisionWithSource, error) {
	revision, err := codec.ParseRevision(s.registry, source, false)
	if err != nil {
		return nil, err
	}
	wid := revision.WorkflowID()
	if s.revisions.Exists(wid) {
		return nil, errors.New(errors.KindAlreadyExists, "workflow %s/%s already exists", wid.Namespace, wid.ID)
	}

	now := s.now()
	revision.Version = 1
	revision.CreatedAt = now
	revision.UpdatedAt = now
	revision.Active = false

	newSource, err := codec.UpdateMetadata(source, codec.MetadataUpdates{
		CreatedAt: &now,
		UpdatedAt: &now,
		Active:    boolPtr(false),
		Version:   intPtr(1),
	})
	if err != nil {
		return nil, err
	}

	if err := s.revisions.SaveWithSource(revision, newSource); err != nil {
		return nil, err
	}
	return &spec.WorkflowRevisionWithSource{Revision: revision, YamlSource: newSource}, nil
}

// CreateRevision implements §4.5.2: the path's (namespace, id) override
// anything in the source body, and the new version is one past the
// current max.
func (s *Service) CreateRevision(namespace, id, source string) (*spec.WorkflowRevisionWithSource, error) {
	wid := spec.WorkflowID{Namespace: namespace, ID: id}
	if !s.revisions.Exists(wid) {
		return nil, errors.New(errors.KindNotFound, "workflow %s/%s not found", namespace, id)
	}

	revision, err := codec.ParseRevision(s.registry, source, false)
	if err != nil {
		return nil, err
	}
	revision.Namespace = namespace
	revision.ID = id

	maxVersion, _ := s.revisions.FindMaxVersion(wid)
	revision.Version = maxVersion + 1
	revision.Active = false
	now := s.now()
	revision.CreatedAt = now
	revision.UpdatedAt = now

	newSource, err := codec.UpdateMetadata(source, codec.MetadataUpdates{
		CreatedAt: &now,
		UpdatedAt: &now,
		Active:    boolPtr(false),
		Version:   intPtr(revision.Version),
	})
	if err != nil {
		return nil, err
	}

	if err := s.revisions.SaveWithSource(revision, newSource); err != nil {
		return nil, err
	}
	return &spec.WorkflowRevisionWithSource{Revision: revision, YamlSource: newSource}, nil
}

// UpdateRevision implements §4.5.3: optimistic-locked update of an
// inactive revision.
func (s *Service) UpdateRevision(id spec.WorkflowRevisionID, source string) (*spec.WorkflowRevisionWithSource, error) {
	expected, err := codec.RequireUpdatedAt(source)
	if err != nil {
		return nil, err
	}

	existing, ok := s.revisions.FindByIDWithSource(id)
	if !ok {
		return nil, errors.New(errors.KindNotFound, "revision %s/%s/%d not found", id.Namespace, id.ID, id.Version)
	}
	if existing.Revision.Active {
		return nil, errors.New(errors.KindActiveConflict, "revision %s/%s/%d is active", id.Namespace, id.ID, id.Version)
	}

	revision, err := codec.ParseRevision(s.registry, source, true)
	if err != nil {
		return nil, err
	}
	if revision.Namespace != id.Namespace || revision.ID != id.ID || revision.Version != id.Version {
		return nil, errors.New(errors.KindInvalidRevision, "body identifiers do not match path %s/%s/%d", id.Namespace, id.ID, id.Version)
	}
	if !expected.Equal(existing.Revision.UpdatedAt) {
		return nil, errors.New(errors.KindOptimisticLock, "updatedAt mismatch").WithDetail(map[string]interface{}{
			"expected": expected,
			"actual":   existing.Revision.UpdatedAt,
		})
	}

	revision.CreatedAt = existing.Revision.CreatedAt
	revision.Active = false
	now := s.now()
	revision.UpdatedAt = now

	newSource, err := codec.UpdateMetadata(source, codec.MetadataUpdates{UpdatedAt: &now})
	if err != nil {
		return nil, err
	}
	if err := s.revisions.UpdateWithSource(revision, newSource); err != nil {
		return nil, err
	}
	return &spec.WorkflowRevisionWithSource{Revision: revision, YamlSource: newSource}, nil
}

// setActiveState implements §4.5.4 for both activate and deactivate.
func (s *Service) setActiveState(id spec.WorkflowRevisionID, target bool, currentUpdatedAtHeader string) (*spec.WorkflowRevisionWithSource, error) {
	existing, ok := s.revisions.FindByIDWithSource(id)
	if !ok {
		return nil, errors.New(errors.KindNotFound, "revision %s/%s/%d not found", id.Namespace, id.ID, id.Version)
	}
	headerTime, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(currentUpdatedAtHeader))
	if err != nil {
		headerTime, err = time.Parse(time.RFC3339, strings.TrimSpace(currentUpdatedAtHeader))
	}
	if err != nil {
		return nil, errors.New(errors.KindInvalidHeader, "X-Current-Updated-At is missing or malformed")
	}
	if !headerTime.Equal(existing.Revision.UpdatedAt) {
		return nil, errors.New(errors.KindOptimisticLock, "updatedAt mismatch").WithDetail(map[string]interface{}{
			"expected": headerTime,
			"actual":   existing.Revision.UpdatedAt,
		})
	}

	now := s.now()
	newSource, err := codec.UpdateMetadata(existing.YamlSource, codec.MetadataUpdates{
		Active:    &target,
		UpdatedAt: &now,
	})
	if err != nil {
		return nil, err
	}

	if target {
		err = s.revisions.ActivateWithSource(id, newSource, now)
	} else {
		err = s.revisions.DeactivateWithSource(id, newSource, now)
	}
	if err != nil {
		return nil, err
	}

	persisted, ok := s.revisions.FindByIDWithSource(id)
	if !ok {
		return nil, errors.New(errors.KindNotFound, "revision %s/%s/%d not found", id.Namespace, id.ID, id.Version)
	}
	return persisted, nil
}

// Activate implements §4.5.4 (activate direction). Idempotent if already active.
func (s *Service) Activate(id spec.WorkflowRevisionID, currentUpdatedAtHeader string) (*spec.WorkflowRevisionWithSource, error) {
	return s.setActiveState(id, true, currentUpdatedAtHeader)
}

// Deactivate implements §4.5.4 (deactivate direction). Idempotent if already inactive.
func (s *Service) Deactivate(id spec.WorkflowRevisionID, currentUpdatedAtHeader string) (*spec.WorkflowRevisionWithSource, error) {
	return s.setActiveState(id, false, currentUpdatedAtHeader)
}

// DeleteRevision implements §4.5.5 (single revision): must be inactive.
func (s *Service) DeleteRevision(id spec.WorkflowRevisionID) error {
	return s.revisions.DeleteByID(id)
}

// DeleteWorkflow implements §4.5.5 (entire workflow): unconditional,
// returns the count removed (Open Question resolved in SPEC_FULL §12).
func (s *Service) DeleteWorkflow(wid spec.WorkflowID) (int, error) {
	return s.revisions.DeleteByWorkflowID(wid)
}

// LaunchExecution implements §4.5.6: load the active/target revision,
// create the execution header, hand off to the engine, finalize status.
func (s *Service) LaunchExecution(goCtx context.Context, id spec.WorkflowRevisionID, inputParameters map[string]interface{}) (*spec.WorkflowExecution, error) {
	revision, ok := s.revisions.FindByID(id)
	if !ok {
		return nil, errors.New(errors.KindNotFound, "revision %s/%s/%d not found", id.Namespace, id.ID, id.Version)
	}

	executionID := spec.ExecutionID(uuid.NewString())
	now := s.now()
	header := &spec.WorkflowExecution{
		ExecutionID:     executionID,
		RevisionID:      id,
		InputParameters: inputParameters,
		Status:          spec.ExecutionRunning,
		StartedAt:       now,
		LastUpdatedAt:   now,
	}
	if err := s.executions.CreateExecution(header); err != nil {
		return nil, err
	}

	status, errMessage := s.engine.Run(goCtx, executionID, revision.Steps, inputParameters)
	if err := s.executions.UpdateExecutionStatus(executionID, status, errMessage); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "finalizing execution status")
	}

	finalHeader, _ := s.executions.FindByID(executionID)
	return finalHeader, nil
}

// CancelExecution requests cooperative cancellation of a running execution.
func (s *Service) CancelExecution(id spec.ExecutionID) bool {
	return s.engine.Cancel(id)
}

// StepResults returns one execution's checkpoint trail in step order.
func (s *Service) StepResults(id spec.ExecutionID) []*spec.ExecutionStepResult {
	return s.executions.FindStepResultsByExecutionID(id)
}

// ExecutionSummary is one row of a history query: the header plus
// step-count/duration statistics computed from its step results.
type ExecutionSummary struct {
	Execution   *spec.WorkflowExecution
	StepsTotal  int
	StepsOK     int
	StepsFailed int
	Duration    time.Duration
}

// History implements §4.5.7: confirm the workflow exists, page through
// matching executions, and compute each one's summary counts — fanned out
// with errgroup since each summary load is independent.
func (s *Service) History(wid spec.WorkflowID, opts executionstore.ListOptions) ([]*ExecutionSummary, int, error) {
	if !s.revisions.Exists(wid) {
		return nil, 0, errors.New(errors.KindNotFound, "workflow %s/%s not found", wid.Namespace, wid.ID)
	}

	executions, err := s.executions.FindByWorkflow(wid, opts)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.executions.CountByWorkflow(wid, opts)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]*ExecutionSummary, len(executions))
	var g errgroup.Group
	for i, exec := range executions {
		i, exec := i, exec
		g.Go(func() error {
			results := s.executions.FindStepResultsByExecutionID(exec.ExecutionID)
			summary := &ExecutionSummary{Execution: exec, StepsTotal: len(results)}
			for _, r := range results {
				switch r.Status {
				case spec.StepCompleted:
					summary.StepsOK++
				case spec.StepFailed:
					summary.StepsFailed++
				}
			}
			if exec.CompletedAt != nil {
				summary.Duration = exec.CompletedAt.Sub(exec.StartedAt)
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }
