package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmeurisse/maestro-sub001/pkg/engine"
	"github.com/fmeurisse/maestro-sub001/pkg/errors"
	"github.com/fmeurisse/maestro-sub001/pkg/executionstore"
	"github.com/fmeurisse/maestro-sub001/pkg/logger"
	"github.com/fmeurisse/maestro-sub001/pkg/revisionstore"
	"github.com/fmeurisse/maestro-sub001/pkg/spec"
	"github.com/fmeurisse/maestro-sub001/pkg/step"
)

var bootstrapOnce sync.Once

func newService() *Service {
	bootstrapOnce.Do(step.Bootstrap)
	revisions := revisionstore.New()
	executions := executionstore.New()
	log := logger.Get()
	eng := engine.New(step.Default, executions, log)
	return New(step.Default, revisions, executions, eng, log)
}

const workflowYAML = `
namespace: ns1
id: wf1
name: Greeting
steps:
  type: Sequence
  steps:
    - type: LogTask
      name: step-one
      message: hello
    - type: LogTask
      name: step-two
      message: world
`

func TestCreateWorkflowAssignsVersionOne(t *testing.T) {
	svc := newService()
	created, err := svc.CreateWorkflow(workflowYAML)
	require.NoError(t, err)
	assert.Equal(t, 1, created.Revision.Version)
	assert.False(t, created.Revision.Active)
	assert.Contains(t, created.YamlSource, "version: 1")
}

func TestCreateWorkflowRejectsDuplicate(t *testing.T) {
	svc := newService()
	_, err := svc.CreateWorkflow(workflowYAML)
	require.NoError(t, err)

	_, err = svc.CreateWorkflow(workflowYAML)
	require.Error(t, err)
	de, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindAlreadyExists, de.Kind)
}

func TestCreateRevisionIncrementsVersion(t *testing.T) {
	svc := newService()
	_, err := svc.CreateWorkflow(workflowYAML)
	require.NoError(t, err)

	revised, err := svc.CreateRevision("ns1", "wf1", workflowYAML)
	require.NoError(t, err)
	assert.Equal(t, 2, revised.Revision.Version)
}

func TestUpdateRevisionRequiresOptimisticLockMatch(t *testing.T) {
	svc := newService()
	created, err := svc.CreateWorkflow(workflowYAML)
	require.NoError(t, err)

	staleSource := created.YamlSource
	// Simulate a concurrent update moving updatedAt forward first.
	_, err = svc.UpdateRevision(created.Revision.RevisionID(), created.YamlSource)
	require.NoError(t, err)

	_, err = svc.UpdateRevision(created.Revision.RevisionID(), staleSource)
	require.Error(t, err)
	de, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindOptimisticLock, de.Kind)
}

func TestUpdateRevisionRejectsActiveRevision(t *testing.T) {
	svc := newService()
	created, err := svc.CreateWorkflow(workflowYAML)
	require.NoError(t, err)

	header := created.Revision.UpdatedAt.Format(time.RFC3339Nano)
	_, err = svc.Activate(created.Revision.RevisionID(), header)
	require.NoError(t, err)

	_, err = svc.UpdateRevision(created.Revision.RevisionID(), created.YamlSource)
	require.Error(t, err)
	de, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindActiveConflict, de.Kind)
}

func TestActivateThenDeactivate(t *testing.T) {
	svc := newService()
	created, err := svc.CreateWorkflow(workflowYAML)
	require.NoError(t, err)

	header := created.Revision.UpdatedAt.Format(time.RFC3339Nano)
	activated, err := svc.Activate(created.Revision.RevisionID(), header)
	require.NoError(t, err)
	assert.True(t, activated.Revision.Active)

	header2 := activated.Revision.UpdatedAt.Format(time.RFC3339Nano)
	deactivated, err := svc.Deactivate(created.Revision.RevisionID(), header2)
	require.NoError(t, err)
	assert.False(t, deactivated.Revision.Active)
}

func TestActivateThenDeactivatePersistsUpdatedAt(t *testing.T) {
	svc := newService()
	created, err := svc.CreateWorkflow(workflowYAML)
	require.NoError(t, err)

	header := created.Revision.UpdatedAt.Format(time.RFC3339Nano)
	activated, err := svc.Activate(created.Revision.RevisionID(), header)
	require.NoError(t, err)

	stored, ok := svc.revisions.FindByIDWithSource(created.Revision.RevisionID())
	require.True(t, ok)
	assert.True(t, stored.Revision.UpdatedAt.Equal(activated.Revision.UpdatedAt))
	assert.Contains(t, stored.YamlSource, activated.Revision.UpdatedAt.Format(time.RFC3339Nano))

	header2 := activated.Revision.UpdatedAt.Format(time.RFC3339Nano)
	deactivated, err := svc.Deactivate(created.Revision.RevisionID(), header2)
	require.NoError(t, err)

	stored2, ok := svc.revisions.FindByIDWithSource(created.Revision.RevisionID())
	require.True(t, ok)
	assert.True(t, stored2.Revision.UpdatedAt.Equal(deactivated.Revision.UpdatedAt))
	assert.False(t, stored2.Revision.Active)
}

func TestActivateRejectsStaleHeader(t *testing.T) {
	svc := newService()
	created, err := svc.CreateWorkflow(workflowYAML)
	require.NoError(t, err)

	_, err = svc.Activate(created.Revision.RevisionID(), "2000-01-01T00:00:00Z")
	require.Error(t, err)
	de, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindOptimisticLock, de.Kind)
}

func TestDeleteWorkflowRemovesAllRevisionsUnconditionally(t *testing.T) {
	svc := newService()
	created, err := svc.CreateWorkflow(workflowYAML)
	require.NoError(t, err)

	header := created.Revision.UpdatedAt.Format(time.RFC3339Nano)
	_, err = svc.Activate(created.Revision.RevisionID(), header)
	require.NoError(t, err)

	count, err := svc.DeleteWorkflow(created.Revision.WorkflowID())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLaunchExecutionRunsToCompletion(t *testing.T) {
	svc := newService()
	created, err := svc.CreateWorkflow(workflowYAML)
	require.NoError(t, err)

	execution, err := svc.LaunchExecution(context.Background(), created.Revision.RevisionID(), map[string]interface{}{"greeting": "hi"})
	require.NoError(t, err)
	assert.Equal(t, spec.ExecutionCompleted, execution.Status)

	results := svc.StepResults(execution.ExecutionID)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].StepIndex)
	assert.Equal(t, 1, results[1].StepIndex)
}

func TestHistoryReturnsSummaryCounts(t *testing.T) {
	svc := newService()
	created, err := svc.CreateWorkflow(workflowYAML)
	require.NoError(t, err)
	_, err = svc.LaunchExecution(context.Background(), created.Revision.RevisionID(), nil)
	require.NoError(t, err)

	summaries, total, err := svc.History(created.Revision.WorkflowID(), executionstore.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, summaries, 1)
	assert.Equal(t, 2, summaries[0].StepsTotal)
	assert.Equal(t, 2, summaries[0].StepsOK)
}

func TestHistoryRejectsUnknownWorkflow(t *testing.T) {
	svc := newService()
	_, _, err := svc.History(spec.WorkflowID{Namespace: "ns1", ID: "ghost"}, executionstore.ListOptions{})
	require.Error(t, err)
	de, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindNotFound, de.Kind)
}
