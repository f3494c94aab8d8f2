package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("billing-nightly_01"))
	assert.False(t, ValidIdentifier(""))
	assert.False(t, ValidIdentifier("has a space"))
	assert.False(t, ValidIdentifier("semi;colon"))
}

func TestExecutionStatusTerminal(t *testing.T) {
	assert.True(t, ExecutionCompleted.Terminal())
	assert.True(t, ExecutionFailed.Terminal())
	assert.True(t, ExecutionCancelled.Terminal())
	assert.False(t, ExecutionPending.Terminal())
	assert.False(t, ExecutionRunning.Terminal())
}

func TestRevisionIDDerivation(t *testing.T) {
	r := &WorkflowRevision{Namespace: "ns", ID: "wf", Version: 3}
	rid := r.RevisionID()
	assert.Equal(t, WorkflowRevisionID{Namespace: "ns", ID: "wf", Version: 3}, rid)
	assert.Equal(t, WorkflowID{Namespace: "ns", ID: "wf"}, rid.WorkflowID())
	assert.Equal(t, WorkflowID{Namespace: "ns", ID: "wf"}, r.WorkflowID())
}
