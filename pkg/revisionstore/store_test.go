package revisionstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmeurisse/maestro-sub001/pkg/errors"
	"github.com/fmeurisse/maestro-sub001/pkg/spec"
)

func newRevision(namespace, id string, version int, active bool) *spec.WorkflowRevision {
	now := time.Now().UTC()
	return &spec.WorkflowRevision{
		Namespace: namespace,
		ID:        id,
		Version:   version,
		Name:      "test",
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSaveAndFindByID(t *testing.T) {
	s := New()
	r := newRevision("ns", "wf", 1, false)
	require.NoError(t, s.SaveWithSource(r, "source-v1"))

	got, ok := s.FindByIDWithSource(r.RevisionID())
	require.True(t, ok)
	assert.Equal(t, "source-v1", got.YamlSource)
	assert.Equal(t, 1, got.Revision.Version)
}

func TestSaveRejectsDuplicateVersion(t *testing.T) {
	s := New()
	r := newRevision("ns", "wf", 1, false)
	require.NoError(t, s.SaveWithSource(r, "v1"))

	err := s.SaveWithSource(newRevision("ns", "wf", 1, false), "v1-again")
	require.Error(t, err)
	de, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindAlreadyExists, de.Kind)
}

func TestFindMaxVersionIsMonotonic(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveWithSource(newRevision("ns", "wf", 1, false), "v1"))
	require.NoError(t, s.SaveWithSource(newRevision("ns", "wf", 2, false), "v2"))

	max, ok := s.FindMaxVersion(spec.WorkflowID{Namespace: "ns", ID: "wf"})
	require.True(t, ok)
	assert.Equal(t, 2, max)
}

func TestUpdateRejectsActiveRevision(t *testing.T) {
	s := New()
	r := newRevision("ns", "wf", 1, true)
	require.NoError(t, s.SaveWithSource(r, "v1"))

	err := s.UpdateWithSource(newRevision("ns", "wf", 1, true), "v1-edited")
	require.Error(t, err)
	de, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindActiveConflict, de.Kind)
}

func TestUpdateAllowsInactiveRevision(t *testing.T) {
	s := New()
	r := newRevision("ns", "wf", 1, false)
	require.NoError(t, s.SaveWithSource(r, "v1"))

	updated := newRevision("ns", "wf", 1, false)
	updated.Name = "renamed"
	require.NoError(t, s.UpdateWithSource(updated, "v1-edited"))

	got, _ := s.FindByID(r.RevisionID())
	assert.Equal(t, "renamed", got.Name)
}

func TestDeleteByIDRejectsActiveRevision(t *testing.T) {
	s := New()
	r := newRevision("ns", "wf", 1, true)
	require.NoError(t, s.SaveWithSource(r, "v1"))

	err := s.DeleteByID(r.RevisionID())
	require.Error(t, err)
	de, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindActiveConflict, de.Kind)
}

func TestDeleteByWorkflowIDIsUnconditional(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveWithSource(newRevision("ns", "wf", 1, true), "v1"))
	require.NoError(t, s.SaveWithSource(newRevision("ns", "wf", 2, false), "v2"))

	count, err := s.DeleteByWorkflowID(spec.WorkflowID{Namespace: "ns", ID: "wf"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.False(t, s.Exists(spec.WorkflowID{Namespace: "ns", ID: "wf"}))
}

func TestActivateAllowsMultipleActiveRevisions(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveWithSource(newRevision("ns", "wf", 1, false), "v1"))
	require.NoError(t, s.SaveWithSource(newRevision("ns", "wf", 2, false), "v2"))

	require.NoError(t, s.ActivateWithSource(spec.WorkflowRevisionID{Namespace: "ns", ID: "wf", Version: 1}, "v1-active", time.Now().UTC()))
	require.NoError(t, s.ActivateWithSource(spec.WorkflowRevisionID{Namespace: "ns", ID: "wf", Version: 2}, "v2-active", time.Now().UTC()))

	active := s.FindActiveRevisions(spec.WorkflowID{Namespace: "ns", ID: "wf"})
	assert.Len(t, active, 2)
}

func TestDeactivateIsIdempotent(t *testing.T) {
	s := New()
	r := newRevision("ns", "wf", 1, false)
	require.NoError(t, s.SaveWithSource(r, "v1"))

	require.NoError(t, s.DeactivateWithSource(r.RevisionID(), "v1-still-inactive", time.Now().UTC()))
	got, _ := s.FindByID(r.RevisionID())
	assert.False(t, got.Active)
}

func TestActivateUpdatesStructuredUpdatedAt(t *testing.T) {
	s := New()
	r := newRevision("ns", "wf", 1, false)
	require.NoError(t, s.SaveWithSource(r, "v1"))

	newTime := r.UpdatedAt.Add(time.Hour)
	require.NoError(t, s.ActivateWithSource(r.RevisionID(), "v1-active", newTime))

	withSource, ok := s.FindByIDWithSource(r.RevisionID())
	require.True(t, ok)
	assert.True(t, withSource.Revision.UpdatedAt.Equal(newTime))
	assert.Equal(t, "v1-active", withSource.YamlSource)
}

func TestListWorkflowsScopedByNamespace(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveWithSource(newRevision("ns1", "wf1", 1, false), "v1"))
	require.NoError(t, s.SaveWithSource(newRevision("ns2", "wf2", 1, false), "v1"))

	ns1Workflows := s.ListWorkflows("ns1")
	require.Len(t, ns1Workflows, 1)
	assert.Equal(t, "wf1", ns1Workflows[0].ID)
}
