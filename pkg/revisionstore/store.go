// Package revisionstore implements the dual-representation, versioned,
// optimistically-lockable catalog of workflow definitions (component C).
// The store itself enforces only the invariants that are structural
// (unique keys, the active-gate on update/delete); optimistic locking is
// the use-case layer's responsibility.
package revisionstore

import (
	"sort"
	"sync"
	"time"

	"github.com/fmeurisse/maestro-sub001/pkg/errors"
	"github.com/fmeurisse/maestro-sub001/pkg/spec"
)

// Store is the Revision Store's operation contract (§4.3).
type Store interface {
	SaveWithSource(r *spec.WorkflowRevision, source string) error
	UpdateWithSource(r *spec.WorkflowRevision, source string) error
	FindByIDWithSource(id spec.WorkflowRevisionID) (*spec.WorkflowRevisionWithSource, bool)
	FindByID(id spec.WorkflowRevisionID) (*spec.WorkflowRevision, bool)
	FindByWorkflowID(wid spec.WorkflowID) []*spec.WorkflowRevision
	FindActiveRevisions(wid spec.WorkflowID) []*spec.WorkflowRevision
	FindMaxVersion(wid spec.WorkflowID) (int, bool)
	Exists(wid spec.WorkflowID) bool
	DeleteByID(id spec.WorkflowRevisionID) error
	DeleteByWorkflowID(wid spec.WorkflowID) (int, error)
	ListWorkflows(namespace string) []spec.WorkflowID
	ActivateWithSource(id spec.WorkflowRevisionID, newSource string, newUpdatedAt time.Time) error
	DeactivateWithSource(id spec.WorkflowRevisionID, newSource string, newUpdatedAt time.Time) error
}

type row struct {
	revision *spec.WorkflowRevision
	source   string
}

// memStore is an in-process implementation of Store. No SQL/KV driver
// appears anywhere in the corpus this was grounded on (see DESIGN.md);
// it reuses the cache package's "lock scoped to one logical entity"
// idiom instead, one sync.RWMutex per workflow rather than a single
// store-wide lock.
type memStore struct {
	mu    sync.Mutex // guards the locks map (per-workflow lock creation)
	locks map[spec.WorkflowID]*sync.RWMutex
	rows  map[spec.WorkflowRevisionID]*row
}

// New returns an empty in-memory Revision Store.
func New() Store {
	return &memStore{
		locks: make(map[spec.WorkflowID]*sync.RWMutex),
		rows:  make(map[spec.WorkflowRevisionID]*row),
	}
}

func (s *memStore) lockFor(wid spec.WorkflowID) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[wid]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[wid] = l
	}
	return l
}

func (s *memStore) SaveWithSource(r *spec.WorkflowRevision, source string) error {
	l := s.lockFor(r.WorkflowID())
	l.Lock()
	defer l.Unlock()

	id := r.RevisionID()
	if _, exists := s.rows[id]; exists {
		return errors.New(errors.KindAlreadyExists, "revision %s/%s/%d already exists", id.Namespace, id.ID, id.Version)
	}
	clone := *r
	s.rows[id] = &row{revision: &clone, source: source}
	return nil
}

func (s *memStore) UpdateWithSource(r *spec.WorkflowRevision, source string) error {
	l := s.lockFor(r.WorkflowID())
	l.Lock()
	defer l.Unlock()

	id := r.RevisionID()
	existing, ok := s.rows[id]
	if !ok {
		return errors.New(errors.KindNotFound, "revision %s/%s/%d not found", id.Namespace, id.ID, id.Version)
	}
	if existing.revision.Active {
		return errors.New(errors.KindActiveConflict, "revision %s/%s/%d is active", id.Namespace, id.ID, id.Version)
	}
	clone := *r
	s.rows[id] = &row{revision: &clone, source: source}
	return nil
}

func (s *memStore) FindByIDWithSource(id spec.WorkflowRevisionID) (*spec.WorkflowRevisionWithSource, bool) {
	l := s.lockFor(id.WorkflowID())
	l.RLock()
	defer l.RUnlock()

	r, ok := s.rows[id]
	if !ok {
		return nil, false
	}
	clone := *r.revision
	return &spec.WorkflowRevisionWithSource{Revision: &clone, YamlSource: r.source}, true
}

func (s *memStore) FindByID(id spec.WorkflowRevisionID) (*spec.WorkflowRevision, bool) {
	withSource, ok := s.FindByIDWithSource(id)
	if !ok {
		return nil, false
	}
	return withSource.Revision, true
}

func (s *memStore) FindByWorkflowID(wid spec.WorkflowID) []*spec.WorkflowRevision {
	l := s.lockFor(wid)
	l.RLock()
	defer l.RUnlock()

	var out []*spec.WorkflowRevision
	for id, r := range s.rows {
		if id.WorkflowID() == wid {
			clone := *r.revision
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

func (s *memStore) FindActiveRevisions(wid spec.WorkflowID) []*spec.WorkflowRevision {
	all := s.FindByWorkflowID(wid)
	out := all[:0:0]
	for _, r := range all {
		if r.Active {
			out = append(out, r)
		}
	}
	return out
}

func (s *memStore) FindMaxVersion(wid spec.WorkflowID) (int, bool) {
	all := s.FindByWorkflowID(wid)
	if len(all) == 0 {
		return 0, false
	}
	return all[len(all)-1].Version, true
}

func (s *memStore) Exists(wid spec.WorkflowID) bool {
	return len(s.FindByWorkflowID(wid)) > 0
}

func (s *memStore) DeleteByID(id spec.WorkflowRevisionID) error {
	l := s.lockFor(id.WorkflowID())
	l.Lock()
	defer l.Unlock()

	existing, ok := s.rows[id]
	if !ok {
		return errors.New(errors.KindNotFound, "revision %s/%s/%d not found", id.Namespace, id.ID, id.Version)
	}
	if existing.revision.Active {
		return errors.New(errors.KindActiveConflict, "revision %s/%s/%d is active", id.Namespace, id.ID, id.Version)
	}
	delete(s.rows, id)
	return nil
}

func (s *memStore) DeleteByWorkflowID(wid spec.WorkflowID) (int, error) {
	l := s.lockFor(wid)
	l.Lock()
	defer l.Unlock()

	count := 0
	for id := range s.rows {
		if id.WorkflowID() == wid {
			delete(s.rows, id)
			count++
		}
	}
	return count, nil
}

func (s *memStore) ListWorkflows(namespace string) []spec.WorkflowID {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := map[spec.WorkflowID]bool{}
	for id := range s.rows {
		if id.Namespace == namespace {
			seen[id.WorkflowID()] = true
		}
	}
	out := make([]spec.WorkflowID, 0, len(seen))
	for wid := range seen {
		out = append(out, wid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) setActive(id spec.WorkflowRevisionID, active bool, newSource string, newUpdatedAt time.Time) error {
	l := s.lockFor(id.WorkflowID())
	l.Lock()
	defer l.Unlock()

	existing, ok := s.rows[id]
	if !ok {
		return errors.New(errors.KindNotFound, "revision %s/%s/%d not found", id.Namespace, id.ID, id.Version)
	}
	clone := *existing.revision
	clone.Active = active
	clone.UpdatedAt = newUpdatedAt
	s.rows[id] = &row{revision: &clone, source: newSource}
	return nil
}

func (s *memStore) ActivateWithSource(id spec.WorkflowRevisionID, newSource string, newUpdatedAt time.Time) error {
	return s.setActive(id, true, newSource, newUpdatedAt)
}

func (s *memStore) DeactivateWithSource(id spec.WorkflowRevisionID, newSource string, newUpdatedAt time.Time) error {
	return s.setActive(id, false, newSource, newUpdatedAt)
}
