// Package spec defines the data model shared by the workflow codec,
// revision store, execution store, and engine: identifiers, the
// WorkflowRevision/WorkflowExecution/ExecutionStepResult entities, and
// the polymorphic Step tree.
package spec

import (
	"regexp"
	"time"
)

// identifierPattern constrains namespace and id segments per the data model.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)

// ValidIdentifier reports whether s is a legal namespace or workflow id.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// WorkflowID names a workflow independent of any particular revision.
type WorkflowID struct {
	Namespace string
	ID        string
}

// WorkflowRevisionID names one specific version of a workflow.
type WorkflowRevisionID struct {
	Namespace string
	ID        string
	Version   int
}

// WorkflowID returns the owning workflow's identifier.
func (r WorkflowRevisionID) WorkflowID() WorkflowID {
	return WorkflowID{Namespace: r.Namespace, ID: r.ID}
}

// ExecutionID is an opaque, globally unique, URL-safe identifier.
type ExecutionID string

// ExecutionStatus is the lifecycle state of a WorkflowExecution.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "PENDING"
	ExecutionRunning   ExecutionStatus = "RUNNING"
	ExecutionCompleted ExecutionStatus = "COMPLETED"
	ExecutionFailed    ExecutionStatus = "FAILED"
	ExecutionCancelled ExecutionStatus = "CANCELLED"
)

// Terminal reports whether status is one a WorkflowExecution cannot leave.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionCompleted, ExecutionFailed, ExecutionCancelled:
		return true
	default:
		return false
	}
}

// StepStatus is the outcome of visiting one node in a step tree.
type StepStatus string

const (
	StepCompleted StepStatus = "COMPLETED"
	StepFailed    StepStatus = "FAILED"
	StepSkipped   StepStatus = "SKIPPED"
)

// StepMeta carries display/behavioral metadata common to every step kind.
type StepMeta struct {
	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	Hidden       bool   `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	AllowFailure bool   `json:"allowFailure,omitempty" yaml:"allowFailure,omitempty"`
}

// WorkflowRevision is the structured form of one version of a workflow.
type WorkflowRevision struct {
	Namespace   string
	ID          string
	Version     int
	Name        string
	Description string
	Steps       Step
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RevisionID returns this revision's composite identifier.
func (r *WorkflowRevision) RevisionID() WorkflowRevisionID {
	return WorkflowRevisionID{Namespace: r.Namespace, ID: r.ID, Version: r.Version}
}

// WorkflowID returns the owning workflow's identifier.
func (r *WorkflowRevision) WorkflowID() WorkflowID {
	return WorkflowID{Namespace: r.Namespace, ID: r.ID}
}

// WorkflowRevisionWithSource pairs a structured revision with the exact
// authored YAML text it was parsed from.
type WorkflowRevisionWithSource struct {
	Revision   *WorkflowRevision
	YamlSource string
}

// WorkflowExecution is the header row for one run of a revision's step tree.
type WorkflowExecution struct {
	ExecutionID     ExecutionID
	RevisionID      WorkflowRevisionID
	InputParameters map[string]interface{}
	Status          ExecutionStatus
	ErrorMessage    string
	StartedAt       time.Time
	CompletedAt     *time.Time
	LastUpdatedAt   time.Time
}

// ExecutionStepResult is one append-only checkpoint row produced while
// walking a step tree.
type ExecutionStepResult struct {
	ResultID     string
	ExecutionID  ExecutionID
	StepIndex    int
	StepID       string
	StepType     string
	Status       StepStatus
	InputData    map[string]interface{}
	OutputData   map[string]interface{}
	ErrorMessage string
	ErrorDetails map[string]interface{}
	StartedAt    time.Time
	CompletedAt  time.Time
}

// Step is a node in a workflow's step tree: either an orchestration step
// (Sequence, If) that contains other steps, or a task step that performs
// work. Concrete kinds live in the step registry under a tag string;
// Step itself only exposes what the engine and codec need generically.
type Step interface {
	// Tag returns the registry tag identifying this step's kind.
	Tag() string
	// Meta returns this step's shared metadata.
	Meta() *StepMeta
}

// Orchestration is implemented by step kinds that contain other steps
// (Sequence, If). The engine type-switches on this to decide whether to
// recurse or invoke a registered executor directly.
type Orchestration interface {
	Step
	Children() []Step
}
