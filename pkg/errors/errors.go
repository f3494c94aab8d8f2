// Package errors defines the domain error taxonomy shared by the
// revision store, execution store, and use-case layer: one sentinel per
// kind, each carrying the HTTP status and problem-type URI a future
// transport would need, without this package depending on any transport.
package errors

import (
	stderrors "errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind identifies one member of the domain error taxonomy.
type Kind struct {
	Name        string
	HTTPStatus  int
	ProblemType string
}

func (k Kind) String() string { return k.Name }

var (
	KindInvalidRevision   = Kind{Name: "InvalidRevision", HTTPStatus: 400, ProblemType: "urn:problem-type:invalid-revision"}
	KindInvalidYaml       = Kind{Name: "InvalidYaml", HTTPStatus: 400, ProblemType: "urn:problem-type:invalid-yaml"}
	KindUnknownStepType   = Kind{Name: "UnknownStepType", HTTPStatus: 400, ProblemType: "urn:problem-type:unknown-step-type"}
	KindInvalidHeader     = Kind{Name: "InvalidHeader", HTTPStatus: 400, ProblemType: "urn:problem-type:invalid-header"}
	KindNotFound          = Kind{Name: "NotFound", HTTPStatus: 404, ProblemType: "urn:problem-type:not-found"}
	KindAlreadyExists     = Kind{Name: "AlreadyExists", HTTPStatus: 409, ProblemType: "urn:problem-type:already-exists"}
	KindActiveConflict    = Kind{Name: "ActiveConflict", HTTPStatus: 409, ProblemType: "urn:problem-type:active-conflict"}
	KindOptimisticLock    = Kind{Name: "OptimisticLock", HTTPStatus: 409, ProblemType: "urn:problem-type:optimistic-lock"}
	KindExecutionNotFound = Kind{Name: "ExecutionNotFound", HTTPStatus: 404, ProblemType: "urn:problem-type:execution-not-found"}
	KindInternal          = Kind{Name: "Internal", HTTPStatus: 500, ProblemType: "urn:problem-type:internal"}
)

// DomainError is a domain error of a specific Kind, with an optional
// message and optional structured detail (e.g. OptimisticLock carries
// the expected and actual timestamps).
type DomainError struct {
	Kind    Kind
	Message string
	Detail  map[string]interface{}
	cause   error
}

func (e *DomainError) Error() string {
	if e.Message == "" {
		return e.Kind.Name
	}
	return fmt.Sprintf("%s: %s", e.Kind.Name, e.Message)
}

func (e *DomainError) Unwrap() error { return e.cause }

// Is makes errors.Is(err, ErrNotFound) etc. work: two *DomainError values
// are equivalent for Is purposes iff they share a Kind.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if stderrors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New builds a DomainError of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and stack-trace context (via github.com/pkg/errors)
// to an underlying cause.
func Wrap(cause error, kind Kind, format string, args ...interface{}) *DomainError {
	return &DomainError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		cause:   pkgerrors.WithStack(cause),
	}
}

// WithDetail returns a copy of e with Detail set, for carrying structured
// fields like OptimisticLock's expected/actual timestamps.
func (e *DomainError) WithDetail(detail map[string]interface{}) *DomainError {
	clone := *e
	clone.Detail = detail
	return &clone
}

// Sentinel values for errors.Is comparisons: errors.Is(err, ErrNotFound).
var (
	ErrInvalidRevision   = &DomainError{Kind: KindInvalidRevision}
	ErrInvalidYaml       = &DomainError{Kind: KindInvalidYaml}
	ErrUnknownStepType   = &DomainError{Kind: KindUnknownStepType}
	ErrInvalidHeader     = &DomainError{Kind: KindInvalidHeader}
	ErrNotFound          = &DomainError{Kind: KindNotFound}
	ErrAlreadyExists     = &DomainError{Kind: KindAlreadyExists}
	ErrActiveConflict    = &DomainError{Kind: KindActiveConflict}
	ErrOptimisticLock    = &DomainError{Kind: KindOptimisticLock}
	ErrExecutionNotFound = &DomainError{Kind: KindExecutionNotFound}
	ErrInternal          = &DomainError{Kind: KindInternal}
)

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, sentinel *DomainError) bool {
	return stderrors.Is(err, sentinel)
}

// As extracts the first *DomainError in err's chain, if any.
func As(err error) (*DomainError, bool) {
	var de *DomainError
	ok := stderrors.As(err, &de)
	return de, ok
}
