// Package step implements the open Step Registry: an install-time mapping
// from a tag string to a (decoder, encoder, executor) triple, plus the
// three built-in step kinds (Sequence, If, LogTask) required by the core
// model. New kinds are added by calling Register during process startup;
// the codec and engine never switch on a closed enum.
package step

import (
	"fmt"
	"sync"

	"github.com/fmeurisse/maestro-sub001/pkg/spec"
)

// Decoder builds a concrete Step from its structured fields. It is given
// the owning Registry so orchestration kinds can recursively decode their
// children by tag.
type Decoder func(reg *Registry, fields map[string]interface{}) (spec.Step, error)

// Encoder is the dual of Decoder: it turns a concrete Step back into its
// structured fields (not including the "type" tag, which the registry
// attaches).
type Encoder func(reg *Registry, s spec.Step) (map[string]interface{}, error)

// Executor runs one step kind's logic and returns its outcome plus any
// context updates to merge into the cache.
type Executor func(ctx Context, s spec.Step) (spec.StepStatus, map[string]interface{}, error)

// KindInfo is everything the registry needs to know about one step kind.
type KindInfo struct {
	Tag         string
	DisplayName string
	Decode      Decoder
	Encode      Encoder
	Execute     Executor
}

// Registry maps step-kind tags to their KindInfo. It is safe to read
// concurrently once populated; Register is expected to run only during
// startup wiring.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]KindInfo
}

// NewRegistry returns an empty registry. Bootstrap installs the three
// built-in kinds into Default only; other registries get kinds through
// Register.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]KindInfo)}
}

// Register installs a kind. It panics if the tag is already bound —
// duplicate registration is a fatal configuration error, always caught
// during startup wiring, never a condition a caller should recover from.
func (r *Registry) Register(info KindInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[info.Tag]; exists {
		panic(fmt.Sprintf("step: tag %q already registered", info.Tag))
	}
	r.kinds[info.Tag] = info
}

// Lookup returns the KindInfo bound to tag, if any.
func (r *Registry) Lookup(tag string) (KindInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.kinds[tag]
	return info, ok
}

// UnknownTypeError is returned by Decode/Execute when tag has no
// registered kind. Callers (the codec, in particular) can errors.As
// against this to distinguish it from a generic decode failure.
type UnknownTypeError struct{ Tag string }

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown step type %q", e.Tag)
}

// Decode builds a Step of the given tag from its structured fields.
func (r *Registry) Decode(tag string, fields map[string]interface{}) (spec.Step, error) {
	info, ok := r.Lookup(tag)
	if !ok {
		return nil, &UnknownTypeError{Tag: tag}
	}
	return info.Decode(r, fields)
}

// Encode returns the tag and structured fields for s.
func (r *Registry) Encode(s spec.Step) (string, map[string]interface{}, error) {
	info, ok := r.Lookup(s.Tag())
	if !ok {
		return "", nil, fmt.Errorf("unknown step type %q", s.Tag())
	}
	fields, err := info.Encode(r, s)
	return info.Tag, fields, err
}

// Execute runs s via its registered executor.
func (r *Registry) Execute(ctx Context, s spec.Step) (spec.StepStatus, map[string]interface{}, error) {
	info, ok := r.Lookup(s.Tag())
	if !ok {
		return spec.StepFailed, nil, &UnknownTypeError{Tag: s.Tag()}
	}
	return info.Execute(ctx, s)
}

// Default is the process-wide registry populated by Bootstrap.
var Default = NewRegistry()

// Bootstrap installs the built-in kinds into Default. It is not
// idempotent: calling it twice panics (Register's duplicate check) — call
// it exactly once during startup.
func Bootstrap() {
	Default.Register(sequenceKind())
	Default.Register(ifKind())
	Default.Register(logTaskKind())
}
