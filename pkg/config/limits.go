// Package config collects the small set of process-wide tunables this
// module needs — tree-size ceilings for the step registry and pagination
// ceilings for the execution store — following the reference codebase's
// (deleted) pkg/config "defaults struct, overridable at startup" shape,
// scaled down to what this domain actually needs.
package config

import "sync"

// Limits are the tree-size and pagination ceilings enforced by
// pkg/step.ValidateTree and pkg/executionstore.ListOptions.normalized.
type Limits struct {
	// MaxStepDepth bounds how deeply a step tree may nest (§3.3).
	MaxStepDepth int
	// MaxStepNodes bounds how many total nodes a step tree may contain (§3.3).
	MaxStepNodes int
	// DefaultPageLimit is the history query page size when none is requested (§4.4).
	DefaultPageLimit int
	// MaxPageLimit is the largest history query page size a caller may request (§4.4).
	MaxPageLimit int
}

// DefaultLimits returns the built-in ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxStepDepth:     10,
		MaxStepNodes:     1000,
		DefaultPageLimit: 20,
		MaxPageLimit:     100,
	}
}

var (
	mu     sync.RWMutex
	active = DefaultLimits()
)

// SetActive overrides the process-wide limits. Meant to be called once at
// startup (the CLI's root command does this from flags) before any
// revision is parsed or execution history listed; it is safe for
// concurrent use only in the sense that later reads observe it, not that
// changing limits mid-flight is a supported operation.
func SetActive(l Limits) {
	mu.Lock()
	defer mu.Unlock()
	active = l
}

// Active returns the current process-wide limits.
func Active() Limits {
	mu.RLock()
	defer mu.RUnlock()
	return active
}
