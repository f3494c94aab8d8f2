package cache

import "time"

// ExecutionCache is the root scope for one workflow execution. It lives for
// the lifetime of the run and has no parent: a miss here is a real miss.
type ExecutionCache = Cache

// NewExecutionCache creates the root cache for an execution.
func NewExecutionCache() ExecutionCache {
	return New(0, 0, nil)
}

// NodeCache is the scope for a single orchestration node (a Sequence or an
// If branch). It chains to the scope it was forked from so children can read
// ancestor state without being able to overwrite it from below.
type NodeCache = Cache

// NewNodeCache forks a scope for an orchestration node from its parent scope.
func NewNodeCache(parent Cache) NodeCache {
	return New(30*time.Minute, 5*time.Minute, parent)
}

// StepCache is the scope visible to a single leaf step invocation.
type StepCache = Cache

// NewStepCache forks a short-lived scope for one step's executor call.
func NewStepCache(parent Cache) StepCache {
	return New(5*time.Minute, 1*time.Minute, parent)
}
