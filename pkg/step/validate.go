package step

import (
	"fmt"
	"reflect"

	"github.com/fmeurisse/maestro-sub001/pkg/config"
	"github.com/fmeurisse/maestro-sub001/pkg/spec"
)

// ValidateTree enforces the step tree's structural limits: strict tree
// shape (no cycles, no shared nodes), max depth, and max node count, per
// the process-wide config.Active() ceilings.
func ValidateTree(root spec.Step) error {
	limits := config.Active()
	seen := map[uintptr]bool{}
	nodes := 0
	var walk func(s spec.Step, depth int) error
	walk = func(s spec.Step, depth int) error {
		if s == nil {
			return fmt.Errorf("step tree contains a nil node")
		}
		if depth > limits.MaxStepDepth {
			return fmt.Errorf("step tree exceeds max depth %d", limits.MaxStepDepth)
		}
		if ptr := pointerIdentity(s); ptr != 0 {
			if seen[ptr] {
				return fmt.Errorf("step tree contains a shared or cyclic node (not a strict tree)")
			}
			seen[ptr] = true
		}
		nodes++
		if nodes > limits.MaxStepNodes {
			return fmt.Errorf("step tree exceeds max node count %d", limits.MaxStepNodes)
		}
		if orch, ok := s.(spec.Orchestration); ok {
			for _, child := range orch.Children() {
				if err := walk(child, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(root, 0)
}

func pointerIdentity(s spec.Step) uintptr {
	v := reflect.ValueOf(s)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return 0
	}
	return v.Pointer()
}
