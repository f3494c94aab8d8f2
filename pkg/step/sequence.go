package step

import (
	"fmt"

	"github.com/fmeurisse/maestro-sub001/pkg/spec"
)

// TagSequence is the registry tag for the Sequence orchestration kind.
const TagSequence = "Sequence"

// Sequence visits its children in declared order and stops at the first
// failure.
type Sequence struct {
	StepMeta spec.StepMeta
	Steps    []spec.Step
}

func (s *Sequence) Tag() string           { return TagSequence }
func (s *Sequence) Meta() *spec.StepMeta  { return &s.StepMeta }
func (s *Sequence) Children() []spec.Step { return s.Steps }

func sequenceKind() KindInfo {
	return KindInfo{
		Tag:         TagSequence,
		DisplayName: "Sequence",
		Decode:      decodeSequence,
		Encode:      encodeSequence,
		Execute:     executeSequence,
	}
}

func decodeSequence(reg *Registry, fields map[string]interface{}) (spec.Step, error) {
	raw, err := sliceField(fields, "steps")
	if err != nil {
		return nil, err
	}
	steps := make([]spec.Step, 0, len(raw))
	for i, item := range raw {
		childFields, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("steps[%d]: expected a step mapping, got %T", i, item)
		}
		tag, err := stringField(childFields, "type", true)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		child, err := reg.Decode(tag, childFields)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		steps = append(steps, child)
	}
	return &Sequence{StepMeta: metaFromFields(fields), Steps: steps}, nil
}

func encodeSequence(reg *Registry, s spec.Step) (map[string]interface{}, error) {
	seq := s.(*Sequence)
	encodedSteps := make([]interface{}, 0, len(seq.Steps))
	for _, child := range seq.Steps {
		tag, childFields, err := reg.Encode(child)
		if err != nil {
			return nil, err
		}
		childFields["type"] = tag
		encodedSteps = append(encodedSteps, childFields)
	}
	fields := metaToFields(seq.StepMeta)
	fields["steps"] = encodedSteps
	return fields, nil
}

func executeSequence(ctx Context, s spec.Step) (spec.StepStatus, map[string]interface{}, error) {
	seq := s.(*Sequence)
	for _, child := range seq.Steps {
		if ctx.Cancelled() {
			return spec.StepSkipped, nil, nil
		}
		status, _, err := ctx.Execute(child)
		if err != nil {
			return spec.StepFailed, nil, err
		}
		if status == spec.StepFailed {
			return spec.StepFailed, nil, nil
		}
	}
	return spec.StepCompleted, nil, nil
}
