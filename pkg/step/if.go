package step

import (
	"github.com/google/cel-go/cel"

	"github.com/fmeurisse/maestro-sub001/pkg/spec"
)

// TagIf is the registry tag for the If orchestration kind.
const TagIf = "If"

// If evaluates Condition against the current execution context and
// visits Then when it is true, Else (if present) otherwise.
type If struct {
	StepMeta  spec.StepMeta
	Condition string
	Then      spec.Step
	Else      spec.Step // nil means "skip" when the condition is false

	program cel.Program // compiled once at decode time
}

func (i *If) Tag() string          { return TagIf }
func (i *If) Meta() *spec.StepMeta { return &i.StepMeta }

func (i *If) Children() []spec.Step {
	children := []spec.Step{i.Then}
	if i.Else != nil {
		children = append(children, i.Else)
	}
	return children
}

func ifKind() KindInfo {
	return KindInfo{
		Tag:         TagIf,
		DisplayName: "If",
		Decode:      decodeIf,
		Encode:      encodeIf,
		Execute:     executeIf,
	}
}

func decodeChildStep(reg *Registry, fields map[string]interface{}, key string, required bool) (spec.Step, error) {
	childFields, ok, err := mapField(fields, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		if required {
			return nil, errMissingField(key)
		}
		return nil, nil
	}
	tag, err := stringField(childFields, "type", true)
	if err != nil {
		return nil, err
	}
	return reg.Decode(tag, childFields)
}

func errMissingField(key string) error {
	return &missingFieldError{key: key}
}

type missingFieldError struct{ key string }

func (e *missingFieldError) Error() string { return "missing required field \"" + e.key + "\"" }

func decodeIf(reg *Registry, fields map[string]interface{}) (spec.Step, error) {
	condition, err := stringField(fields, "condition", true)
	if err != nil {
		return nil, err
	}
	program, err := compileCondition(condition)
	if err != nil {
		return nil, err
	}
	then, err := decodeChildStep(reg, fields, "then", true)
	if err != nil {
		return nil, err
	}
	elseStep, err := decodeChildStep(reg, fields, "else", false)
	if err != nil {
		return nil, err
	}
	return &If{
		StepMeta:  metaFromFields(fields),
		Condition: condition,
		Then:      then,
		Else:      elseStep,
		program:   program,
	}, nil
}

func encodeIf(reg *Registry, s spec.Step) (map[string]interface{}, error) {
	ifStep := s.(*If)
	fields := metaToFields(ifStep.StepMeta)
	fields["condition"] = ifStep.Condition

	thenTag, thenFields, err := reg.Encode(ifStep.Then)
	if err != nil {
		return nil, err
	}
	thenFields["type"] = thenTag
	fields["then"] = thenFields

	if ifStep.Else != nil {
		elseTag, elseFields, err := reg.Encode(ifStep.Else)
		if err != nil {
			return nil, err
		}
		elseFields["type"] = elseTag
		fields["else"] = elseFields
	}
	return fields, nil
}

func executeIf(ctx Context, s spec.Step) (spec.StepStatus, map[string]interface{}, error) {
	ifStep := s.(*If)
	result, err := evalCondition(ifStep.program, ctx.Cache())
	if err != nil {
		return spec.StepFailed, nil, err
	}
	if result {
		return ctx.Execute(ifStep.Then)
	}
	if ifStep.Else == nil {
		return spec.StepSkipped, nil, nil
	}
	return ctx.Execute(ifStep.Else)
}
