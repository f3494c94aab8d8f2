package step

import (
	"fmt"

	"github.com/fmeurisse/maestro-sub001/pkg/spec"
)

func stringField(fields map[string]interface{}, key string, required bool) (string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q must be a string, got %T", key, v)
	}
	return s, nil
}

func mapField(fields map[string]interface{}, key string) (map[string]interface{}, bool, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return nil, false, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, false, fmt.Errorf("field %q must be a mapping, got %T", key, v)
	}
	return m, true, nil
}

func sliceField(fields map[string]interface{}, key string) ([]interface{}, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return nil, nil
	}
	// A single step node is accepted where a list is expected (§6.2:
	// "steps is a single step node or a sequence").
	if m, ok := v.(map[string]interface{}); ok {
		return []interface{}{m}, nil
	}
	s, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("field %q must be a list or a step mapping, got %T", key, v)
	}
	return s, nil
}

func boolField(fields map[string]interface{}, key string) bool {
	v, ok := fields[key]
	if !ok || v == nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

func metaFromFields(fields map[string]interface{}) spec.StepMeta {
	name, _ := stringField(fields, "name", false)
	desc, _ := stringField(fields, "description", false)
	return spec.StepMeta{
		Name:         name,
		Description:  desc,
		Hidden:       boolField(fields, "hidden"),
		AllowFailure: boolField(fields, "allowFailure"),
	}
}

func metaToFields(m spec.StepMeta) map[string]interface{} {
	fields := map[string]interface{}{}
	if m.Name != "" {
		fields["name"] = m.Name
	}
	if m.Description != "" {
		fields["description"] = m.Description
	}
	if m.Hidden {
		fields["hidden"] = m.Hidden
	}
	if m.AllowFailure {
		fields["allowFailure"] = m.AllowFailure
	}
	return fields
}
