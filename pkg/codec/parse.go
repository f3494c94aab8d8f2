// Package codec translates between a workflow revision's authored YAML
// source and its structured form, and performs surgical metadata rewrites
// on that source text without disturbing anything else in it.
package codec

import (
	stderrors "errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fmeurisse/maestro-sub001/pkg/errors"
	"github.com/fmeurisse/maestro-sub001/pkg/spec"
	"github.com/fmeurisse/maestro-sub001/pkg/step"
)

const timeLayout = time.RFC3339Nano

// ParseRevision parses text into a structured revision using reg to
// resolve the polymorphic step tree. strict=false (revision creation)
// tolerates a missing updatedAt, stamped later by the use-case layer;
// strict=true (revision update) requires it, since it is the optimistic
// lock token.
func ParseRevision(reg *step.Registry, text string, strict bool) (*spec.WorkflowRevision, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(text), &raw); err != nil {
		return nil, errors.Wrap(err, errors.KindInvalidYaml, "parsing workflow yaml")
	}
	if raw == nil {
		return nil, errors.New(errors.KindInvalidYaml, "empty document")
	}

	namespace, err := requireString(raw, "namespace")
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInvalidRevision, "field \"namespace\"")
	}
	id, err := requireString(raw, "id")
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInvalidRevision, "field \"id\"")
	}
	if !spec.ValidIdentifier(namespace) {
		return nil, errors.New(errors.KindInvalidRevision, "namespace %q must match [A-Za-z0-9_-]{1,100}", namespace)
	}
	if !spec.ValidIdentifier(id) {
		return nil, errors.New(errors.KindInvalidRevision, "id %q must match [A-Za-z0-9_-]{1,100}", id)
	}

	name, _ := optionalString(raw, "name")
	if len(name) < 1 || len(name) > 255 {
		return nil, errors.New(errors.KindInvalidRevision, "name must be 1-255 characters")
	}
	description, _ := optionalString(raw, "description")
	if len(description) > 1000 {
		return nil, errors.New(errors.KindInvalidRevision, "description must be at most 1000 characters")
	}

	version := 0
	if v, ok := raw["version"]; ok {
		n, err := toInt(v)
		if err != nil {
			return nil, errors.Wrap(err, errors.KindInvalidRevision, "field \"version\"")
		}
		version = n
	}

	active, _ := raw["active"].(bool)

	var createdAt time.Time
	if v, ok := raw["createdAt"]; ok {
		createdAt, err = parseTime(v)
		if err != nil {
			return nil, errors.Wrap(err, errors.KindInvalidRevision, "field \"createdAt\"")
		}
	}

	var updatedAt time.Time
	if v, ok := raw["updatedAt"]; ok {
		updatedAt, err = parseTime(v)
		if err != nil {
			return nil, errors.Wrap(err, errors.KindInvalidRevision, "field \"updatedAt\"")
		}
	} else if strict {
		return nil, errors.New(errors.KindInvalidRevision, "updatedAt is required")
	}

	stepsRaw, ok := raw["steps"]
	if !ok {
		return nil, errors.New(errors.KindInvalidRevision, "steps is required")
	}
	stepsFields, err := asStepFields(stepsRaw)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInvalidRevision, "field \"steps\"")
	}
	tag, err := requireString(stepsFields, "type")
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInvalidRevision, "field \"steps.type\"")
	}

	tree, err := reg.Decode(tag, stepsFields)
	if err != nil {
		var unknown *step.UnknownTypeError
		if stderrors.As(err, &unknown) {
			return nil, errors.Wrap(err, errors.KindUnknownStepType, "decoding steps")
		}
		return nil, errors.Wrap(err, errors.KindInvalidRevision, "decoding steps")
	}
	if err := step.ValidateTree(tree); err != nil {
		return nil, errors.Wrap(err, errors.KindInvalidRevision, "validating step tree")
	}

	return &spec.WorkflowRevision{
		Namespace:   namespace,
		ID:          id,
		Version:     version,
		Name:        name,
		Description: description,
		Steps:       tree,
		Active:      active,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// ToYaml canonically emits r, for responses not derived from
// user-authored text.
func ToYaml(reg *step.Registry, r *spec.WorkflowRevision) (string, error) {
	tag, fields, err := reg.Encode(r.Steps)
	if err != nil {
		return "", errors.Wrap(err, errors.KindInternal, "encoding steps")
	}
	fields["type"] = tag

	doc := map[string]interface{}{
		"namespace":   r.Namespace,
		"id":          r.ID,
		"version":     r.Version,
		"name":        r.Name,
		"description": r.Description,
		"active":      r.Active,
		"createdAt":   r.CreatedAt.UTC().Format(timeLayout),
		"updatedAt":   r.UpdatedAt.UTC().Format(timeLayout),
		"steps":       fields,
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", errors.Wrap(err, errors.KindInternal, "marshaling yaml")
	}
	return string(out), nil
}

func requireString(fields map[string]interface{}, key string) (string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required field %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q must be a string, got %T", key, v)
	}
	return s, nil
}

func optionalString(fields map[string]interface{}, key string) (string, bool) {
	v, ok := fields[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

func parseTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		parsed, err := time.Parse(timeLayout, t)
		if err != nil {
			parsed, err = time.Parse(time.RFC3339, t)
		}
		if err != nil {
			return time.Time{}, fmt.Errorf("expected an RFC3339 timestamp, got %q", t)
		}
		return parsed, nil
	default:
		return time.Time{}, fmt.Errorf("expected a timestamp, got %T", v)
	}
}

// asStepFields normalizes the "steps" value: a single step mapping passes
// through unchanged; a non-empty sequence is wrapped into an implicit
// Sequence so the root is always one step node (§6.2: "steps is a single
// step node or a sequence").
func asStepFields(v interface{}) (map[string]interface{}, error) {
	switch val := v.(type) {
	case map[string]interface{}:
		return val, nil
	case []interface{}:
		return map[string]interface{}{
			"type":  step.TagSequence,
			"steps": val,
		}, nil
	default:
		return nil, fmt.Errorf("steps must be a step mapping or a list, got %T", v)
	}
}
