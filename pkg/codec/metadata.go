package codec

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fmeurisse/maestro-sub001/pkg/errors"
)

// MetadataUpdates names the only fields UpdateMetadata is allowed to
// touch, mirroring the contract in the component design: createdAt,
// updatedAt, active, version.
type MetadataUpdates struct {
	CreatedAt *time.Time
	UpdatedAt *time.Time
	Active    *bool
	Version   *int
}

// UpdateMetadata surgically rewrites the subset of {createdAt, updatedAt,
// active, version} present in updates, leaving every other byte of text
// — comments, key order, unrelated fields — untouched. It operates on the
// yaml.v3 node tree rather than unmarshal/remarshal, which is what makes
// the round-trip law in the testable properties hold.
func UpdateMetadata(text string, updates MetadataUpdates) (string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return "", errors.Wrap(err, errors.KindInvalidYaml, "parsing yaml for metadata update")
	}
	if len(doc.Content) == 0 {
		return "", errors.New(errors.KindInvalidYaml, "empty document")
	}
	mapping := doc.Content[0]
	if mapping.Kind != yaml.MappingNode {
		return "", errors.New(errors.KindInvalidYaml, "document root is not a mapping")
	}

	if updates.CreatedAt != nil {
		setScalar(mapping, "createdAt", updates.CreatedAt.UTC().Format(timeLayout), yaml.ScalarNode)
	}
	if updates.UpdatedAt != nil {
		setScalar(mapping, "updatedAt", updates.UpdatedAt.UTC().Format(timeLayout), yaml.ScalarNode)
	}
	if updates.Active != nil {
		setScalar(mapping, "active", strconv.FormatBool(*updates.Active), yaml.ScalarNode)
	}
	if updates.Version != nil {
		setScalar(mapping, "version", strconv.Itoa(*updates.Version), yaml.ScalarNode)
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return "", errors.Wrap(err, errors.KindInternal, "marshaling updated yaml")
	}
	return string(out), nil
}

// setScalar sets key's value node in-place if it exists, or appends a new
// key/value pair to the mapping if it does not.
func setScalar(mapping *yaml.Node, key, value string, kind yaml.Kind) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1].Kind = kind
			mapping.Content[i+1].Tag = ""
			mapping.Content[i+1].Style = 0
			mapping.Content[i+1].Value = value
			mapping.Content[i+1].Content = nil
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: kind, Value: value},
	)
}

// RequireUpdatedAt extracts the updatedAt key from text without a full
// structural parse, for the optimistic-lock comparison on update/
// activation endpoints.
func RequireUpdatedAt(text string) (time.Time, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal([]byte(text), &raw); err != nil {
		return time.Time{}, errors.Wrap(err, errors.KindInvalidYaml, "parsing yaml")
	}
	v, ok := raw["updatedAt"]
	if !ok {
		return time.Time{}, errors.New(errors.KindInvalidRevision, "updatedAt is required")
	}
	t, err := parseTime(v)
	if err != nil {
		return time.Time{}, errors.Wrap(fmt.Errorf("%w", err), errors.KindInvalidRevision, "field \"updatedAt\"")
	}
	return t, nil
}
