package codec

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmeurisse/maestro-sub001/pkg/errors"
	"github.com/fmeurisse/maestro-sub001/pkg/step"
)

var bootstrapOnce sync.Once

func bootstrapped() *step.Registry {
	bootstrapOnce.Do(step.Bootstrap)
	return step.Default
}

const minimalYAML = `
namespace: ns1
id: wf1
name: My Workflow
version: 1
steps:
  type: LogTask
  message: hello
`

func TestParseRevisionMinimal(t *testing.T) {
	reg := bootstrapped()
	revision, err := ParseRevision(reg, minimalYAML, false)
	require.NoError(t, err)
	assert.Equal(t, "ns1", revision.Namespace)
	assert.Equal(t, "wf1", revision.ID)
	assert.Equal(t, "My Workflow", revision.Name)
	assert.Equal(t, "LogTask", revision.Steps.Tag())
}

func TestParseRevisionRejectsInvalidIdentifier(t *testing.T) {
	reg := bootstrapped()
	bad := `
namespace: "bad ns!"
id: wf1
name: x
steps:
  type: LogTask
  message: hi
`
	_, err := ParseRevision(reg, bad, false)
	require.Error(t, err)
	de, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindInvalidRevision, de.Kind)
}

func TestParseRevisionUnknownStepType(t *testing.T) {
	reg := bootstrapped()
	bad := `
namespace: ns1
id: wf1
name: x
steps:
  type: NotAThing
`
	_, err := ParseRevision(reg, bad, false)
	require.Error(t, err)
	de, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindUnknownStepType, de.Kind)
}

func TestParseRevisionStrictRequiresUpdatedAt(t *testing.T) {
	reg := bootstrapped()
	_, err := ParseRevision(reg, minimalYAML, true)
	require.Error(t, err)
	de, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindInvalidRevision, de.Kind)
}

func TestParseRevisionAcceptsListStepsAsImplicitSequence(t *testing.T) {
	reg := bootstrapped()
	yaml := `
namespace: ns1
id: wf1
name: x
steps:
  - type: LogTask
    message: one
  - type: LogTask
    message: two
`
	revision, err := ParseRevision(reg, yaml, false)
	require.NoError(t, err)
	assert.Equal(t, "Sequence", revision.Steps.Tag())
}

func TestToYamlRoundTrip(t *testing.T) {
	reg := bootstrapped()
	revision, err := ParseRevision(reg, minimalYAML, false)
	require.NoError(t, err)

	out, err := ToYaml(reg, revision)
	require.NoError(t, err)

	reparsed, err := ParseRevision(reg, out, false)
	require.NoError(t, err)
	assert.Equal(t, revision.Namespace, reparsed.Namespace)
	assert.Equal(t, revision.ID, reparsed.ID)
	assert.Equal(t, revision.Steps.Tag(), reparsed.Steps.Tag())
}
