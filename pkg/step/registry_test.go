package step

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmeurisse/maestro-sub001/pkg/spec"
)

func newBootstrapped() *Registry {
	reg := NewRegistry()
	reg.Register(sequenceKind())
	reg.Register(ifKind())
	reg.Register(logTaskKind())
	return reg
}

func TestRegisterPanicsOnDuplicateTag(t *testing.T) {
	reg := NewRegistry()
	reg.Register(logTaskKind())
	assert.Panics(t, func() { reg.Register(logTaskKind()) })
}

func TestDecodeUnknownTag(t *testing.T) {
	reg := newBootstrapped()
	_, err := reg.Decode("NotAThing", map[string]interface{}{})
	require.Error(t, err)
	var unknown *UnknownTypeError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "NotAThing", unknown.Tag)
}

func TestSequenceDecodeEncodeRoundTrip(t *testing.T) {
	reg := newBootstrapped()
	fields := map[string]interface{}{
		"name": "root",
		"steps": []interface{}{
			map[string]interface{}{"type": TagLogTask, "name": "a", "message": "hello"},
			map[string]interface{}{"type": TagLogTask, "name": "b", "message": "world"},
		},
	}

	decoded, err := reg.Decode(TagSequence, fields)
	require.NoError(t, err)
	seq, ok := decoded.(*Sequence)
	require.True(t, ok)
	require.Len(t, seq.Steps, 2)
	assert.Equal(t, "root", seq.Meta().Name)

	tag, encoded, err := reg.Encode(decoded)
	require.NoError(t, err)
	assert.Equal(t, TagSequence, tag)
	encodedSteps, ok := encoded["steps"].([]interface{})
	require.True(t, ok)
	require.Len(t, encodedSteps, 2)
}

func TestSequenceAcceptsSingleStepAsImplicitList(t *testing.T) {
	reg := newBootstrapped()
	fields := map[string]interface{}{
		"steps": map[string]interface{}{"type": TagLogTask, "message": "solo"},
	}
	decoded, err := reg.Decode(TagSequence, fields)
	require.NoError(t, err)
	seq := decoded.(*Sequence)
	require.Len(t, seq.Steps, 1)
}

func TestSequenceStopsAtFirstFailure(t *testing.T) {
	reg := NewRegistry()
	ran := false
	reg.Register(KindInfo{Tag: "Failing", Execute: func(ctx Context, s spec.Step) (spec.StepStatus, map[string]interface{}, error) {
		return spec.StepFailed, nil, nil
	}})
	reg.Register(KindInfo{Tag: "Counting", Execute: func(ctx Context, s spec.Step) (spec.StepStatus, map[string]interface{}, error) {
		ran = true
		return spec.StepCompleted, nil, nil
	}})

	seq := &Sequence{Steps: []spec.Step{&taggedStep{tag: "Failing"}, &taggedStep{tag: "Counting"}}}

	status, _, err := executeSequence(newTestCtx(reg), seq)
	require.NoError(t, err)
	assert.Equal(t, spec.StepFailed, status)
	assert.False(t, ran, "sibling after a failure must not run")
}

func TestSequenceSkipsRemainingStepsWhenCancelled(t *testing.T) {
	reg := NewRegistry()
	ran := false
	reg.Register(KindInfo{Tag: "Counting", Execute: func(ctx Context, s spec.Step) (spec.StepStatus, map[string]interface{}, error) {
		ran = true
		return spec.StepCompleted, nil, nil
	}})

	seq := &Sequence{Steps: []spec.Step{&taggedStep{tag: "Counting"}}}
	ctx := newTestCtx(reg)
	ctx.cancelled = true

	status, _, err := executeSequence(ctx, seq)
	require.NoError(t, err)
	assert.Equal(t, spec.StepSkipped, status)
	assert.False(t, ran)
}

// taggedStep is a bare spec.Step stand-in for registry dispatch tests that
// don't need a real decoded kind.
type taggedStep struct {
	tag  string
	meta spec.StepMeta
}

func (t *taggedStep) Tag() string          { return t.tag }
func (t *taggedStep) Meta() *spec.StepMeta { return &t.meta }
