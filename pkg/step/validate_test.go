package step

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmeurisse/maestro-sub001/pkg/config"
	"github.com/fmeurisse/maestro-sub001/pkg/spec"
)

func TestValidateTreeAcceptsWellFormedTree(t *testing.T) {
	tree := &Sequence{Steps: []spec.Step{
		&LogTask{Message: "a"},
		&LogTask{Message: "b"},
	}}
	assert.NoError(t, ValidateTree(tree))
}

func TestValidateTreeRejectsSharedNode(t *testing.T) {
	shared := &LogTask{Message: "dup"}
	tree := &Sequence{Steps: []spec.Step{shared, shared}}
	err := ValidateTree(tree)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shared or cyclic")
}

func TestValidateTreeRejectsExcessiveDepth(t *testing.T) {
	var tree spec.Step = &LogTask{Message: "leaf"}
	for i := 0; i <= config.Active().MaxStepDepth+1; i++ {
		tree = &Sequence{Steps: []spec.Step{tree}}
	}
	err := ValidateTree(tree)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max depth")
}

func TestValidateTreeRejectsNilNode(t *testing.T) {
	tree := &Sequence{Steps: []spec.Step{nil}}
	err := ValidateTree(tree)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil node")
}
