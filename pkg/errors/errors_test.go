package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsComparesByKindNotMessage(t *testing.T) {
	err := New(KindNotFound, "revision ns/wf/1 not found")
	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrAlreadyExists))
}

func TestWrapPreservesKindAndUnwraps(t *testing.T) {
	cause := stderrors.New("boom")
	wrapped := Wrap(cause, KindInternal, "saving checkpoint")
	assert.True(t, Is(wrapped, ErrInternal))
	assert.ErrorContains(t, wrapped, "saving checkpoint")
	assert.ErrorContains(t, wrapped, "boom")
}

func TestAsExtractsDomainError(t *testing.T) {
	err := New(KindOptimisticLock, "updatedAt mismatch")
	de, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindOptimisticLock, de.Kind)
}

func TestWithDetailDoesNotMutateOriginal(t *testing.T) {
	base := New(KindOptimisticLock, "updatedAt mismatch")
	detailed := base.WithDetail(map[string]interface{}{"expected": "a"})
	assert.Nil(t, base.Detail)
	assert.Equal(t, "a", detailed.Detail["expected"])
}

func TestValidationErrorsAggregatesMultipleFields(t *testing.T) {
	var ve ValidationErrors
	assert.True(t, ve.IsEmpty())

	ve.AddError("namespace", "must match [A-Za-z0-9_-]{1,100}")
	ve.Add("version %d is not positive", -1)

	assert.False(t, ve.IsEmpty())
	assert.Equal(t, 2, ve.Count())
	assert.Contains(t, ve.Error(), "namespace")
	assert.Contains(t, ve.Error(), "version -1 is not positive")
}
