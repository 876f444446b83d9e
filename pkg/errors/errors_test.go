package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("UNIQUE constraint failed: students.student_id")
	err := Wrap(cause, KindDuplicate, "student already exists")

	assert.Equal(t, "student already exists: UNIQUE constraint failed: students.student_id", err.Error())
	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, IsKind(err, KindDuplicate))
	assert.False(t, IsKind(err, KindNotFound))
}

func TestSentinelMatchingByKind(t *testing.T) {
	err := Clone(ErrNotFound, "student not found")
	assert.True(t, stderrors.Is(err, ErrNotFound))
	assert.False(t, stderrors.Is(err, ErrDuplicate))
	assert.Equal(t, "student not found", err.Error())
}

func TestIsKindThroughWrapping(t *testing.T) {
	inner := Clone(ErrDuplicate, "email already in use")
	outer := fmt.Errorf("add student: %w", inner)

	assert.True(t, IsKind(outer, KindDuplicate))
	assert.True(t, stderrors.Is(outer, ErrDuplicate))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	typed := FromError(Clone(ErrValidation, ""))
	require.NotNil(t, typed)
	assert.Equal(t, KindValidation, typed.Kind)

	plain := FromError(stderrors.New("boom"))
	require.NotNil(t, plain)
	assert.Equal(t, KindInternal, plain.Kind)
	assert.Contains(t, plain.Error(), "boom")
}

func TestCloneKeepsMessageWhenEmpty(t *testing.T) {
	err := Clone(ErrPartialBatch, "")
	assert.Equal(t, ErrPartialBatch.Message, err.Message)
	assert.Nil(t, Clone(nil, "whatever"))
}

func TestIsKindOnForeignError(t *testing.T) {
	assert.False(t, IsKind(stderrors.New("plain"), KindInternal))
	assert.False(t, IsKind(nil, KindInternal))
}
