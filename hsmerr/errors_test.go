package hsmerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := New("tpm.seal", KindSealFailed, cause)

	require.Error(t, err)
	assert.Equal(t, KindSealFailed, err.Kind)
	assert.Equal(t, "tpm.seal", err.Op)
	assert.ErrorIs(t, err, cause)
}

func TestNewWithNilCause(t *testing.T) {
	err := New("tpm.clear", KindNotFound, nil)
	assert.Nil(t, err.Err)
	assert.Equal(t, "tpm.clear: not_found", err.Error())
}

func TestIsMatchesOnKindOnly(t *testing.T) {
	a := New("op1", KindAuthFailed, errors.New("x"))
	b := New("op2", KindAuthFailed, errors.New("y"))
	c := New("op3", KindIO, nil)

	assert.True(t, a.Is(b))
	assert.False(t, a.Is(c))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindSuccess, KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("unstructured")))
	assert.Equal(t, KindPCRMismatch, KindOf(New("op", KindPCRMismatch, nil)))
}
