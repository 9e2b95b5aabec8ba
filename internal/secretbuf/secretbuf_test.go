package secretbuf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewSeesOriginalBytes(t *testing.T) {
	src := []byte("123456")
	buf := New(src)
	defer buf.Destroy()

	var seen []byte
	err := buf.View(func(b []byte) error {
		seen = append([]byte(nil), b...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, src, seen)
}

func TestViewAfterDestroySeesNil(t *testing.T) {
	buf := New([]byte{0xAA, 0xBB, 0xCC})
	buf.Destroy()

	var seen []byte
	called := false
	err := buf.View(func(b []byte) error {
		called = true
		seen = b
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
	assert.Nil(t, seen)
}

func TestDestroyIsIdempotent(t *testing.T) {
	buf := New([]byte("x"))
	buf.Destroy()
	assert.NotPanics(t, func() { buf.Destroy() })
}

func TestViewPropagatesConsumerError(t *testing.T) {
	buf := New([]byte("x"))
	defer buf.Destroy()

	boom := assert.AnError
	err := buf.View(func(b []byte) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestWipeZeroesCallerSlice(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	Wipe(data)
	assert.True(t, bytes.Equal(data, []byte{0, 0, 0, 0}))
}
