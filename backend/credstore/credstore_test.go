package credstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/platformseal/hsm-go/hsmerr"
)

func TestMain(m *testing.M) {
	keyring.MockInit()
	m.Run()
}

func TestRoundTrip(t *testing.T) {
	b := New()
	ctx := context.Background()

	require.NoError(t, b.Seal(ctx, "alice", []byte("1234")))

	var got []byte
	require.NoError(t, b.Unseal(ctx, "alice", func(pin []byte) error {
		got = append([]byte(nil), pin...)
		return nil
	}))
	assert.Equal(t, []byte("1234"), got)
}

func TestSealReplacesPriorValue(t *testing.T) {
	b := New()
	ctx := context.Background()

	require.NoError(t, b.Seal(ctx, "bob", []byte("1111")))
	require.NoError(t, b.Seal(ctx, "bob", []byte("2222")))

	var got []byte
	require.NoError(t, b.Unseal(ctx, "bob", func(pin []byte) error {
		got = append([]byte(nil), pin...)
		return nil
	}))
	assert.Equal(t, []byte("2222"), got)
}

func TestUnsealMissingIdentityReturnsNotFound(t *testing.T) {
	b := New()
	ctx := context.Background()

	err := b.Unseal(ctx, "nobody", func([]byte) error { return nil })
	require.Error(t, err)
	assert.Equal(t, hsmerr.KindNotFound, hsmerr.KindOf(err))
}

func TestUnsealCallbackFailureLeavesArtifactPresent(t *testing.T) {
	b := New()
	ctx := context.Background()

	require.NoError(t, b.Seal(ctx, "carol", []byte("5678")))

	callbackErr := assert.AnError
	err := b.Unseal(ctx, "carol", func([]byte) error { return callbackErr })
	require.Error(t, err)

	exists, existsErr := b.Exists(ctx, "carol")
	require.NoError(t, existsErr)
	assert.True(t, exists, "a callback failure must not remove the sealed artifact")
}

func TestExistsReportsFalseForAbsentIdentity(t *testing.T) {
	b := New()
	ctx := context.Background()

	exists, err := b.Exists(ctx, "no-such-identity")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClearRemovesArtifact(t *testing.T) {
	b := New()
	ctx := context.Background()

	require.NoError(t, b.Seal(ctx, "dave", []byte("9999")))
	require.NoError(t, b.Clear(ctx, "dave"))

	exists, err := b.Exists(ctx, "dave")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestClearMissingIdentityReturnsNotFound(t *testing.T) {
	b := New()
	ctx := context.Background()

	err := b.Clear(ctx, "never-sealed")
	require.Error(t, err)
	assert.Equal(t, hsmerr.KindNotFound, hsmerr.KindOf(err))
}
