package hsm

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

// newTestDispatcher builds a Dispatcher against a scratch storage
// directory and an in-memory keyring, so these tests never touch the
// real OS credential store or the user's data directory. Backend
// selection still runs the real platform probe, so on a host with a TPM
// or Secure Enclave that hardware is the backend under test.
func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	keyring.MockInit()
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	d, err := NewDispatcher("hsm-test-" + t.Name())
	require.NoError(t, err)
	return d
}

func TestDispatcherRoundTrip(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	require.NoError(t, d.SealPIN(ctx, "alice", []byte("1234")))

	var got []byte
	require.NoError(t, d.UnsealPIN(ctx, "alice", func(pin []byte) error {
		got = append([]byte(nil), pin...)
		return nil
	}))
	assert.Equal(t, []byte("1234"), got)
}

func TestDispatcherSealReplacesPriorValue(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	require.NoError(t, d.SealPIN(ctx, "bob", []byte("1111")))
	require.NoError(t, d.SealPIN(ctx, "bob", []byte("2222")))

	var got []byte
	require.NoError(t, d.UnsealPIN(ctx, "bob", func(pin []byte) error {
		got = append([]byte(nil), pin...)
		return nil
	}))
	assert.Equal(t, []byte("2222"), got, "last write must win")
}

// TestDispatcherConcurrentSealOnDistinctIdentities seals many distinct
// identities from concurrent goroutines and asserts that every seal
// succeeds and every identity then unseals to its own PIN. It checks the
// outcome only; it does not measure whether the seals ran in parallel.
func TestDispatcherConcurrentSealOnDistinctIdentities(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			identity := identityFor(i)
			errs[i] = d.SealPIN(ctx, identity, pinFor(i))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoErrorf(t, err, "seal %d failed", i)
	}

	for i := 0; i < n; i++ {
		identity := identityFor(i)
		var got []byte
		err := d.UnsealPIN(ctx, identity, func(pin []byte) error {
			got = append([]byte(nil), pin...)
			return nil
		})
		require.NoErrorf(t, err, "unseal %d failed", i)
		assert.Equal(t, pinFor(i), got)
	}
}

func identityFor(i int) string { return "identity-" + string(rune('a'+i)) }
func pinFor(i int) []byte      { return []byte{byte('0' + i%10), byte('0' + (i/10)%10), byte('0' + i%7)} }

func TestDispatcherUnsealCallbackFailureLeavesArtifactPresent(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	require.NoError(t, d.SealPIN(ctx, "carol", []byte("5678")))

	err := d.UnsealPIN(ctx, "carol", func([]byte) error { return assert.AnError })
	require.Error(t, err)

	exists, existsErr := d.PINExists(ctx, "carol")
	require.NoError(t, existsErr)
	assert.True(t, exists, "a callback failure must not remove the sealed artifact")
}

func TestDispatcherClearPINRemovesArtifact(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	require.NoError(t, d.SealPIN(ctx, "dave", []byte("9999")))
	require.NoError(t, d.ClearPIN(ctx, "dave"))

	exists, err := d.PINExists(ctx, "dave")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDispatcherClearAllRemovesEveryIdentity(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	require.NoError(t, d.SealPIN(ctx, "erin", []byte("1212")))
	require.NoError(t, d.SealPIN(ctx, "frank", []byte("3434")))

	require.NoError(t, d.ClearAll(ctx))

	for _, identity := range []string{"erin", "frank"} {
		exists, err := d.PINExists(ctx, identity)
		require.NoError(t, err)
		assert.False(t, exists, "%s should be cleared", identity)
	}
}

func TestDispatcherUnsealMissingIdentityReturnsNotFound(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	err := d.UnsealPIN(ctx, "nobody", func([]byte) error { return nil })
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestDispatcherRejectsInvalidIdentity(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	err := d.SealPIN(ctx, "bad/name", []byte("1234"))
	require.Error(t, err)
	assert.Equal(t, KindInvalidIdentity, KindOf(err))
}
