package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddListRemove(t *testing.T) {
	r := New(t.TempDir(), "identities")

	require.NoError(t, r.Add("work"))
	require.NoError(t, r.Add("home"))
	require.NoError(t, r.Add("work")) // idempotent

	names, err := r.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"home", "work"}, names)

	require.NoError(t, r.Remove("work"))
	names, err = r.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"home"}, names)
}

func TestListOnEmptyRegistry(t *testing.T) {
	r := New(t.TempDir(), "identities")
	names, err := r.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestClearEmptiesRegistry(t *testing.T) {
	r := New(t.TempDir(), "identities")
	require.NoError(t, r.Add("a"))
	require.NoError(t, r.Add("b"))
	require.NoError(t, r.Clear())

	names, err := r.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}
