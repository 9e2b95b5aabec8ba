package securefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.bin")

	require.NoError(t, WriteSecretFile(path, []byte("sealed-bytes")))

	got, err := ReadSecureFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("sealed-bytes"), got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(PermSecretFile), info.Mode().Perm())
}

func TestWriteSecretFileReplacesExistingContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.bin")

	require.NoError(t, WriteSecretFile(path, []byte("first-pin")))
	require.NoError(t, WriteSecretFile(path, []byte("second-pin-longer")))

	got, err := ReadSecureFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("second-pin-longer"), got)
}

func TestEnsureSecureDirCreatesOwnerOnlyDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "storage")
	require.NoError(t, EnsureSecureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(PermSecretDir), info.Mode().Perm())
}

func TestWipeAndRemoveDeletesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.bin")
	require.NoError(t, WriteSecretFile(path, []byte("pin")))

	require.NoError(t, WipeAndRemove(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestReadSecureFileRejectsLoosePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loose.bin")
	require.NoError(t, os.WriteFile(path, []byte("pin"), 0o644))

	_, err := ReadSecureFile(path)
	assert.ErrorIs(t, err, ErrInsecurePermissions)
}
