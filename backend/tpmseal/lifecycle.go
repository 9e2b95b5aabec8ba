package tpmseal

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/platformseal/hsm-go/hsmerr"
	"github.com/platformseal/hsm-go/internal/securefile"
)

// Exists checks only for the identity file's presence; it never opens the
// TPM and never attempts to unseal.
func (b *Backend) Exists(ctx context.Context, identity string) (bool, error) {
	_, err := os.Stat(b.identityPath(identity))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, hsmerr.New("tpm.exists", hsmerr.KindIO, err)
}

// Clear overwrites the identity file with zeros before unlinking it.
func (b *Backend) Clear(ctx context.Context, identity string) error {
	err := securefile.WipeAndRemove(b.identityPath(identity))
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return hsmerr.New("tpm.clear", hsmerr.KindNotFound, err)
	}
	return hsmerr.New("tpm.clear", hsmerr.KindIO, err)
}

// ClearAll removes every *.tpm2 file in the storage directory, best-effort,
// and reports the first hard failure encountered.
func (b *Backend) ClearAll(ctx context.Context) error {
	entries, err := os.ReadDir(b.storageDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return hsmerr.New("tpm.clear_all", hsmerr.KindIO, err)
	}

	var firstErr error
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".tpm2") {
			continue
		}
		if err := securefile.WipeAndRemove(filepath.Join(b.storageDir, e.Name())); err != nil && firstErr == nil {
			firstErr = hsmerr.New("tpm.clear_all", hsmerr.KindIO, err)
		}
	}
	return firstErr
}

// List returns the identities with a sealed artifact on disk, derived from
// the *.tpm2 filenames in the storage directory.
func (b *Backend) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.storageDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, hsmerr.New("tpm.list", hsmerr.KindIO, err)
	}

	var identities []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(e.Name(), ".tpm2"); ok {
			identities = append(identities, name)
		}
	}
	return identities, nil
}
