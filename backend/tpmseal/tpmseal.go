// Package tpmseal implements the TPM backend: it seals PINs under a
// policy bound to a PCR selection (default PCR 7) and persists the
// resulting public/private blobs in a per-identity file under the user's
// XDG data directory.
//
// Grounded on tpmdevice/seal_tpm2.go (the legacy github.com/google/go-tpm
// API, CreatePrimary/CreateKeyWithSensitive/Load/Unseal) and on the PCR
// policy-session mechanics used by pkg-pillar's evetpm package
// (PolicyPCRSession: StartAuthSession + PolicyPCR + PolicyGetDigest), with
// the RC classification and on-disk layout taken from
// original_source/pinentry/hsm_linux.c.
package tpmseal

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	tpm2 "github.com/google/go-tpm/legacy/tpm2"

	"github.com/platformseal/hsm-go/hsmerr"
	"github.com/platformseal/hsm-go/hsmtypes"
	"github.com/platformseal/hsm-go/internal/securefile"
	"github.com/platformseal/hsm-go/retry"
)

// defaultPCRMask selects PCR 7 (secure boot state) as the default
// PCR-selection bitmask.
const defaultPCRMask uint32 = 1 << 7

// Backend implements hsmtypes.Backend against a real or simulated TPM 2.0
// device via the legacy go-tpm API.
type Backend struct {
	storageDir string
	ownerAuth  string

	pcrMask atomic.Uint32

	initOnce sync.Once
	initErr  error
}

// New constructs a TPM backend rooted at storageDir, conventionally
// "<data-home>/<service>/tpm-sealed".
func New(storageDir, ownerAuth string) *Backend {
	b := &Backend{storageDir: storageDir, ownerAuth: ownerAuth}
	b.pcrMask.Store(defaultPCRMask)
	return b
}

// DefaultStorageDir resolves <XDG_DATA_HOME|$HOME/.local/share>/<service>/tpm-sealed.
func DefaultStorageDir(service string) (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home := os.Getenv("HOME")
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return "", hsmerr.New("tpm.storage_dir", hsmerr.KindIO, err)
			}
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, service, "tpm-sealed"), nil
}

func (b *Backend) Kind() hsmtypes.BackendKind { return hsmtypes.BackendTPM }

// Initialize brings up access to the TPM and ensures the storage directory
// exists with owner-only permissions. Idempotent for the process lifetime.
func (b *Backend) Initialize(ctx context.Context) error {
	b.initOnce.Do(func() {
		if _, err := probeOpen(); err != nil {
			b.initErr = hsmerr.New("tpm.initialize", hsmerr.KindNotAvailable, err)
			return
		}
		if err := securefile.EnsureSecureDir(b.storageDir); err != nil {
			b.initErr = hsmerr.New("tpm.initialize", hsmerr.KindIO, err)
			return
		}
	})
	return b.initErr
}

func (b *Backend) SetPCRBinding(mask uint32) error {
	b.pcrMask.Store(mask)
	return nil
}

func (b *Backend) SetUserPresence(bool) error {
	return hsmerr.New("tpm.set_user_presence", hsmerr.KindNotAvailable, nil)
}

func (b *Backend) pcrSelection() tpm2.PCRSelection {
	sel := tpm2.PCRSelection{Hash: tpm2.AlgSHA256}
	mask := b.pcrMask.Load()
	for i := 0; i < 24; i++ {
		if mask&(1<<uint(i)) != 0 {
			sel.PCRs = append(sel.PCRs, i)
		}
	}
	return sel
}

// openTPM retries probeOpen a few times before giving up: the resource
// manager device can be transiently busy under concurrent callers, the
// same class of transient failure retry.Retry was written for. Seal and
// Unseal use this; Status and Initialize call probeOpen directly since
// those are one-shot capability checks, not operations worth retrying.
func openTPM(ctx context.Context) (io.ReadWriteCloser, error) {
	cfg := retry.DefaultConfig()
	results, err := retry.Retry(ctx, cfg, func(ctx context.Context) ([]interface{}, error) {
		rwc, err := probeOpen()
		if err != nil {
			return nil, err
		}
		return []interface{}{rwc}, nil
	}, nil, "open TPM device")
	if err != nil {
		return nil, err
	}
	return results[0].(io.ReadWriteCloser), nil
}

func (b *Backend) identityPath(identity string) string {
	return filepath.Join(b.storageDir, identity+".tpm2")
}

func (b *Backend) Status(ctx context.Context, identity string, desc *hsmtypes.Status) error {
	desc.Backend = hsmtypes.BackendTPM
	desc.Description = "TPM 2.0 (legacy go-tpm ESAPI-less transport)"
	desc.Version = "2.0"

	rwc, err := probeOpen()
	if err == nil {
		defer rwc.Close()
		if manu, err := readManufacturer(rwc); err == nil {
			desc.TPMManufacturer = manu
		}
	}

	if identity != "" {
		exists, _ := b.Exists(ctx, identity)
		desc.IdentityExists = exists
	}
	return nil
}
