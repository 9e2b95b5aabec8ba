// Package credstore implements the credential-store backend: the least
// preferred fallback, which stores the PIN, base64-encoded but not
// encrypted, in the OS
// credential store (macOS Keychain, Windows Credential Manager, or
// libsecret on Linux) and relies solely on that store's own protection.
//
// Naming follows a fixed service/account layout: service
// "com.hsm.pin.<identity>", account "<identity>". Backed by
// github.com/zalando/go-keyring, a cross-platform credential store client.
package credstore

import (
	"context"
	"encoding/base64"

	"github.com/zalando/go-keyring"

	"github.com/platformseal/hsm-go/hsmerr"
	"github.com/platformseal/hsm-go/hsmtypes"
	"github.com/platformseal/hsm-go/internal/secretbuf"
)

const servicePrefix = "com.hsm.pin."

// Backend implements hsmtypes.Backend against the OS credential store.
type Backend struct{}

func New() *Backend { return &Backend{} }

func (b *Backend) Kind() hsmtypes.BackendKind { return hsmtypes.BackendCredentialStore }

func (b *Backend) Initialize(ctx context.Context) error { return nil }

func service(identity string) string { return servicePrefix + identity }

// Seal stores pin base64-encoded. This is an encoding choice to fit the
// keyring API's string-oriented storage, not an attempt at
// application-level encryption; protection comes entirely from the OS store.
func (b *Backend) Seal(ctx context.Context, identity string, pin []byte) error {
	encoded := base64.StdEncoding.EncodeToString(pin)
	if err := keyring.Set(service(identity), identity, encoded); err != nil {
		return hsmerr.New("credstore.seal", classify(err), err)
	}
	return nil
}

func (b *Backend) Unseal(ctx context.Context, identity string, consumer func([]byte) error) error {
	encoded, err := keyring.Get(service(identity), identity)
	if err != nil {
		return hsmerr.New("credstore.unseal", classify(err), err)
	}

	pin, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return hsmerr.New("credstore.unseal", hsmerr.KindUnsealFailed, err)
	}

	buf := secretbuf.New(pin)
	secretbuf.Wipe(pin)
	defer buf.Destroy()

	if err := buf.View(consumer); err != nil {
		return hsmerr.New("credstore.unseal", hsmerr.KindInternal, err)
	}
	return nil
}

func (b *Backend) Exists(ctx context.Context, identity string) (bool, error) {
	_, err := keyring.Get(service(identity), identity)
	if err == nil {
		return true, nil
	}
	if err == keyring.ErrNotFound {
		return false, nil
	}
	return false, hsmerr.New("credstore.exists", classify(err), err)
}

func (b *Backend) Clear(ctx context.Context, identity string) error {
	err := keyring.Delete(service(identity), identity)
	if err == nil {
		return nil
	}
	if err == keyring.ErrNotFound {
		return hsmerr.New("credstore.clear", hsmerr.KindNotFound, err)
	}
	return hsmerr.New("credstore.clear", classify(err), err)
}

// ClearAll cannot enumerate OS credential-store entries by service prefix
// through the cross-platform keyring API; callers that need clear_all
// semantics on this backend must track identities themselves (the
// dispatcher does, via its own identity registry, see dispatcher.go).
func (b *Backend) ClearAll(ctx context.Context) error {
	return hsmerr.New("credstore.clear_all", hsmerr.KindNotAvailable, nil)
}

// List has the same limitation as ClearAll: go-keyring exposes no
// prefix-scan primitive across all three platform backends.
func (b *Backend) List(ctx context.Context) ([]string, error) {
	return nil, hsmerr.New("credstore.list", hsmerr.KindNotAvailable, nil)
}

func (b *Backend) Status(ctx context.Context, identity string, desc *hsmtypes.Status) error {
	desc.Backend = hsmtypes.BackendCredentialStore
	desc.Description = "OS credential store (go-keyring)"
	desc.Version = "1"
	if identity != "" {
		exists, _ := b.Exists(ctx, identity)
		desc.IdentityExists = exists
	}
	return nil
}

func (b *Backend) SetPCRBinding(uint32) error {
	return hsmerr.New("credstore.set_pcr_binding", hsmerr.KindNotAvailable, nil)
}

func (b *Backend) SetUserPresence(bool) error {
	return hsmerr.New("credstore.set_user_presence", hsmerr.KindNotAvailable, nil)
}

const probeAccount = "__probe__"

// Probe checks that the OS credential store is reachable by writing and
// then removing a throwaway entry. Used by the platform probe as the
// last resort before falling back to no backend at all.
func Probe() bool {
	service := servicePrefix + "__probe__"
	if err := keyring.Set(service, probeAccount, "probe"); err != nil {
		return false
	}
	_ = keyring.Delete(service, probeAccount)
	return true
}

func classify(err error) hsmerr.Kind {
	if err == keyring.ErrNotFound {
		return hsmerr.KindNotFound
	}
	return hsmerr.KindIO
}
