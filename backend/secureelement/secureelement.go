package secureelement

import (
	"context"
	"encoding/base64"

	"github.com/zalando/go-keyring"

	"github.com/platformseal/hsm-go/hsmerr"
	"github.com/platformseal/hsm-go/hsmtypes"
	"github.com/platformseal/hsm-go/internal/secretbuf"
)

const pinServicePrefix = "com.hsm.pin."

// Backend implements hsmtypes.Backend against a P-256 key held by the
// secure element (keystore) and an ECIES-encrypted ciphertext blob stored
// in the OS credential store alongside it.
type Backend struct {
	ks keystore
}

func New() *Backend {
	return &Backend{ks: newPlatformKeystore()}
}

func (b *Backend) Kind() hsmtypes.BackendKind { return hsmtypes.BackendSecureElement }

func (b *Backend) Initialize(ctx context.Context) error { return nil }

func pinService(identity string) string { return pinServicePrefix + identity }

func (b *Backend) Seal(ctx context.Context, identity string, pin []byte) error {
	pub, err := b.ks.publicKey(identity)
	if err != nil {
		return hsmerr.New("secureelement.seal", hsmerr.KindSealFailed, err)
	}

	pinCopy := secretbuf.New(pin)
	defer pinCopy.Destroy()

	var ciphertext []byte
	err = pinCopy.View(func(plaintext []byte) error {
		ct, encErr := eciesEncrypt(pub, plaintext)
		if encErr != nil {
			return encErr
		}
		ciphertext = ct
		return nil
	})
	if err != nil {
		return hsmerr.New("secureelement.seal", hsmerr.KindSealFailed, err)
	}

	encoded := base64.StdEncoding.EncodeToString(ciphertext)
	if err := keyring.Set(pinService(identity), identity, encoded); err != nil {
		return hsmerr.New("secureelement.seal", hsmerr.KindIO, err)
	}
	return nil
}

func (b *Backend) Unseal(ctx context.Context, identity string, consumer func([]byte) error) error {
	encoded, err := keyring.Get(pinService(identity), identity)
	if err != nil {
		if err == keyring.ErrNotFound {
			return hsmerr.New("secureelement.unseal", hsmerr.KindNotFound, err)
		}
		return hsmerr.New("secureelement.unseal", hsmerr.KindIO, err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return hsmerr.New("secureelement.unseal", hsmerr.KindUnsealFailed, err)
	}

	plaintext, err := b.ks.decrypt(identity, ciphertext)
	if err != nil {
		if err == errKeyNotFound {
			return hsmerr.New("secureelement.unseal", hsmerr.KindNotFound, err)
		}
		if err == errCancelled {
			return hsmerr.New("secureelement.unseal", hsmerr.KindCancelled, err)
		}
		return hsmerr.New("secureelement.unseal", hsmerr.KindUnsealFailed, err)
	}

	buf := secretbuf.New(plaintext)
	secretbuf.Wipe(plaintext)
	defer buf.Destroy()

	if cbErr := buf.View(consumer); cbErr != nil {
		return hsmerr.New("secureelement.unseal", hsmerr.KindInternal, cbErr)
	}
	return nil
}

func (b *Backend) Exists(ctx context.Context, identity string) (bool, error) {
	_, err := keyring.Get(pinService(identity), identity)
	if err == nil {
		return true, nil
	}
	if err == keyring.ErrNotFound {
		return false, nil
	}
	return false, hsmerr.New("secureelement.exists", hsmerr.KindIO, err)
}

func (b *Backend) Clear(ctx context.Context, identity string) error {
	err := keyring.Delete(pinService(identity), identity)
	if err != nil && err != keyring.ErrNotFound {
		return hsmerr.New("secureelement.clear", hsmerr.KindIO, err)
	}
	if delErr := b.ks.deleteKey(identity); delErr != nil {
		return hsmerr.New("secureelement.clear", hsmerr.KindIO, delErr)
	}
	if err == keyring.ErrNotFound {
		return hsmerr.New("secureelement.clear", hsmerr.KindNotFound, err)
	}
	return nil
}

// ClearAll has the same enumeration limitation as the credential-store
// backend: the platform keyring APIs this package is built on expose no
// prefix scan, so the dispatcher's own identity registry is responsible
// for driving per-identity Clear calls.
func (b *Backend) ClearAll(ctx context.Context) error {
	return hsmerr.New("secureelement.clear_all", hsmerr.KindNotAvailable, nil)
}

func (b *Backend) List(ctx context.Context) ([]string, error) {
	return nil, hsmerr.New("secureelement.list", hsmerr.KindNotAvailable, nil)
}

func (b *Backend) Status(ctx context.Context, identity string, desc *hsmtypes.Status) error {
	desc.Backend = hsmtypes.BackendSecureElement
	desc.Description = "Secure element (ECIES P-256, OS credential store ciphertext)"
	desc.Version = "1"
	desc.SEBiometricAvailable = b.ks.biometricAvailable()

	if identity != "" {
		if keyExists, err := b.ks.hasKey(identity); err == nil {
			desc.SEKeyExists = keyExists
		}
		if pinExists, err := b.Exists(ctx, identity); err == nil {
			desc.IdentityExists = pinExists
		}
	}
	return nil
}

func (b *Backend) SetPCRBinding(uint32) error {
	return hsmerr.New("secureelement.set_pcr_binding", hsmerr.KindNotAvailable, nil)
}

// SetUserPresence toggles whether the keystore requires biometric
// presence rather than just device unlock. On darwin this changes the
// access control new keys are created with (kSecAccessControlBiometryCurrentSet)
// and causes decrypt to carry an operation-prompt reason; the
// software-simulated keystore has no presence check to gate and always
// succeeds without changing behavior.
func (b *Backend) SetUserPresence(required bool) error {
	if err := b.ks.setUserPresence(required); err != nil {
		return hsmerr.New("secureelement.set_user_presence", hsmerr.KindInternal, err)
	}
	return nil
}
