//go:build !darwin || !cgo

package secureelement

import (
	"crypto/ecdh"
	"crypto/rand"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/platformseal/hsm-go/internal/securefile"
)

// softwareKeystore simulates a secure element on platforms without real
// hardware-backed key storage: a P-256 private key generated once per
// identity and persisted under an owner-only directory, grounded on the
// simulated-provider fallback pattern in
// writerslogic-witnessd/internal/tpm/tpm_darwin.go's SecureEnclaveProvider
// (a file-backed stand-in used whenever the real hardware path isn't
// compiled in). It exists so the ECIES wire format and decrypt path are
// exercised by every platform's test suite, not only darwin's.
type softwareKeystore struct {
	mu  sync.Mutex
	dir string
}

func newPlatformKeystore() keystore {
	dir, err := defaultSoftwareKeyDir()
	if err != nil {
		dir = os.TempDir()
	}
	return &softwareKeystore{dir: dir}
}

func defaultSoftwareKeyDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "hsm", "se-sim-keys"), nil
}

func (s *softwareKeystore) keyPath(identity string) string {
	return filepath.Join(s.dir, identity+".se-key")
}

func (s *softwareKeystore) biometricAvailable() bool { return false }

// setUserPresence is a no-op: the simulated keystore has no presence
// check to gate, so it always reports success without changing behavior.
func (s *softwareKeystore) setUserPresence(required bool) error { return nil }

func (s *softwareKeystore) hasKey(identity string) (bool, error) {
	_, err := os.Stat(s.keyPath(identity))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *softwareKeystore) createKey(identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ok, _ := s.hasKey(identity); ok {
		return nil
	}
	if err := securefile.EnsureSecureDir(s.dir); err != nil {
		return errors.Wrap(err, "secureelement(simulated): create key directory")
	}

	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return errors.Wrap(err, "secureelement(simulated): generate key pair")
	}

	if err := securefile.WriteSecretFile(s.keyPath(identity), priv.Bytes()); err != nil {
		return errors.Wrap(err, "secureelement(simulated): persist key")
	}
	return nil
}

func (s *softwareKeystore) loadPrivate(identity string) (*ecdh.PrivateKey, error) {
	raw, err := securefile.ReadSecureFile(s.keyPath(identity))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errKeyNotFound
		}
		return nil, err
	}
	return ecdh.P256().NewPrivateKey(raw)
}

func (s *softwareKeystore) publicKey(identity string) (*ecdh.PublicKey, error) {
	if err := s.createKey(identity); err != nil {
		return nil, err
	}
	priv, err := s.loadPrivate(identity)
	if err != nil {
		return nil, err
	}
	return priv.PublicKey(), nil
}

func (s *softwareKeystore) decrypt(identity string, ciphertext []byte) ([]byte, error) {
	priv, err := s.loadPrivate(identity)
	if err != nil {
		return nil, err
	}
	return eciesDecrypt(priv, ciphertext)
}

func (s *softwareKeystore) deleteKey(identity string) error {
	err := securefile.WipeAndRemove(s.keyPath(identity))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
