package secureelement

import (
	"crypto/ecdh"

	"github.com/pkg/errors"
)

const keyTagPrefix = "com.hsm.se-key."

// errKeyNotFound is returned by keystore.decrypt when no key pair exists
// for the requested identity.
var errKeyNotFound = errors.New("secureelement: key not found")

// errCancelled is returned by keystore.decrypt when the platform aborted
// the operation because the user declined or cancelled a presence check
// (Touch ID/Face ID sheet dismissed, or the system cancelled it out from
// under the caller).
var errCancelled = errors.New("secureelement: user presence check cancelled")

func keyTag(identity string) string { return keyTagPrefix + identity }

// keystore is the platform-specific half of this backend: generation,
// lookup and deletion of a P-256 key pair whose private half is held by
// hardware (or simulated hardware), plus the private-key operation ECIES
// decryption needs. Only darwin's implementation is backed by real
// Secure Enclave silicon; every other platform uses a software-simulated
// keystore so the rest of this package is exercised uniformly.
type keystore interface {
	// biometricAvailable reports whether the platform can gate key use
	// behind Touch ID/Face ID/equivalent.
	biometricAvailable() bool

	// setUserPresence toggles whether future createKey/decrypt calls
	// require biometric presence rather than just device unlock. Keys
	// created before the flag changes keep the access control they were
	// created with; only new keys pick up the new setting.
	setUserPresence(required bool) error

	// createKey generates a key pair for identity if one does not already
	// exist, and is a no-op (not an error) if it does — keys are never
	// regenerated once created, since that would strand existing
	// ciphertext.
	createKey(identity string) error

	// hasKey reports whether a key pair exists for identity.
	hasKey(identity string) (bool, error)

	// publicKey returns the identity's public key, creating the
	// underlying key pair first if needed.
	publicKey(identity string) (*ecdh.PublicKey, error)

	// decrypt performs the full ECIES decryption of ciphertext with
	// identity's static private key and returns the plaintext.
	decrypt(identity string, ciphertext []byte) ([]byte, error)

	// deleteKey removes the key pair for identity. Returns nil if no key
	// existed.
	deleteKey(identity string) error
}
