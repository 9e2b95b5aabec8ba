// Package secureelement implements the secure-element backend: PINs are
// encrypted with ECIES under a P-256 key whose private half never leaves
// hardware (Apple Secure Enclave on darwin; a software-simulated keystore
// elsewhere, exercising the identical wire format and encrypt/decrypt code
// paths on any platform), and the resulting ciphertext blob is stored in
// the OS credential store.
//
// The ECIES construction in this file matches Apple's own
// kSecKeyAlgorithmECIESEncryptionCofactorVariableIVX963SHA256AESGCM: an
// ephemeral P-256 key pair, cofactor ECDH against the recipient's static
// public key, an ANSI X9.63 KDF over the shared secret (seeded with the
// ephemeral public key as the KDF's sharedInfo) to derive a 32-byte AES
// key and an AES-GCM seal with a random 16-byte IV carried in the
// ciphertext. Implementing it in portable Go lets the same code run the
// encrypt half on darwin (where only the public key is ever in Go's
// address space) and both halves on the software-simulated keystore used
// on other platforms.
package secureelement

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const (
	aesKeySize = 32
	ivSize     = 16
)

// eciesEncrypt produces the wire format: ephemeral public key (65 bytes,
// uncompressed P-256) || iv (16 bytes) || AES-GCM sealed box (plaintext
// length + 16-byte tag).
func eciesEncrypt(recipient *ecdh.PublicKey, plaintext []byte) ([]byte, error) {
	curve := ecdh.P256()

	ephemeral, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "secureelement: generate ephemeral key")
	}

	shared, err := ephemeral.ECDH(recipient)
	if err != nil {
		return nil, errors.Wrap(err, "secureelement: ECDH agreement")
	}

	ephemeralPub := ephemeral.PublicKey().Bytes()
	key := x963KDF(shared, ephemeralPub, aesKeySize)

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, errors.Wrap(err, "secureelement: generate iv")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "secureelement: aes cipher")
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, errors.Wrap(err, "secureelement: gcm mode")
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)

	out := make([]byte, 0, len(ephemeralPub)+ivSize+len(sealed))
	out = append(out, ephemeralPub...)
	out = append(out, iv...)
	out = append(out, sealed...)
	return out, nil
}

// eciesDecrypt is the inverse of eciesEncrypt, run against the recipient's
// static private key.
func eciesDecrypt(recipient *ecdh.PrivateKey, ciphertext []byte) ([]byte, error) {
	curve := ecdh.P256()
	const pubLen = 65 // uncompressed P-256 point

	if len(ciphertext) < pubLen+ivSize {
		return nil, errors.New("secureelement: ciphertext too short")
	}

	ephemeralPub := ciphertext[:pubLen]
	iv := ciphertext[pubLen : pubLen+ivSize]
	sealed := ciphertext[pubLen+ivSize:]

	ephemeral, err := curve.NewPublicKey(ephemeralPub)
	if err != nil {
		return nil, errors.Wrap(err, "secureelement: decode ephemeral public key")
	}

	shared, err := recipient.ECDH(ephemeral)
	if err != nil {
		return nil, errors.Wrap(err, "secureelement: ECDH agreement")
	}

	key := x963KDF(shared, ephemeralPub, aesKeySize)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "secureelement: aes cipher")
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, errors.Wrap(err, "secureelement: gcm mode")
	}

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, errors.Wrap(err, "secureelement: gcm open (wrong key or corrupted blob)")
	}
	return plaintext, nil
}

// x963KDF implements the ANSI X9.63 key derivation function with SHA-256,
// the counter-mode KDF Apple's Security.framework uses for its ECIES
// ciphersuite: repeatedly hash(sharedSecret || counter || sharedInfo) for
// counter = 1, 2, ... until enough output bytes are produced.
func x963KDF(sharedSecret, sharedInfo []byte, outLen int) []byte {
	out := make([]byte, 0, outLen)
	var counter uint32 = 1
	for len(out) < outLen {
		h := sha256.New()
		h.Write(sharedSecret)
		var ctr [4]byte
		binary.BigEndian.PutUint32(ctr[:], counter)
		h.Write(ctr[:])
		h.Write(sharedInfo)
		out = h.Sum(out)
		counter++
	}
	return out[:outLen]
}
