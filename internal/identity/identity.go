// Package identity provides an optional local integrity co-signature for
// status descriptors (Dispatcher.SignStatus): a post-quantum ML-DSA-65 keypair (github.com/cloudflare/circl)
// whose private half is persisted only as an XChaCha20-Poly1305-encrypted
// envelope, adapted from the sealed-DEK envelope pattern in
// cryptoctx/runtime.go (there the DEK is sealed by a TPM signing key; here,
// since this package must work identically on hosts with no TPM at all,
// the DEK is instead held in the OS credential store via
// github.com/zalando/go-keyring and the envelope's AEAD ciphertext is the
// only thing that touches disk).
//
// This is strictly a local tamper-evidence mechanism for this service's
// own status descriptors — not a remote attestation scheme, and it never
// exports attestation material off the host.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/schemes"
	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/platformseal/hsm-go/internal/secretbuf"
	"github.com/platformseal/hsm-go/internal/securefile"
)

const (
	schemeName   = "ML-DSA-65"
	dekService   = "com.hsm.identity-dek"
	dekAccount   = "identity-dek"
	envelopeFile = "identity-key.json"
	envelopeV1   = 1
)

var ErrNotProvisioned = errors.New("identity: no co-signature keypair provisioned yet")

type envelope struct {
	V        int    `json:"v"`
	NonceB64 string `json:"nonce_b64"`
	CTB64    string `json:"ct_b64"`
}

type payload struct {
	Pub  []byte `json:"pub"`
	Priv []byte `json:"priv"`
}

// Signer holds the co-signature keypair for a storage directory, loading
// or provisioning it lazily on first use.
type Signer struct {
	dir    string
	scheme sign.Scheme

	mu   sync.Mutex
	pub  []byte
	priv []byte
}

// New returns a Signer rooted at dir (the same directory the TPM backend
// persists sealed artifacts under).
func New(dir string) *Signer {
	return &Signer{dir: dir, scheme: schemes.ByName(schemeName)}
}

func (s *Signer) envelopePath() string {
	return filepath.Join(s.dir, envelopeFile)
}

// ensure loads the keypair from disk, provisioning it (keygen + DEK in
// the credential store) on first use.
func (s *Signer) ensure(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.priv != nil {
		return nil
	}

	raw, err := os.ReadFile(s.envelopePath())
	if err == nil {
		return s.decodeEnvelope(raw)
	}
	if !os.IsNotExist(err) {
		return errors.Wrap(err, "identity: read envelope")
	}

	return s.provision()
}

func (s *Signer) provision() error {
	pub, priv, err := s.scheme.GenerateKey()
	if err != nil {
		return errors.Wrap(err, "identity: generate keypair")
	}
	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "identity: marshal public key")
	}
	privBytes, err := priv.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "identity: marshal private key")
	}

	dek := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(dek); err != nil {
		return errors.Wrap(err, "identity: generate dek")
	}
	defer secretbuf.Wipe(dek)

	if err := keyring.Set(dekService, dekAccount, base64.StdEncoding.EncodeToString(dek)); err != nil {
		return errors.Wrap(err, "identity: store dek")
	}

	if err := s.encryptAndPersist(dek, payload{Pub: pubBytes, Priv: privBytes}); err != nil {
		return err
	}

	s.pub, s.priv = pubBytes, privBytes
	return nil
}

func (s *Signer) encryptAndPersist(dek []byte, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "identity: marshal payload")
	}

	aead, err := chacha20poly1305.NewX(dek)
	if err != nil {
		return errors.Wrap(err, "identity: aead")
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return errors.Wrap(err, "identity: generate nonce")
	}
	ct := aead.Seal(nil, nonce, body, nil)

	env := envelope{
		V:        envelopeV1,
		NonceB64: base64.StdEncoding.EncodeToString(nonce),
		CTB64:    base64.StdEncoding.EncodeToString(ct),
	}
	out, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "identity: marshal envelope")
	}

	if err := securefile.EnsureSecureDir(s.dir); err != nil {
		return err
	}
	return securefile.WriteSecretFile(s.envelopePath(), out)
}

func (s *Signer) decodeEnvelope(raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return errors.Wrap(err, "identity: unmarshal envelope")
	}
	if env.V != envelopeV1 {
		return errors.Errorf("identity: unsupported envelope version %d", env.V)
	}

	dekB64, err := keyring.Get(dekService, dekAccount)
	if err != nil {
		return errors.Wrap(err, "identity: fetch dek")
	}
	dek, err := base64.StdEncoding.DecodeString(dekB64)
	if err != nil {
		return errors.Wrap(err, "identity: decode dek")
	}
	defer secretbuf.Wipe(dek)

	nonce, err := base64.StdEncoding.DecodeString(env.NonceB64)
	if err != nil {
		return errors.Wrap(err, "identity: decode nonce")
	}
	ct, err := base64.StdEncoding.DecodeString(env.CTB64)
	if err != nil {
		return errors.Wrap(err, "identity: decode ciphertext")
	}

	aead, err := chacha20poly1305.NewX(dek)
	if err != nil {
		return errors.Wrap(err, "identity: aead")
	}
	body, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return errors.Wrap(err, "identity: decrypt envelope (dek/credential-store mismatch)")
	}

	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return errors.Wrap(err, "identity: unmarshal payload")
	}
	s.pub, s.priv = p.Pub, p.Priv
	return nil
}

// Sign produces an ML-DSA-65 signature over data, provisioning the
// keypair on first use.
func (s *Signer) Sign(ctx context.Context, data []byte) ([]byte, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sk, err := s.scheme.UnmarshalBinaryPrivateKey(s.priv)
	if err != nil {
		return nil, errors.Wrap(err, "identity: unmarshal private key")
	}
	sig := s.scheme.Sign(sk, data, nil)
	if sig == nil {
		return nil, errors.New("identity: sign failed")
	}
	return sig, nil
}

// Verify reports whether sig is a valid ML-DSA-65 signature over data
// under this Signer's provisioned public key.
func (s *Signer) Verify(ctx context.Context, data, sig []byte) (bool, error) {
	if err := s.ensure(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	pk, err := s.scheme.UnmarshalBinaryPublicKey(s.pub)
	if err != nil {
		return false, errors.Wrap(err, "identity: unmarshal public key")
	}
	return s.scheme.Verify(pk, data, sig, nil), nil
}

// PublicKeyB64 returns the base64-encoded public key, for inclusion in a
// status descriptor or diagnostic output.
func (s *Signer) PublicKeyB64(ctx context.Context) (string, error) {
	if err := s.ensure(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return base64.StdEncoding.EncodeToString(s.pub), nil
}
