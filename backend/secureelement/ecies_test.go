package secureelement

import (
	"crypto/ecdh"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestECIESRoundTrip(t *testing.T) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	plaintext := []byte("correct horse battery staple")
	ciphertext, err := eciesEncrypt(priv.PublicKey(), plaintext)
	require.NoError(t, err)

	got, err := eciesDecrypt(priv, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestECIESProducesDistinctCiphertextsPerCall(t *testing.T) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	plaintext := []byte("same plaintext every time")
	a, err := eciesEncrypt(priv.PublicKey(), plaintext)
	require.NoError(t, err)
	b, err := eciesEncrypt(priv.PublicKey(), plaintext)
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "fresh ephemeral key and IV must vary each call")
}

func TestECIESDecryptRejectsTamperedCiphertext(t *testing.T) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	ciphertext, err := eciesEncrypt(priv.PublicKey(), []byte("sensitive pin"))
	require.NoError(t, err)

	tampered := append([]byte(nil), ciphertext...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = eciesDecrypt(priv, tampered)
	assert.Error(t, err)
}

func TestECIESDecryptRejectsUndersizedInput(t *testing.T) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	_, err = eciesDecrypt(priv, []byte("too short"))
	assert.Error(t, err)
}

func TestX963KDFIsDeterministic(t *testing.T) {
	secret := []byte("shared-secret-bytes")
	info := []byte("shared-info-bytes")

	a := x963KDF(secret, info, 32)
	b := x963KDF(secret, info, 32)
	assert.Equal(t, a, b)
	assert.Len(t, a, 32)
}

func TestX963KDFShorterOutputIsPrefixOfLonger(t *testing.T) {
	secret := []byte("shared-secret-bytes")
	info := []byte("shared-info-bytes")

	short := x963KDF(secret, info, 16)
	long := x963KDF(secret, info, 32)
	assert.Equal(t, short, long[:16], "longer output must extend the shorter one, counter-mode KDF")
}

func TestX963KDFDiffersWithSharedInfo(t *testing.T) {
	secret := []byte("shared-secret-bytes")
	a := x963KDF(secret, []byte("info-a"), 32)
	b := x963KDF(secret, []byte("info-b"), 32)
	assert.NotEqual(t, a, b)
}
