package tpmseal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealedFileRoundTrip(t *testing.T) {
	pub := []byte("public-area-bytes")
	priv := []byte("private-area-bytes-longer")

	encoded, err := encodeSealedFile(pub, priv)
	require.NoError(t, err)

	gotPub, gotPriv, err := decodeSealedFile(encoded)
	require.NoError(t, err)
	assert.Equal(t, pub, gotPub)
	assert.Equal(t, priv, gotPriv)
}

func TestSealedFileRoundTripEmptyBlobs(t *testing.T) {
	encoded, err := encodeSealedFile(nil, nil)
	require.NoError(t, err)

	gotPub, gotPriv, err := decodeSealedFile(encoded)
	require.NoError(t, err)
	assert.Empty(t, gotPub)
	assert.Empty(t, gotPriv)
}

func TestEncodeSealedFileRejectsOversizedBlob(t *testing.T) {
	huge := make([]byte, 0x10000)
	_, err := encodeSealedFile(huge, nil)
	assert.Error(t, err)
}

func TestDecodeSealedFileRejectsTruncatedInput(t *testing.T) {
	cases := map[string][]byte{
		"empty":                  {},
		"missing pub size byte":  {0x00},
		"pub blob truncated":     {0x00, 0x05, 'a', 'b'},
		"priv size missing":      {0x00, 0x01, 'a'},
		"priv blob truncated":    {0x00, 0x01, 'a', 0x00, 0x05, 'b'},
	}
	for name, data := range cases {
		_, _, err := decodeSealedFile(data)
		assert.Errorf(t, err, "case %q should fail to decode", name)
	}
}
