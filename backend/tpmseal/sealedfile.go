package tpmseal

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// encodeSealedFile lays out the TPM sealed artifact as: u16 be pub_size,
// pub_size bytes, u16 be priv_size, priv_size bytes. This replaces the
// original C implementation's raw fwrite(&struct, size, 1, file) dump with
// an explicit, versionable length-prefixed layout.
func encodeSealedFile(pub, priv []byte) ([]byte, error) {
	if len(pub) > 0xFFFF || len(priv) > 0xFFFF {
		return nil, errors.New("tpmseal: blob too large for u16-prefixed format")
	}
	out := make([]byte, 0, 4+len(pub)+len(priv))
	var sz [2]byte

	binary.BigEndian.PutUint16(sz[:], uint16(len(pub)))
	out = append(out, sz[:]...)
	out = append(out, pub...)

	binary.BigEndian.PutUint16(sz[:], uint16(len(priv)))
	out = append(out, sz[:]...)
	out = append(out, priv...)

	return out, nil
}

func decodeSealedFile(data []byte) (pub, priv []byte, err error) {
	if len(data) < 2 {
		return nil, nil, errors.New("tpmseal: sealed file truncated (pub size)")
	}
	pubSize := int(binary.BigEndian.Uint16(data[:2]))
	data = data[2:]
	if len(data) < pubSize {
		return nil, nil, errors.New("tpmseal: sealed file truncated (pub blob)")
	}
	pub = data[:pubSize]
	data = data[pubSize:]

	if len(data) < 2 {
		return nil, nil, errors.New("tpmseal: sealed file truncated (priv size)")
	}
	privSize := int(binary.BigEndian.Uint16(data[:2]))
	data = data[2:]
	if len(data) < privSize {
		return nil, nil, errors.New("tpmseal: sealed file truncated (priv blob)")
	}
	priv = data[:privSize]

	return pub, priv, nil
}
