//go:build !linux && !windows

package tpmseal

import (
	"io"

	"github.com/pkg/errors"
)

// probeOpen: no TPM 2.0 character-device or TBS transport is defined for
// this platform (notably darwin, where the trust root is the Secure
// Enclave instead).
func probeOpen() (io.ReadWriteCloser, error) {
	return nil, errors.New("tpmseal: no TPM transport on this platform")
}
