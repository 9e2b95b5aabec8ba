//go:build linux

package tpmseal

import (
	"io"

	"github.com/google/go-tpm/legacy/tpm2"
	"github.com/pkg/errors"
)

// probeOpen tries /dev/tpmrm0 (the kernel resource manager) then /dev/tpm0,
// matching tpmdevice's linux_tpm.go.
func probeOpen() (io.ReadWriteCloser, error) {
	paths := []string{"/dev/tpmrm0", "/dev/tpm0"}
	var lastErr error
	for _, p := range paths {
		rwc, err := tpm2.OpenTPM(p)
		if err == nil {
			return rwc, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no TPM device paths tried")
	}
	return nil, errors.Wrap(lastErr, "tpmseal: no TPM device found")
}
