//go:build windows

package tpmseal

import (
	"io"

	tpm2 "github.com/google/go-tpm/legacy/tpm2"
	"github.com/pkg/errors"
)

// probeOpen on Windows talks to the TPM via the TBS layer, matching
// tpmdevice's windows_tpm.go.
func probeOpen() (io.ReadWriteCloser, error) {
	rwc, err := tpm2.OpenTPM()
	if err != nil {
		return nil, errors.Wrap(err, "tpmseal: OpenTPM (windows) failed")
	}
	return rwc, nil
}
