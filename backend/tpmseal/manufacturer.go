package tpmseal

import (
	"io"

	tpm2 "github.com/google/go-tpm/legacy/tpm2"
)

// tpmPropertyManufacturer is TPM_PT_MANUFACTURER; go-tpm's legacy package
// has not always shipped a named constant for it (pkg-pillar's evetpm
// package carries the same comment), so it is declared locally.
const tpmPropertyManufacturer tpm2.TPMProp = 0x105

func readManufacturer(rw io.ReadWriter) (string, error) {
	v, _, err := tpm2.GetCapability(rw, tpm2.CapabilityTPMProperties, 1, uint32(tpmPropertyManufacturer))
	if err != nil {
		return "", err
	}
	if len(v) == 0 {
		return "", nil
	}
	prop, ok := v[0].(tpm2.TaggedProperty)
	if !ok {
		return "", nil
	}
	return manufacturerString(prop.Value), nil
}

// manufacturerString decodes the 4-byte ASCII vendor ID TPM2_PT_MANUFACTURER
// carries (e.g. "IBM " or "INTC").
func manufacturerString(v uint32) string {
	b := []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	n := len(b)
	for n > 0 && b[n-1] == 0 {
		n--
	}
	return string(b[:n])
}
