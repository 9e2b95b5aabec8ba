package tpmseal

import (
	"io"

	tpm2 "github.com/google/go-tpm/legacy/tpm2"
	"github.com/google/go-tpm/tpmutil"
)

// trialPolicyDigest opens a trial policy session, issues PolicyPCR against
// sel, reads the resulting digest and closes the session — the seal-time
// half of PCR binding. Grounded on PolicyPCRSession in pkg-pillar's evetpm
// package, split into a trial variant (digest only, no live session
// returned) and a live variant (policySession, below) used at unseal time.
func trialPolicyDigest(rw io.ReadWriter, sel tpm2.PCRSelection) ([]byte, error) {
	session, _, err := tpm2.StartAuthSession(
		rw,
		tpm2.HandleNull,
		tpm2.HandleNull,
		make([]byte, 16),
		nil,
		tpm2.SessionTrial,
		tpm2.AlgNull,
		tpm2.AlgSHA256,
	)
	if err != nil {
		return nil, err
	}
	defer tpm2.FlushContext(rw, session)

	if err := tpm2.PolicyPCR(rw, session, nil, sel); err != nil {
		return nil, err
	}

	digest, err := tpm2.PolicyGetDigest(rw, session)
	if err != nil {
		return nil, err
	}
	return digest, nil
}

// policySession opens a real (non-trial) policy session bound to the
// current PCR values for sel and leaves it open; the caller authorizes an
// Unseal with it and is responsible for flushing it afterward.
func policySession(rw io.ReadWriter, sel tpm2.PCRSelection) (tpmutil.Handle, error) {
	session, _, err := tpm2.StartAuthSession(
		rw,
		tpm2.HandleNull,
		tpm2.HandleNull,
		make([]byte, 16),
		nil,
		tpm2.SessionPolicy,
		tpm2.AlgNull,
		tpm2.AlgSHA256,
	)
	if err != nil {
		return tpm2.HandleNull, err
	}

	if err := tpm2.PolicyPCR(rw, session, nil, sel); err != nil {
		tpm2.FlushContext(rw, session)
		return tpm2.HandleNull, err
	}
	return session, nil
}
