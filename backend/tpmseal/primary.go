package tpmseal

import (
	"io"

	tpm2 "github.com/google/go-tpm/legacy/tpm2"
	"github.com/google/go-tpm/tpmutil"
)

// createPrimary brings up the restricted/decrypting RSA-2048 storage
// primary each seal/unseal round-trip recreates under the owner hierarchy:
// fixed to TPM and parent, SHA-256 name algorithm, AES-128-CFB symmetric
// parameters, no auth value. The shape of the call (CreatePrimary under
// HandleOwner, no persistent handle retained) follows
// tpmdevice.createPrimaryStorageKey's pattern of re-deriving the primary
// on every call rather than persisting it at a fixed handle via
// EvictControl; it means the backend never owns a persistent TPM object,
// so Status().TPMHasPersistentKey is always false.
func createPrimary(rw io.ReadWriter, ownerAuth string) (tpmutil.Handle, error) {
	template := tpm2.Public{
		Type:    tpm2.AlgRSA,
		NameAlg: tpm2.AlgSHA256,
		Attributes: tpm2.FlagDecrypt |
			tpm2.FlagRestricted |
			tpm2.FlagFixedTPM |
			tpm2.FlagFixedParent |
			tpm2.FlagSensitiveDataOrigin |
			tpm2.FlagUserWithAuth,
		RSAParameters: &tpm2.RSAParams{
			Symmetric: &tpm2.SymScheme{
				Alg:     tpm2.AlgCFB,
				KeyBits: 128,
			},
			KeyBits: 2048,
		},
	}

	h, _, err := tpm2.CreatePrimary(
		rw,
		tpm2.HandleOwner,
		tpm2.PCRSelection{},
		"",        // parentPassword
		ownerAuth, // ownerPassword
		template,
	)
	if err != nil {
		return 0, err
	}
	return h, nil
}
