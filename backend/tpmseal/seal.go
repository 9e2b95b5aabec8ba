package tpmseal

import (
	"context"

	tpm2 "github.com/google/go-tpm/legacy/tpm2"

	"github.com/platformseal/hsm-go/hsmerr"
	"github.com/platformseal/hsm-go/internal/guard"
	"github.com/platformseal/hsm-go/internal/secretbuf"
	"github.com/platformseal/hsm-go/internal/securefile"
)

// Seal creates a storage primary, derives a trial policy digest for the
// configured PCR selection, creates a keyedHash object whose sensitive
// area is the PIN and whose public template carries that digest as its
// authorization policy, then persists pub/priv to the identity file.
func (b *Backend) Seal(ctx context.Context, identity string, pin []byte) error {
	if err := b.Initialize(ctx); err != nil {
		return err
	}

	rwc, err := openTPM(ctx)
	if err != nil {
		return hsmerr.New("tpm.seal", hsmerr.KindNotAvailable, err)
	}
	defer rwc.Close()

	g := guard.New()
	defer g.Release()

	parent, err := createPrimary(rwc, b.ownerAuth)
	if err != nil {
		return hsmerr.New("tpm.seal", classify(err, hsmerr.KindSealFailed), err)
	}
	g.Track(func() { tpm2.FlushContext(rwc, parent) })

	sel := b.pcrSelection()
	digest, err := trialPolicyDigest(rwc, sel)
	if err != nil {
		return hsmerr.New("tpm.seal", classify(err, hsmerr.KindSealFailed), err)
	}

	pinCopy := secretbuf.New(pin)
	defer pinCopy.Destroy()

	var pub, priv []byte
	err = pinCopy.View(func(sealBytes []byte) error {
		template := tpm2.Public{
			Type:    tpm2.AlgKeyedHash,
			NameAlg: tpm2.AlgSHA256,
			Attributes: tpm2.FlagFixedTPM |
				tpm2.FlagFixedParent,
			AuthPolicy: digest,
			KeyedHashParameters: &tpm2.KeyedHashParams{
				Alg: tpm2.AlgNull,
			},
		}

		p, pb, _, _, _, createErr := tpm2.CreateKeyWithSensitive(
			rwc,
			parent,
			tpm2.PCRSelection{},
			"",
			"",
			template,
			sealBytes,
		)
		if createErr != nil {
			return createErr
		}
		priv, pub = p, pb
		return nil
	})
	if err != nil {
		return hsmerr.New("tpm.seal", classify(err, hsmerr.KindSealFailed), err)
	}

	encoded, err := encodeSealedFile(pub, priv)
	if err != nil {
		return hsmerr.New("tpm.seal", hsmerr.KindSealFailed, err)
	}

	if err := securefile.WriteSecretFile(b.identityPath(identity), encoded); err != nil {
		return hsmerr.New("tpm.seal", hsmerr.KindIO, err)
	}

	return nil
}
