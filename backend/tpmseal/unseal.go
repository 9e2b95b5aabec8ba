package tpmseal

import (
	"context"
	"os"

	tpm2 "github.com/google/go-tpm/legacy/tpm2"

	"github.com/platformseal/hsm-go/hsmerr"
	"github.com/platformseal/hsm-go/internal/guard"
	"github.com/platformseal/hsm-go/internal/secretbuf"
	"github.com/platformseal/hsm-go/internal/securefile"
)

// Unseal loads the stored public/private blobs under a freshly recreated
// primary, opens a live policy session bound to the current PCR values,
// and unseals under that session. Every TPM handle acquired along the way
// is released by the guard on return, success or failure alike.
func (b *Backend) Unseal(ctx context.Context, identity string, consumer func([]byte) error) error {
	if err := b.Initialize(ctx); err != nil {
		return err
	}

	data, err := securefile.ReadSecureFile(b.identityPath(identity))
	if err != nil {
		if os.IsNotExist(err) {
			return hsmerr.New("tpm.unseal", hsmerr.KindNotFound, err)
		}
		return hsmerr.New("tpm.unseal", hsmerr.KindIO, err)
	}

	pub, priv, err := decodeSealedFile(data)
	if err != nil {
		return hsmerr.New("tpm.unseal", hsmerr.KindUnsealFailed, err)
	}

	rwc, err := openTPM(ctx)
	if err != nil {
		return hsmerr.New("tpm.unseal", hsmerr.KindNotAvailable, err)
	}
	defer rwc.Close()

	g := guard.New()
	defer g.Release()

	parent, err := createPrimary(rwc, b.ownerAuth)
	if err != nil {
		return hsmerr.New("tpm.unseal", classify(err, hsmerr.KindUnsealFailed), err)
	}
	g.Track(func() { tpm2.FlushContext(rwc, parent) })

	loaded, _, err := tpm2.Load(rwc, parent, "", pub, priv)
	if err != nil {
		return hsmerr.New("tpm.unseal", classify(err, hsmerr.KindUnsealFailed), err)
	}
	g.Track(func() { tpm2.FlushContext(rwc, loaded) })

	session, err := policySession(rwc, b.pcrSelection())
	if err != nil {
		// A PolicyPCR failure here means the live PCR values no longer
		// match the policy baked into the object at seal time.
		return hsmerr.New("tpm.unseal", classify(err, hsmerr.KindPCRMismatch), err)
	}
	g.Track(func() { tpm2.FlushContext(rwc, session) })

	secret, err := tpm2.UnsealWithSession(rwc, session, loaded, "")
	if err != nil {
		return hsmerr.New("tpm.unseal", classify(err, hsmerr.KindUnsealFailed), err)
	}

	buf := secretbuf.New(secret)
	secretbuf.Wipe(secret)
	defer buf.Destroy()

	if cbErr := buf.View(consumer); cbErr != nil {
		return hsmerr.New("tpm.unseal", hsmerr.KindInternal, cbErr)
	}
	return nil
}
