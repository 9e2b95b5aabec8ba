package hsm

import (
	"context"

	"github.com/platformseal/hsm-go/backend/credstore"
	"github.com/platformseal/hsm-go/backend/secureelement"
	"github.com/platformseal/hsm-go/backend/tpmseal"
	"github.com/platformseal/hsm-go/hsmerr"
	"github.com/platformseal/hsm-go/hsmtypes"
	"github.com/platformseal/hsm-go/internal/hsmlog"
	"github.com/platformseal/hsm-go/internal/identity"
	"github.com/platformseal/hsm-go/internal/registry"
)

// DefaultService names this service's storage directory,
// <data-home>/<service>/tpm-sealed, which holds the TPM sealed files, the
// identity registry and the co-signature key envelope. The secure-element
// key tags ("com.hsm.se-key.<identity>") and the credential-store service
// names ("com.hsm.pin.<identity>") are fixed and do not depend on it.
const DefaultService = "hsm"

// Dispatcher is the public façade: it validates inputs, selects the
// active backend via the platform probe, and routes every operation to
// it. Callers construct one Dispatcher per process and share it; its
// methods are safe for concurrent use by multiple goroutines, matching
// the "parallel threads, shared process-wide" concurrency model this
// service is built for.
type Dispatcher struct {
	probe probe

	tpm  *tpmseal.Backend
	se   *secureelement.Backend
	cred *credstore.Backend

	// reg enumerates identities for backends that cannot themselves list
	// their credential-store entries (secure-element, credential-store).
	reg *registry.Registry

	// signer co-signs diagnostic output with a local post-quantum
	// keypair; it never participates in the seal/unseal path itself.
	signer *identity.Signer
}

// NewDispatcher constructs a Dispatcher rooted at the given service
// namespace. Most callers should use New, which assumes DefaultService.
func NewDispatcher(service string) (*Dispatcher, error) {
	storageDir, err := tpmseal.DefaultStorageDir(service)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		tpm:    tpmseal.New(storageDir, ""),
		se:     secureelement.New(),
		cred:   credstore.New(),
		reg:    registry.New(storageDir, "identity-registry"),
		signer: identity.New(storageDir),
	}
	return d, nil
}

// New constructs a Dispatcher under DefaultService.
func New() (*Dispatcher, error) {
	return NewDispatcher(DefaultService)
}

// Detect returns the backend kind selected for this process, probing on
// first call and returning the cached result on every call thereafter.
func (d *Dispatcher) Detect(ctx context.Context) BackendKind {
	return d.probe.detect()
}

func (d *Dispatcher) active() hsmtypes.Backend {
	switch d.Detect(context.Background()) {
	case BackendTPM:
		return d.tpm
	case BackendSecureElement:
		return d.se
	case BackendCredentialStore:
		return d.cred
	default:
		return nil
	}
}

// usesRegistry reports whether the active backend relies on the
// dispatcher's own enumeration aid rather than listing itself.
func (d *Dispatcher) usesRegistry() bool {
	return d.Detect(context.Background()) != BackendTPM
}

// Initialize brings the active backend up: for TPM this opens the
// transport and ensures the storage directory exists; for the other two
// backends it is a no-op. Returns not_available if no backend was
// selected.
func (d *Dispatcher) Initialize(ctx context.Context) error {
	b := d.active()
	if b == nil {
		return hsmerr.New("dispatcher.initialize", hsmerr.KindNotAvailable, nil)
	}
	return b.Initialize(ctx)
}

// Status populates a descriptor for the active backend, plus identity
// field(s) when identity is non-empty.
func (d *Dispatcher) Status(ctx context.Context, identity string) (*Status, error) {
	b := d.active()
	desc := &Status{Backend: BackendNone, Description: "no backend available on this host"}
	if b == nil {
		return desc, nil
	}
	if err := b.Status(ctx, identity, desc); err != nil {
		return desc, hsmerr.New("dispatcher.status", hsmerr.KindOf(err), err)
	}
	return desc, nil
}

// SealPIN validates identity and pin, then stores pin under the active
// backend. A prior artifact for the same identity is replaced atomically
// from the caller's perspective.
func (d *Dispatcher) SealPIN(ctx context.Context, identity string, pin []byte) error {
	if err := ValidateIdentity(identity); err != nil {
		return err
	}
	if err := ValidatePIN(pin); err != nil {
		return err
	}

	b := d.active()
	if b == nil {
		return hsmerr.New("dispatcher.seal_pin", hsmerr.KindNotAvailable, nil)
	}

	if err := b.Seal(ctx, identity, pin); err != nil {
		hsmlog.Trace("seal_pin", hsmerr.CauseString(err), string(hsmerr.KindOf(err)), err)
		return err
	}
	if d.usesRegistry() {
		if err := d.reg.Add(identity); err != nil {
			hsmlog.Trace("seal_pin.registry_add", hsmerr.CauseString(err), string(hsmerr.KindIO), err)
		}
	}
	return nil
}

// UnsealPIN validates identity, then invokes consumer exactly once with a
// transient view of the unsealed PIN on success. The view is valid only
// for the span of consumer's call.
func (d *Dispatcher) UnsealPIN(ctx context.Context, identity string, consumer func([]byte) error) error {
	if err := ValidateIdentity(identity); err != nil {
		return err
	}

	b := d.active()
	if b == nil {
		return hsmerr.New("dispatcher.unseal_pin", hsmerr.KindNotAvailable, nil)
	}

	err := b.Unseal(ctx, identity, consumer)
	hsmlog.Trace("unseal_pin", hsmerr.CauseString(err), string(hsmerr.KindOf(err)), err)
	return err
}

// PINExists never triggers an authentication prompt and never decrypts.
func (d *Dispatcher) PINExists(ctx context.Context, identity string) (bool, error) {
	if err := ValidateIdentity(identity); err != nil {
		return false, err
	}
	b := d.active()
	if b == nil {
		return false, hsmerr.New("dispatcher.pin_exists", hsmerr.KindNotAvailable, nil)
	}
	return b.Exists(ctx, identity)
}

// ClearPIN removes the sealed artifact for identity, distinguishing
// not_found from an underlying I/O failure.
func (d *Dispatcher) ClearPIN(ctx context.Context, identity string) error {
	if err := ValidateIdentity(identity); err != nil {
		return err
	}
	b := d.active()
	if b == nil {
		return hsmerr.New("dispatcher.clear_pin", hsmerr.KindNotAvailable, nil)
	}

	err := b.Clear(ctx, identity)
	if d.usesRegistry() {
		_ = d.reg.Remove(identity)
	}
	return err
}

// ClearAll removes every artifact owned by this service on the active
// backend, best-effort, and reports the first hard failure encountered.
func (d *Dispatcher) ClearAll(ctx context.Context) error {
	b := d.active()
	if b == nil {
		return hsmerr.New("dispatcher.clear_all", hsmerr.KindNotAvailable, nil)
	}

	if !d.usesRegistry() {
		return b.ClearAll(ctx)
	}

	identities, err := d.reg.List()
	if err != nil {
		return hsmerr.New("dispatcher.clear_all", hsmerr.KindIO, err)
	}
	var firstErr error
	for _, identity := range identities {
		if err := b.Clear(ctx, identity); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	_ = d.reg.Clear()
	return firstErr
}

// ListIdentities returns the identity names with a sealed artifact in the
// active backend, in no particular order.
func (d *Dispatcher) ListIdentities(ctx context.Context) ([]string, error) {
	b := d.active()
	if b == nil {
		return nil, hsmerr.New("dispatcher.list_identities", hsmerr.KindNotAvailable, nil)
	}
	if !d.usesRegistry() {
		return b.List(ctx)
	}
	return d.reg.List()
}

// SetPCRBinding reconfigures the PCR selection the TPM backend binds
// seals to. Returns not_available against any other active backend.
func (d *Dispatcher) SetPCRBinding(mask uint32) error {
	b := d.active()
	if b == nil {
		return hsmerr.New("dispatcher.set_pcr_binding", hsmerr.KindNotAvailable, nil)
	}
	return b.SetPCRBinding(mask)
}

// SetUserPresence reconfigures whether the secure-element backend
// requires biometric presence on every use. Returns not_available
// against any other active backend.
func (d *Dispatcher) SetUserPresence(required bool) error {
	b := d.active()
	if b == nil {
		return hsmerr.New("dispatcher.set_user_presence", hsmerr.KindNotAvailable, nil)
	}
	return b.SetUserPresence(required)
}

// SignStatus co-signs a status descriptor with this process's local
// post-quantum identity key, for a caller that wants evidence the
// descriptor wasn't altered in transit to wherever it logs or displays
// it. This signature is never sent off-host by this package; any remote
// verification flow is the caller's concern, not this service's.
func (d *Dispatcher) SignStatus(ctx context.Context, desc *Status) (signature []byte, publicKeyB64 string, err error) {
	data, err := statusBytes(desc)
	if err != nil {
		return nil, "", hsmerr.New("dispatcher.sign_status", hsmerr.KindInternal, err)
	}
	sig, err := d.signer.Sign(ctx, data)
	if err != nil {
		return nil, "", hsmerr.New("dispatcher.sign_status", hsmerr.KindInternal, err)
	}
	pub, err := d.signer.PublicKeyB64(ctx)
	if err != nil {
		return nil, "", hsmerr.New("dispatcher.sign_status", hsmerr.KindInternal, err)
	}
	return sig, pub, nil
}
