// Package hsmtypes defines the BackendKind tagged variant, the Status
// descriptor and the Backend operation-set interface shared by the
// dispatcher and every backend implementation. It is a leaf package (it
// does not import the backend packages or the root hsm package) so that
// backend/* packages can implement Backend without creating an import
// cycle back through the root package.
package hsmtypes

import "context"

// BackendKind is the tagged variant naming which trust root is backing a
// given operation. The dispatcher pattern-matches on this; it does not
// model backends as a class hierarchy.
type BackendKind string

const (
	BackendNone            BackendKind = "none"
	BackendTPM             BackendKind = "tpm"
	BackendSecureElement   BackendKind = "secure_element"
	BackendCredentialStore BackendKind = "credential_store"
)

// PreferenceOrder is the fixed backend preference used by the platform
// probe: tpm > secure_element > credential_store > none.
var PreferenceOrder = []BackendKind{BackendTPM, BackendSecureElement, BackendCredentialStore}

// Status is the descriptor populated by Dispatcher.Status. Its
// backend-specific fields follow the original hsm_status_t layout.
type Status struct {
	Backend              BackendKind
	Description          string
	Version              string
	IdentityExists       bool
	TPMHasPersistentKey  bool
	TPMManufacturer      string
	SEBiometricAvailable bool
	SEKeyExists          bool
}

// Backend is the operation set every trust root implements: seal, unseal,
// exists, clear, list.
type Backend interface {
	Kind() BackendKind

	Initialize(ctx context.Context) error
	Seal(ctx context.Context, identity string, pin []byte) error
	Unseal(ctx context.Context, identity string, consumer func([]byte) error) error
	Exists(ctx context.Context, identity string) (bool, error)
	Clear(ctx context.Context, identity string) error
	ClearAll(ctx context.Context) error
	List(ctx context.Context) ([]string, error)
	Status(ctx context.Context, identity string, desc *Status) error
	SetPCRBinding(mask uint32) error
	SetUserPresence(required bool) error
}
