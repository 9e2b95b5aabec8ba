package hsm

import "github.com/platformseal/hsm-go/hsmtypes"

// BackendKind, Status and Backend are re-exported from hsmtypes so callers
// only ever need to import this package.
type (
	BackendKind = hsmtypes.BackendKind
	Status      = hsmtypes.Status
	Backend     = hsmtypes.Backend
)

const (
	BackendNone            = hsmtypes.BackendNone
	BackendTPM             = hsmtypes.BackendTPM
	BackendSecureElement   = hsmtypes.BackendSecureElement
	BackendCredentialStore = hsmtypes.BackendCredentialStore
)

var preferenceOrder = hsmtypes.PreferenceOrder
