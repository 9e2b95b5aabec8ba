// Package hsm implements a hardware-backed secret-at-rest service: it
// seals short secrets (PINs, up to 256 bytes) to per-identity keys held by
// whatever trust root the host provides — a TPM 2.0 chip, an Apple Secure
// Enclave, or (as a last resort) the OS credential store — and later
// unseals them under that backend's own authorization gate.
//
// Callers interact exclusively through Dispatcher; backend selection,
// sensitive-memory handling and error normalization all happen beneath it.
package hsm

import "github.com/platformseal/hsm-go/hsmerr"

// Kind and the error Kind constants are re-exported from hsmerr so callers
// only ever need to import this package.
type Kind = hsmerr.Kind

const (
	KindSuccess         = hsmerr.KindSuccess
	KindNotAvailable    = hsmerr.KindNotAvailable
	KindNotInitialized  = hsmerr.KindNotInitialized
	KindInvalidIdentity = hsmerr.KindInvalidIdentity
	KindSealFailed      = hsmerr.KindSealFailed
	KindUnsealFailed    = hsmerr.KindUnsealFailed
	KindNotFound        = hsmerr.KindNotFound
	KindAuthFailed      = hsmerr.KindAuthFailed
	KindPCRMismatch     = hsmerr.KindPCRMismatch
	KindMemory          = hsmerr.KindMemory
	KindIO              = hsmerr.KindIO
	KindPermission      = hsmerr.KindPermission
	KindTimeout         = hsmerr.KindTimeout
	KindCancelled       = hsmerr.KindCancelled
	KindInternal        = hsmerr.KindInternal
)

// Error is an alias of hsmerr.Error.
type Error = hsmerr.Error

// KindOf returns the Kind carried by err.
func KindOf(err error) Kind { return hsmerr.KindOf(err) }
