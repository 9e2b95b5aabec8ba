package tpmseal

import (
	tpm2 "github.com/google/go-tpm/legacy/tpm2"

	"github.com/platformseal/hsm-go/hsmerr"
)

// TPM2_RC_* base codes (TCG TPM 2.0 Part 2, table of response codes),
// masked off the layer/format bits the same way hsm_map_tss_error does
// (tss_rc & 0xFFFF) before switching on them.
const (
	rcPolicyFail       = 0x09D
	rcPCRChanged       = 0x02D0
	rcPCR              = 0x017
	rcAuthFail         = 0x08E
	rcBadAuth          = 0x0A2
	rcAuthMissing      = 0x09A
	rcAuthType         = 0x024
	rcAuthContext      = 0x02E
	rcAuthUnavailable  = 0x02D
	rcLocality         = 0x061
	rcHierarchy        = 0x185
	rcNVAuthorization  = 0x00A
	rcCommandCode      = 0x143
	rcDisabled         = 0x120
	rcMemory           = 0x090
	rcObjectMemory     = 0x091
	rcSessionMemory    = 0x092
	rcObjectHandles    = 0x093
	rcSessionHandles   = 0x094
	rcRetry            = 0x922
	rcYielded          = 0x908
	rcCanceled         = 0x909
	rcHandle           = 0x08B
	rcReferenceH0      = 0x210
	rcReferenceH1      = 0x211
	rcReferenceH2      = 0x212
	rcInitialize       = 0x100
	rcNotUsed          = 0x97F
	rcUpgrade          = 0x12D
)

// classifyTSSError ports hsm_map_tss_error's switch table from
// original_source/pinentry/hsm_linux.c, mapping a raw TPM response code to
// the unified error taxonomy.
func classifyTSSError(rc uint32) hsmerr.Kind {
	base := rc & 0xFFFF
	switch base {
	case rcPolicyFail, rcPCRChanged, rcPCR:
		return hsmerr.KindPCRMismatch
	case rcAuthFail, rcBadAuth, rcAuthMissing, rcAuthType, rcAuthContext, rcAuthUnavailable:
		return hsmerr.KindAuthFailed
	case rcLocality, rcHierarchy, rcNVAuthorization, rcCommandCode, rcDisabled:
		return hsmerr.KindPermission
	case rcMemory, rcObjectMemory, rcSessionMemory, rcObjectHandles, rcSessionHandles:
		return hsmerr.KindMemory
	case rcRetry, rcYielded, rcCanceled:
		return hsmerr.KindTimeout
	case rcHandle, rcReferenceH0, rcReferenceH1, rcReferenceH2:
		return hsmerr.KindNotFound
	case rcInitialize, rcNotUsed, rcUpgrade:
		return hsmerr.KindNotAvailable
	default:
		return hsmerr.KindInternal
	}
}

// responseCode extracts the raw TPM response code from err, if it carries
// one. go-tpm's legacy package surfaces this via tpm2.Error (direct
// response codes) and tpm2.HandleError/tpm2.SessionError/
// tpm2.ParameterError (codes qualified by a handle/session/parameter
// index); all four embed a tpmutil.ResponseCode-compatible Code field.
func responseCode(err error) (uint32, bool) {
	switch e := err.(type) {
	case tpm2.Error:
		return uint32(e.Code), true
	case tpm2.HandleError:
		return uint32(e.Code), true
	case tpm2.SessionError:
		return uint32(e.Code), true
	case tpm2.ParameterError:
		return uint32(e.Code), true
	default:
		return 0, false
	}
}

// classify maps a raw TPM error to a Kind, falling back to fallback when
// the error carries no recognizable TPM response code (e.g. it is a
// transport error from openTPM itself).
func classify(err error, fallback hsmerr.Kind) hsmerr.Kind {
	if err == nil {
		return hsmerr.KindSuccess
	}
	if rc, ok := responseCode(err); ok {
		return classifyTSSError(rc)
	}
	return fallback
}
