package tpmseal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platformseal/hsm-go/hsmerr"
)

func TestClassifyTSSErrorMapsKnownCodes(t *testing.T) {
	cases := []struct {
		name string
		rc   uint32
		want hsmerr.Kind
	}{
		{"policy fail", rcPolicyFail, hsmerr.KindPCRMismatch},
		{"pcr changed", rcPCRChanged, hsmerr.KindPCRMismatch},
		{"pcr", rcPCR, hsmerr.KindPCRMismatch},
		{"auth fail", rcAuthFail, hsmerr.KindAuthFailed},
		{"bad auth", rcBadAuth, hsmerr.KindAuthFailed},
		{"locality", rcLocality, hsmerr.KindPermission},
		{"hierarchy", rcHierarchy, hsmerr.KindPermission},
		{"disabled", rcDisabled, hsmerr.KindPermission},
		{"object memory", rcObjectMemory, hsmerr.KindMemory},
		{"session handles", rcSessionHandles, hsmerr.KindMemory},
		{"retry", rcRetry, hsmerr.KindTimeout},
		{"yielded", rcYielded, hsmerr.KindTimeout},
		{"canceled", rcCanceled, hsmerr.KindTimeout},
		{"handle", rcHandle, hsmerr.KindNotFound},
		{"reference h1", rcReferenceH1, hsmerr.KindNotFound},
		{"initialize", rcInitialize, hsmerr.KindNotAvailable},
		{"upgrade", rcUpgrade, hsmerr.KindNotAvailable},
		{"unrecognized", 0xDEAD, hsmerr.KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyTSSError(tc.rc))
		})
	}
}

func TestClassifyTSSErrorMasksLayerBits(t *testing.T) {
	// Upper bits (format/layer) must be masked off before matching.
	assert.Equal(t, hsmerr.KindAuthFailed, classifyTSSError(0xABCD0000|rcAuthFail))
}

func TestResponseCodeFalseForUnrelatedError(t *testing.T) {
	_, ok := responseCode(errors.New("transport reset"))
	assert.False(t, ok)
}

func TestClassifyFallsBackWhenNoResponseCode(t *testing.T) {
	got := classify(errors.New("transport reset"), hsmerr.KindIO)
	assert.Equal(t, hsmerr.KindIO, got)
}

func TestClassifyNilIsSuccess(t *testing.T) {
	assert.Equal(t, hsmerr.KindSuccess, classify(nil, hsmerr.KindIO))
}
