package hsm

import "github.com/platformseal/hsm-go/hsmerr"

const maxIdentityLen = 64

// ValidateIdentity enforces the identity naming rule: non-empty, at most 64
// bytes, and restricted to the printable ASCII subset 0x20-0x7E excluding
// '/', '\\' and '.'. Invalid names must never reach a backend.
func ValidateIdentity(identity string) error {
	if len(identity) == 0 || len(identity) > maxIdentityLen {
		return hsmerr.New("validate_identity", KindInvalidIdentity, nil)
	}
	for i := 0; i < len(identity); i++ {
		b := identity[i]
		if b < 0x20 || b > 0x7E {
			return hsmerr.New("validate_identity", KindInvalidIdentity, nil)
		}
		if b == '/' || b == '\\' || b == '.' {
			return hsmerr.New("validate_identity", KindInvalidIdentity, nil)
		}
	}
	return nil
}

const maxPINLen = 256

// ValidatePIN enforces the PIN length bound (1..=256 bytes). It does not
// inspect the PIN's contents: binary PINs are explicitly supported.
func ValidatePIN(pin []byte) error {
	if len(pin) == 0 || len(pin) > maxPINLen {
		return hsmerr.New("validate_pin", KindInvalidIdentity, nil)
	}
	return nil
}
