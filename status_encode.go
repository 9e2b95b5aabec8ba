package hsm

import "fmt"

// statusBytes renders desc into a deterministic byte form suitable for
// signing; it deliberately avoids encoding/json's output (map key
// ordering within a struct is stable, but field tags aren't guaranteed
// stable across encoding/json versions the way a hand-written format is).
func statusBytes(desc *Status) ([]byte, error) {
	return []byte(fmt.Sprintf(
		"backend=%s|desc=%s|version=%s|identity_exists=%t|tpm_persistent=%t|tpm_manufacturer=%s|se_biometric=%t|se_key_exists=%t",
		desc.Backend, desc.Description, desc.Version, desc.IdentityExists,
		desc.TPMHasPersistentKey, desc.TPMManufacturer, desc.SEBiometricAvailable, desc.SEKeyExists,
	)), nil
}
