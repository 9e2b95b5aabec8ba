package secureelement

// probeKeyTag is a throwaway tag used only by Probe; it is never looked up
// by Seal/Unseal, which always key off an identity-derived tag.
const probeKeyTag = "com.hsm.se-key.__probe__"

// Probe attempts an ephemeral P-256 key generation using the device-bound
// algorithm and immediately disposes of it. The only state that outlives
// the call is, on the simulated keystore, the key directory it creates.
// Used by the platform probe to decide whether a
// secure element is usable on this host without committing to any
// per-identity key yet.
func Probe() bool {
	ks := newPlatformKeystore()
	if err := ks.createKey(probeKeyTag); err != nil {
		return false
	}
	_ = ks.deleteKey(probeKeyTag)
	return true
}
