package ir

// Version constants for the identity scheme and the engine.
const (
	// IdentityVersion is bumped whenever StructuralID or Fingerprint
	// derivation changes. Persisted snapshots with a different identity
	// version must be discarded.
	IdentityVersion = "1"

	// EngineVersion is the vtree engine version.
	EngineVersion = "0.1.0"
)
