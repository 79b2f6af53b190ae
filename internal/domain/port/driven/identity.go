package driven

// IdentitySource resolves a stable, machine-specific identifier that serves
// as the default encryption secret, binding ciphertext to the host that
// produced it. Implementations must be deterministic for a given machine and
// must not persist the value anywhere.
type IdentitySource interface {
	SystemID() (string, error)
}
