package driven

// CredentialCodec defines the driven port for authenticated encryption of
// credential strings. Encrypt must use fresh random key-derivation material
// per call so two encryptions of the same plaintext never produce the same
// blob; Decrypt must fail outright on tamper or a wrong secret, never
// returning partial plaintext.
type CredentialCodec interface {
	Encrypt(plaintext, secret string) (string, error)
	Decrypt(encoded, secret string) (string, error)
}
