// Package secrets implements the machine-bound credential codec: PBKDF2 key
// derivation over a password-like secret plus AES-256-GCM authenticated
// encryption of short strings.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/bdds-tools/connvault/internal/domain/port/driven"
)

// Fixed field widths of the encoded blob: base64(salt ‖ nonce ‖ tag ‖ ct).
// The byte order must be preserved for interoperability with existing stores.
const (
	saltSize  = 16
	nonceSize = 12
	tagSize   = 16
	keySize   = 32

	// kdfIterations deliberately slows key derivation. Decrypt-heavy paths
	// are expected to cache results (see application.Vault).
	kdfIterations = 100_000
)

var (
	// ErrAuthenticationFailed is returned when the GCM tag does not verify:
	// wrong secret, wrong machine, or corrupted data. No partial plaintext is
	// ever returned alongside it.
	ErrAuthenticationFailed = errors.New("credential authentication failed")

	// ErrMalformedCiphertext is returned when an encoded blob cannot be
	// parsed into its salt/nonce/tag/ciphertext fields.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
)

// Compile-time interface satisfaction check.
var _ driven.CredentialCodec = (*Codec)(nil)

// Codec performs authenticated encryption of credential strings. It is
// stateless and safe for concurrent use.
type Codec struct{}

// NewCodec returns a Codec.
func NewCodec() *Codec { return &Codec{} }

// deriveKey stretches secret into a 256-bit AES key with PBKDF2-HMAC-SHA-256.
func deriveKey(secret string, salt []byte) []byte {
	return pbkdf2.Key([]byte(secret), salt, kdfIterations, keySize, sha256.New)
}

// Encrypt encrypts plaintext under a key derived from secret and returns
// base64(salt ‖ nonce ‖ tag ‖ ciphertext). Salt and nonce are freshly random
// on every call, so two encryptions of the same plaintext never match and
// comparing stored blobs cannot leak equality of the underlying secrets.
func (c *Codec) Encrypt(plaintext, secret string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("rand salt: %w", err)
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	gcm, err := newGCM(secret, salt)
	if err != nil {
		return "", err
	}

	// Seal returns ciphertext with the 16-byte tag appended; the stored
	// layout keeps the tag ahead of the ciphertext, so split and reorder.
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	blob := make([]byte, 0, saltSize+nonceSize+tagSize+len(ct))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ct...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt reverses Encrypt. It fails with ErrMalformedCiphertext when the
// blob cannot be parsed and ErrAuthenticationFailed when tag verification
// fails.
func (c *Codec) Decrypt(encoded, secret string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: base64 decode: %v", ErrMalformedCiphertext, err)
	}
	if len(blob) < saltSize+nonceSize+tagSize {
		return "", fmt.Errorf("%w: %d bytes, need at least %d",
			ErrMalformedCiphertext, len(blob), saltSize+nonceSize+tagSize)
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	tag := blob[saltSize+nonceSize : saltSize+nonceSize+tagSize]
	ct := blob[saltSize+nonceSize+tagSize:]

	gcm, err := newGCM(secret, salt)
	if err != nil {
		return "", err
	}

	// Reassemble ciphertext ‖ tag, the order Open expects.
	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrAuthenticationFailed
	}
	return string(plaintext), nil
}

func newGCM(secret string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(secret, salt))
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
