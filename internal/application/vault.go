package application

import (
	"fmt"
	"sync"

	"github.com/bdds-tools/connvault/internal/domain/port/driven"
)

// Vault owns one credential store and its decryption cache for a (project
// identifier, resource type) pair. Acquire instances through a Registry so
// the cache and store view are shared by every caller in the process.
//
// The cache maps encoded ciphertext to plaintext and is never invalidated:
// updates write fresh ciphertext, so stale entries simply become
// unreferenced. PBKDF2 at 100k iterations makes uncached decryption the
// dominant cost of listing credentials, which is why sharing matters.
type Vault struct {
	ProjectID    string
	ResourceType string

	store driven.CredentialStore
	codec driven.CredentialCodec
	ids   driven.IdentitySource

	mu       sync.Mutex
	identity string            // resolved lazily, empty until first use
	cache    map[string]string // encoded ciphertext -> plaintext
}

func newVault(projectID, resourceType string, store driven.CredentialStore, codec driven.CredentialCodec, ids driven.IdentitySource) *Vault {
	return &Vault{
		ProjectID:    projectID,
		ResourceType: resourceType,
		store:        store,
		codec:        codec,
		ids:          ids,
		cache:        make(map[string]string),
	}
}

// Store exposes the underlying credential store.
func (v *Vault) Store() driven.CredentialStore { return v.store }

// Codec exposes the credential codec, for flows that encrypt under an
// explicit secret instead of the machine identity (export).
func (v *Vault) Codec() driven.CredentialCodec { return v.codec }

// EncryptWithIdentity encrypts plaintext under the machine identity.
func (v *Vault) EncryptWithIdentity(plaintext string) (string, error) {
	v.mu.Lock()
	secret, err := v.identitySecretLocked()
	v.mu.Unlock()
	if err != nil {
		return "", err
	}
	return v.codec.Encrypt(plaintext, secret)
}

// DecryptWithIdentity returns the plaintext for encoded, consulting the
// vault's decryption cache before paying for key derivation.
func (v *Vault) DecryptWithIdentity(encoded string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if plain, ok := v.cache[encoded]; ok {
		return plain, nil
	}
	secret, err := v.identitySecretLocked()
	if err != nil {
		return "", err
	}
	plain, err := v.codec.Decrypt(encoded, secret)
	if err != nil {
		return "", err
	}
	v.cache[encoded] = plain
	return plain, nil
}

// identitySecretLocked resolves the machine identity once per vault and
// reuses it. Resolution is deferred to first use so operations that never
// touch key material (plain listing) still work on a host whose identity
// cannot be determined. Callers must hold v.mu.
func (v *Vault) identitySecretLocked() (string, error) {
	if v.identity != "" {
		return v.identity, nil
	}
	id, err := v.ids.SystemID()
	if err != nil {
		return "", fmt.Errorf("resolve system identity: %w", err)
	}
	v.identity = id
	return id, nil
}
