package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bdds-tools/connvault/internal/domain/model"
	"github.com/bdds-tools/connvault/internal/secrets"
)

func TestRegistry_SameKeyReturnsSameVault(t *testing.T) {
	registry := newTestRegistry(t, t.TempDir(), secrets.NewCodec(), staticIdentity{id: "machine-a"})
	ctx := context.Background()

	first, err := registry.Get(ctx, "proj", "url")
	require.NoError(t, err)
	second, err := registry.Get(ctx, "proj", "url")
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestRegistry_DistinctKeysGetDistinctVaults(t *testing.T) {
	registry := newTestRegistry(t, t.TempDir(), secrets.NewCodec(), staticIdentity{id: "machine-a"})
	ctx := context.Background()

	urlVault, err := registry.Get(ctx, "proj", "url")
	require.NoError(t, err)
	dsnVault, err := registry.Get(ctx, "proj", "dsn")
	require.NoError(t, err)
	otherProject, err := registry.Get(ctx, "other", "url")
	require.NoError(t, err)

	assert.NotSame(t, urlVault, dsnVault)
	assert.NotSame(t, urlVault, otherProject)
}

func TestRegistry_InvalidProjectID(t *testing.T) {
	registry := newTestRegistry(t, t.TempDir(), secrets.NewCodec(), staticIdentity{id: "machine-a"})

	_, err := registry.Get(context.Background(), `  ***  `, "url")
	assert.Error(t, err)
}

func TestVault_DecryptionCacheAmortizesKeyDerivation(t *testing.T) {
	codec := &countingCodec{inner: secrets.NewCodec()}
	registry := newTestRegistry(t, t.TempDir(), codec, staticIdentity{id: "machine-a"})
	ctx := context.Background()

	vault, err := registry.Get(ctx, "proj", "url")
	require.NoError(t, err)

	encoded, err := vault.EncryptWithIdentity("hunter2")
	require.NoError(t, err)

	plain, err := vault.DecryptWithIdentity(encoded)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)
	assert.Equal(t, 1, codec.decrypts)

	// Second decrypt of the same blob must be served from the cache.
	plain, err = vault.DecryptWithIdentity(encoded)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)
	assert.Equal(t, 1, codec.decrypts)
}

func TestVault_CacheSharedAcrossCallPaths(t *testing.T) {
	codec := &countingCodec{inner: secrets.NewCodec()}
	registry := newTestRegistry(t, t.TempDir(), codec, staticIdentity{id: "machine-a"})
	ctx := context.Background()

	// Two independent lookups of the same key pair share one cache.
	first, err := registry.Get(ctx, "proj", "url")
	require.NoError(t, err)
	second, err := registry.Get(ctx, "proj", "url")
	require.NoError(t, err)

	encoded, err := first.EncryptWithIdentity("shared-value")
	require.NoError(t, err)

	_, err = first.DecryptWithIdentity(encoded)
	require.NoError(t, err)

	plain, err := second.DecryptWithIdentity(encoded)
	require.NoError(t, err)
	assert.Equal(t, "shared-value", plain)
	assert.Equal(t, 1, codec.decrypts)
}

func TestVault_BrokenIdentityFailsOnlyWhenKeyMaterialNeeded(t *testing.T) {
	registry := newTestRegistry(t, t.TempDir(), secrets.NewCodec(), brokenIdentity{})
	ctx := context.Background()

	// Vault construction itself does not resolve the identity.
	vault, err := registry.Get(ctx, "proj", "url")
	require.NoError(t, err)

	_, err = vault.EncryptWithIdentity("value")
	assert.Error(t, err)
	_, err = vault.DecryptWithIdentity("whatever")
	assert.Error(t, err)
}

func TestVault_DecryptFailurePropagatesWithoutCaching(t *testing.T) {
	codec := &countingCodec{inner: secrets.NewCodec()}
	registry := newTestRegistry(t, t.TempDir(), codec, staticIdentity{id: "machine-a"})
	ctx := context.Background()

	vault, err := registry.Get(ctx, "proj", "url")
	require.NoError(t, err)

	// Blob encrypted under a different secret than the vault identity.
	foreign, err := secrets.NewCodec().Encrypt("value", "other-machine")
	require.NoError(t, err)

	_, err = vault.DecryptWithIdentity(foreign)
	assert.ErrorIs(t, err, secrets.ErrAuthenticationFailed)

	// The failure is not cached; a retry hits the codec again.
	_, err = vault.DecryptWithIdentity(foreign)
	assert.ErrorIs(t, err, secrets.ErrAuthenticationFailed)
	assert.Equal(t, 2, codec.decrypts)
}

func TestVault_ExposesStoreAndCodec(t *testing.T) {
	codec := secrets.NewCodec()
	registry := newTestRegistry(t, t.TempDir(), codec, staticIdentity{id: "machine-a"})

	vault, err := registry.Get(context.Background(), "proj", "dsn")
	require.NoError(t, err)

	assert.NotNil(t, vault.Store())
	assert.NotNil(t, vault.Codec())
	assert.Equal(t, "proj", vault.ProjectID)
	assert.Equal(t, string(model.ResourceDSN), vault.ResourceType)
}
