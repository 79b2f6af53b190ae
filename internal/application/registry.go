package application

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bdds-tools/connvault/internal/domain/port/driven"
)

// StoreFactory builds the credential store for a (project identifier,
// resource type) pair. The composition root supplies the on-disk adapter;
// tests supply stores rooted in temporary directories.
type StoreFactory func(projectID, resourceType string) (driven.CredentialStore, error)

// Registry hands out at most one Vault per (project identifier, resource
// type) pair. Constructing a vault is not free (directory creation, file
// I/O) and caching correctness depends on a single shared decryption cache,
// so every caller operating on the same logical store must go through the
// same Registry. It is an explicit object rather than package-level state;
// pass it by reference to whoever needs vault access.
type Registry struct {
	stores StoreFactory
	codec  driven.CredentialCodec
	ids    driven.IdentitySource
	logger *slog.Logger

	mu     sync.Mutex
	vaults map[registryKey]*Vault
}

type registryKey struct {
	projectID    string
	resourceType string
}

// NewRegistry creates an empty registry.
func NewRegistry(stores StoreFactory, codec driven.CredentialCodec, ids driven.IdentitySource, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		stores: stores,
		codec:  codec,
		ids:    ids,
		logger: logger,
		vaults: make(map[registryKey]*Vault),
	}
}

// Get returns the shared Vault for the key pair, constructing it (and
// ensuring its store file exists) on first request. Vaults live for the
// lifetime of the registry; they are never explicitly destroyed.
func (r *Registry) Get(ctx context.Context, projectID, resourceType string) (*Vault, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey{projectID: projectID, resourceType: resourceType}
	if v, ok := r.vaults[key]; ok {
		return v, nil
	}

	store, err := r.stores(projectID, resourceType)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureExists(ctx); err != nil {
		return nil, err
	}

	v := newVault(projectID, resourceType, store, r.codec, r.ids)
	r.vaults[key] = v
	r.logger.Info("vault opened", "project_id", projectID, "resource_type", resourceType)
	return v, nil
}
