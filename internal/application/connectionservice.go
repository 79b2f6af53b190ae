package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bdds-tools/connvault/internal/domain/model"
	"github.com/bdds-tools/connvault/internal/domain/port/driven"
)

// ConnectionService orchestrates the connection lifecycle (create, read,
// update, delete, list) against one Vault. It receives already-validated
// plaintext from its caller and hands back plaintext on read; all
// encryption happens behind the Vault.
type ConnectionService struct {
	vault  *Vault
	logger *slog.Logger
}

// NewConnectionService creates a service bound to vault.
func NewConnectionService(vault *Vault, logger *slog.Logger) *ConnectionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionService{vault: vault, logger: logger}
}

// ConnectionUpdate patches an existing connection; nil fields keep their
// current (decrypted) values.
type ConnectionUpdate struct {
	Username      *string
	Password      *string
	ResourceID    *string
	WalletZipPath *string
}

// Create stores a new named connection, encrypting username and password
// under the machine identity. Returns driven.ErrDuplicateConnection when the
// name is already present; callers should update instead.
func (s *ConnectionService) Create(ctx context.Context, conn model.Connection) error {
	exists, err := s.vault.Store().HasConnection(ctx, conn.Name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %q", driven.ErrDuplicateConnection, conn.Name)
	}
	if err := s.writeConnection(ctx, conn); err != nil {
		return err
	}
	s.logger.Info("connection created", "name", conn.Name, "resource_type", s.vault.ResourceType)
	return nil
}

// Read returns the decrypted username and password plus the resource id for
// name. A missing name yields *driven.MissingConnectionError listing the
// currently valid names.
func (s *ConnectionService) Read(ctx context.Context, name string) (model.Connection, error) {
	store := s.vault.Store()

	encUser, err := store.ReadField(ctx, name, driven.FieldUsername, "")
	if err != nil {
		return model.Connection{}, err
	}
	encPass, err := store.ReadField(ctx, name, driven.FieldPassword, "")
	if err != nil {
		return model.Connection{}, err
	}
	resourceID, err := store.ReadField(ctx, name, driven.FieldResourceID, "")
	if err != nil {
		return model.Connection{}, err
	}
	wallet, err := store.ReadField(ctx, name, driven.FieldWalletZip, "")
	if err != nil {
		return model.Connection{}, err
	}

	username, err := s.vault.DecryptWithIdentity(encUser)
	if err != nil {
		return model.Connection{}, fmt.Errorf("decrypt username for %q: %w", name, err)
	}
	password, err := s.vault.DecryptWithIdentity(encPass)
	if err != nil {
		return model.Connection{}, fmt.Errorf("decrypt password for %q: %w", name, err)
	}

	return model.Connection{
		Name:          name,
		Username:      username,
		Password:      password,
		ResourceID:    resourceID,
		WalletZipPath: wallet,
	}, nil
}

// Update patches an existing connection via read-then-rewrite. Fields left
// nil in patch retain their current values. A missing name yields
// *driven.MissingConnectionError.
func (s *ConnectionService) Update(ctx context.Context, name string, patch ConnectionUpdate) error {
	current, err := s.Read(ctx, name)
	if err != nil {
		return err
	}
	if patch.Username != nil {
		current.Username = *patch.Username
	}
	if patch.Password != nil {
		current.Password = *patch.Password
	}
	if patch.ResourceID != nil {
		current.ResourceID = *patch.ResourceID
	}
	if patch.WalletZipPath != nil {
		current.WalletZipPath = *patch.WalletZipPath
	}
	if err := s.writeConnection(ctx, current); err != nil {
		return err
	}
	s.logger.Info("connection updated", "name", name, "resource_type", s.vault.ResourceType)
	return nil
}

// Delete removes the record. Deleting an absent name is logged by the store
// and treated as success (idempotent delete).
func (s *ConnectionService) Delete(ctx context.Context, name string) error {
	if err := s.vault.Store().DeleteConnection(ctx, name); err != nil {
		return err
	}
	s.logger.Info("connection deleted", "name", name, "resource_type", s.vault.ResourceType)
	return nil
}

// List returns stored connections in persisted order. When
// includeCredentials is false no decryption (and no identity resolution)
// takes place; Username and Password are left empty and only resource id and
// wallet path are surfaced.
func (s *ConnectionService) List(ctx context.Context, includeCredentials bool) ([]model.Connection, error) {
	store := s.vault.Store()
	names, err := store.ConnectionNames(ctx)
	if err != nil {
		return nil, err
	}

	conns := make([]model.Connection, 0, len(names))
	for _, name := range names {
		if includeCredentials {
			conn, err := s.Read(ctx, name)
			if err != nil {
				return nil, err
			}
			conns = append(conns, conn)
			continue
		}
		resourceID, err := store.ReadField(ctx, name, driven.FieldResourceID, "")
		if err != nil {
			return nil, err
		}
		wallet, err := store.ReadField(ctx, name, driven.FieldWalletZip, "")
		if err != nil {
			return nil, err
		}
		conns = append(conns, model.Connection{Name: name, ResourceID: resourceID, WalletZipPath: wallet})
	}
	return conns, nil
}

// writeConnection encrypts the credentials and persists all fields of conn.
func (s *ConnectionService) writeConnection(ctx context.Context, conn model.Connection) error {
	if err := validateWalletPath(s.vault.ResourceType, conn.WalletZipPath); err != nil {
		return err
	}

	encUser, err := s.vault.EncryptWithIdentity(conn.Username)
	if err != nil {
		return fmt.Errorf("encrypt username for %q: %w", conn.Name, err)
	}
	encPass, err := s.vault.EncryptWithIdentity(conn.Password)
	if err != nil {
		return fmt.Errorf("encrypt password for %q: %w", conn.Name, err)
	}

	fields := map[string]string{
		driven.FieldUsername:   encUser,
		driven.FieldPassword:   encPass,
		driven.FieldResourceID: conn.ResourceID,
	}
	if s.vault.ResourceType == string(model.ResourceDSN) {
		fields[driven.FieldWalletZip] = conn.WalletZipPath
	}
	return s.vault.Store().WriteFields(ctx, conn.Name, fields)
}

// validateWalletPath checks wallet paths for dsn connections: empty is
// allowed, otherwise the path must exist and name a .zip file.
func validateWalletPath(resourceType, path string) error {
	if resourceType != string(model.ResourceDSN) || path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("wallet path %q: %w", path, err)
	}
	if info.IsDir() || !strings.EqualFold(filepath.Ext(path), ".zip") {
		return fmt.Errorf("wallet path %q is not a zip file", path)
	}
	return nil
}
