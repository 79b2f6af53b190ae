package driven

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Store field keys, as persisted in the sectioned credential file.
const (
	FieldUsername   = "username"
	FieldPassword   = "password"
	FieldResourceID = "resource_id"
	FieldWalletZip  = "wallet_zip_path"
)

var (
	// ErrDuplicateConnection is returned by create flows when the connection
	// name is already present in the store. Callers should update instead.
	ErrDuplicateConnection = errors.New("connection already exists")

	// ErrInvalidName is returned when a project identifier sanitizes to an
	// empty directory name, or a connection name contains characters that are
	// invalid in a section name.
	ErrInvalidName = errors.New("invalid name")

	// ErrStoreIO wraps filesystem failures (permissions, disk full) raised by
	// credential store operations.
	ErrStoreIO = errors.New("credential store I/O failure")
)

// MissingConnectionError reports an operation against a connection name that
// is not present in the store. ValidNames carries the currently stored names
// for user guidance.
type MissingConnectionError struct {
	Name       string
	ValidNames []string
}

func (e *MissingConnectionError) Error() string {
	if len(e.ValidNames) == 0 {
		return fmt.Sprintf("connection %q does not exist in the credentials store; no connection names have been saved", e.Name)
	}
	return fmt.Sprintf("connection %q does not exist in the credentials store; valid connection names are: %s",
		e.Name, strings.Join(e.ValidNames, ", "))
}

// CredentialStore defines the driven port for the sectioned on-disk
// credential store: one section per connection name. Values are persisted as
// given; the application layer decides which fields hold ciphertext.
type CredentialStore interface {
	// EnsureExists creates the parent directory and an empty store file if
	// absent. Idempotent.
	EnsureExists(ctx context.Context) error

	// HasConnection reports whether a section named name exists.
	HasConnection(ctx context.Context, name string) (bool, error)

	// ConnectionNames returns stored connection names in the order they
	// appear in the file (insertion order as persisted).
	ConnectionNames(ctx context.Context) ([]string, error)

	// ReadField returns the value stored under key in section name, or def
	// when only the key is absent. Returns *MissingConnectionError when the
	// section itself is absent.
	ReadField(ctx context.Context, name, key, def string) (string, error)

	// WriteFields creates the section if needed, sets all given fields and
	// persists immediately via a whole-file rewrite.
	WriteFields(ctx context.Context, name string, fields map[string]string) error

	// DeleteConnection removes the section. Deleting an absent name is
	// logged by the implementation and is not an error.
	DeleteConnection(ctx context.Context, name string) error
}
