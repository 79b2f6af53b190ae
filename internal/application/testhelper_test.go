package application

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/bdds-tools/connvault/internal/adapter/driven/inifile"
	"github.com/bdds-tools/connvault/internal/domain/port/driven"
)

// staticIdentity is a deterministic IdentitySource for tests.
type staticIdentity struct{ id string }

func (s staticIdentity) SystemID() (string, error) { return s.id, nil }

// brokenIdentity simulates a host whose platform identity cannot be
// resolved. Any operation that needs key material must fail; operations that
// never decrypt must still work.
type brokenIdentity struct{}

func (brokenIdentity) SystemID() (string, error) {
	return "", errors.New("unsupported platform: cannot determine system identity")
}

// countingCodec wraps a codec and counts Decrypt calls, making key
// derivation work observable to cache tests.
type countingCodec struct {
	inner    driven.CredentialCodec
	decrypts int
}

func (c *countingCodec) Encrypt(plaintext, secret string) (string, error) {
	return c.inner.Encrypt(plaintext, secret)
}

func (c *countingCodec) Decrypt(encoded, secret string) (string, error) {
	c.decrypts++
	return c.inner.Decrypt(encoded, secret)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRegistry builds a registry whose store files live under dir instead
// of the user's home directory.
func newTestRegistry(t *testing.T, dir string, codec driven.CredentialCodec, ids driven.IdentitySource) *Registry {
	t.Helper()
	logger := quietLogger()
	return NewRegistry(
		func(projectID, resourceType string) (driven.CredentialStore, error) {
			sanitized, err := inifile.SanitizeProjectID(projectID)
			if err != nil {
				return nil, err
			}
			path := filepath.Join(dir, "."+sanitized, resourceType+"_credentials.ini")
			return inifile.NewStore(path, logger), nil
		},
		codec, ids, logger,
	)
}
