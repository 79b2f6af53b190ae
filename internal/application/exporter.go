package application

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"filippo.io/age"

	"github.com/bdds-tools/connvault/internal/domain/model"
	"github.com/bdds-tools/connvault/internal/domain/port/driven"
)

// exportTimeLayout matches the timestamp format used in existing export
// archives.
const exportTimeLayout = "2006-01-02 15:04:05"

// Exporter packages connection records into a portable archive. Credentials
// are decrypted with the machine identity and re-encrypted under an export
// secret, so the archive can be imported on any machine that knows the
// secret.
type Exporter struct {
	vault  *Vault
	svc    *ConnectionService
	logger *slog.Logger
}

// NewExporter creates an Exporter over vault and its connection service.
func NewExporter(vault *Vault, svc *ConnectionService, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{vault: vault, svc: svc, logger: logger}
}

// ExportOptions controls optional archive features.
type ExportOptions struct {
	// ProtectPayload additionally age-encrypts the JSON payload inside the
	// archive under the export secret, stored as <stem>.json.age. The zip
	// container itself is never encrypted; without this option the payload
	// member is plain JSON and only the credential fields are protected.
	ProtectPayload bool
}

// Export writes a deflate-compressed zip archive to zipPath containing a
// single JSON document: a header describing the export plus the selected
// connections with re-encrypted credentials. nameOrWildcard selects one
// connection name, or "*" for every connection in the store.
func (e *Exporter) Export(ctx context.Context, nameOrWildcard, reencryptionSecret, zipPath string, opts ExportOptions) error {
	conns, err := e.exportedConnections(ctx, nameOrWildcard, reencryptionSecret)
	if err != nil {
		return err
	}

	wallet := ""
	if nameOrWildcard != "*" {
		wallet, err = e.vault.Store().ReadField(ctx, nameOrWildcard, driven.FieldWalletZip, "")
		if err != nil {
			return err
		}
	}

	doc := model.ExportDocument{
		Header: model.ExportHeader{
			ResourceType:   e.vault.ResourceType,
			ProjectID:      e.vault.ProjectID,
			SourceFilename: filepath.Base(zipPath),
			WalletZipPath:  wallet,
			ExportedAt:     time.Now().Format(exportTimeLayout),
		},
		Connections: conns,
	}
	payload, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal export document: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	memberName := stem + ".json"
	if opts.ProtectPayload {
		payload, err = protectPayload(payload, reencryptionSecret)
		if err != nil {
			return err
		}
		memberName += ".age"
	}

	if err := writeArchive(zipPath, memberName, payload); err != nil {
		return err
	}
	e.logger.Info("credentials exported",
		"path", zipPath,
		"connections", len(conns),
		"protected_payload", opts.ProtectPayload,
	)
	return nil
}

// exportedConnections reads each selected connection and re-encrypts its
// credentials under secret, preserving store order for the wildcard case.
func (e *Exporter) exportedConnections(ctx context.Context, nameOrWildcard, secret string) ([]model.ExportedConnection, error) {
	var names []string
	if nameOrWildcard == "*" {
		stored, err := e.vault.Store().ConnectionNames(ctx)
		if err != nil {
			return nil, err
		}
		names = stored
	} else {
		names = []string{nameOrWildcard}
	}

	out := make([]model.ExportedConnection, 0, len(names))
	for _, name := range names {
		conn, err := e.svc.Read(ctx, name)
		if err != nil {
			return nil, err
		}
		encUser, err := e.vault.Codec().Encrypt(conn.Username, secret)
		if err != nil {
			return nil, fmt.Errorf("re-encrypt username for %q: %w", name, err)
		}
		encPass, err := e.vault.Codec().Encrypt(conn.Password, secret)
		if err != nil {
			return nil, fmt.Errorf("re-encrypt password for %q: %w", name, err)
		}
		out = append(out, model.ExportedConnection{
			ConnectionName: name,
			Username:       encUser,
			Password:       encPass,
			ResourceID:     conn.ResourceID,
		})
	}
	return out, nil
}

// protectPayload encrypts payload with an age scrypt recipient derived from
// secret.
func protectPayload(payload []byte, secret string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(secret)
	if err != nil {
		return nil, fmt.Errorf("age recipient: %w", err)
	}
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("age encrypt: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return nil, fmt.Errorf("age encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("age encrypt: %w", err)
	}
	return buf.Bytes(), nil
}

// writeArchive writes a single-member deflate zip to zipPath.
func writeArchive(zipPath, memberName string, payload []byte) error {
	f, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", driven.ErrStoreIO, zipPath, err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create(memberName)
	if err == nil {
		_, err = w.Write(payload)
	}
	if err == nil {
		err = zw.Close()
	} else {
		_ = zw.Close()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("%w: write archive %s: %v", driven.ErrStoreIO, zipPath, err)
	}
	return nil
}
