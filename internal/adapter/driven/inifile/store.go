// Package inifile persists connection credentials in a sectioned INI file,
// one store file per (project identifier, resource type) pair under a hidden
// project directory in the user's home.
package inifile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"gopkg.in/ini.v1"

	"github.com/bdds-tools/connvault/internal/domain/port/driven"
)

// invalidNameChars are stripped from project identifiers before the
// identifier becomes a directory name, and are rejected in section names.
// The Windows restricted set is adopted on every platform so stores stay
// portable.
const invalidNameChars = `\/:*?"<>|`

// SanitizeProjectID strips invalid filename characters and surrounding
// whitespace from a project identifier. Returns driven.ErrInvalidName when
// nothing usable remains.
func SanitizeProjectID(projectID string) (string, error) {
	var b strings.Builder
	for _, r := range projectID {
		if !strings.ContainsRune(invalidNameChars, r) {
			b.WriteRune(r)
		}
	}
	name := strings.TrimSpace(b.String())
	if name == "" {
		return "", fmt.Errorf("%w: project identifier %q sanitizes to an empty directory name", driven.ErrInvalidName, projectID)
	}
	return name, nil
}

// StorePath returns <home>/.<sanitized_project_id>/<resource_type>_credentials.ini.
func StorePath(projectID, resourceType string) (string, error) {
	sanitized, err := SanitizeProjectID(projectID)
	if err != nil {
		return "", err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: resolve home directory: %v", driven.ErrStoreIO, err)
	}
	return filepath.Join(home, "."+sanitized, resourceType+"_credentials.ini"), nil
}

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*Store)(nil)

// Store is the INI-backed implementation of driven.CredentialStore. Every
// mutation rewrites the whole file through a write-then-rename, so a crash
// mid-write cannot leave a truncated store. There is no inter-process
// locking: concurrent processes against the same file race and the last
// writer wins.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a store bound to the file at path. The file is not
// touched until EnsureExists or a write operation runs.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the store file location.
func (s *Store) Path() string { return s.path }

// EnsureExists creates the parent directory and an empty store file if
// absent. Idempotent.
func (s *Store) EnsureExists(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: create directory %s: %v", driven.ErrStoreIO, dir, err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return fmt.Errorf("%w: create %s: %v", driven.ErrStoreIO, s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", driven.ErrStoreIO, s.path, err)
	}
	s.logger.Info("created credential store", "path", s.path)
	return nil
}

// HasConnection reports whether a section named name exists.
func (s *Store) HasConnection(ctx context.Context, name string) (bool, error) {
	f, err := s.load()
	if err != nil {
		return false, err
	}
	_, err = f.GetSection(name)
	return err == nil, nil
}

// ConnectionNames returns section names in the order they appear in the file.
func (s *Store) ConnectionNames(ctx context.Context) ([]string, error) {
	f, err := s.load()
	if err != nil {
		return nil, err
	}
	return sectionNames(f), nil
}

// ReadField returns the value stored under key in section name. A missing
// key yields def; a missing section yields *driven.MissingConnectionError
// carrying the currently valid names.
func (s *Store) ReadField(ctx context.Context, name, key, def string) (string, error) {
	f, err := s.load()
	if err != nil {
		return "", err
	}
	sec, err := f.GetSection(name)
	if err != nil {
		return "", &driven.MissingConnectionError{Name: name, ValidNames: sectionNames(f)}
	}
	if !sec.HasKey(key) {
		return def, nil
	}
	return sec.Key(key).Value(), nil
}

// WriteFields creates the section if needed, sets all given fields and
// rewrites the store file.
func (s *Store) WriteFields(ctx context.Context, name string, fields map[string]string) error {
	if strings.ContainsAny(name, invalidNameChars) {
		return fmt.Errorf("%w: connection name %q contains invalid characters", driven.ErrInvalidName, name)
	}
	f, err := s.load()
	if err != nil {
		return err
	}
	sec := f.Section(name)
	for key, value := range fields {
		sec.Key(key).SetValue(value)
	}
	return s.save(f)
}

// DeleteConnection removes the section. Deleting an absent name is logged
// and treated as success.
func (s *Store) DeleteConnection(ctx context.Context, name string) error {
	f, err := s.load()
	if err != nil {
		return err
	}
	if _, err := f.GetSection(name); err != nil {
		s.logger.Warn("delete of absent connection ignored", "name", name, "path", s.path)
		return nil
	}
	f.DeleteSection(name)
	return s.save(f)
}

func (s *Store) load() (*ini.File, error) {
	f, err := ini.Load(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ini.Empty(), nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", driven.ErrStoreIO, s.path, err)
	}
	return f, nil
}

func (s *Store) save(f *ini.File) error {
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return fmt.Errorf("%w: serialize %s: %v", driven.ErrStoreIO, s.path, err)
	}
	if err := atomic.WriteFile(s.path, &buf); err != nil {
		return fmt.Errorf("%w: write %s: %v", driven.ErrStoreIO, s.path, err)
	}
	return nil
}

// sectionNames filters the synthetic DEFAULT section out of the file's
// section list, preserving order.
func sectionNames(f *ini.File) []string {
	names := make([]string, 0, len(f.SectionStrings()))
	for _, name := range f.SectionStrings() {
		if name == ini.DefaultSection {
			continue
		}
		names = append(names, name)
	}
	return names
}
