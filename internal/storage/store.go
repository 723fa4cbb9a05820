// Package storage persists the whole contact collection to a single file.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/smileynet/phonebook/internal/contact"
)

// FileStore saves and loads the contact collection as one binary file.
// Every Save rewrites the whole file.
type FileStore struct {
	path string
	log  *zap.Logger
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithLogger sets the logger used to report load and save outcomes.
func WithLogger(l *zap.Logger) Option {
	return func(s *FileStore) {
		if l != nil {
			s.log = l
		}
	}
}

// NewFileStore creates a FileStore backed by the file at path.
func NewFileStore(path string, opts ...Option) *FileStore {
	s := &FileStore{path: path, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("storage").With(zap.String("path", path))
	return s
}

// Path returns the data file path.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes contacts to the data file, creating the parent directory if
// needed. The file is replaced atomically: readers see either the previous
// or the new collection. Failures are logged and returned.
func (s *FileStore) Save(contacts []contact.Contact) error {
	if err := s.write(contacts); err != nil {
		s.log.Error("saving contacts failed", zap.Error(err))
		return err
	}
	s.log.Info("contacts saved", zap.Int("count", len(contacts)))
	return nil
}

func (s *FileStore) write(contacts []contact.Contact) (err error) {
	var buf bytes.Buffer
	if err := Encode(&buf, contacts); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("storage: creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			err = multierr.Append(err, ignoreNotExist(os.Remove(tmp.Name())))
		}
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		return multierr.Append(fmt.Errorf("storage: writing %s: %w", tmp.Name(), err), tmp.Close())
	}
	if err := tmp.Sync(); err != nil {
		return multierr.Append(fmt.Errorf("storage: syncing %s: %w", tmp.Name(), err), tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("storage: replacing %s: %w", s.path, err)
	}
	return nil
}

// Load reads the collection. A missing file yields an empty collection; an
// unreadable or corrupt file is logged and also yields an empty collection.
func (s *FileStore) Load() []contact.Contact {
	contacts, err := s.Read()
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.log.Warn("data file not found, starting with an empty phonebook")
		return []contact.Contact{}
	case err != nil:
		s.log.Error("loading contacts failed", zap.Error(err))
		return []contact.Contact{}
	}
	s.log.Info("contacts loaded", zap.Int("count", len(contacts)))
	return contacts
}

// Read is the strict form of Load: it returns the decode or I/O error
// instead of substituting an empty collection. A missing file is reported
// as an error wrapping os.ErrNotExist.
func (s *FileStore) Read() ([]contact.Contact, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("storage: opening %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	contacts, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("storage: parsing %s: %w", s.path, err)
	}
	return contacts, nil
}

func ignoreNotExist(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
