// Package envfile reads and rewrites KEY=VALUE entries in the panel's
// environment file without disturbing unrelated lines.
//
// Values are written bare when they consist only of characters from
// [A-Za-z0-9_./:@+,=-]; any other value is wrapped in double quotes with
// backslash, double quote and dollar sign escaped. Reads accept bare,
// single-quoted and double-quoted values. When a key is assigned more than
// once, the first assignment wins and the next Set collapses the duplicates.
package envfile

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pandeptwidyaop/panelctl/internal/apperr"
)

// Store gives get/set access to one environment file. Every call re-reads
// the file so edits made between calls are never overwritten.
type Store struct {
	path string
}

// Open returns a Store for path. The file must already exist.
func Open(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: environment file %s", apperr.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: stat %s: %v", apperr.ErrIO, path, err)
	}
	return &Store{path: path}, nil
}

// Path returns the file this store edits.
func (s *Store) Path() string {
	return s.path
}

// Load parses the current file contents.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: environment file %s", apperr.ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", apperr.ErrIO, s.path, err)
	}
	return Parse(data), nil
}

// Get returns the value of key and whether it is present.
func (s *Store) Get(key string) (string, bool, error) {
	doc, err := s.Load()
	if err != nil {
		return "", false, err
	}
	v, ok := doc.Get(key)
	return v, ok, nil
}

// Lookup returns the value of key, or def when it is absent or unreadable.
func (s *Store) Lookup(key, def string) string {
	v, ok, err := s.Get(key)
	if err != nil || !ok {
		return def
	}
	return v
}

// Entries returns every assignment in file order.
func (s *Store) Entries() ([]Line, error) {
	doc, err := s.Load()
	if err != nil {
		return nil, err
	}
	return doc.Entries(), nil
}

// Keys returns the defined keys in file order.
func (s *Store) Keys() ([]string, error) {
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	return keys, nil
}

// Set updates key in place or appends it, then atomically replaces the file.
func (s *Store) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if strings.ContainsAny(value, "\n\r") {
		return fmt.Errorf("%w: value for %s contains a line break", apperr.ErrValidation, key)
	}
	if !utf8.ValidString(value) {
		return fmt.Errorf("%w: value for %s is not valid UTF-8", apperr.ErrValidation, key)
	}

	doc, err := s.Load()
	if err != nil {
		return err
	}
	if !doc.Set(key, value) {
		return nil
	}

	if err := s.write(doc.Bytes()); err != nil {
		return err
	}

	log.Printf("[EnvStore] Updated %s in %s", key, s.path)
	return nil
}

// ValidateKey reports whether key can be written as an assignment.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: invalid key %q", apperr.ErrValidation, key)
	}
	return nil
}

// write replaces the file through a temp file in the same directory so a
// reader sees either the old or the new contents.
func (s *Store) write(data []byte) error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", apperr.ErrIO, s.path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", apperr.ErrIO, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write temp file: %v", apperr.ErrIO, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: sync temp file: %v", apperr.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %v", apperr.ErrIO, err)
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return fmt.Errorf("%w: chmod temp file: %v", apperr.ErrIO, err)
	}
	copyOwner(tmpName, info)

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", apperr.ErrIO, s.path, err)
	}
	committed = true
	return nil
}
