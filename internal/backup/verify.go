package backup

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/pandeptwidyaop/panelctl/internal/apperr"
	"github.com/pandeptwidyaop/panelctl/internal/models"
)

func newHasher() hash.Hash {
	// New256 only fails for keys longer than 64 bytes.
	h, _ := blake2b.New256(nil)
	return h
}

func hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	h := newHasher()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// writeChecksum stores sum next to path in the "<hex>  <name>" layout
// that b2sum --length 256 accepts.
func writeChecksum(path string, sum []byte) error {
	line := fmt.Sprintf("%s  %s\n", hex.EncodeToString(sum), filepath.Base(path))
	return os.WriteFile(path+checksumSuffix, []byte(line), 0600)
}

func readChecksum(path string) ([]byte, error) {
	data, err := os.ReadFile(path + checksumSuffix)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return nil, errors.New("empty checksum file")
	}
	return hex.DecodeString(fields[0])
}

// Verify recomputes the checksum of rec and compares it with the one
// recorded when the backup was created.
func (m *Manager) Verify(rec *models.BackupRecord) error {
	want, err := readChecksum(rec.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: no checksum recorded for %s", apperr.ErrNotFound, rec.Name)
		}
		return fmt.Errorf("%w: read checksum for %s: %v", apperr.ErrIO, rec.Name, err)
	}

	got, err := hashFile(rec.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: backup %q", apperr.ErrNotFound, rec.Name)
		}
		return fmt.Errorf("%w: read %s: %v", apperr.ErrIO, rec.Name, err)
	}

	if !bytes.Equal(want, got) {
		return fmt.Errorf("%w: checksum mismatch for %s", apperr.ErrBackup, rec.Name)
	}
	return nil
}
