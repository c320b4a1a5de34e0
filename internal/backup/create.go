package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pandeptwidyaop/panelctl/internal/apperr"
	"github.com/pandeptwidyaop/panelctl/internal/archive"
	"github.com/pandeptwidyaop/panelctl/internal/models"
	"github.com/pandeptwidyaop/panelctl/internal/runner"
)

// DatabaseParams are the connection settings read from the panel environment.
type DatabaseParams struct {
	Host     string
	Port     string
	Name     string
	Username string
}

// DatabaseParams resolves the connection settings, falling back to the
// panel installer's defaults.
func (m *Manager) DatabaseParams() DatabaseParams {
	return DatabaseParams{
		Host:     m.env.Lookup("DB_HOST", "127.0.0.1"),
		Port:     m.env.Lookup("DB_PORT", "3306"),
		Name:     m.env.Lookup("DB_DATABASE", "panel"),
		Username: m.env.Lookup("DB_USERNAME", "pterodactyl"),
	}
}

func (p DatabaseParams) args() []string {
	return []string{"--host=" + p.Host, "--port=" + p.Port, "--user=" + p.Username}
}

func passwordEnv(creds Credentials) []string {
	if creds.Password == "" {
		return nil
	}
	return []string{"MYSQL_PWD=" + creds.Password}
}

// CreateFilesBackup archives the panel directory into a new tar.gz.
func (m *Manager) CreateFilesBackup(ctx context.Context) (*models.BackupRecord, error) {
	if err := m.prepare(ctx); err != nil {
		return nil, err
	}
	info, err := os.Stat(m.opts.PanelRoot)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: panel directory %s is not readable", apperr.ErrBackup, m.opts.PanelRoot)
	}

	name := m.reserveName(models.KindFiles)
	final := filepath.Join(m.opts.Dir, name)
	tmp := final + partialSuffix
	log.Printf("[Backup] Archiving %s to %s", m.opts.PanelRoot, name)

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", apperr.ErrIO, tmp, err)
	}

	h := newHasher()
	err = archive.Create(ctx, m.opts.PanelRoot, io.MultiWriter(f, h), archive.Options{Exclude: m.excludeBackupDir()})
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		log.Printf("[Backup] Files backup failed: %v", err)
		return nil, fmt.Errorf("%w: archive %s: %v", apperr.ErrBackup, m.opts.PanelRoot, err)
	}

	return m.commit(tmp, final, h.Sum(nil))
}

// excludeBackupDir keeps the backup directory out of the archive when it
// lives inside the panel tree.
func (m *Manager) excludeBackupDir() func(string, fs.DirEntry) bool {
	rel, err := filepath.Rel(m.opts.PanelRoot, m.opts.Dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil
	}
	rel = filepath.ToSlash(rel)
	return func(p string, d fs.DirEntry) bool {
		return p == rel
	}
}

// CreateDatabaseBackup dumps the panel database to a new .sql file.
func (m *Manager) CreateDatabaseBackup(ctx context.Context, creds Credentials) (*models.BackupRecord, error) {
	if err := m.prepare(ctx); err != nil {
		return nil, err
	}

	params := m.DatabaseParams()
	name := m.reserveName(models.KindDatabase)
	final := filepath.Join(m.opts.Dir, name)
	tmp := final + partialSuffix
	log.Printf("[Backup] Dumping database %s@%s:%s to %s", params.Name, params.Host, params.Port, name)

	args := append(params.args(),
		"--single-transaction",
		"--quick",
		"--routines",
		"--result-file="+tmp,
		params.Name,
	)
	res, err := m.run.Run(ctx, runner.Command{
		Name: m.opts.DumpBinary,
		Args: args,
		Env:  passwordEnv(creds),
	})
	if err != nil {
		_ = os.Remove(tmp)
		log.Printf("[Backup] Database dump failed with exit code %d", runner.ExitCode(res))
		return nil, toolError(m.opts.DumpBinary, res)
	}

	sum, err := hashFile(tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("%w: dump output missing: %v", apperr.ErrBackup, err)
	}
	if err := os.Chmod(tmp, 0600); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("%w: chmod dump: %v", apperr.ErrIO, err)
	}

	return m.commit(tmp, final, sum)
}

// FullBackupResult reports each half of a full backup separately.
type FullBackupResult struct {
	Files       *models.BackupRecord
	FilesErr    error
	Database    *models.BackupRecord
	DatabaseErr error
}

// OK reports whether both halves succeeded.
func (r *FullBackupResult) OK() bool {
	return r.FilesErr == nil && r.DatabaseErr == nil
}

// CreateFullBackup archives the files and then dumps the database. The two
// halves are independent: a failed dump does not remove the archive. The
// returned error joins the per-half errors.
func (m *Manager) CreateFullBackup(ctx context.Context, creds Credentials) (*FullBackupResult, error) {
	res := &FullBackupResult{}
	res.Files, res.FilesErr = m.CreateFilesBackup(ctx)
	res.Database, res.DatabaseErr = m.CreateDatabaseBackup(ctx, creds)

	var errs []error
	if res.FilesErr != nil {
		errs = append(errs, fmt.Errorf("files: %w", res.FilesErr))
	}
	if res.DatabaseErr != nil {
		errs = append(errs, fmt.Errorf("database: %w", res.DatabaseErr))
	}
	return res, errors.Join(errs...)
}

func (m *Manager) prepare(ctx context.Context) error {
	if err := m.ensureDir(); err != nil {
		return err
	}
	if err := m.checkDisk(ctx, m.opts.Dir, m.opts.MinFreeBytes); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrBackup, err)
	}
	return nil
}

// commit moves a finished artifact into place and records its checksum.
func (m *Manager) commit(tmp, final string, sum []byte) (*models.BackupRecord, error) {
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("%w: rename %s: %v", apperr.ErrIO, filepath.Base(tmp), err)
	}
	if err := writeChecksum(final, sum); err != nil {
		log.Printf("[Backup] Could not write checksum for %s: %v", filepath.Base(final), err)
	}

	name := filepath.Base(final)
	p, _ := parseName(name)
	rec, err := m.record(name, p)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", apperr.ErrIO, name, err)
	}
	log.Printf("[Backup] Created %s (%d bytes)", name, rec.Size)
	return rec, nil
}

// toolError reports a failed dump or restore with the tool's last output line.
func toolError(binary string, res *runner.Result) error {
	err := fmt.Errorf("%w: %s exited with code %d", apperr.ErrBackup, binary, runner.ExitCode(res))
	if last := res.LastLine(); last != "" {
		return fmt.Errorf("%w: %s", err, last)
	}
	return err
}
