// Package backup creates, lists, restores and prunes backups of the panel
// directory and its database.
//
// Artifacts live in a single directory and are named
// <kind>_backup_<YYYYMMDD_HHMMSS>.<ext>, with ext tar.gz for file archives
// and sql for database dumps. Names sort lexically in creation order. Each
// artifact is written under a .partial name and renamed into place only
// once complete, so a failed run never leaves an artifact behind.
package backup

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pandeptwidyaop/panelctl/internal/apperr"
	"github.com/pandeptwidyaop/panelctl/internal/models"
	"github.com/pandeptwidyaop/panelctl/internal/runner"
	"github.com/pandeptwidyaop/panelctl/internal/sysinfo"
)

const (
	timestampLayout = "20060102_150405"
	partialSuffix   = ".partial"
	checksumSuffix  = ".b2sum"
)

var namePattern = regexp.MustCompile(`^(files|database)_backup_(\d{8}_\d{6})(?:_(\d+))?\.(tar\.gz|sql)$`)

// EnvReader resolves panel settings such as the database connection.
type EnvReader interface {
	Lookup(key, def string) string
}

// Options configures a Manager.
type Options struct {
	// PanelRoot is the directory archived by files backups and restored into.
	PanelRoot string
	// Dir holds the backup artifacts.
	Dir string
	// Owner is the user:group given to restored files; empty skips chown.
	Owner         string
	DumpBinary    string
	RestoreBinary string
	MinFreeBytes  uint64
}

// Credentials carries the database password for one dump or restore. It
// is passed to the dump tool through its environment and never stored.
type Credentials struct {
	Password string
}

// Manager performs backup operations. It assumes exclusive use of the
// backup directory.
type Manager struct {
	opts      Options
	env       EnvReader
	run       runner.Runner
	now       func() time.Time
	checkDisk func(ctx context.Context, path string, min uint64) error

	mu    sync.Mutex
	taken map[string]bool
}

// New returns a Manager.
func New(opts Options, env EnvReader, run runner.Runner) *Manager {
	return &Manager{
		opts:      opts,
		env:       env,
		run:       run,
		now:       time.Now,
		checkDisk: sysinfo.EnsureFree,
		taken:     make(map[string]bool),
	}
}

// Dir returns the backup directory.
func (m *Manager) Dir() string {
	return m.opts.Dir
}

// reserveName picks an unused artifact name for kind at the current time.
// Two backups of the same kind within one second get _2, _3, ... suffixes.
func (m *Manager) reserveName(kind models.BackupKind) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamp := m.now().Format(timestampLayout)
	base := fmt.Sprintf("%s_backup_%s", kind, stamp)
	name := base + "." + kind.Extension()
	for n := 2; m.taken[name] || m.occupied(name); n++ {
		name = fmt.Sprintf("%s_%d.%s", base, n, kind.Extension())
	}
	m.taken[name] = true
	return name
}

// occupied reports whether name, or the partial file of an interrupted
// run under that name, is already on disk.
func (m *Manager) occupied(name string) bool {
	path := filepath.Join(m.opts.Dir, name)
	return exists(path) || exists(path+partialSuffix)
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func (m *Manager) ensureDir() error {
	if err := os.MkdirAll(m.opts.Dir, 0750); err != nil {
		return fmt.Errorf("%w: create backup directory: %v", apperr.ErrIO, err)
	}
	return nil
}

type parsedName struct {
	kind  models.BackupKind
	stamp string
	seq   int
}

func parseName(name string) (parsedName, bool) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return parsedName{}, false
	}
	p := parsedName{kind: models.BackupKind(m[1]), stamp: m[2], seq: 1}
	if p.kind.Extension() != m[4] {
		return parsedName{}, false
	}
	if m[3] != "" {
		p.seq, _ = strconv.Atoi(m[3])
	}
	return p, true
}

func (m *Manager) record(name string, p parsedName) (*models.BackupRecord, error) {
	path := filepath.Join(m.opts.Dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	created, err := time.ParseInLocation(timestampLayout, p.stamp, time.Local)
	if err != nil {
		created = info.ModTime()
	}
	return &models.BackupRecord{
		CreatedAt: created,
		ModTime:   info.ModTime(),
		Kind:      p.kind,
		Name:      name,
		Path:      path,
		Size:      info.Size(),
	}, nil
}

// ListBackups enumerates backup artifacts, newest first. The directory is
// read when iteration starts and each artifact is stat'ed as it is
// yielded, so the sequence can be ranged over again to see fresh state.
// A missing backup directory yields nothing. An unreadable directory
// yields a single nil record with the error; an artifact that cannot be
// stat'ed yields a record carrying only its name together with the error.
func (m *Manager) ListBackups() iter.Seq2[*models.BackupRecord, error] {
	return func(yield func(*models.BackupRecord, error) bool) {
		entries, err := os.ReadDir(m.opts.Dir)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				yield(nil, fmt.Errorf("%w: read backup directory: %v", apperr.ErrIO, err))
			}
			return
		}

		type candidate struct {
			name string
			p    parsedName
		}
		var found []candidate
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if p, ok := parseName(e.Name()); ok {
				found = append(found, candidate{e.Name(), p})
			}
		}
		sort.Slice(found, func(i, j int) bool {
			a, b := found[i].p, found[j].p
			if a.stamp != b.stamp {
				return a.stamp > b.stamp
			}
			if a.seq != b.seq {
				return a.seq > b.seq
			}
			return a.kind < b.kind
		})

		for _, c := range found {
			rec, err := m.record(c.name, c.p)
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if err != nil {
				rec = &models.BackupRecord{Kind: c.p.kind, Name: c.name, Path: filepath.Join(m.opts.Dir, c.name)}
				err = fmt.Errorf("%w: stat %s: %v", apperr.ErrIO, c.name, err)
			}
			if !yield(rec, err) {
				return
			}
		}
	}
}

// List collects ListBackups into a slice, optionally filtered by kind.
func (m *Manager) List(kind models.BackupKind) ([]*models.BackupRecord, error) {
	var out []*models.BackupRecord
	for rec, err := range m.ListBackups() {
		if err != nil {
			return out, err
		}
		if kind != "" && kind != models.KindFull && rec.Kind != kind {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Find returns the backup with the given file name.
func (m *Manager) Find(name string) (*models.BackupRecord, error) {
	p, ok := parseName(name)
	if !ok || filepath.Base(name) != name {
		return nil, fmt.Errorf("%w: backup %q", apperr.ErrNotFound, name)
	}
	rec, err := m.record(name, p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: backup %q", apperr.ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: stat %s: %v", apperr.ErrIO, name, err)
	}
	return rec, nil
}

// Delete removes one backup and its checksum.
func (m *Manager) Delete(rec *models.BackupRecord, confirmed bool) error {
	if !confirmed {
		return apperr.ErrConfirmationDeclined
	}
	if err := os.Remove(rec.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: backup %q", apperr.ErrNotFound, rec.Name)
		}
		return fmt.Errorf("%w: remove %s: %v", apperr.ErrIO, rec.Name, err)
	}
	_ = os.Remove(rec.Path + checksumSuffix)
	log.Printf("[Backup] Deleted %s", rec.Name)
	return nil
}
