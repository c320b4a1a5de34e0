package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pandeptwidyaop/panelctl/internal/apperr"
	"github.com/pandeptwidyaop/panelctl/internal/models"
	"github.com/pandeptwidyaop/panelctl/internal/runner"
	"github.com/pandeptwidyaop/panelctl/internal/sysinfo"
)

type fakeEnv map[string]string

func (e fakeEnv) Lookup(key, def string) string {
	if v, ok := e[key]; ok {
		return v
	}
	return def
}

type fakeRunner struct {
	calls   []runner.Command
	stdin   []string
	handler func(c runner.Command) (*runner.Result, error)
}

func (f *fakeRunner) Run(ctx context.Context, c runner.Command) (*runner.Result, error) {
	f.calls = append(f.calls, c)
	if c.Stdin != nil {
		data, _ := io.ReadAll(c.Stdin)
		f.stdin = append(f.stdin, string(data))
	}
	if f.handler != nil {
		return f.handler(c)
	}
	return &runner.Result{}, nil
}

// dumpTo writes content to the --result-file named in c and reports success.
func dumpTo(content string) func(c runner.Command) (*runner.Result, error) {
	return func(c runner.Command) (*runner.Result, error) {
		for _, a := range c.Args {
			if strings.HasPrefix(a, "--result-file=") {
				if err := os.WriteFile(strings.TrimPrefix(a, "--result-file="), []byte(content), 0644); err != nil {
					return &runner.Result{ExitCode: 1}, runner.ErrCommandFailed
				}
			}
		}
		return &runner.Result{}, nil
	}
}

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.Local)

func newTestManager(t *testing.T, root string, run *fakeRunner) *Manager {
	t.Helper()
	m := New(Options{
		PanelRoot:     root,
		Dir:           filepath.Join(t.TempDir(), "backups"),
		DumpBinary:    "mysqldump",
		RestoreBinary: "mysql",
	}, fakeEnv{
		"DB_HOST":     "db.internal",
		"DB_PORT":     "3307",
		"DB_DATABASE": "panel",
		"DB_USERNAME": "ptero",
	}, run)
	m.now = func() time.Time { return fixedNow }
	return m
}

func buildPanel(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		".env":                   "APP_KEY=base64:abc\nDB_HOST=db.internal\n",
		"public/index.php":       "<?php require '../vendor/autoload.php';\n",
		"storage/logs/panel.log": strings.Repeat("entry\n", 100),
		"config/app.php":         "<?php return [];\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir error = %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write error = %v", err)
		}
	}
	return root
}

func treeContents(t *testing.T, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		data, _ := os.ReadFile(path)
		out[rel] = string(data)
		return nil
	})
	return out
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("read dir error = %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCreateFilesBackup_RestoreRoundTrip(t *testing.T) {
	src := buildPanel(t)
	run := &fakeRunner{}
	m := newTestManager(t, src, run)

	rec, err := m.CreateFilesBackup(context.Background())
	if err != nil {
		t.Fatalf("CreateFilesBackup() error = %v", err)
	}
	if rec.Kind != models.KindFiles {
		t.Errorf("expected files kind, got %s", rec.Kind)
	}
	if rec.Name != "files_backup_20261015_093000.tar.gz" {
		t.Errorf("unexpected name %s", rec.Name)
	}

	scratch := t.TempDir()
	restorer := New(Options{PanelRoot: scratch, Dir: m.Dir()}, fakeEnv{}, run)
	if err := restorer.RestoreFiles(context.Background(), rec, true); err != nil {
		t.Fatalf("RestoreFiles() error = %v", err)
	}

	want := treeContents(t, src)
	got := treeContents(t, scratch)
	if len(want) != len(got) {
		t.Fatalf("expected %d files, got %d", len(want), len(got))
	}
	for rel, content := range want {
		if got[rel] != content {
			t.Errorf("%s differs after restore", rel)
		}
	}
	if len(run.calls) != 0 {
		t.Errorf("expected no chown without an owner, got %v", run.calls)
	}
}

func TestCreateFilesBackup_SkipsLeftoverPartial(t *testing.T) {
	m := newTestManager(t, buildPanel(t), &fakeRunner{})
	leftover := touch(t, m.Dir(), "files_backup_20261015_093000.tar.gz.partial", 0)

	rec, err := m.CreateFilesBackup(context.Background())
	if err != nil {
		t.Fatalf("CreateFilesBackup() error = %v", err)
	}
	if rec.Name != "files_backup_20261015_093000_2.tar.gz" {
		t.Errorf("unexpected name %s", rec.Name)
	}
	if got, err := os.ReadFile(leftover); err != nil || string(got) != filepath.Base(leftover) {
		t.Errorf("leftover partial was modified: %q, %v", got, err)
	}
}

func TestCreateFilesBackup_NamesDoNotCollide(t *testing.T) {
	m := newTestManager(t, buildPanel(t), &fakeRunner{})

	first, err := m.CreateFilesBackup(context.Background())
	if err != nil {
		t.Fatalf("CreateFilesBackup() error = %v", err)
	}
	second, err := m.CreateFilesBackup(context.Background())
	if err != nil {
		t.Fatalf("CreateFilesBackup() error = %v", err)
	}

	if first.Name == second.Name {
		t.Fatalf("two backups in the same second share the name %s", first.Name)
	}
	if second.Name != "files_backup_20261015_093000_2.tar.gz" {
		t.Errorf("unexpected second name %s", second.Name)
	}
}

func TestCreateFilesBackup_ExcludesNestedBackupDir(t *testing.T) {
	root := buildPanel(t)
	m := New(Options{PanelRoot: root, Dir: filepath.Join(root, "backups")}, fakeEnv{}, &fakeRunner{})

	if _, err := m.CreateFilesBackup(context.Background()); err != nil {
		t.Fatalf("first backup error = %v", err)
	}
	rec, err := m.CreateFilesBackup(context.Background())
	if err != nil {
		t.Fatalf("second backup error = %v", err)
	}

	scratch := t.TempDir()
	restorer := New(Options{PanelRoot: scratch, Dir: m.Dir()}, fakeEnv{}, &fakeRunner{})
	if err := restorer.RestoreFiles(context.Background(), rec, true); err != nil {
		t.Fatalf("RestoreFiles() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(scratch, "backups")); !os.IsNotExist(err) {
		t.Error("backup directory was archived into itself")
	}
}

func TestCreateFilesBackup_MissingRoot(t *testing.T) {
	m := newTestManager(t, filepath.Join(t.TempDir(), "missing"), &fakeRunner{})

	_, err := m.CreateFilesBackup(context.Background())
	if !errors.Is(err, apperr.ErrBackup) {
		t.Fatalf("expected ErrBackup, got %v", err)
	}
	if names := dirNames(t, m.Dir()); len(names) != 0 {
		t.Errorf("expected empty backup dir, found %v", names)
	}
}

func TestCreateFilesBackup_InsufficientSpace(t *testing.T) {
	m := newTestManager(t, buildPanel(t), &fakeRunner{})
	m.checkDisk = func(ctx context.Context, path string, min uint64) error {
		return sysinfo.ErrInsufficientSpace
	}

	_, err := m.CreateFilesBackup(context.Background())
	if !errors.Is(err, apperr.ErrBackup) {
		t.Fatalf("expected ErrBackup, got %v", err)
	}
	if names := dirNames(t, m.Dir()); len(names) != 0 {
		t.Errorf("expected empty backup dir, found %v", names)
	}
}

func TestCreateDatabaseBackup_Success(t *testing.T) {
	run := &fakeRunner{handler: dumpTo("-- MySQL dump\nCREATE TABLE users (id int);\n")}
	m := newTestManager(t, buildPanel(t), run)

	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	rec, err := m.CreateDatabaseBackup(context.Background(), Credentials{Password: "hunter2-secret"})
	if err != nil {
		t.Fatalf("CreateDatabaseBackup() error = %v", err)
	}
	if rec.Name != "database_backup_20261015_093000.sql" {
		t.Errorf("unexpected name %s", rec.Name)
	}

	if len(run.calls) != 1 {
		t.Fatalf("expected one dump call, got %d", len(run.calls))
	}
	call := run.calls[0]
	if call.Name != "mysqldump" {
		t.Errorf("expected mysqldump, got %s", call.Name)
	}
	args := strings.Join(call.Args, " ")
	for _, want := range []string{"--host=db.internal", "--port=3307", "--user=ptero", "panel"} {
		if !strings.Contains(args, want) {
			t.Errorf("expected %q in args %q", want, args)
		}
	}
	if strings.Contains(args, "hunter2-secret") {
		t.Error("password must not appear on the command line")
	}
	if len(call.Env) != 1 || call.Env[0] != "MYSQL_PWD=hunter2-secret" {
		t.Errorf("expected password in environment, got %v", call.Env)
	}
	if strings.Contains(logs.String(), "hunter2-secret") {
		t.Error("password was written to the log")
	}

	if err := m.Verify(rec); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
	info, _ := os.Stat(rec.Path)
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected dump mode 0600, got %o", info.Mode().Perm())
	}
}

func TestCreateDatabaseBackup_UnreachableHostLeavesNothing(t *testing.T) {
	run := &fakeRunner{handler: func(c runner.Command) (*runner.Result, error) {
		dumpTo("-- partial")(c)
		return &runner.Result{
			ExitCode: 2,
			Output:   "mysqldump: Got error: 2005: Unknown MySQL server host 'db.internal'",
		}, runner.ErrCommandFailed
	}}
	m := newTestManager(t, buildPanel(t), run)

	_, err := m.CreateDatabaseBackup(context.Background(), Credentials{Password: "pw"})
	if !errors.Is(err, apperr.ErrBackup) {
		t.Fatalf("expected ErrBackup, got %v", err)
	}
	if !strings.Contains(err.Error(), "Unknown MySQL server host") {
		t.Errorf("expected tool output in error, got %v", err)
	}
	if names := dirNames(t, m.Dir()); len(names) != 0 {
		t.Errorf("expected no dump file, found %v", names)
	}
}

func TestCreateDatabaseBackup_ToolWroteNothing(t *testing.T) {
	m := newTestManager(t, buildPanel(t), &fakeRunner{})

	_, err := m.CreateDatabaseBackup(context.Background(), Credentials{})
	if !errors.Is(err, apperr.ErrBackup) {
		t.Fatalf("expected ErrBackup, got %v", err)
	}
}

func TestCreateFullBackup_DatabaseFailureKeepsArchive(t *testing.T) {
	run := &fakeRunner{handler: func(c runner.Command) (*runner.Result, error) {
		return &runner.Result{ExitCode: 2}, runner.ErrCommandFailed
	}}
	m := newTestManager(t, buildPanel(t), run)

	res, err := m.CreateFullBackup(context.Background(), Credentials{Password: "pw"})
	if err == nil {
		t.Fatal("expected error from failed dump")
	}
	if !errors.Is(err, apperr.ErrBackup) {
		t.Errorf("expected ErrBackup, got %v", err)
	}
	if res.OK() {
		t.Error("expected OK() to be false")
	}
	if res.FilesErr != nil || res.Files == nil {
		t.Fatalf("files half should have succeeded: %v", res.FilesErr)
	}
	if res.DatabaseErr == nil {
		t.Error("expected database half to fail")
	}
	if _, err := os.Stat(res.Files.Path); err != nil {
		t.Errorf("files archive should be retained: %v", err)
	}
}

func TestCreateFullBackup_Success(t *testing.T) {
	m := newTestManager(t, buildPanel(t), &fakeRunner{handler: dumpTo("-- dump")})

	res, err := m.CreateFullBackup(context.Background(), Credentials{Password: "pw"})
	if err != nil {
		t.Fatalf("CreateFullBackup() error = %v", err)
	}
	if !res.OK() || res.Files == nil || res.Database == nil {
		t.Errorf("expected both halves, got %+v", res)
	}
}

func touch(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0750); err != nil {
		t.Fatalf("mkdir error = %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(name), 0600); err != nil {
		t.Fatalf("write error = %v", err)
	}
	mt := fixedNow.Add(-age)
	if err := os.Chtimes(path, mt, mt); err != nil {
		t.Fatalf("chtimes error = %v", err)
	}
	return path
}

func TestListBackups_OrderAndFiltering(t *testing.T) {
	m := newTestManager(t, buildPanel(t), &fakeRunner{})
	dir := m.Dir()
	touch(t, dir, "files_backup_20260101_000000.tar.gz", 0)
	touch(t, dir, "database_backup_20260301_120000.sql", 0)
	touch(t, dir, "files_backup_20260301_120000.tar.gz", 0)
	touch(t, dir, "files_backup_20260301_120000_2.tar.gz", 0)
	touch(t, dir, "files_backup_20260301_120000.tar.gz.b2sum", 0)
	touch(t, dir, "files_backup_20260401_000000.tar.gz.partial", 0)
	touch(t, dir, "database_backup_20260401_000000.tar.gz", 0)
	touch(t, dir, "notes.txt", 0)

	want := []string{
		"files_backup_20260301_120000_2.tar.gz",
		"database_backup_20260301_120000.sql",
		"files_backup_20260301_120000.tar.gz",
		"files_backup_20260101_000000.tar.gz",
	}

	for pass := 0; pass < 2; pass++ {
		var got []string
		for rec, err := range m.ListBackups() {
			if err != nil {
				t.Fatalf("ListBackups() error = %v", err)
			}
			got = append(got, rec.Name)
		}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("pass %d: expected %v, got %v", pass, want, got)
		}
	}

	files, err := m.List(models.KindFiles)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(files) != 3 {
		t.Errorf("expected 3 files backups, got %d", len(files))
	}
}

func TestListBackups_EarlyBreak(t *testing.T) {
	m := newTestManager(t, buildPanel(t), &fakeRunner{})
	touch(t, m.Dir(), "files_backup_20260101_000000.tar.gz", 0)
	touch(t, m.Dir(), "files_backup_20260102_000000.tar.gz", 0)

	count := 0
	for range m.ListBackups() {
		count++
		break
	}
	if count != 1 {
		t.Errorf("expected iteration to stop after one record, got %d", count)
	}
}

func TestListBackups_MissingDir(t *testing.T) {
	m := newTestManager(t, buildPanel(t), &fakeRunner{})

	recs, err := m.List("")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected no backups, got %d", len(recs))
	}
}

func TestFind(t *testing.T) {
	m := newTestManager(t, buildPanel(t), &fakeRunner{})
	touch(t, m.Dir(), "database_backup_20260101_000000.sql", 0)

	rec, err := m.Find("database_backup_20260101_000000.sql")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if rec.Kind != models.KindDatabase {
		t.Errorf("expected database kind, got %s", rec.Kind)
	}
	wantCreated := time.Date(2026, 1, 1, 0, 0, 0, 0, time.Local)
	if !rec.CreatedAt.Equal(wantCreated) {
		t.Errorf("expected created %v, got %v", wantCreated, rec.CreatedAt)
	}

	for _, name := range []string{"database_backup_20990101_000000.sql", "../etc/passwd", "random.sql"} {
		if _, err := m.Find(name); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Find(%q) error = %v, want ErrNotFound", name, err)
		}
	}
}

func TestRestoreFiles_DeclinedDoesNothing(t *testing.T) {
	root := buildPanel(t)
	run := &fakeRunner{}
	m := newTestManager(t, root, run)
	m.opts.Owner = "www-data:www-data"

	rec, err := m.CreateFilesBackup(context.Background())
	if err != nil {
		t.Fatalf("CreateFilesBackup() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, ".env"), []byte("APP_KEY=modified\n"), 0644); err != nil {
		t.Fatalf("write error = %v", err)
	}
	before := treeContents(t, root)

	err = m.RestoreFiles(context.Background(), rec, false)
	if !errors.Is(err, apperr.ErrConfirmationDeclined) {
		t.Fatalf("expected ErrConfirmationDeclined, got %v", err)
	}

	after := treeContents(t, root)
	for rel, content := range before {
		if after[rel] != content {
			t.Errorf("%s changed although restore was declined", rel)
		}
	}
	if len(run.calls) != 0 {
		t.Errorf("expected no commands, got %v", run.calls)
	}
}

func TestRestoreFiles_MissingBackup(t *testing.T) {
	m := newTestManager(t, buildPanel(t), &fakeRunner{})
	rec := &models.BackupRecord{Kind: models.KindFiles, Name: "files_backup_20200101_000000.tar.gz", Path: filepath.Join(m.Dir(), "files_backup_20200101_000000.tar.gz")}

	err := m.RestoreFiles(context.Background(), rec, true)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRestoreFiles_WrongKind(t *testing.T) {
	m := newTestManager(t, buildPanel(t), &fakeRunner{})
	rec := &models.BackupRecord{Kind: models.KindDatabase, Name: "database_backup_20200101_000000.sql"}

	if err := m.RestoreFiles(context.Background(), rec, true); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestRestoreFiles_FixesOwnership(t *testing.T) {
	root := buildPanel(t)
	run := &fakeRunner{}
	m := newTestManager(t, root, run)
	m.opts.Owner = "www-data:www-data"

	rec, err := m.CreateFilesBackup(context.Background())
	if err != nil {
		t.Fatalf("CreateFilesBackup() error = %v", err)
	}
	if err := m.RestoreFiles(context.Background(), rec, true); err != nil {
		t.Fatalf("RestoreFiles() error = %v", err)
	}

	if len(run.calls) != 1 {
		t.Fatalf("expected one chown call, got %d", len(run.calls))
	}
	got := run.calls[0].Name + " " + strings.Join(run.calls[0].Args, " ")
	if got != "chown -R www-data:www-data "+root {
		t.Errorf("unexpected ownership command %q", got)
	}
}

func TestRestoreFiles_ChownFailure(t *testing.T) {
	root := buildPanel(t)
	run := &fakeRunner{handler: func(c runner.Command) (*runner.Result, error) {
		return &runner.Result{ExitCode: 1}, runner.ErrCommandFailed
	}}
	m := newTestManager(t, root, run)

	rec, err := m.CreateFilesBackup(context.Background())
	if err != nil {
		t.Fatalf("CreateFilesBackup() error = %v", err)
	}
	m.opts.Owner = "nobody:nogroup"
	if err := m.RestoreFiles(context.Background(), rec, true); !errors.Is(err, apperr.ErrBackup) {
		t.Errorf("expected ErrBackup, got %v", err)
	}
}

func TestRestoreDatabase(t *testing.T) {
	run := &fakeRunner{handler: dumpTo("CREATE TABLE nodes (id int);\n")}
	m := newTestManager(t, buildPanel(t), run)

	rec, err := m.CreateDatabaseBackup(context.Background(), Credentials{Password: "pw"})
	if err != nil {
		t.Fatalf("CreateDatabaseBackup() error = %v", err)
	}

	if err := m.RestoreDatabase(context.Background(), rec, Credentials{Password: "pw"}, false); !errors.Is(err, apperr.ErrConfirmationDeclined) {
		t.Fatalf("expected ErrConfirmationDeclined, got %v", err)
	}
	if len(run.calls) != 1 {
		t.Fatalf("declined restore must not run anything, got %d calls", len(run.calls))
	}

	run.handler = nil
	if err := m.RestoreDatabase(context.Background(), rec, Credentials{Password: "pw"}, true); err != nil {
		t.Fatalf("RestoreDatabase() error = %v", err)
	}
	last := run.calls[len(run.calls)-1]
	if last.Name != "mysql" || last.Args[len(last.Args)-1] != "panel" {
		t.Errorf("unexpected restore command %s", last)
	}
	if len(run.stdin) != 1 || run.stdin[0] != "CREATE TABLE nodes (id int);\n" {
		t.Errorf("expected dump on stdin, got %q", run.stdin)
	}
}

func TestPruneOlderThan(t *testing.T) {
	m := newTestManager(t, buildPanel(t), &fakeRunner{})
	day := 24 * time.Hour
	young := touch(t, m.Dir(), "files_backup_20261005_093000.tar.gz", 10*day)
	middle := touch(t, m.Dir(), "database_backup_20260905_093000.sql", 40*day)
	old := touch(t, m.Dir(), "files_backup_20250910_093000.tar.gz", 400*day)
	touch(t, m.Dir(), "files_backup_20250910_093000.tar.gz.b2sum", 400*day)
	unrelated := touch(t, m.Dir(), "keep-me.txt", 400*day)

	res, err := m.PruneOlderThan(30)
	if err != nil {
		t.Fatalf("PruneOlderThan() error = %v", err)
	}

	if len(res.Deleted) != 2 {
		t.Errorf("expected 2 deletions, got %v", res.Deleted)
	}
	if len(res.Failed) != 0 {
		t.Errorf("expected no failures, got %v", res.Failed)
	}
	for _, p := range []string{middle, old, old + checksumSuffix} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("expected %s to be deleted", filepath.Base(p))
		}
	}
	for _, p := range []string{young, unrelated} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected %s to be kept", filepath.Base(p))
		}
	}
}

func TestPruneOlderThan_InvalidAge(t *testing.T) {
	m := newTestManager(t, buildPanel(t), &fakeRunner{})

	for _, days := range []int{0, -5} {
		if _, err := m.PruneOlderThan(days); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("PruneOlderThan(%d) error = %v, want ErrValidation", days, err)
		}
	}
}

func TestVerify_DetectsCorruption(t *testing.T) {
	m := newTestManager(t, buildPanel(t), &fakeRunner{})

	rec, err := m.CreateFilesBackup(context.Background())
	if err != nil {
		t.Fatalf("CreateFilesBackup() error = %v", err)
	}
	if err := m.Verify(rec); err != nil {
		t.Fatalf("Verify() on fresh backup error = %v", err)
	}

	f, err := os.OpenFile(rec.Path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("open error = %v", err)
	}
	_, _ = f.Write([]byte("garbage"))
	_ = f.Close()

	if err := m.Verify(rec); !errors.Is(err, apperr.ErrBackup) {
		t.Errorf("expected ErrBackup for tampered file, got %v", err)
	}

	_ = os.Remove(rec.Path + checksumSuffix)
	if err := m.Verify(rec); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound without checksum, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	m := newTestManager(t, buildPanel(t), &fakeRunner{})
	path := touch(t, m.Dir(), "files_backup_20260101_000000.tar.gz", 0)
	rec, err := m.Find(filepath.Base(path))
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	if err := m.Delete(rec, false); !errors.Is(err, apperr.ErrConfirmationDeclined) {
		t.Errorf("expected ErrConfirmationDeclined, got %v", err)
	}
	if err := m.Delete(rec, true); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := m.Delete(rec, true); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
