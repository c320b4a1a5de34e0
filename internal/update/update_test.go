package update

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pandeptwidyaop/panelctl/internal/archive"
	"github.com/pandeptwidyaop/panelctl/internal/runner"
)

type fakePanel struct {
	root  string
	steps []string
	fail  string
}

func (p *fakePanel) Root() string { return p.root }

func (p *fakePanel) do(name string) error {
	p.steps = append(p.steps, name)
	if p.fail == name {
		return errors.New(name + " broke")
	}
	return nil
}

func (p *fakePanel) MaintenanceOn(ctx context.Context) error  { return p.do("down") }
func (p *fakePanel) MaintenanceOff(ctx context.Context) error { return p.do("up") }
func (p *fakePanel) Migrate(ctx context.Context) error        { return p.do("migrate") }
func (p *fakePanel) ClearCaches(ctx context.Context) error    { return p.do("clear") }
func (p *fakePanel) QueueRestart(ctx context.Context) error   { return p.do("queue:restart") }

type fakeOwner struct{ panel *fakePanel }

func (o fakeOwner) FixOwnership(ctx context.Context) error { return o.panel.do("chown") }

type fakeRunner struct {
	calls []runner.Command
	err   error
}

func (f *fakeRunner) Run(ctx context.Context, c runner.Command) (*runner.Result, error) {
	f.calls = append(f.calls, c)
	if f.err != nil {
		return &runner.Result{Output: "Your requirements could not be resolved", ExitCode: 2}, f.err
	}
	return &runner.Result{}, nil
}

func releaseTarball(t *testing.T) []byte {
	t.Helper()
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "app"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "app", "Kernel.php"), []byte("<?php // v1.12.0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := archive.Create(context.Background(), src, &buf, archive.Options{}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newReleaseServer(t *testing.T, tag string, tarball []byte) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/pterodactyl/panel/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(GitHubRelease{
			TagName: tag,
			Assets: []ReleaseAsset{
				{Name: "panel.tar.gz", BrowserDownloadURL: srv.URL + "/download/panel.tar.gz"},
			},
		})
	})
	mux.HandleFunc("/download/panel.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(tarball)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestUpdater(srv *httptest.Server, p *fakePanel, run *fakeRunner) *Updater {
	return New(Options{
		Repository: "pterodactyl/panel",
		Asset:      "panel.tar.gz",
		APIBase:    srv.URL,
		Client:     srv.Client(),
	}, p, fakeOwner{p}, run)
}

func TestCreateTempFile(t *testing.T) {
	tmpFile, err := createTempFile()
	if err != nil {
		t.Fatalf("createTempFile() error = %v", err)
	}
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
	}()

	if _, err := os.Stat(tmpFile.Name()); os.IsNotExist(err) {
		t.Errorf("temp file was not created: %s", tmpFile.Name())
	}

	testData := []byte("test data")
	n, err := tmpFile.Write(testData)
	if err != nil {
		t.Errorf("failed to write to temp file: %v", err)
	}
	if n != len(testData) {
		t.Errorf("wrote %d bytes, expected %d", n, len(testData))
	}
}

func TestNeedsUpdate(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		latest   string
		expected bool
	}{
		{"same version", "1.11.7", "v1.11.7", false},
		{"same version with v prefix", "v1.11.7", "v1.11.7", false},
		{"older", "1.11.5", "v1.11.7", true},
		{"unknown", "", "v1.11.7", true},
		{"canary build", "canary", "v1.11.7", true},
		{"pre-release", "1.12.0-beta.1", "v1.11.7", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NeedsUpdate(tt.current, tt.latest); got != tt.expected {
				t.Errorf("NeedsUpdate(%q, %q) = %v, expected %v", tt.current, tt.latest, got, tt.expected)
			}
		})
	}
}

func TestFindAssetURL(t *testing.T) {
	u := New(Options{Asset: "panel.tar.gz"}, nil, nil, nil)
	release := &GitHubRelease{
		TagName: "v1.11.7",
		Assets: []ReleaseAsset{
			{Name: "checksum.txt", BrowserDownloadURL: "https://example.com/checksum.txt"},
			{Name: "panel.tar.gz", BrowserDownloadURL: "https://example.com/panel.tar.gz"},
		},
	}

	url, err := u.FindAssetURL(release)
	if err != nil {
		t.Fatalf("FindAssetURL() error = %v", err)
	}
	if url != "https://example.com/panel.tar.gz" {
		t.Errorf("FindAssetURL() = %s, expected https://example.com/panel.tar.gz", url)
	}
}

func TestFindAssetURL_NotFound(t *testing.T) {
	u := New(Options{Asset: "panel.tar.gz"}, nil, nil, nil)
	release := &GitHubRelease{TagName: "v1.11.7"}

	if _, err := u.FindAssetURL(release); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestCheckLatestVersion_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	u := New(Options{Repository: "pterodactyl/panel", APIBase: srv.URL, Client: srv.Client()}, nil, nil, nil)
	_, err := u.CheckLatestVersion(context.Background())
	if err == nil || !strings.Contains(err.Error(), "HTTP 403") {
		t.Errorf("expected HTTP 403 error, got %v", err)
	}
}

func TestRun_InstallsRelease(t *testing.T) {
	srv := newReleaseServer(t, "v1.12.0", releaseTarball(t))
	p := &fakePanel{root: t.TempDir()}
	run := &fakeRunner{}
	u := newTestUpdater(srv, p, run)

	var progressed bool
	var steps []string
	res, err := u.Run(context.Background(), RunOptions{
		CurrentVersion: "1.11.7",
		Progress:       func(downloaded, total int64) { progressed = true },
		Step:           func(s string) { steps = append(steps, s) },
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !res.Updated || res.Latest != "v1.12.0" {
		t.Errorf("unexpected result %+v", res)
	}
	if !progressed {
		t.Error("expected progress callback")
	}
	if len(steps) == 0 {
		t.Error("expected step callbacks")
	}

	data, err := os.ReadFile(filepath.Join(p.root, "app", "Kernel.php"))
	if err != nil {
		t.Fatalf("release not extracted: %v", err)
	}
	if !strings.Contains(string(data), "v1.12.0") {
		t.Errorf("unexpected extracted content %q", data)
	}

	want := "down migrate clear chown queue:restart up"
	if got := strings.Join(p.steps, " "); got != want {
		t.Errorf("expected steps %q, got %q", want, got)
	}
	if len(run.calls) != 1 || run.calls[0].Name != "composer" || run.calls[0].Dir != p.root {
		t.Errorf("unexpected composer call %+v", run.calls)
	}
}

func TestRun_AlreadyCurrent(t *testing.T) {
	srv := newReleaseServer(t, "v1.11.7", releaseTarball(t))
	p := &fakePanel{root: t.TempDir()}
	u := newTestUpdater(srv, p, &fakeRunner{})

	res, err := u.Run(context.Background(), RunOptions{CurrentVersion: "1.11.7"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Updated {
		t.Error("expected no update")
	}
	if len(p.steps) != 0 {
		t.Errorf("expected no panel steps, got %v", p.steps)
	}
}

func TestRun_ComposerFailureLeavesMaintenanceOn(t *testing.T) {
	srv := newReleaseServer(t, "v1.12.0", releaseTarball(t))
	p := &fakePanel{root: t.TempDir()}
	u := newTestUpdater(srv, p, &fakeRunner{err: runner.ErrCommandFailed})

	_, err := u.Run(context.Background(), RunOptions{Force: true})
	if !errors.Is(err, runner.ErrCommandFailed) {
		t.Fatalf("expected ErrCommandFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "maintenance mode") {
		t.Errorf("expected maintenance notice in error, got %v", err)
	}
	if got := strings.Join(p.steps, " "); got != "down" {
		t.Errorf("expected only maintenance on, got %q", got)
	}
}

func TestApply_CorruptTarball(t *testing.T) {
	p := &fakePanel{root: t.TempDir()}
	u := New(Options{}, p, fakeOwner{p}, &fakeRunner{})

	path := filepath.Join(t.TempDir(), "panel.tar.gz")
	if err := os.WriteFile(path, []byte("not a tarball"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := u.Apply(context.Background(), path, nil); err == nil {
		t.Fatal("expected error for corrupt tarball")
	}
	if got := strings.Join(p.steps, " "); got != "down" {
		t.Errorf("expected only maintenance on, got %q", got)
	}
}
