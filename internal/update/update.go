// Package update installs the latest panel release from GitHub over the
// panel directory.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pandeptwidyaop/panelctl/internal/archive"
	"github.com/pandeptwidyaop/panelctl/internal/runner"
)

const defaultAPIBase = "https://api.github.com"

// ErrAssetNotFound is returned when the release carries no asset with the
// configured name.
var ErrAssetNotFound = errors.New("release asset not found")

// GitHubRelease represents a GitHub release with its metadata.
type GitHubRelease struct {
	TagName string         `json:"tag_name"`
	Name    string         `json:"name"`
	HTMLURL string         `json:"html_url"`
	Body    string         `json:"body"`
	Assets  []ReleaseAsset `json:"assets"`
}

// ReleaseAsset is one downloadable file of a release.
type ReleaseAsset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Panel is the subset of panel operations an update drives.
type Panel interface {
	Root() string
	MaintenanceOn(ctx context.Context) error
	MaintenanceOff(ctx context.Context) error
	Migrate(ctx context.Context) error
	ClearCaches(ctx context.Context) error
	QueueRestart(ctx context.Context) error
}

// OwnershipFixer hands the panel tree back to the web user.
type OwnershipFixer interface {
	FixOwnership(ctx context.Context) error
}

// Options configures an Updater.
type Options struct {
	Repository string
	Asset      string
	Composer   string
	APIBase    string
	Client     *http.Client
}

// Updater fetches and applies panel releases.
type Updater struct {
	opts   Options
	panel  Panel
	owner  OwnershipFixer
	run    runner.Runner
	client *http.Client
}

// New returns an Updater.
func New(opts Options, p Panel, owner OwnershipFixer, run runner.Runner) *Updater {
	if opts.APIBase == "" {
		opts.APIBase = defaultAPIBase
	}
	if opts.Composer == "" {
		opts.Composer = "composer"
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	return &Updater{opts: opts, panel: p, owner: owner, run: run, client: client}
}

// CheckLatestVersion checks GitHub for the latest release.
func (u *Updater) CheckLatestVersion(ctx context.Context) (*GitHubRelease, error) {
	url := strings.TrimRight(u.opts.APIBase, "/") + "/repos/" + u.opts.Repository + "/releases/latest"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to check for updates: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to check for updates: HTTP %d", resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse release info: %w", err)
	}
	return &release, nil
}

// NeedsUpdate compares the installed version with the latest tag. An
// unknown or pre-release installed version always offers the update.
func NeedsUpdate(current, latest string) bool {
	current = strings.TrimPrefix(strings.TrimSpace(current), "v")
	latest = strings.TrimPrefix(strings.TrimSpace(latest), "v")

	if current == "" || current == "canary" || strings.Contains(current, "-") {
		return true
	}
	return current != latest
}

// FindAssetURL finds the download URL of the configured asset.
func (u *Updater) FindAssetURL(release *GitHubRelease) (string, error) {
	for _, asset := range release.Assets {
		if asset.Name == u.opts.Asset {
			return asset.BrowserDownloadURL, nil
		}
	}
	return "", fmt.Errorf("%w: %s in %s", ErrAssetNotFound, u.opts.Asset, release.TagName)
}

// createTempFile creates the download target, falling back to other
// writable directories when the system temp directory is not usable.
func createTempFile() (*os.File, error) {
	dirs := []string{os.TempDir(), "/var/tmp"}
	if home := os.Getenv("HOME"); home != "" {
		dirs = append(dirs, home)
	}
	if execPath, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(execPath))
	}

	var lastErr error
	for _, dir := range dirs {
		f, err := os.CreateTemp(dir, "panel-update-*.tar.gz")
		if err == nil {
			return f, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to create temp file: %w", lastErr)
}

// Download saves url to a temporary file and returns its path.
func (u *Updater) Download(ctx context.Context, url string, progressFn func(downloaded, total int64)) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download: HTTP %d", resp.StatusCode)
	}

	tmpFile, err := createTempFile()
	if err != nil {
		return "", err
	}
	defer func() { _ = tmpFile.Close() }()

	var downloaded int64
	total := resp.ContentLength
	buf := make([]byte, 32*1024)

	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := tmpFile.Write(buf[:n]); writeErr != nil {
				_ = os.Remove(tmpFile.Name())
				return "", fmt.Errorf("failed to write temp file: %w", writeErr)
			}
			downloaded += int64(n)
			if progressFn != nil {
				progressFn(downloaded, total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = os.Remove(tmpFile.Name())
			return "", fmt.Errorf("failed to download: %w", err)
		}
	}

	return tmpFile.Name(), nil
}

// Apply installs the release tarball at path over the panel directory.
// Maintenance mode is enabled first and is left on if any later step
// fails, so the operator can inspect the half-updated panel.
func (u *Updater) Apply(ctx context.Context, path string, step func(string)) error {
	if step == nil {
		step = func(string) {}
	}
	root := u.panel.Root()

	step("Enabling maintenance mode")
	if err := u.panel.MaintenanceOn(ctx); err != nil {
		return err
	}

	fail := func(what string, err error) error {
		log.Printf("[Update] %s failed, panel left in maintenance mode: %v", what, err)
		return fmt.Errorf("%s: %w (panel is still in maintenance mode)", what, err)
	}

	step("Extracting release")
	f, err := os.Open(path)
	if err != nil {
		return fail("open release", err)
	}
	err = archive.Extract(ctx, f, root)
	_ = f.Close()
	if err != nil {
		return fail("extract release", err)
	}
	for _, dir := range []string{"storage", filepath.Join("bootstrap", "cache")} {
		_ = os.Chmod(filepath.Join(root, dir), 0755)
	}

	step("Installing dependencies")
	res, err := u.run.Run(ctx, runner.Command{
		Name: u.opts.Composer,
		Args: []string{"install", "--no-dev", "--optimize-autoloader", "--no-interaction"},
		Dir:  root,
		Env:  []string{"COMPOSER_ALLOW_SUPERUSER=1"},
	})
	if err != nil {
		if last := res.LastLine(); last != "" {
			err = fmt.Errorf("%w: %s", err, last)
		}
		return fail("composer install", err)
	}

	step("Migrating database")
	if err := u.panel.Migrate(ctx); err != nil {
		return fail("migrate", err)
	}

	step("Clearing caches")
	if err := u.panel.ClearCaches(ctx); err != nil {
		return fail("clear caches", err)
	}

	step("Fixing ownership")
	if err := u.owner.FixOwnership(ctx); err != nil {
		return fail("fix ownership", err)
	}

	step("Restarting queue workers")
	if err := u.panel.QueueRestart(ctx); err != nil {
		return fail("queue restart", err)
	}

	step("Disabling maintenance mode")
	return u.panel.MaintenanceOff(ctx)
}

// RunOptions controls one update run.
type RunOptions struct {
	CurrentVersion string
	Force          bool
	Progress       func(downloaded, total int64)
	Step           func(string)
}

// Result summarises an update run.
type Result struct {
	Latest  string
	Updated bool
}

// Run checks for a newer release and installs it.
func (u *Updater) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	release, err := u.CheckLatestVersion(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{Latest: release.TagName}

	if !opts.Force && !NeedsUpdate(opts.CurrentVersion, release.TagName) {
		log.Printf("[Update] Already running %s", release.TagName)
		return result, nil
	}

	assetURL, err := u.FindAssetURL(release)
	if err != nil {
		return result, err
	}

	log.Printf("[Update] Downloading %s %s", u.opts.Asset, release.TagName)
	tmpPath, err := u.Download(ctx, assetURL, opts.Progress)
	if err != nil {
		return result, err
	}
	defer func() { _ = os.Remove(tmpPath) }()

	if err := u.Apply(ctx, tmpPath, opts.Step); err != nil {
		return result, err
	}

	result.Updated = true
	log.Printf("[Update] Panel updated to %s", release.TagName)
	return result, nil
}
