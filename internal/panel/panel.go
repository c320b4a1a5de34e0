// Package panel drives the panel's own command line (php artisan) for
// maintenance mode, accounts, caches and keys.
package panel

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pandeptwidyaop/panelctl/internal/apperr"
	"github.com/pandeptwidyaop/panelctl/internal/runner"
)

// maintenanceMarker is the file Laravel writes while the application is down.
const maintenanceMarker = "storage/framework/down"

var versionPattern = regexp.MustCompile(`'version'\s*=>\s*'([^']+)'`)

// Panel runs artisan commands in the panel directory.
type Panel struct {
	root string
	php  string
	run  runner.Runner
}

// New returns a Panel rooted at root that invokes artisan through php.
func New(root, php string, run runner.Runner) *Panel {
	if php == "" {
		php = "php"
	}
	return &Panel{root: root, php: php, run: run}
}

// Root returns the panel directory.
func (p *Panel) Root() string {
	return p.root
}

// Command builds an artisan invocation without running it.
func (p *Panel) Command(args ...string) runner.Command {
	return runner.Command{
		Name: p.php,
		Args: append([]string{"artisan"}, args...),
		Dir:  p.root,
	}
}

// Artisan runs one artisan command and returns its output.
func (p *Panel) Artisan(ctx context.Context, args ...string) (string, error) {
	return p.exec(ctx, p.Command(args...))
}

func (p *Panel) exec(ctx context.Context, c runner.Command) (string, error) {
	res, err := p.run.Run(ctx, c)
	out := ""
	if res != nil {
		out = strings.TrimSpace(res.Output)
	}
	if err != nil {
		sub := "artisan"
		if len(c.Args) > 1 {
			sub = c.Args[1]
		}
		if last := runner.LastLine(out); last != "" {
			return out, fmt.Errorf("%s: %w: %s", sub, err, last)
		}
		return out, fmt.Errorf("%s: %w", sub, err)
	}
	return out, nil
}

// IsInMaintenance reports whether the maintenance marker file exists.
func (p *Panel) IsInMaintenance() bool {
	_, err := os.Stat(filepath.Join(p.root, maintenanceMarker))
	return err == nil
}

// MaintenanceOn puts the panel into maintenance mode.
func (p *Panel) MaintenanceOn(ctx context.Context) error {
	if _, err := p.Artisan(ctx, "down"); err != nil {
		return err
	}
	log.Printf("[Panel] Maintenance mode enabled")
	return nil
}

// MaintenanceOff brings the panel back up.
func (p *Panel) MaintenanceOff(ctx context.Context) error {
	if _, err := p.Artisan(ctx, "up"); err != nil {
		return err
	}
	log.Printf("[Panel] Maintenance mode disabled")
	return nil
}

// Version returns the release version declared in config/app.php, or the
// first line of artisan --version when the file carries none.
func (p *Panel) Version(ctx context.Context) (string, error) {
	if data, err := os.ReadFile(filepath.Join(p.root, "config", "app.php")); err == nil {
		if m := versionPattern.FindSubmatch(data); m != nil {
			return string(m[1]), nil
		}
	}

	out, err := p.Artisan(ctx, "--version")
	if err != nil {
		return "", err
	}
	if i := strings.IndexByte(out, '\n'); i >= 0 {
		out = out[:i]
	}
	return strings.TrimSpace(out), nil
}

// ClearCaches drops the compiled configuration and view caches so edits
// to the environment file take effect.
func (p *Panel) ClearCaches(ctx context.Context) error {
	for _, sub := range []string{"config:clear", "view:clear"} {
		if _, err := p.Artisan(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}

// Migrate applies database migrations and seeds.
func (p *Panel) Migrate(ctx context.Context) error {
	_, err := p.Artisan(ctx, "migrate", "--seed", "--force")
	return err
}

// QueueRestart asks queue workers to restart after their current job.
func (p *Panel) QueueRestart(ctx context.Context) error {
	_, err := p.Artisan(ctx, "queue:restart")
	return err
}

// GenerateKey replaces APP_KEY. Data encrypted with the old key becomes
// unreadable.
func (p *Panel) GenerateKey(ctx context.Context, confirmed bool) error {
	if !confirmed {
		return apperr.ErrConfirmationDeclined
	}
	if _, err := p.Artisan(ctx, "key:generate", "--force"); err != nil {
		return err
	}
	log.Printf("[Panel] Application key regenerated")
	return nil
}
