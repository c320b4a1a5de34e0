package backup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/pandeptwidyaop/panelctl/internal/apperr"
	"github.com/pandeptwidyaop/panelctl/internal/archive"
	"github.com/pandeptwidyaop/panelctl/internal/models"
	"github.com/pandeptwidyaop/panelctl/internal/runner"
)

// RestoreFiles extracts a files backup over the panel directory and then
// hands ownership back to the web server user. Existing files present in
// the archive are overwritten; files absent from it are left in place.
// Nothing is touched unless confirmed is true.
func (m *Manager) RestoreFiles(ctx context.Context, rec *models.BackupRecord, confirmed bool) error {
	if !confirmed {
		return apperr.ErrConfirmationDeclined
	}
	if rec == nil || rec.Kind != models.KindFiles {
		return fmt.Errorf("%w: not a files backup", apperr.ErrValidation)
	}

	f, err := os.Open(rec.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: backup %q", apperr.ErrNotFound, rec.Name)
		}
		return fmt.Errorf("%w: open %s: %v", apperr.ErrIO, rec.Name, err)
	}
	defer func() { _ = f.Close() }()

	log.Printf("[Backup] Restoring %s into %s", rec.Name, m.opts.PanelRoot)
	if err := archive.Extract(ctx, f, m.opts.PanelRoot); err != nil {
		log.Printf("[Backup] Restore of %s failed: %v", rec.Name, err)
		return fmt.Errorf("%w: extract %s: %v", apperr.ErrBackup, rec.Name, err)
	}

	if err := m.FixOwnership(ctx); err != nil {
		return err
	}

	log.Printf("[Backup] Restored %s", rec.Name)
	return nil
}

// FixOwnership gives the panel tree to the configured web user.
func (m *Manager) FixOwnership(ctx context.Context) error {
	if m.opts.Owner == "" {
		return nil
	}
	res, err := m.run.Run(ctx, runner.Command{
		Name: "chown",
		Args: []string{"-R", m.opts.Owner, m.opts.PanelRoot},
	})
	if err != nil {
		return fmt.Errorf("%w: chown %s exited with code %d", apperr.ErrBackup, m.opts.PanelRoot, runner.ExitCode(res))
	}
	return nil
}

// RestoreDatabase feeds a .sql dump to the database client. Nothing is
// touched unless confirmed is true.
func (m *Manager) RestoreDatabase(ctx context.Context, rec *models.BackupRecord, creds Credentials, confirmed bool) error {
	if !confirmed {
		return apperr.ErrConfirmationDeclined
	}
	if rec == nil || rec.Kind != models.KindDatabase {
		return fmt.Errorf("%w: not a database backup", apperr.ErrValidation)
	}

	f, err := os.Open(rec.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: backup %q", apperr.ErrNotFound, rec.Name)
		}
		return fmt.Errorf("%w: open %s: %v", apperr.ErrIO, rec.Name, err)
	}
	defer func() { _ = f.Close() }()

	params := m.DatabaseParams()
	log.Printf("[Backup] Restoring %s into database %s@%s", rec.Name, params.Name, params.Host)

	res, err := m.run.Run(ctx, runner.Command{
		Name:  m.opts.RestoreBinary,
		Args:  append(params.args(), params.Name),
		Env:   passwordEnv(creds),
		Stdin: f,
	})
	if err != nil {
		log.Printf("[Backup] Database restore failed with exit code %d", runner.ExitCode(res))
		return toolError(m.opts.RestoreBinary, res)
	}

	log.Printf("[Backup] Restored %s", rec.Name)
	return nil
}
