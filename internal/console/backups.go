package console

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pandeptwidyaop/panelctl/internal/apperr"
	"github.com/pandeptwidyaop/panelctl/internal/backup"
	"github.com/pandeptwidyaop/panelctl/internal/models"
)

func (c *Controller) backupMenu(ctx context.Context) error {
	return c.loop(ctx, "Backups", "Back", []menuItem{
		{"Create files backup", c.createFilesBackup},
		{"Create database backup", c.createDatabaseBackup},
		{"Create full backup", c.createFullBackup},
		{"List backups", c.ListBackups},
		{"Restore files", c.restoreFiles},
		{"Restore database", c.restoreDatabase},
		{"Verify a backup", c.verifyBackup},
		{"Delete a backup", c.deleteBackup},
		{"Prune old backups", c.pruneBackups},
	})
}

func (c *Controller) credentials() (backup.Credentials, error) {
	pw, err := c.readSecret("Database password: ")
	if err != nil {
		return backup.Credentials{}, err
	}
	return backup.Credentials{Password: pw}, nil
}

func (c *Controller) createFilesBackup(ctx context.Context) error {
	return c.do("Files backup", c.Config.Panel.Root, func() error {
		rec, err := c.Backups.CreateFilesBackup(ctx)
		if err != nil {
			return err
		}
		c.info("Created %s (%s)", rec.Name, humanize.IBytes(uint64(rec.Size)))
		return nil
	})
}

func (c *Controller) createDatabaseBackup(ctx context.Context) error {
	creds, err := c.credentials()
	if err != nil {
		return err
	}
	params := c.Backups.DatabaseParams()
	return c.do("Database backup", params.Name, func() error {
		rec, err := c.Backups.CreateDatabaseBackup(ctx, creds)
		if err != nil {
			return err
		}
		c.info("Created %s (%s)", rec.Name, humanize.IBytes(uint64(rec.Size)))
		return nil
	})
}

func (c *Controller) createFullBackup(ctx context.Context) error {
	creds, err := c.credentials()
	if err != nil {
		return err
	}
	return c.runFullBackup(ctx, creds)
}

func (c *Controller) runFullBackup(ctx context.Context, creds backup.Credentials) error {
	return c.do("Full backup", c.Config.Panel.Root, func() error {
		res, err := c.Backups.CreateFullBackup(ctx, creds)
		c.half("Files", res.Files, res.FilesErr)
		c.half("Database", res.Database, res.DatabaseErr)
		return err
	})
}

func (c *Controller) half(label string, rec *models.BackupRecord, err error) {
	if err != nil {
		c.info("  %s %s: %v", styleFail.Render("✘"), label, err)
		return
	}
	c.info("  %s %s: %s", styleOK.Render("✔"), label, rec.Name)
}

// ListBackups prints every backup as a table.
func (c *Controller) ListBackups(ctx context.Context) error {
	recs, err := c.Backups.List("")
	if err != nil {
		c.report("List backups", err)
		return err
	}
	if len(recs) == 0 {
		c.info("No backups in %s.", c.Backups.Dir())
		return nil
	}
	now := time.Now()
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []string{
			r.Name,
			string(r.Kind),
			humanize.IBytes(uint64(r.Size)),
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			humanize.RelTime(now.Add(-r.Age(now)), now, "ago", "from now"),
		})
	}
	c.table([]string{"NAME", "KIND", "SIZE", "CREATED", "AGE"}, rows)
	return nil
}

// selectBackup lists backups of kind and lets the operator pick one.
// It returns nil when the operator cancels or there is nothing to pick.
func (c *Controller) selectBackup(kind models.BackupKind) (*models.BackupRecord, error) {
	recs, err := c.Backups.List(kind)
	if err != nil {
		c.report("List backups", err)
		return nil, err
	}
	if len(recs) == 0 {
		c.info("No backups available.")
		return nil, nil
	}
	labels := make([]string, len(recs))
	for i, r := range recs {
		labels[i] = fmt.Sprintf("%s (%s)", r.Name, humanize.IBytes(uint64(r.Size)))
	}
	i, err := c.pick("Backup", labels)
	if err != nil || i < 0 {
		return nil, err
	}
	return recs[i], nil
}

func (c *Controller) restoreFiles(ctx context.Context) error {
	rec, err := c.selectBackup(models.KindFiles)
	if err != nil || rec == nil {
		return err
	}
	fmt.Fprintln(c.out, styleWarn.Render(fmt.Sprintf(
		"Restoring %s overwrites files in %s. This cannot be undone.", rec.Name, c.Config.Panel.Root)))
	ok, err := c.confirm("Restore files now?")
	if err != nil {
		return err
	}
	return c.do("Restore files", rec.Name, func() error {
		return c.Backups.RestoreFiles(ctx, rec, ok)
	})
}

func (c *Controller) restoreDatabase(ctx context.Context) error {
	rec, err := c.selectBackup(models.KindDatabase)
	if err != nil || rec == nil {
		return err
	}
	params := c.Backups.DatabaseParams()
	fmt.Fprintln(c.out, styleWarn.Render(fmt.Sprintf(
		"Restoring %s replaces the contents of database %s on %s. This cannot be undone.", rec.Name, params.Name, params.Host)))
	ok, err := c.confirm("Restore database now?")
	if err != nil {
		return err
	}
	var creds backup.Credentials
	if ok {
		if creds, err = c.credentials(); err != nil {
			return err
		}
	}
	return c.do("Restore database", rec.Name, func() error {
		return c.Backups.RestoreDatabase(ctx, rec, creds, ok)
	})
}

func (c *Controller) verifyBackup(ctx context.Context) error {
	rec, err := c.selectBackup("")
	if err != nil || rec == nil {
		return err
	}
	return c.do("Verify backup", rec.Name, func() error {
		return c.Backups.Verify(rec)
	})
}

func (c *Controller) deleteBackup(ctx context.Context) error {
	rec, err := c.selectBackup("")
	if err != nil || rec == nil {
		return err
	}
	ok, err := c.confirm(fmt.Sprintf("Delete %s?", rec.Name))
	if err != nil {
		return err
	}
	return c.do("Delete backup", rec.Name, func() error {
		return c.Backups.Delete(rec, ok)
	})
}

func (c *Controller) pruneBackups(ctx context.Context) error {
	def := c.Config.Backup.RetentionDays
	answer, err := c.readLine(fmt.Sprintf("Delete backups older than how many days? [%d]: ", def))
	if err != nil {
		return err
	}
	days := def
	if answer != "" {
		days, err = strconv.Atoi(answer)
		if err != nil {
			err = fmt.Errorf("%w: %q is not a number of days", apperr.ErrValidation, answer)
			c.report("Prune backups", err)
			return err
		}
	}
	ok, err := c.confirm(fmt.Sprintf("Delete every backup older than %d days?", days))
	if err != nil {
		return err
	}

	return c.do("Prune backups", strconv.Itoa(days)+"d", func() error {
		if !ok {
			return apperr.ErrConfirmationDeclined
		}
		res, err := c.Backups.PruneOlderThan(days)
		if err != nil {
			return err
		}
		for _, name := range res.Deleted {
			c.info("  deleted %s", name)
		}
		for name, ferr := range res.Failed {
			c.info("  %s %s: %v", styleFail.Render("could not delete"), name, ferr)
		}
		c.info("%d deleted, %d failed.", len(res.Deleted), len(res.Failed))
		return nil
	})
}
