package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pandeptwidyaop/panelctl/internal/apperr"
	"github.com/pandeptwidyaop/panelctl/internal/backup"
	"github.com/pandeptwidyaop/panelctl/internal/console"
	"github.com/pandeptwidyaop/panelctl/internal/models"
)

var (
	flagBackupKind string
	flagListJSON   bool
	flagYes        bool
	flagPruneDays  int
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, list, restore, verify and prune backups",
}

var stdin *console.TerminalInput

// terminal returns the one reader shared by every prompt so piped answers
// are not lost between buffers.
func terminal() *console.TerminalInput {
	if stdin == nil {
		stdin = console.NewTerminalInput(os.Stderr)
	}
	return stdin
}

// readPassword prompts for the database password. Without a terminal it
// is read from stdin so scheduled jobs can pipe it in.
func readPassword() (backup.Credentials, error) {
	pw, err := terminal().ReadSecret("Database password: ")
	if err != nil {
		return backup.Credentials{}, err
	}
	return backup.Credentials{Password: pw}, nil
}

func confirmed(question string) (bool, error) {
	if flagYes {
		return true, nil
	}
	return terminal().Confirm(question)
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a files, database or full backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := models.BackupKind(flagBackupKind)
		switch kind {
		case models.KindFiles, models.KindDatabase, models.KindFull:
		default:
			return fmt.Errorf("--kind must be files, database or full, got %q", flagBackupKind)
		}

		a, err := newApp(flagConfig, false)
		if err != nil {
			return err
		}
		defer a.close()
		m := a.deps.Backups
		ctx := cmd.Context()

		if kind == models.KindFiles {
			return a.track("Files backup", a.deps.Config.Panel.Root, func() error {
				rec, err := m.CreateFilesBackup(ctx)
				if err == nil {
					fmt.Printf("%s\t%s\n", rec.Path, humanize.IBytes(uint64(rec.Size)))
				}
				return err
			})
		}

		creds, err := readPassword()
		if err != nil {
			return err
		}
		if kind == models.KindDatabase {
			return a.track("Database backup", m.DatabaseParams().Name, func() error {
				rec, err := m.CreateDatabaseBackup(ctx, creds)
				if err == nil {
					fmt.Printf("%s\t%s\n", rec.Path, humanize.IBytes(uint64(rec.Size)))
				}
				return err
			})
		}
		return a.track("Full backup", a.deps.Config.Panel.Root, func() error {
			res, err := m.CreateFullBackup(ctx, creds)
			for _, rec := range []*models.BackupRecord{res.Files, res.Database} {
				if rec != nil {
					fmt.Printf("%s\t%s\n", rec.Path, humanize.IBytes(uint64(rec.Size)))
				}
			}
			return err
		})
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List existing backups",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flagConfig, false)
		if err != nil {
			return err
		}
		defer a.close()

		recs, err := a.deps.Backups.List(models.BackupKind(flagBackupKind))
		if err != nil {
			return err
		}
		if flagListJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(recs)
		}
		tw := tablewriter.NewWriter(os.Stdout)
		tw.SetHeader([]string{"NAME", "KIND", "SIZE", "CREATED"})
		for _, r := range recs {
			tw.Append([]string{r.Name, string(r.Kind), humanize.IBytes(uint64(r.Size)), r.CreatedAt.Format(time.RFC3339)})
		}
		tw.Render()
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore NAME",
	Short: "Restore a files archive or database dump",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flagConfig, false)
		if err != nil {
			return err
		}
		defer a.close()
		m := a.deps.Backups

		rec, err := m.Find(args[0])
		if err != nil {
			return err
		}
		ok, err := confirmed(fmt.Sprintf("Restore %s? This overwrites current data.", rec.Name))
		if err != nil {
			return err
		}

		if rec.Kind == models.KindDatabase {
			var creds backup.Credentials
			if ok {
				if creds, err = readPassword(); err != nil {
					return err
				}
			}
			return a.track("Restore database", rec.Name, func() error {
				return m.RestoreDatabase(cmd.Context(), rec, creds, ok)
			})
		}
		return a.track("Restore files", rec.Name, func() error {
			return m.RestoreFiles(cmd.Context(), rec, ok)
		})
	},
}

var backupVerifyCmd = &cobra.Command{
	Use:   "verify NAME",
	Short: "Check a backup against its checksum",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flagConfig, false)
		if err != nil {
			return err
		}
		defer a.close()

		rec, err := a.deps.Backups.Find(args[0])
		if err != nil {
			return err
		}
		return a.track("Verify backup", rec.Name, func() error {
			if err := a.deps.Backups.Verify(rec); err != nil {
				return err
			}
			fmt.Printf("%s: OK\n", rec.Name)
			return nil
		})
	},
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete backups older than the retention period",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(flagConfig, false)
		if err != nil {
			return err
		}
		defer a.close()

		days := flagPruneDays
		if days == 0 {
			days = a.deps.Config.Backup.RetentionDays
		}
		ok, err := confirmed(fmt.Sprintf("Delete every backup older than %d days?", days))
		if err != nil {
			return err
		}
		return a.track("Prune backups", fmt.Sprintf("%dd", days), func() error {
			if !ok {
				return apperr.ErrConfirmationDeclined
			}
			res, err := a.deps.Backups.PruneOlderThan(days)
			if err != nil {
				return err
			}
			for _, name := range res.Deleted {
				fmt.Printf("deleted %s\n", name)
			}
			for name, ferr := range res.Failed {
				fmt.Fprintf(os.Stderr, "could not delete %s: %v\n", name, ferr)
			}
			return nil
		})
	},
}

func init() {
	backupCreateCmd.Flags().StringVar(&flagBackupKind, "kind", "full", "files, database or full")
	backupListCmd.Flags().StringVar(&flagBackupKind, "kind", "", "only list files or database backups")
	backupListCmd.Flags().BoolVar(&flagListJSON, "json", false, "Output JSON")
	backupRestoreCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "do not ask for confirmation")
	backupPruneCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "do not ask for confirmation")
	backupPruneCmd.Flags().IntVar(&flagPruneDays, "days", 0, "age in days (default: backup.retention_days)")

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupVerifyCmd)
	backupCmd.AddCommand(backupPruneCmd)
}
