package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hpcloud/tail"

	"github.com/pandeptwidyaop/panelctl/internal/apperr"
	"github.com/pandeptwidyaop/panelctl/internal/backup"
	"github.com/pandeptwidyaop/panelctl/internal/models"
	"github.com/pandeptwidyaop/panelctl/internal/sysinfo"
	"github.com/pandeptwidyaop/panelctl/internal/update"
	"github.com/pandeptwidyaop/panelctl/internal/validation"
)

// tailContext is how much of the existing log is shown before following.
const tailContext = 4096

func (c *Controller) serviceMenu(ctx context.Context) error {
	return c.loop(ctx, "Services", "Back", []menuItem{
		{"Show status", c.showServices},
		{"Restart a service", c.restartService},
		{"Restart all services", func(ctx context.Context) error {
			return c.do("Restart all services", strings.Join(c.Services.Names(), ","), func() error {
				return c.Services.RestartAll(ctx)
			})
		}},
	})
}

func (c *Controller) showServices(ctx context.Context) error {
	all, err := c.Services.StatusAll(ctx)
	if err != nil {
		c.report("Service status", err)
		return err
	}
	rows := make([][]string, 0, len(all))
	for _, st := range all {
		enabled := "no"
		if st.IsEnabled {
			enabled = "yes"
		}
		state := st.ActiveState
		if st.IsRunning {
			state = styleOK.Render(state)
		} else {
			state = styleFail.Render(state)
		}
		rows = append(rows, []string{st.Name, state, st.SubState, enabled})
	}
	c.table([]string{"SERVICE", "ACTIVE", "SUB", "ENABLED"}, rows)
	return nil
}

func (c *Controller) restartService(ctx context.Context) error {
	names := c.Services.Names()
	i, err := c.pick("Service", names)
	if err != nil || i < 0 {
		return err
	}
	name := names[i]
	return c.do("Restart "+name, name, func() error {
		return c.Services.Restart(ctx, name)
	})
}

// newestLog returns the most recently modified log in storage/logs.
func newestLog(root string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(root, "storage", "logs", "*.log"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no log files in %s", apperr.ErrNotFound, filepath.Join(root, "storage", "logs"))
	}
	type candidate struct {
		path string
		mod  time.Time
	}
	var found []candidate
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil {
			found = append(found, candidate{m, info.ModTime()})
		}
	}
	if len(found) == 0 {
		return "", fmt.Errorf("%w: no readable log files", apperr.ErrNotFound)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].mod.After(found[j].mod) })
	return found[0].path, nil
}

// tailLog follows the newest panel log until the operator presses Enter.
func (c *Controller) tailLog(ctx context.Context) error {
	path, err := newestLog(c.Config.Panel.Root)
	if err != nil {
		c.report("Tail log", err)
		return err
	}

	offset := int64(0)
	if info, err := os.Stat(path); err == nil && info.Size() > tailContext {
		offset = info.Size() - tailContext
	}
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: true,
		Poll:      true,
		Location:  &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		c.report("Tail log", err)
		return err
	}

	c.info("%s", styleHelp.Render("Following "+path+", press Enter to stop."))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for line := range t.Lines {
			if line.Err != nil {
				continue
			}
			fmt.Fprintln(c.out, line.Text)
		}
	}()

	_, readErr := c.in.ReadLine("")
	_ = t.Stop()
	<-done
	t.Cleanup()
	if readErr != nil {
		return inputError{readErr}
	}
	return nil
}

// artisanPassthrough runs an arbitrary artisan command attached to the
// terminal.
func (c *Controller) artisanPassthrough(ctx context.Context) error {
	line, err := c.readLine("php artisan ")
	if err != nil {
		return err
	}
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	if err := validation.ValidateArguments(args, 4096); err != nil {
		c.report("artisan "+args[0], err)
		return err
	}

	cmd := c.Panel.Command(args...)
	return c.do("artisan "+args[0], strings.Join(args, " "), func() error {
		if c.Interactive != nil {
			return c.Interactive.RunInteractive(ctx, cmd)
		}
		cmd.OnLine = func(l string) { fmt.Fprintln(c.out, l) }
		_, err := c.Runner.Run(ctx, cmd)
		return err
	})
}

func (c *Controller) updatePanel(ctx context.Context) error {
	current, err := c.Panel.Version(ctx)
	if err != nil {
		c.info("%s %v", styleWarn.Render("Could not determine the installed version:"), err)
	}
	c.field("Installed version", current)

	release, err := c.Updater.CheckLatestVersion(ctx)
	if err != nil {
		c.report("Check for updates", err)
		return err
	}
	c.field("Latest release", release.TagName)

	force := false
	if !update.NeedsUpdate(current, release.TagName) {
		c.info("The panel is up to date.")
		if force, err = c.confirm("Reinstall the current release anyway?"); err != nil || !force {
			return err
		}
	}

	backupFirst, err := c.confirm("Create a full backup before updating?")
	if err != nil {
		return err
	}
	var creds backup.Credentials
	if backupFirst {
		if creds, err = c.credentials(); err != nil {
			return err
		}
	}
	ok, err := c.confirm(fmt.Sprintf("Update the panel to %s now?", release.TagName))
	if err != nil {
		return err
	}

	if ok && backupFirst {
		if err := c.runFullBackup(ctx, creds); err != nil {
			proceed, cerr := c.confirm("The backup did not fully succeed. Update anyway?")
			if cerr != nil {
				return cerr
			}
			ok = proceed
		}
	}

	return c.do("Update panel", release.TagName, func() error {
		if !ok {
			return apperr.ErrConfirmationDeclined
		}
		lastPct := -1
		res, err := c.Updater.Run(ctx, update.RunOptions{
			CurrentVersion: current,
			Force:          true,
			Progress: func(downloaded, total int64) {
				if total <= 0 {
					return
				}
				if pct := int(downloaded * 100 / total); pct/10 != lastPct/10 {
					lastPct = pct
					c.info("  downloaded %s of %s", humanize.IBytes(uint64(downloaded)), humanize.IBytes(uint64(total)))
				}
			},
			Step: func(s string) { c.info("  %s", s) },
		})
		if err != nil {
			return err
		}
		if res.Updated {
			c.info("Panel updated to %s.", res.Latest)
		}
		return nil
	})
}

// Status prints the panel, host, backup and service overview.
func (c *Controller) Status(ctx context.Context) error {
	fmt.Fprintln(c.out, styleTitle.Render("Status"))

	if v, err := c.Panel.Version(ctx); err == nil {
		c.field("Panel version", v)
	} else {
		c.field("Panel version", styleFail.Render(err.Error()))
	}
	maint := "off"
	if c.Panel.IsInMaintenance() {
		maint = styleWarn.Render("on")
	}
	c.field("Maintenance mode", maint)

	host := sysinfo.Host(ctx)
	if host.Hostname != "" {
		now := time.Now()
		up := humanize.RelTime(now.Add(-time.Duration(host.Uptime)*time.Second), now, "", "")
		c.field("Host", fmt.Sprintf("%s (%s), up %s", host.Hostname, host.Platform, strings.TrimSpace(up)))
	}
	if len(host.LoadAvg) == 3 {
		c.field("Load", fmt.Sprintf("%.2f %.2f %.2f", host.LoadAvg[0], host.LoadAvg[1], host.LoadAvg[2]))
	}
	if host.MemTotal > 0 {
		c.field("Memory", fmt.Sprintf("%s of %s used (%.0f%%)",
			humanize.IBytes(host.MemUsed), humanize.IBytes(host.MemTotal), host.MemUsedPerc))
	}

	diskPath := c.Backups.Dir()
	if _, err := os.Stat(diskPath); err != nil {
		diskPath = filepath.Dir(diskPath)
	}
	if du, err := sysinfo.Disk(ctx, diskPath); err == nil {
		c.field("Backup disk", fmt.Sprintf("%s free of %s (%.0f%% used)",
			humanize.IBytes(du.Free), humanize.IBytes(du.Total), du.UsedPercent))
	}

	var count int
	var latest *models.BackupRecord
	for rec, err := range c.Backups.ListBackups() {
		if err != nil {
			continue
		}
		if latest == nil {
			latest = rec
		}
		count++
	}
	if latest != nil {
		c.field("Backups", fmt.Sprintf("%d, latest %s (%s)", count, latest.Name, humanize.Time(latest.ModTime)))
	} else {
		c.field("Backups", "none")
	}

	if all, err := c.Services.StatusAll(ctx); err == nil {
		parts := make([]string, 0, len(all))
		for _, st := range all {
			parts = append(parts, st.Name+"="+st.ActiveState)
		}
		c.field("Services", strings.Join(parts, " "))
	} else {
		c.field("Services", err.Error())
	}
	return nil
}

// ShowHistory prints the most recent recorded operations.
func (c *Controller) ShowHistory(ctx context.Context) error {
	if c.History == nil {
		c.info("Operation history is not available.")
		return nil
	}
	ops, err := c.History.Recent(20)
	if err != nil {
		c.report("Read history", err)
		return err
	}
	if len(ops) == 0 {
		c.info("No operations recorded yet.")
		return nil
	}
	rows := make([][]string, 0, len(ops))
	for _, op := range ops {
		dur := ""
		if op.FinishedAt != nil {
			dur = op.Duration().Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			op.StartedAt.Local().Format("2006-01-02 15:04:05"),
			op.Action,
			op.Target,
			string(op.Status),
			dur,
			op.Detail,
		})
	}
	c.table([]string{"STARTED", "ACTION", "TARGET", "STATUS", "TOOK", "DETAIL"}, rows)
	return nil
}
