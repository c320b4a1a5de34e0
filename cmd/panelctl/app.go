package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/user"

	"github.com/pandeptwidyaop/panelctl/internal/backup"
	"github.com/pandeptwidyaop/panelctl/internal/config"
	"github.com/pandeptwidyaop/panelctl/internal/console"
	"github.com/pandeptwidyaop/panelctl/internal/database"
	"github.com/pandeptwidyaop/panelctl/internal/envfile"
	"github.com/pandeptwidyaop/panelctl/internal/history"
	"github.com/pandeptwidyaop/panelctl/internal/panel"
	"github.com/pandeptwidyaop/panelctl/internal/runner"
	"github.com/pandeptwidyaop/panelctl/internal/service"
	"github.com/pandeptwidyaop/panelctl/internal/update"
)

// noEnv stands in for a missing environment file so database settings
// fall back to their defaults.
type noEnv struct{}

func (noEnv) Lookup(_, def string) string { return def }

// app holds the wired components for one invocation.
type app struct {
	deps    console.Deps
	db      *database.DB
	logFile *os.File
}

// newApp loads configuration, sets up logging and wires every component.
// Only an unusable history database or env file degrade to a warning.
func newApp(configPath string, interactive bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Warning: Could not load config from %s: %v", configPath, err)
		log.Println("Using default configuration...")
		cfg, _ = config.Load("")
	}

	a := &app{}
	a.setupLogging(cfg.Logging.File, interactive)

	var envReader backup.EnvReader = noEnv{}
	env, err := envfile.Open(cfg.Panel.EnvPath())
	if err != nil {
		log.Printf("[Console] Warning: %v", err)
		env = nil
	} else {
		envReader = env
	}

	var hist *history.Service
	db, err := database.New(cfg.History.Path)
	if err == nil {
		err = db.Migrate()
	}
	if err != nil {
		log.Printf("[Console] Warning: operation history disabled: %v", err)
		if db != nil {
			_ = db.Close()
		}
	} else {
		a.db = db
		hist = history.NewService(db, operator())
	}

	run := runner.New()
	backups := backup.New(backup.Options{
		PanelRoot:     cfg.Panel.Root,
		Dir:           cfg.Backup.Dir,
		Owner:         cfg.Panel.Owner(),
		DumpBinary:    cfg.Backup.DumpBinary,
		RestoreBinary: cfg.Backup.RestoreBinary,
		MinFreeBytes:  cfg.Backup.MinFreeBytes,
	}, envReader, run)
	pnl := panel.New(cfg.Panel.Root, cfg.Panel.PHPBinary, run)

	a.deps = console.Deps{
		Config:   cfg,
		Env:      env,
		Backups:  backups,
		Panel:    pnl,
		Services: service.NewManager(run, cfg.Services.Names()),
		Updater: update.New(update.Options{
			Repository: cfg.Update.Repository,
			Asset:      cfg.Update.Asset,
			Composer:   cfg.Panel.Composer,
		}, pnl, backups, run),
		History:     hist,
		Runner:      run,
		Interactive: run,
	}
	return a, nil
}

// setupLogging sends the log to the configured file. Interactive sessions
// log to the file only so the menu stays readable.
func (a *app) setupLogging(path string, interactive bool) {
	log.SetFlags(log.LstdFlags)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		log.Printf("Warning: Could not open log file %s: %v", path, err)
		return
	}
	a.logFile = f
	if interactive {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(f, os.Stderr))
	}
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}
	if a.logFile != nil {
		log.SetOutput(os.Stderr)
		_ = a.logFile.Close()
	}
}

func (a *app) controller(in console.InputProvider) *console.Controller {
	return console.New(a.deps, in, os.Stdout)
}

// track records a non-interactive command in the history.
func (a *app) track(action, target string, fn func() error) error {
	if a.deps.History == nil {
		return fn()
	}
	return a.deps.History.Track(action, target, fn)
}

// operator names who is running the console, preferring the sudo caller.
func operator() string {
	if u := os.Getenv("SUDO_USER"); u != "" {
		return u
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}

func requireEnv(a *app) (*envfile.Store, error) {
	if a.deps.Env == nil {
		return nil, fmt.Errorf("environment file %s is not available", a.deps.Config.Panel.EnvPath())
	}
	return a.deps.Env, nil
}
