package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Panel    PanelConfig    `yaml:"panel"`
	Backup   BackupConfig   `yaml:"backup"`
	Services ServicesConfig `yaml:"services"`
	Logging  LoggingConfig  `yaml:"logging"`
	History  HistoryConfig  `yaml:"history"`
	Update   UpdateConfig   `yaml:"update"`
}

type PanelConfig struct {
	Root      string `yaml:"root"`
	EnvFile   string `yaml:"env_file"`
	WebUser   string `yaml:"web_user"`
	WebGroup  string `yaml:"web_group"`
	PHPBinary string `yaml:"php_binary"`
	Composer  string `yaml:"composer_binary"`
}

type BackupConfig struct {
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
	DumpBinary    string `yaml:"dump_binary"`
	RestoreBinary string `yaml:"restore_binary"`
	MinFreeBytes  uint64 `yaml:"min_free_bytes"`
}

type ServicesConfig struct {
	Web         string `yaml:"web"`
	PHPFPM      string `yaml:"php_fpm"`
	QueueWorker string `yaml:"queue_worker"`
	Cache       string `yaml:"cache"`
}

type LoggingConfig struct {
	File string `yaml:"file"`
}

type HistoryConfig struct {
	Path string `yaml:"path"`
}

type UpdateConfig struct {
	Repository string `yaml:"repository"`
	Asset      string `yaml:"asset"`
}

// Names returns the configured service units in restart order, skipping empty entries.
func (s *ServicesConfig) Names() []string {
	var names []string
	for _, n := range []string{s.Web, s.PHPFPM, s.QueueWorker, s.Cache} {
		if n != "" {
			names = append(names, n)
		}
	}
	return names
}

// EnvPath returns the absolute path of the panel environment file.
func (p *PanelConfig) EnvPath() string {
	if filepath.IsAbs(p.EnvFile) {
		return p.EnvFile
	}
	return filepath.Join(p.Root, p.EnvFile)
}

// Owner returns the user:group pair that should own the panel files.
func (p *PanelConfig) Owner() string {
	return p.WebUser + ":" + p.WebGroup
}

func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	setDefaults(&cfg)

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Panel.Root == "" {
		cfg.Panel.Root = "/var/www/pterodactyl"
	}
	if cfg.Panel.EnvFile == "" {
		cfg.Panel.EnvFile = ".env"
	}
	if cfg.Panel.WebUser == "" {
		cfg.Panel.WebUser = "www-data"
	}
	if cfg.Panel.WebGroup == "" {
		cfg.Panel.WebGroup = cfg.Panel.WebUser
	}
	if cfg.Panel.PHPBinary == "" {
		cfg.Panel.PHPBinary = "php"
	}
	if cfg.Panel.Composer == "" {
		cfg.Panel.Composer = "composer"
	}
	if cfg.Backup.Dir == "" {
		cfg.Backup.Dir = "/var/backups/panel"
	}
	if cfg.Backup.RetentionDays == 0 {
		cfg.Backup.RetentionDays = 30
	}
	if cfg.Backup.DumpBinary == "" {
		cfg.Backup.DumpBinary = "mysqldump"
	}
	if cfg.Backup.RestoreBinary == "" {
		cfg.Backup.RestoreBinary = "mysql"
	}
	if cfg.Backup.MinFreeBytes == 0 {
		cfg.Backup.MinFreeBytes = 1 << 30
	}
	if cfg.Services.Web == "" {
		cfg.Services.Web = "nginx"
	}
	if cfg.Services.PHPFPM == "" {
		cfg.Services.PHPFPM = "php8.3-fpm"
	}
	if cfg.Services.QueueWorker == "" {
		cfg.Services.QueueWorker = "pteroq"
	}
	if cfg.Services.Cache == "" {
		cfg.Services.Cache = "redis-server"
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = "/var/log/panelctl.log"
	}
	if cfg.History.Path == "" {
		cfg.History.Path = "/var/lib/panelctl/history.db"
	}
	if cfg.Update.Repository == "" {
		cfg.Update.Repository = "pterodactyl/panel"
	}
	if cfg.Update.Asset == "" {
		cfg.Update.Asset = "panel.tar.gz"
	}
}
