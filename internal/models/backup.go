package models

import "time"

// BackupKind identifies what a backup artifact contains.
type BackupKind string

const (
	// KindFiles is a compressed archive of the panel directory.
	KindFiles BackupKind = "files"
	// KindDatabase is a SQL dump of the panel database.
	KindDatabase BackupKind = "database"
	// KindFull is a files archive plus a database dump taken together.
	KindFull BackupKind = "full"
)

// Extension returns the file extension used for artifacts of this kind.
func (k BackupKind) Extension() string {
	switch k {
	case KindFiles:
		return "tar.gz"
	case KindDatabase:
		return "sql"
	}
	return ""
}

// BackupRecord describes one backup artifact on disk.
type BackupRecord struct {
	CreatedAt time.Time  `json:"created_at"`
	ModTime   time.Time  `json:"mod_time"`
	Kind      BackupKind `json:"kind"`
	Name      string     `json:"name"`
	Path      string     `json:"path"`
	Size      int64      `json:"size"`
}

// Age returns how long ago the artifact was last modified.
func (r *BackupRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.ModTime)
}
