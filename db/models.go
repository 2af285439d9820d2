package db

import (
	"gorm.io/gorm"
)

// Backup represents one backup archive written before an update run
type Backup struct {
	gorm.Model
	RunID string       `gorm:"index"`
	Path  string       `gorm:"uniqueIndex"` // Absolute path of the zip archive
	Files []BackupFile // Mod files stored in the archive
}

// BackupFile is a mod file stored inside a backup archive
type BackupFile struct {
	gorm.Model
	BackupID uint   `gorm:"index"`
	FileName string // Name of the file in the mods directory and in the archive
	SHA1     string // Checksum of the file at backup time
	Size     int64
}

// ModUpdate records a mod file replaced during an update run
type ModUpdate struct {
	gorm.Model
	RunID       string `gorm:"index"`
	ModID       string `gorm:"index"` // ModDB mod identifier
	Name        string
	OldVersion  string
	NewVersion  string
	OldFileName string // File that was replaced
	NewFileName string // File that was written
	BackupPath  string // Archive holding OldFileName, if any
	Forced      bool
}
