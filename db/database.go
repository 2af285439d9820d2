package db

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned when no matching history record exists.
var ErrNotFound = errors.New("record not found")

// Store is the local update history backed by SQLite.
type Store struct {
	DB *gorm.DB
}

// Open opens the SQLite database at dbPath and migrates the schema.
func Open(dbPath string) (*Store, error) {
	// Warnings only, no colours: output may be a plain log stream
	newLogger := gormlogger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      false,
			Colorful:                  false,
		},
	)

	gdb, err := gorm.Open(gormlite.Open(dbPath), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := gdb.AutoMigrate(&Backup{}, &BackupFile{}, &ModUpdate{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return &Store{DB: gdb}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordBackup stores a backup archive together with its files.
func (s *Store) RecordBackup(b *Backup) error {
	if err := s.DB.Create(b).Error; err != nil {
		return fmt.Errorf("failed to save backup '%s': %w", b.Path, err)
	}
	return nil
}

// BackupByPath loads the backup record for an archive path.
func (s *Store) BackupByPath(path string) (*Backup, error) {
	var b Backup
	err := s.DB.Preload("Files").Where("path = ?", path).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query backup '%s': %w", path, err)
	}
	return &b, nil
}

// ForgetBackups removes the records of archives that were pruned from disk.
func (s *Store) ForgetBackups(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&Backup{}).Where("path IN ?", paths).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Unscoped().Where("backup_id IN ?", ids).Delete(&BackupFile{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("id IN ?", ids).Delete(&Backup{}).Error
	})
}

// RecordUpdate stores one replaced mod file.
func (s *Store) RecordUpdate(u *ModUpdate) error {
	if err := s.DB.Create(u).Error; err != nil {
		return fmt.Errorf("failed to save update of '%s': %w", u.ModID, err)
	}
	return nil
}

// LatestUpdate returns the most recent update recorded for modID.
func (s *Store) LatestUpdate(modID string) (*ModUpdate, error) {
	var u ModUpdate
	err := s.DB.Where("mod_id = ?", modID).Order("created_at DESC").Order("id DESC").First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query update history for '%s': %w", modID, err)
	}
	return &u, nil
}

// DeleteUpdate removes an update record once it has been rolled back.
func (s *Store) DeleteUpdate(u *ModUpdate) error {
	return s.DB.Delete(u).Error
}
