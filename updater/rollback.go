package updater

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"vs-mods-updater/db"

	"go.uber.org/zap"
)

// RollbackStore is the part of the history needed to undo an update.
type RollbackStore interface {
	LatestUpdate(modID string) (*db.ModUpdate, error)
	BackupByPath(path string) (*db.Backup, error)
	DeleteUpdate(u *db.ModUpdate) error
}

// Rollback restores the file replaced by the most recent update of modID from
// its backup archive and removes the file that update wrote.
func Rollback(store RollbackStore, modID, modsDir string, log *zap.SugaredLogger) (*db.ModUpdate, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	u, err := store.LatestUpdate(modID)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("mod", u.Name), zap.String("modid", modID))

	if u.BackupPath == "" {
		return nil, fmt.Errorf("update of '%s' to %s has no backup archive", modID, u.NewVersion)
	}
	if _, err := os.Stat(u.BackupPath); err != nil {
		return nil, fmt.Errorf("backup archive not available: %w", err)
	}

	var sum string
	b, err := store.BackupByPath(u.BackupPath)
	switch {
	case errors.Is(err, db.ErrNotFound):
		log.Warnw("Backup archive has no history record, restoring without checksum", zap.String("archive", u.BackupPath))
	case err != nil:
		return nil, err
	default:
		for _, f := range b.Files {
			if f.FileName == u.OldFileName {
				sum = f.SHA1
				break
			}
		}
	}

	log.Infow("Restoring previous version",
		zap.String("file", u.OldFileName),
		zap.String("version", u.OldVersion),
		zap.String("archive", u.BackupPath))
	if err := Restore(u.BackupPath, u.OldFileName, modsDir, sum); err != nil {
		return nil, err
	}

	if u.NewFileName != "" && u.NewFileName != u.OldFileName {
		current := filepath.Join(modsDir, u.NewFileName)
		if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
			log.Warnw("Failed to remove current version", zap.String("file", u.NewFileName), zap.Error(err))
		}
	}

	if err := store.DeleteUpdate(u); err != nil {
		log.Warnw("Failed to delete history record", zap.String("version", u.NewVersion), zap.Error(err))
	}
	return u, nil
}
