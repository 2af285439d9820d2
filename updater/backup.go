package updater

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"vs-mods-updater/db"
	"vs-mods-updater/mods"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

const (
	backupPrefix = "backup_"
	backupExt    = ".zip"
	backupStamp  = "20060102-150405.000000"
)

// History receives the records of backups and replaced files.
// *db.Store implements it.
type History interface {
	RecordBackup(b *db.Backup) error
	ForgetBackups(paths []string) error
	RecordUpdate(u *db.ModUpdate) error
}

// Backups writes snapshot archives of mod files and enforces retention.
type Backups struct {
	Dir     string
	ModsDir string
	Keep    int
	RunID   string
	History History
	Log     *zap.SugaredLogger

	now func() time.Time
}

// NewBackups creates a backup manager keeping at most keep archives (min 1).
func NewBackups(dir, modsDir string, keep int, log *zap.SugaredLogger) *Backups {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Backups{Dir: dir, ModsDir: modsDir, Keep: max(keep, 1), Log: log, now: time.Now}
}

// Create archives the named files of the mods directory into a new
// timestamped zip. Missing files are skipped; failing to write the archive
// itself is an error.
func (b *Backups) Create(filenames []string) (mods.BackupArchive, error) {
	if err := os.MkdirAll(b.Dir, 0755); err != nil {
		return mods.BackupArchive{}, fmt.Errorf("failed to create backup directory '%s': %w", b.Dir, err)
	}

	ts := b.now()
	final := b.archivePath(ts)

	tmp, err := os.CreateTemp(b.Dir, ".backup-*.tmp")
	if err != nil {
		return mods.BackupArchive{}, fmt.Errorf("failed to create backup archive: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) (mods.BackupArchive, error) {
		tmp.Close()
		os.Remove(tmpName)
		return mods.BackupArchive{}, err
	}

	zw := zip.NewWriter(tmp)
	var record []db.BackupFile
	for _, name := range filenames {
		f, err := b.addFile(zw, name)
		if err != nil {
			return fail(err)
		}
		if f != nil {
			record = append(record, *f)
		}
	}
	if err := zw.Close(); err != nil {
		return fail(fmt.Errorf("failed to finalise backup archive: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("failed to flush backup archive: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return mods.BackupArchive{}, fmt.Errorf("failed to close backup archive: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return mods.BackupArchive{}, fmt.Errorf("failed to move backup archive into place: %w", err)
	}
	// mtime drives retention; keep it in step with the name
	if err := os.Chtimes(final, ts, ts); err != nil {
		b.Log.Warnw("Failed to set backup archive time", zap.String("archive", final), zap.Error(err))
	}

	archive := mods.BackupArchive{Path: final, CreatedAt: ts}
	for _, f := range record {
		archive.Files = append(archive.Files, f.FileName)
	}
	b.Log.Infow("Backup created", zap.String("archive", final), zap.Int("files", len(archive.Files)))

	if b.History != nil {
		if err := b.History.RecordBackup(&db.Backup{RunID: b.RunID, Path: final, Files: record}); err != nil {
			b.Log.Warnw("Failed to record backup in history", zap.Error(err))
		}
	}
	return archive, nil
}

// archivePath picks an unused archive name for ts.
func (b *Backups) archivePath(ts time.Time) string {
	base := backupPrefix + ts.Format(backupStamp)
	p := filepath.Join(b.Dir, base+backupExt)
	for i := 1; ; i++ {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p
		}
		p = filepath.Join(b.Dir, fmt.Sprintf("%s-%d%s", base, i, backupExt))
	}
}

// addFile copies one mod file into the archive. A file that cannot be opened
// is skipped and yields nil.
func (b *Backups) addFile(zw *zip.Writer, name string) (*db.BackupFile, error) {
	src := filepath.Join(b.ModsDir, name)
	in, err := os.Open(src)
	if err != nil {
		b.Log.Warnw("Skipping file missing from mods directory", zap.String("file", name), zap.Error(err))
		return nil, nil
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		b.Log.Warnw("Skipping unreadable file", zap.String("file", name), zap.Error(err))
		return nil, nil
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return nil, fmt.Errorf("failed to build archive header for '%s': %w", name, err)
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return nil, fmt.Errorf("failed to add '%s' to backup archive: %w", name, err)
	}
	hash := sha1.New()
	n, err := io.Copy(io.MultiWriter(w, hash), in)
	if err != nil {
		return nil, fmt.Errorf("failed to write '%s' to backup archive: %w", name, err)
	}
	return &db.BackupFile{FileName: name, SHA1: hex.EncodeToString(hash.Sum(nil)), Size: n}, nil
}

// List returns the archives in the backup directory, newest first.
func (b *Backups) List() ([]mods.BackupArchive, error) {
	entries, err := os.ReadDir(b.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory '%s': %w", b.Dir, err)
	}

	var archives []mods.BackupArchive
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		archives = append(archives, mods.BackupArchive{
			Path:      filepath.Join(b.Dir, name),
			CreatedAt: info.ModTime(),
		})
	}

	slices.SortFunc(archives, func(x, y mods.BackupArchive) int {
		if c := y.CreatedAt.Compare(x.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(y.Path, x.Path)
	})
	return archives, nil
}

// Prune deletes every archive beyond the retention count and returns the
// paths removed. Individual deletion failures are logged.
func (b *Backups) Prune() ([]string, error) {
	archives, err := b.List()
	if err != nil {
		return nil, err
	}
	keep := max(b.Keep, 1)
	if len(archives) <= keep {
		return nil, nil
	}

	var removed []string
	for _, a := range archives[keep:] {
		if err := os.Remove(a.Path); err != nil {
			b.Log.Warnw("Failed to delete old backup", zap.String("archive", a.Path), zap.Error(err))
			continue
		}
		b.Log.Infow("Deleted old backup", zap.String("archive", a.Path))
		removed = append(removed, a.Path)
	}

	if b.History != nil && len(removed) > 0 {
		if err := b.History.ForgetBackups(removed); err != nil {
			b.Log.Warnw("Failed to remove pruned backups from history", zap.Error(err))
		}
	}
	return removed, nil
}
