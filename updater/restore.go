package updater

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

// ErrChecksumMismatch means a restored file differs from the one backed up.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Restore extracts fileName from a backup archive into modsDir. When
// wantSHA1 is set the restored file must match it, otherwise it is removed
// again.
func Restore(archivePath, fileName, modsDir, wantSHA1 string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open backup archive '%s': %w", archivePath, err)
	}
	defer r.Close()

	var entry *zip.File
	for _, f := range r.File {
		if f.Name == fileName {
			entry = f
			break
		}
	}
	if entry == nil {
		return fmt.Errorf("'%s' is not in backup archive '%s'", fileName, archivePath)
	}

	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("failed to read '%s' from backup: %w", fileName, err)
	}
	defer rc.Close()

	name := filepath.Base(fileName)
	tmp, err := os.CreateTemp(modsDir, "."+name+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create temp file for '%s': %w", name, err)
	}
	tmpName := tmp.Name()

	_, err = io.Copy(tmp, rc)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to restore '%s': %w", name, err)
	}

	if wantSHA1 != "" {
		got, err := calculateSHA1(tmpName)
		if err != nil {
			os.Remove(tmpName)
			return fmt.Errorf("failed to verify '%s': %w", name, err)
		}
		if got != wantSHA1 {
			os.Remove(tmpName)
			return fmt.Errorf("%w for '%s': got %s, want %s", ErrChecksumMismatch, name, got, wantSHA1)
		}
	}

	if err := os.Rename(tmpName, filepath.Join(modsDir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move '%s' into place: %w", name, err)
	}
	return nil
}
