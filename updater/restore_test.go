package updater

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestoreVerifiesChecksum(t *testing.T) {
	modsDir := t.TempDir()
	foo := installMod(t, modsDir, "foo", "Foo", "1.0.0")
	want, err := calculateSHA1(filepath.Join(modsDir, foo))
	require.NoError(t, err)

	b := NewBackups(t.TempDir(), modsDir, 3, nil)
	b.now = stepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local))
	archive, err := b.Create([]string{foo})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(modsDir, foo)))

	err = Restore(archive.Path, foo, modsDir, "0000")
	require.ErrorIs(t, err, ErrChecksumMismatch)
	assert.Empty(t, listDir(t, modsDir))

	require.NoError(t, Restore(archive.Path, foo, modsDir, want))
	got, err := calculateSHA1(filepath.Join(modsDir, foo))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	assert.Error(t, Restore(archive.Path, "other.zip", modsDir, ""))
}

func TestCalculateSHA1(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "test.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("hello world"), 0o644))

	// echo -n "hello world" | sha1sum
	hash, err := calculateSHA1(filePath)
	require.NoError(t, err)
	assert.Equal(t, "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed", hash)

	_, err = calculateSHA1("non-existent-file")
	assert.Error(t, err)
}
