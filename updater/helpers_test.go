package updater

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vs-mods-updater/db"
	"vs-mods-updater/moddb"
	"vs-mods-updater/mods"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// fakeCatalog serves catalog entries and artifacts from memory.
type fakeCatalog struct {
	mu    sync.Mutex
	mods  map[string]*moddb.Mod
	errs  map[string]error
	files map[string][]byte
	calls map[string]int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		mods:  make(map[string]*moddb.Mod),
		errs:  make(map[string]error),
		files: make(map[string][]byte),
		calls: make(map[string]int),
	}
}

func (f *fakeCatalog) GetMod(_ context.Context, modID string) (*moddb.Mod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[modID]++
	if err, ok := f.errs[modID]; ok {
		return nil, err
	}
	m, ok := f.mods[modID]
	if !ok {
		return nil, fmt.Errorf("'%s': %w", modID, moddb.ErrModNotFound)
	}
	return m, nil
}

func (f *fakeCatalog) Open(_ context.Context, url string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.files[url]
	if !ok {
		return nil, errors.New("no such artifact: " + url)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// addRelease registers a release and its downloadable artifact.
func (f *fakeCatalog) addRelease(t *testing.T, modID, name, version, created string, tags ...string) string {
	t.Helper()
	filename := fmt.Sprintf("%s_%s.zip", modID, version)
	url := "https://mods.example/download?fileid=1&dl=" + filename
	ts, err := time.Parse(time.DateTime, created)
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.mods[modID]
	if !ok {
		m = &moddb.Mod{ModID: modID, Name: name, AssetID: int64(len(f.mods) + 100), Side: "both"}
		f.mods[modID] = m
	}
	m.Releases = append(m.Releases, mods.RemoteRelease{
		Version:   version,
		Tags:      tags,
		MainFile:  url,
		Filename:  filename,
		CreatedAt: ts,
		Changelog: "<p>Release " + version + "</p>",
	})
	f.files[url] = modZipBytes(t, modID, name, version)
	return url
}

func (f *fakeCatalog) callCount(modID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[modID]
}

func modZipBytes(t *testing.T, modID, name, version string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("modinfo.json")
	require.NoError(t, err)
	_, err = fmt.Fprintf(w, `{"modid":%q,"name":%q,"version":%q,"dependencies":{"game":"1.19.0"}}`, modID, name, version)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// installMod writes a packaged mod into dir and returns its filename.
func installMod(t *testing.T, dir, modID, name, version string) string {
	t.Helper()
	filename := fmt.Sprintf("%s_%s.zip", modID, version)
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), modZipBytes(t, modID, name, version), 0o644))
	return filename
}

// memoryHistory records history calls in memory.
type memoryHistory struct {
	mu        sync.Mutex
	backups   []*db.Backup
	forgotten []string
	updates   []*db.ModUpdate
}

func (h *memoryHistory) RecordBackup(b *db.Backup) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.backups = append(h.backups, b)
	return nil
}

func (h *memoryHistory) ForgetBackups(paths []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.forgotten = append(h.forgotten, paths...)
	return nil
}

func (h *memoryHistory) RecordUpdate(u *db.ModUpdate) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, u)
	return nil
}

// stepClock returns a clock advancing one second per call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
