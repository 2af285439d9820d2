package updater

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"vs-mods-updater/mods"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModlist(t *testing.T, dir, content string) string {
	t.Helper()
	p := filepath.Join(dir, ModlistFile)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestInstallFromModlistIntoMissingDir(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog()
	fooURL := catalog.addRelease(t, "foo", "Foo", "1.1.0", "2024-02-01 10:00:00", "v1.19")
	barURL := catalog.addRelease(t, "bar", "Bar", "2.0.0", "2024-02-01 10:00:00", "v1.19")

	listPath := writeModlist(t, t.TempDir(), "\xEF\xBB\xBF"+`{"Mods":[
		{"Name":"Foo","Version":"1.1.0","installed_download_url":"`+fooURL+`"},
		{"Name":"Bar","url_download":"`+barURL+`"},
		{"Name":"Handmade","url_download":"Local mod"},
		{"Name":"Broken"}
	]}`)
	list, err := ReadModlist(listPath)
	require.NoError(t, err)
	require.Len(t, list.Mods, 4)

	modsDir := filepath.Join(t.TempDir(), "Mods")
	events := make(chan Event, 32)
	in := &Installer{Client: catalog, ModsDir: modsDir, Workers: 2, Events: events}
	res, err := in.Install(ctx, list)
	require.NoError(t, err)
	close(events)

	assert.ElementsMatch(t, []string{"foo_1.1.0.zip", "bar_2.0.0.zip"}, listDir(t, modsDir))
	require.Len(t, res.Downloads, 2)
	assert.Zero(t, res.Failed())
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, "Handmade", res.Skipped[0].Name)
	assert.Equal(t, "Broken", res.Skipped[1].Name)

	scan, err := mods.NewScanner(2, nil).Scan(ctx, modsDir)
	require.NoError(t, err)
	assert.Len(t, scan.Installed, 2)

	var summary string
	for e := range events {
		if e.Kind == EventSummary {
			summary = e.Message
		}
	}
	assert.Equal(t, "Installed 2 of 4 mods", summary)
}

func TestInstallKeepsUnrelatedFilesAndReportsFailures(t *testing.T) {
	modsDir := t.TempDir()
	kept := installMod(t, modsDir, "keep", "Keep", "1.0.0")

	catalog := newFakeCatalog()
	fooURL := catalog.addRelease(t, "foo", "Foo", "1.0.0", "2024-01-01 10:00:00", "v1.19")
	list := Modlist{Mods: []ModlistEntry{
		{Name: "Foo", DownloadURL: fooURL},
		{Name: "Gone", DownloadURL: "https://mods.example/download?dl=gone_1.0.0.zip"},
	}}

	res, err := (&Installer{Client: catalog, ModsDir: modsDir, Workers: 1}).Install(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed())
	assert.ElementsMatch(t, []string{kept, "foo_1.0.0.zip"}, listDir(t, modsDir))
}

func TestReadModlistErrors(t *testing.T) {
	_, err := ReadModlist(filepath.Join(t.TempDir(), ModlistFile))
	require.ErrorIs(t, err, ErrModlistMissing)

	_, err = ReadModlist(writeModlist(t, t.TempDir(), `{"Mods": [`))
	assert.Error(t, err)
}

func TestDownloadWithoutFileNameLeavesDirAlone(t *testing.T) {
	modsDir := t.TempDir()
	entry := mods.PlanEntry{
		Mod:             mods.InstalledMod{Name: "Nameless"},
		ArtifactPointer: "https://mods.example/",
	}

	results, err := (&Downloader{Client: newFakeCatalog(), ModsDir: modsDir, Workers: 1}).Download(context.Background(), []mods.PlanEntry{entry})
	require.NoError(t, err)
	require.Error(t, results[0].Err)
	assert.DirExists(t, modsDir)
}
