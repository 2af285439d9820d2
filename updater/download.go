package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"vs-mods-updater/moddb"
	"vs-mods-updater/mods"
	"vs-mods-updater/pool"

	"go.uber.org/zap"
)

var errNotStarted = errors.New("download not started")

// DownloadResult is the outcome of downloading one plan entry.
type DownloadResult struct {
	Entry      mods.PlanEntry
	Filename   string // file now holding the mod, set on success
	RemovedOld bool   // previous file deleted (false when the name was reused)
	Err        error
}

// Downloader streams artifacts into the mods directory.
type Downloader struct {
	Client  Opener
	ModsDir string
	Workers int
	Log     *zap.SugaredLogger

	notify func(Event)
}

// Download fetches every entry on the bounded pool. Results are in entry
// order; entries skipped because ctx was cancelled carry an error.
func (d *Downloader) Download(ctx context.Context, entries []mods.PlanEntry) ([]DownloadResult, error) {
	log := d.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	results := make([]DownloadResult, len(entries))
	for i, e := range entries {
		results[i] = DownloadResult{Entry: e, Err: errNotStarted}
	}
	err := pool.ForEach(ctx, d.Workers, len(entries), func(ctx context.Context, i int) {
		results[i] = d.downloadOne(ctx, entries[i], log)
	})
	return results, err
}

func (d *Downloader) downloadOne(ctx context.Context, e mods.PlanEntry, log *zap.SugaredLogger) DownloadResult {
	res := DownloadResult{Entry: e}
	modLog := log.With(zap.String("mod", e.Mod.Name), zap.String("version", e.NewVersion))
	d.send(Event{Kind: EventDownloadStart, Mod: e.Mod.Name, Version: e.NewVersion})

	name := moddb.FilenameFromURL(e.ArtifactPointer)
	if name == "" {
		name = e.Mod.Filename
	}
	if name == "" {
		res.Err = fmt.Errorf("no file name in download pointer '%s'", e.ArtifactPointer)
		modLog.Errorw("Failed to download update", zap.Error(res.Err))
		d.send(Event{Kind: EventError, Mod: e.Mod.Name, Message: res.Err.Error()})
		return res
	}

	if err := d.fetchTo(ctx, e.ArtifactPointer, name); err != nil {
		res.Err = err
		modLog.Errorw("Failed to download update", zap.String("file", name), zap.Error(err))
		d.send(Event{Kind: EventError, Mod: e.Mod.Name, Message: err.Error()})
		return res
	}
	res.Filename = name
	modLog.Infow("Successfully downloaded file", zap.String("file", name))

	if e.Mod.Filename != "" && name != e.Mod.Filename {
		old := filepath.Join(d.ModsDir, e.Mod.Filename)
		if err := os.Remove(old); err != nil {
			modLog.Warnw("Failed to remove previous mod file", zap.String("file", e.Mod.Filename), zap.Error(err))
		} else {
			res.RemovedOld = true
		}
	}

	d.send(Event{Kind: EventDownloaded, Mod: e.Mod.Name, Version: e.NewVersion})
	return res
}

// fetchTo writes the artifact to a temp file beside the destination and
// renames it into place. The destination is untouched on any failure.
func (d *Downloader) fetchTo(ctx context.Context, url, name string) error {
	body, err := d.Client.Open(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(d.ModsDir, "."+name+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create temp file for '%s': %w", name, err)
	}
	tmpName := tmp.Name()

	_, err = io.Copy(tmp, ctxReader{ctx: ctx, r: body})
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write downloaded content to '%s': %w", name, err)
	}

	if err := os.Rename(tmpName, filepath.Join(d.ModsDir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move '%s' into place: %w", name, err)
	}
	return nil
}

func (d *Downloader) send(e Event) {
	if d.notify != nil {
		d.notify(e)
	}
}

// ctxReader stops a copy as soon as ctx is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// ApplyDownloads returns installed with the successful downloads merged in:
// the new version and file name replace the old ones.
func ApplyDownloads(installed []mods.InstalledMod, results []DownloadResult) []mods.InstalledMod {
	byFile := make(map[string]DownloadResult, len(results))
	for _, r := range results {
		if r.Err == nil && r.Filename != "" {
			byFile[r.Entry.Mod.Filename] = r
		}
	}

	out := make([]mods.InstalledMod, len(installed))
	copy(out, installed)
	for i := range out {
		r, ok := byFile[out[i].Filename]
		if !ok {
			continue
		}
		out[i].LocalVersion = r.Entry.NewVersion
		out[i].Filename = r.Filename
	}
	return out
}
