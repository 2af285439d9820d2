package updater

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"vs-mods-updater/moddb"
	"vs-mods-updater/mods"

	"go.uber.org/zap"
)

// ModlistFile is the file name looked up in the modlist directory.
const ModlistFile = "modlist.json"

// localModPointer marks exported mods that have no catalog download.
const localModPointer = "Local mod"

// ErrModlistMissing is returned when the modlist file does not exist.
var ErrModlistMissing = errors.New("modlist file does not exist")

// ModlistEntry is one mod of a modlist.json document.
type ModlistEntry struct {
	Name        string `json:"Name"`
	Version     string `json:"Version"`
	ModID       string `json:"ModId"`
	DownloadURL string `json:"installed_download_url"`
	ExportURL   string `json:"url_download"`
}

// Pointer returns the download pointer of the entry, empty when it has none.
func (e ModlistEntry) Pointer() string {
	if e.DownloadURL != "" {
		return e.DownloadURL
	}
	if e.ExportURL != localModPointer {
		return e.ExportURL
	}
	return ""
}

// Modlist is a list of mods to install into an empty mods directory.
type Modlist struct {
	Mods []ModlistEntry `json:"Mods"`
}

// ReadModlist decodes a modlist.json document.
func ReadModlist(path string) (Modlist, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Modlist{}, fmt.Errorf("%w: %s", ErrModlistMissing, path)
	} else if err != nil {
		return Modlist{}, fmt.Errorf("failed to read modlist '%s': %w", path, err)
	}

	var list Modlist
	if err := json.Unmarshal(bytes.TrimPrefix(b, []byte("\xEF\xBB\xBF")), &list); err != nil {
		return Modlist{}, fmt.Errorf("failed to decode modlist '%s': %w", path, err)
	}
	return list, nil
}

// InstallResult is the outcome of installing a modlist.
type InstallResult struct {
	Downloads []DownloadResult
	Skipped   []ModlistEntry // entries without a usable download pointer
}

// Failed counts the downloads that did not complete.
func (r *InstallResult) Failed() int {
	n := 0
	for _, d := range r.Downloads {
		if d.Err != nil {
			n++
		}
	}
	return n
}

// Installer downloads every mod of a modlist into ModsDir, creating it when
// absent. Existing files with the same name are replaced; nothing is removed.
type Installer struct {
	Client  Opener
	ModsDir string
	Workers int
	Log     *zap.SugaredLogger
	Events  chan<- Event
}

// Install downloads the mods of list on the bounded pool.
func (in *Installer) Install(ctx context.Context, list Modlist) (*InstallResult, error) {
	log := in.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	n := notifier{ctx: ctx, ch: in.Events}

	if err := os.MkdirAll(in.ModsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create mods directory '%s': %w", in.ModsDir, err)
	}
	log.Infow("Installing mods from modlist", zap.String("dir", in.ModsDir), zap.Int("mods", len(list.Mods)))

	res := &InstallResult{}
	var entries []mods.PlanEntry
	for _, m := range list.Mods {
		ptr := m.Pointer()
		if ptr == "" || moddb.FilenameFromURL(ptr) == "" {
			log.Warnw("Skipping modlist entry without a download pointer", zap.String("mod", m.Name))
			res.Skipped = append(res.Skipped, m)
			continue
		}
		name := m.Name
		if name == "" {
			name = moddb.FilenameFromURL(ptr)
		}
		entries = append(entries, mods.PlanEntry{
			Mod:             mods.InstalledMod{ID: m.ModID, Name: name},
			NewVersion:      m.Version,
			ArtifactPointer: ptr,
			Status:          mods.StatusUpdateAvailable,
		})
	}
	if len(entries) == 0 {
		log.Info("No mods to download in modlist")
		return res, nil
	}

	n.send(Event{Kind: EventStatus, Message: fmt.Sprintf("Downloading %d mods...", len(entries))})
	d := &Downloader{Client: in.Client, ModsDir: in.ModsDir, Workers: in.Workers, Log: log, notify: n.send}
	downloads, err := d.Download(ctx, entries)
	res.Downloads = downloads

	msg := fmt.Sprintf("Installed %d of %d mods", len(downloads)-res.Failed(), len(list.Mods))
	log.Info(msg)
	n.send(Event{Kind: EventSummary, Message: msg})
	return res, err
}
