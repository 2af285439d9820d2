package updater

import (
	"context"
	"errors"
	"fmt"

	"vs-mods-updater/db"
	"vs-mods-updater/mods"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrIncompatibleMods is returned when installed mods have no release for the
// target game version and the run was not told to continue anyway.
var ErrIncompatibleMods = errors.New("incompatible mods found")

// Options are the per-run settings.
type Options struct {
	ModsDir            string
	TargetVersion      string
	ExcludePrerelease  bool
	Force              bool
	Excluded           []string // filenames never to update
	Workers            int
	BackupDir          string
	MaxBackups         int
	AcceptIncompatible bool
	DryRun             bool // stop after planning
}

// Result is everything a run produced.
type Result struct {
	RunID     string
	Installed []mods.InstalledMod // with new versions after download
	Invalid   []string
	Excluded  mods.Exclusions
	Plan      mods.Plan
	Backup    *mods.BackupArchive
	Pruned    []string
	Downloads []DownloadResult
}

// Succeeded counts the downloads that completed.
func (r *Result) Succeeded() int {
	n := 0
	for _, d := range r.Downloads {
		if d.Err == nil {
			n++
		}
	}
	return n
}

// Runner wires the phases of one update run together.
type Runner struct {
	Catalog Catalog
	History History // optional
	Log     *zap.SugaredLogger
	Events  chan<- Event // optional progress observer
	Options Options
}

// Run scans, fetches, plans and, unless DryRun is set, backs up and downloads
// updates. Phases run one after another; no download starts before the
// backup is written. A partial Result is returned alongside any error.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	opts := r.Options
	res := &Result{RunID: uuid.NewString()}

	log := r.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	log = log.With(zap.String("run_id", res.RunID))
	events := notifier{ctx: ctx, ch: r.Events}
	status := func(msg string) {
		log.Info(msg)
		events.send(Event{Kind: EventStatus, Message: msg})
	}

	status("Scanning mods directory...")
	scan, err := mods.NewScanner(opts.Workers, log).Scan(ctx, opts.ModsDir)
	if err != nil {
		return res, err
	}
	res.Installed, res.Invalid = scan.Installed, scan.Invalid
	res.Excluded = ExistingExclusions(opts.ModsDir, opts.Excluded, log)
	log.Infow("Scan complete",
		zap.Int("installed", len(res.Installed)),
		zap.Int("invalid", len(res.Invalid)),
		zap.Int("excluded", len(res.Excluded)))

	status(fmt.Sprintf("Checking %d mods for game version %s...", len(res.Installed), opts.TargetVersion))
	fetcher := &Fetcher{
		Catalog: r.Catalog,
		Query:   mods.CompatibilityQuery{TargetVersion: opts.TargetVersion, ExcludePrerelease: opts.ExcludePrerelease},
		Workers: opts.Workers,
		Log:     log,
		notify:  events.send,
	}
	remotes, err := fetcher.Fetch(ctx, res.Installed)
	if err != nil {
		return res, err
	}
	res.Installed = mergeRemoteFields(res.Installed, remotes)

	res.Plan = mods.BuildPlan(res.Installed, RemotesByFilename(remotes), mods.PlanOptions{
		TargetVersion: opts.TargetVersion,
		Force:         opts.Force,
		Exclusions:    res.Excluded,
	}, log)
	updates := res.Plan.Updates()
	log.Infow("Plan ready",
		zap.Int("updates", len(updates)),
		zap.Int("up_to_date", res.Plan.Count(mods.StatusUpToDate)),
		zap.Int("incompatible", len(res.Plan.Incompatible)))

	for _, e := range res.Plan.Incompatible {
		log.Warnw("Mod has no release for the target game version",
			zap.String("mod", e.Mod.Name),
			zap.String("installed_for", e.Mod.GameVersion),
			zap.String("target", opts.TargetVersion))
	}

	if opts.DryRun {
		return res, nil
	}
	if len(res.Plan.Incompatible) > 0 && !opts.AcceptIncompatible {
		return res, fmt.Errorf("%w: %d mods", ErrIncompatibleMods, len(res.Plan.Incompatible))
	}
	if len(updates) == 0 {
		status("All mods are up to date")
		return res, nil
	}

	status(fmt.Sprintf("Backing up %d mods...", len(updates)))
	backups := NewBackups(opts.BackupDir, opts.ModsDir, opts.MaxBackups, log)
	backups.RunID = res.RunID
	backups.History = r.History
	files := make([]string, len(updates))
	for i, e := range updates {
		files[i] = e.Mod.Filename
	}
	archive, err := backups.Create(files)
	if err != nil {
		return res, fmt.Errorf("backup failed, no mods were changed: %w", err)
	}
	res.Backup = &archive
	if res.Pruned, err = backups.Prune(); err != nil {
		log.Warnw("Failed to prune old backups", zap.Error(err))
	}

	status(fmt.Sprintf("Downloading %d updates...", len(updates)))
	downloader := &Downloader{
		Client:  r.Catalog,
		ModsDir: opts.ModsDir,
		Workers: opts.Workers,
		Log:     log,
		notify:  events.send,
	}
	res.Downloads, err = downloader.Download(ctx, updates)
	res.Installed = ApplyDownloads(res.Installed, res.Downloads)
	r.recordUpdates(res, log)

	summary := fmt.Sprintf("Updated %d of %d mods", res.Succeeded(), len(updates))
	log.Info(summary)
	events.send(Event{Kind: EventSummary, Message: summary})
	return res, err
}

func (r *Runner) recordUpdates(res *Result, log *zap.SugaredLogger) {
	if r.History == nil {
		return
	}
	for _, d := range res.Downloads {
		if d.Err != nil {
			continue
		}
		u := &db.ModUpdate{
			RunID:       res.RunID,
			ModID:       d.Entry.Mod.ID,
			Name:        d.Entry.Mod.Name,
			OldVersion:  d.Entry.OldVersion,
			NewVersion:  d.Entry.NewVersion,
			OldFileName: d.Entry.Mod.Filename,
			NewFileName: d.Filename,
			Forced:      d.Entry.OldVersion == d.Entry.NewVersion,
		}
		if res.Backup != nil {
			u.BackupPath = res.Backup.Path
		}
		if err := r.History.RecordUpdate(u); err != nil {
			log.Warnw("Failed to record update in history", zap.String("mod", u.Name), zap.Error(err))
		}
	}
}
