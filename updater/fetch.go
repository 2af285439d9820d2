package updater

import (
	"cmp"
	"context"
	"errors"
	"io"

	"vs-mods-updater/moddb"
	"vs-mods-updater/mods"
	"vs-mods-updater/pool"

	"go.uber.org/zap"
)

// CatalogReader looks up catalog entries by mod ID.
type CatalogReader interface {
	GetMod(ctx context.Context, modID string) (*moddb.Mod, error)
}

// Opener starts downloads of artifact pointers.
type Opener interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// Catalog is everything a run needs from the remote catalog.
type Catalog interface {
	CatalogReader
	Opener
}

// Fetcher resolves catalog data for installed mods.
type Fetcher struct {
	Catalog CatalogReader
	Query   mods.CompatibilityQuery
	Workers int
	Log     *zap.SugaredLogger

	notify func(Event)
}

type catalogSlot struct {
	mod *moddb.Mod
	err error
}

// Fetch returns one Remote per installed mod, in the same order. Each mod ID
// is requested once; mods sharing an ID share the response. Per-mod failures
// are recorded in the Remote; only cancellation is returned as an error.
func (f *Fetcher) Fetch(ctx context.Context, installed []mods.InstalledMod) ([]mods.Remote, error) {
	log := f.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	var ids, names []string
	index := make(map[string]int)
	for _, m := range installed {
		if _, ok := index[m.ID]; ok {
			continue
		}
		index[m.ID] = len(ids)
		ids = append(ids, m.ID)
		names = append(names, cmp.Or(m.Name, m.ID))
	}

	slots := make([]catalogSlot, len(ids))
	err := pool.ForEach(ctx, f.Workers, len(ids), func(ctx context.Context, i int) {
		mod, err := f.Catalog.GetMod(ctx, ids[i])
		slots[i] = catalogSlot{mod: mod, err: err}
		if f.notify != nil {
			f.notify(Event{Kind: EventCheck, Mod: names[i]})
		}
	})
	if err != nil {
		return nil, err
	}

	remotes := make([]mods.Remote, len(installed))
	for i, m := range installed {
		remotes[i] = f.remoteFor(m, slots[index[m.ID]], log)
	}
	return remotes, nil
}

func (f *Fetcher) remoteFor(m mods.InstalledMod, slot catalogSlot, log *zap.SugaredLogger) mods.Remote {
	r := mods.Remote{Filename: m.Filename, ModID: m.ID}
	modLog := log.With(zap.String("mod", m.Name), zap.String("modid", m.ID))

	switch {
	case errors.Is(slot.err, moddb.ErrModNotFound):
		r.State = mods.RemoteNotFound
		r.Err = slot.err
		modLog.Warnw("Mod not found in catalog, skipping for this run")
		return r
	case slot.err != nil:
		r.State = mods.RemoteFailed
		r.Err = slot.err
		modLog.Warnw("Failed to fetch catalog data, skipping for this run", zap.Error(slot.err))
		return r
	case slot.mod == nil:
		r.State = mods.RemoteNotFound
		return r
	}

	r.State = mods.RemoteResolved
	r.AssetID = slot.mod.AssetID
	r.Side = slot.mod.Side

	if best, ok := mods.Resolve(slot.mod.Releases, f.Query); ok {
		r.Best = &best
		r.Changelog = moddb.ChangelogText(best.Release.Changelog)
	}
	if inst, ok := mods.FindRelease(slot.mod.Releases, m.LocalVersion); ok {
		r.InstalledPointer = inst.MainFile
		r.InstalledGameVersion = mods.HighestTag(inst)
	}
	return r
}

// RemotesByFilename indexes fetched remotes for the planner.
func RemotesByFilename(remotes []mods.Remote) map[string]mods.Remote {
	out := make(map[string]mods.Remote, len(remotes))
	for _, r := range remotes {
		out[r.Filename] = r
	}
	return out
}

// mergeRemoteFields copies catalog-only fields into the installed records.
func mergeRemoteFields(installed []mods.InstalledMod, remotes []mods.Remote) []mods.InstalledMod {
	out := make([]mods.InstalledMod, len(installed))
	copy(out, installed)
	for i := range out {
		if i >= len(remotes) || remotes[i].State != mods.RemoteResolved {
			continue
		}
		out[i].AssetID = remotes[i].AssetID
		if out[i].Side == "" {
			out[i].Side = remotes[i].Side
		}
	}
	return out
}
