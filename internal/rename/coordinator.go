// Package rename decides whether vault items need a new name, computes it,
// resolves collisions and performs the move, without ever letting a rename
// trigger another rename of the same item.
package rename

import (
	"context"
	"fmt"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"vaultnorm/internal/config"
	"vaultnorm/internal/log"
	"vaultnorm/internal/rules"
	"vaultnorm/internal/vault"
	"vaultnorm/pkg/types"
)

// snapshot is an immutable view of the settings with everything derived
// from them compiled once.
type snapshot struct {
	settings *config.Settings
	pipeline *rules.Pipeline
	filter   *Filter
}

// Coordinator standardizes items of one vault. Requests may arrive
// concurrently; the in-flight set keeps each path to one rename at a time.
type Coordinator struct {
	store    vault.Storage
	current  atomic.Pointer[snapshot]
	inflight *inFlight

	dryRun   bool
	observer func(types.RenameResult)
	now      func() time.Time

	// lifecycle orders pending.Add against Close, so no reaction starts
	// once Close has begun waiting.
	lifecycle sync.Mutex
	pending   sync.WaitGroup
	closed    atomic.Bool
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDryRun computes destinations without moving anything.
func WithDryRun(dryRun bool) Option {
	return func(c *Coordinator) {
		c.dryRun = dryRun
	}
}

// WithObserver calls fn after every move attempt, successful or not, and
// for every move planned in dry-run mode.
func WithObserver(fn func(types.RenameResult)) Option {
	return func(c *Coordinator) {
		c.observer = fn
	}
}

// WithClock replaces time.Now as the source of "current time".
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// New creates a coordinator over store using settings.
func New(store vault.Storage, settings *config.Settings, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		inflight: newInFlight(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.UpdateSettings(settings)
	return c
}

// UpdateSettings atomically replaces the settings used for every following
// decision. The coordinator keeps its own copy.
func (c *Coordinator) UpdateSettings(settings *config.Settings) {
	s := settings.Clone()
	s.Normalize()

	pipeline, _ := rules.Compile(s.Rules, rules.Options{
		UseCreationDate: s.UseCreationDate,
		DateFormat:      s.DateFormat,
		Now:             c.now,
	})
	filter, _ := NewFilter(s)
	c.current.Store(&snapshot{settings: s, pipeline: pipeline, filter: filter})
	log.LogWithFields(log.F("rules", pipeline.Len()), log.F("enabled", s.Enabled)).Debug("Settings updated")
}

// Settings returns a copy of the settings in effect.
func (c *Coordinator) Settings() *config.Settings {
	return c.snapshot().settings.Clone()
}

func (c *Coordinator) snapshot() *snapshot {
	return c.current.Load()
}

// InFlight reports whether a rename involving p is in progress.
func (c *Coordinator) InFlight(p string) bool {
	return c.inflight.has(p)
}

// InFlightPaths lists the paths currently in flight.
func (c *Coordinator) InFlightPaths() []string {
	return c.inflight.list()
}

// GenerateStandardName returns the standardized name for a file called
// name that was created at created.
func (c *Coordinator) GenerateStandardName(name string, created time.Time) string {
	snap := c.snapshot()
	return fileName(snap.pipeline, snap.settings.StripDuplicateSuffix, name, created)
}

// GenerateFolderName returns the standardized name for a folder.
func (c *Coordinator) GenerateFolderName(name string) string {
	return c.snapshot().pipeline.Apply(name, c.now())
}

// Standardize renames item if needed, dispatching on its kind.
func (c *Coordinator) Standardize(ctx context.Context, item *types.Item) types.RenameResult {
	if item.IsFolder() {
		return c.StandardizeFolder(ctx, item)
	}
	return c.StandardizeFile(ctx, item)
}

// StandardizeFile renames file to its standardized name. It never returns
// an error: storage failures are logged and reported on the result.
func (c *Coordinator) StandardizeFile(ctx context.Context, file *types.Item) types.RenameResult {
	res := types.RenameResult{SourcePath: file.Path, Kind: types.KindFile}
	if c.inflight.has(file.Path) {
		res.Skipped = types.SkipInFlight
		return res
	}
	snap := c.snapshot()
	if reason := snap.filter.FileSkipReason(file); reason != types.SkipNone {
		res.Skipped = reason
		return res
	}

	name := fileName(snap.pipeline, snap.settings.StripDuplicateSuffix, file.Name(), file.Created)
	return c.commit(ctx, snap, file, vault.Join(file.ParentPath(), name), res)
}

// StandardizeFolder renames folder to its standardized name. The vault
// root is never renamed.
func (c *Coordinator) StandardizeFolder(ctx context.Context, folder *types.Item) types.RenameResult {
	res := types.RenameResult{SourcePath: folder.Path, Kind: types.KindFolder}
	if c.inflight.has(folder.Path) {
		res.Skipped = types.SkipInFlight
		return res
	}
	snap := c.snapshot()
	if reason := snap.filter.FolderSkipReason(folder); reason != types.SkipNone {
		res.Skipped = reason
		return res
	}

	name := snap.pipeline.Apply(folder.Name(), c.now())
	return c.commit(ctx, snap, folder, vault.Join(folder.ParentPath(), name), res)
}

func (c *Coordinator) commit(ctx context.Context, snap *snapshot, item *types.Item, desired string, res types.RenameResult) types.RenameResult {
	if desired == item.Path {
		res.Skipped = types.SkipAlreadyStandard
		return res
	}

	dest, err := c.uniquePath(desired, item)
	if err != nil {
		res.Error = err
		log.LogWithError(err).With(log.F("from", item.Path)).Error("Could not resolve rename destination")
		c.observe(res)
		return res
	}
	if dest == item.Path {
		res.Skipped = types.SkipAlreadyStandard
		return res
	}
	res.DestinationPath = dest

	if c.dryRun {
		res.Skipped = types.SkipDryRun
		log.LogWithFields(log.F("from", item.Path), log.F("to", dest)).Info("Would rename")
		c.observe(res)
		return res
	}

	if !c.inflight.claim(item.Path, dest) {
		res.Skipped = types.SkipInFlight
		return res
	}
	defer func() {
		c.release(snap, item.Path, dest, res.Moved)
	}()

	if err := c.store.Move(ctx, item, dest); err != nil {
		res.Error = err
		log.LogWithError(err).With(log.F("from", item.Path), log.F("to", dest)).Error("Rename failed")
	} else {
		res.Moved = true
		log.LogWithFields(log.F("from", item.Path), log.F("to", dest)).Info("Renamed")
	}
	c.observe(res)
	return res
}

// release frees the source at once. After a successful move the
// destination stays claimed for the grace period, so the notification
// produced by the move itself is dropped.
func (c *Coordinator) release(snap *snapshot, src, dst string, moved bool) {
	c.inflight.release(src)
	grace := snap.settings.Watch.GracePeriod
	if !moved || grace <= 0 {
		c.inflight.release(dst)
		return
	}
	time.AfterFunc(grace, func() {
		c.inflight.release(dst)
	})
}

// uniquePath returns desired, or the first of desired-2, desired-3, ...
// that is free. For files the counter goes before the extension.
func (c *Coordinator) uniquePath(desired string, item *types.Item) (string, error) {
	base, ext := desired, ""
	if !item.IsFolder() {
		dir, name := path.Split(desired)
		if stem, e := types.SplitExt(name); e != "" {
			base, ext = dir+stem, e
		}
	}

	candidate := desired
	for counter := 2; ; counter++ {
		free, err := c.isFree(candidate, item)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
		candidate = vault.NormalizePath(fmt.Sprintf("%s-%d%s", base, counter, ext))
	}
}

// isFree reports whether item may take p. A path claimed by a rename in
// progress counts as taken.
func (c *Coordinator) isFree(p string, item *types.Item) (bool, error) {
	if p == item.Path {
		return true, nil
	}
	if c.inflight.has(p) {
		return false, nil
	}
	occupied, err := c.store.Occupied(p, item)
	if err != nil {
		return false, err
	}
	return !occupied, nil
}

func (c *Coordinator) observe(res types.RenameResult) {
	if c.observer != nil {
		c.observer(res)
	}
}
