package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"vaultnorm/internal/config"
	"vaultnorm/internal/errors"
	"vaultnorm/internal/log"
	"vaultnorm/internal/rename"
	"vaultnorm/internal/vault"
	"vaultnorm/pkg/types"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// DaemonStatus represents the current status of the daemon
type DaemonStatus struct {
	Running          bool      // Whether the daemon is currently active
	Vault            string    // Absolute vault directory
	ConfigFile       string    // Settings file being followed, if any
	Enabled          bool      // Whether events currently trigger renames
	WatchDirectories int       // Number of directories being watched
	LastActivity     time.Time // Time of the last rename attempt
	Renamed          int       // Successful renames
	Failed           int       // Failed renames
	InFlight         []string  // Paths with a rename in progress
}

// Daemon keeps a vault standardized: it feeds filesystem notifications to
// a rename coordinator and follows changes to the settings file.
type Daemon struct {
	store       *vault.FS
	coordinator *rename.Coordinator
	watcher     *Watcher

	configFile   string
	sweepOnStart bool

	// Lock for statistics and running state
	mutex        sync.RWMutex
	running      bool
	renamed      int
	failed       int
	lastActivity time.Time

	// Callback for every rename attempt
	callback func(types.RenameResult)
}

// DaemonOption configures a Daemon.
type DaemonOption func(*daemonOptions)

type daemonOptions struct {
	configFile   string
	sweepOnStart bool
	dryRun       bool
	callback     func(types.RenameResult)
}

// WithConfigFile reloads settings from path whenever the file changes.
func WithConfigFile(path string) DaemonOption {
	return func(o *daemonOptions) {
		o.configFile = path
	}
}

// WithSweepOnStart standardizes the whole vault once watching has begun.
func WithSweepOnStart(sweep bool) DaemonOption {
	return func(o *daemonOptions) {
		o.sweepOnStart = sweep
	}
}

// WithDryRun logs intended renames instead of performing them.
func WithDryRun(dryRun bool) DaemonOption {
	return func(o *daemonOptions) {
		o.dryRun = dryRun
	}
}

// WithCallback calls cb after every rename attempt.
func WithCallback(cb func(types.RenameResult)) DaemonOption {
	return func(o *daemonOptions) {
		o.callback = cb
	}
}

// NewDaemon creates a daemon for the vault in store.
func NewDaemon(store *vault.FS, settings *config.Settings, opts ...DaemonOption) (*Daemon, error) {
	var o daemonOptions
	for _, opt := range opts {
		opt(&o)
	}

	watcher, err := NewWatcher(store)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		store:        store,
		watcher:      watcher,
		sweepOnStart: o.sweepOnStart,
		callback:     o.callback,
	}
	if o.configFile != "" {
		abs, err := filepath.Abs(o.configFile)
		if err != nil {
			watcher.Close()
			return nil, errors.NewConfigError("invalid settings path", o.configFile, errors.InvalidConfig, err)
		}
		d.configFile = abs
	}
	d.coordinator = rename.New(store, settings,
		rename.WithDryRun(o.dryRun),
		rename.WithObserver(d.record),
	)
	return d, nil
}

// Coordinator returns the coordinator the daemon drives.
func (d *Daemon) Coordinator() *rename.Coordinator {
	return d.coordinator
}

// Run watches the vault until ctx is canceled or watching fails.
func (d *Daemon) Run(ctx context.Context) error {
	d.mutex.Lock()
	if d.running {
		d.mutex.Unlock()
		return errors.New("daemon is already running")
	}
	d.running = true
	d.mutex.Unlock()
	defer func() {
		d.mutex.Lock()
		d.running = false
		d.mutex.Unlock()
	}()

	if err := d.watcher.Watch(); err != nil {
		d.watcher.Close()
		return errors.Wrap(err, "error starting watcher")
	}
	cancel := d.coordinator.Attach(d.watcher)
	defer func() {
		cancel()
		d.coordinator.Close()
	}()

	if !d.coordinator.Settings().Enabled {
		log.Warn("Renaming is disabled in settings; events are ignored until it is enabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.watcher.Run(gctx)
	})
	if d.configFile != "" {
		g.Go(func() error {
			return d.followConfig(gctx)
		})
	}
	if d.sweepOnStart {
		g.Go(func() error {
			_, err := d.coordinator.StandardizeAll(gctx)
			if err != nil && gctx.Err() == nil {
				log.LogWithError(err).Error("Initial sweep failed")
			}
			return nil
		})
	}
	return g.Wait()
}

// ReloadConfig reads the settings file again and applies it. On error the
// settings in effect are kept.
func (d *Daemon) ReloadConfig() error {
	if d.configFile == "" {
		return errors.NewConfigError("no settings file", "", errors.ConfigNotFound, nil)
	}
	settings, err := config.LoadConfigFile(d.configFile)
	if err != nil {
		return err
	}
	d.coordinator.UpdateSettings(settings)
	log.LogWithFields(log.F("file", d.configFile), log.F("enabled", settings.Enabled)).Info("Settings reloaded")
	return nil
}

// followConfig watches the directory holding the settings file, since
// editors often replace the file rather than write to it.
func (d *Daemon) followConfig(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create settings watcher")
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(d.configFile)); err != nil {
		log.LogWithFields(log.F("file", d.configFile), log.F("error", err)).Warn("Not following settings changes")
		<-ctx.Done()
		return nil
	}

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != d.configFile {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if err := d.ReloadConfig(); err != nil {
				log.LogWithError(err).Warn("Keeping previous settings")
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.LogWithFields(log.F("error", err)).Error("Settings watcher error")

		case <-ctx.Done():
			return nil
		}
	}
}

func (d *Daemon) record(res types.RenameResult) {
	d.mutex.Lock()
	d.lastActivity = time.Now()
	if res.Moved {
		d.renamed++
	} else if res.Error != nil {
		d.failed++
	}
	cb := d.callback
	d.mutex.Unlock()

	if cb != nil {
		cb(res)
	}
}

// Status returns the current status of the daemon
func (d *Daemon) Status() DaemonStatus {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	return DaemonStatus{
		Running:          d.running,
		Vault:            d.store.Dir(),
		ConfigFile:       d.configFile,
		Enabled:          d.coordinator.Settings().Enabled,
		WatchDirectories: len(d.watcher.Directories()),
		LastActivity:     d.lastActivity,
		Renamed:          d.renamed,
		Failed:           d.failed,
		InFlight:         d.coordinator.InFlightPaths(),
	}
}
