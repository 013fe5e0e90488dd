package volume

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/spacedriveapp/sdcore/internal/eventbus"
	"github.com/spacedriveapp/sdcore/internal/model"
	"github.com/spacedriveapp/sdcore/internal/store"
)

// Manager keeps internal/store's volumes table in sync with the OS's
// mounted partitions: a periodic rescan (via robfig/cron) reconciles the
// full set, and an optional fsnotify watch per known mount point catches
// an abrupt unmount between rescans. Every add/remove/update publishes on
// eventbus. Grounded on the teacher's Dispatcher (internal/job,
// itself grounded on internal/sync/worker.go) for the
// Start(ctx)/Stop() goroutine-lifecycle shape.
type Manager struct {
	store    *store.Store
	bus      *eventbus.Bus
	logger   *slog.Logger
	deviceID string
	nowMS    func() int64

	watchMounts bool

	cronSched *cron.Cron

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	watching map[string]bool // mount points currently watched

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config configures a Manager's background behavior.
type Config struct {
	RescanSpec  string // robfig/cron descriptor, e.g. "@every 5m"
	WatchMounts bool
}

// NewManager constructs a Manager. Start must be called to begin the
// periodic rescan and (if enabled) mount-point watch.
func NewManager(st *store.Store, bus *eventbus.Bus, logger *slog.Logger, deviceID string, cfg Config, nowMS func() int64) *Manager {
	m := &Manager{
		store:       st,
		bus:         bus,
		logger:      logger,
		deviceID:    deviceID,
		nowMS:       nowMS,
		watchMounts: cfg.WatchMounts,
		cronSched:   cron.New(),
		watching:    make(map[string]bool),
	}

	if _, err := m.cronSched.AddFunc(cfg.RescanSpec, m.reconcileAndLog); err != nil {
		logger.Error("volume: invalid rescan schedule, periodic rescans disabled",
			"spec", cfg.RescanSpec, "error", err)
	}

	return m
}

// Start performs an initial reconciliation, then launches the cron
// scheduler and (if configured) the fsnotify watch loop.
func (m *Manager) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	if err := m.Reconcile(ctx); err != nil {
		m.logger.Warn("volume: initial reconciliation failed", "error", err)
	}

	m.cronSched.Start()

	if m.watchMounts {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			cancel()
			return err
		}

		m.mu.Lock()
		m.watcher = w
		m.mu.Unlock()

		m.addWatchesForKnownVolumes(ctx)

		m.wg.Add(1)

		go m.watchLoop(ctx)
	}

	return nil
}

// Stop halts the cron scheduler and fsnotify watch loop, waiting for the
// watch goroutine to exit.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}

	stopCtx := m.cronSched.Stop()
	<-stopCtx.Done()

	m.mu.Lock()
	w := m.watcher
	m.mu.Unlock()

	if w != nil {
		_ = w.Close()
	}

	m.wg.Wait()
}

func (m *Manager) reconcileAndLog() {
	if err := m.Reconcile(context.Background()); err != nil {
		m.logger.Warn("volume: periodic reconciliation failed", "error", err)
	}
}

// Reconcile runs one detect-diff-persist-publish cycle: Detect() is
// compared against the store's known volumes for this device, new
// mounts are inserted (VolumeAdded), vanished mounts are marked offline
// (VolumeRemoved), and surviving mounts with changed capacity/availability
// are updated (VolumeUpdated).
func (m *Manager) Reconcile(ctx context.Context) error {
	detected, err := Detect(ctx, m.deviceID)
	if err != nil {
		return err
	}

	known, err := m.store.ListVolumesForDevice(ctx, m.deviceID)
	if err != nil {
		return err
	}

	knownByFingerprint := make(map[string]*model.Volume, len(known))
	for _, v := range known {
		knownByFingerprint[v.Fingerprint] = v
	}

	seen := make(map[string]bool, len(detected))
	now := m.nowMS()

	for i := range detected {
		v := detected[i]
		seen[v.Fingerprint] = true

		existing, ok := knownByFingerprint[v.Fingerprint]

		switch {
		case !ok:
			v.ID = uuid.NewString()
			v.DetectedAt = now
			v.UpdatedAt = now

			if err := m.store.UpsertVolume(ctx, &v); err != nil {
				return err
			}

			m.publish(ctx, eventbus.Event{Kind: eventbus.KindVolumeAdded, VolumeID: v.ID}, now)
		case existing.TotalBytes != v.TotalBytes || existing.AvailableBytes != v.AvailableBytes || !existing.Online:
			v.ID = existing.ID
			v.IsTracked = existing.IsTracked
			v.DetectedAt = existing.DetectedAt
			v.Online = true
			v.UpdatedAt = now

			if err := m.store.UpsertVolume(ctx, &v); err != nil {
				return err
			}

			m.publish(ctx, eventbus.Event{Kind: eventbus.KindVolumeUpdated, VolumeID: v.ID}, now)
		}
	}

	for _, v := range known {
		if !seen[v.Fingerprint] && v.Online {
			if err := m.store.SetVolumeOnline(ctx, v.ID, false, now); err != nil {
				return err
			}

			m.publish(ctx, eventbus.Event{Kind: eventbus.KindVolumeRemoved, VolumeID: v.ID}, now)
		}
	}

	if m.watchMounts {
		m.addWatchesForKnownVolumes(ctx)
	}

	return nil
}

func (m *Manager) publish(ctx context.Context, ev eventbus.Event, now int64) {
	if m.bus == nil {
		return
	}

	if err := m.bus.Publish(ctx, ev, now); err != nil {
		m.logger.Warn("volume: publishing event failed", "kind", ev.Kind, "error", err)
	}
}

// addWatchesForKnownVolumes adds an fsnotify watch on every currently
// online volume's mount point not already watched, so a mount point's
// abrupt disappearance (an external drive yanked, not cleanly unmounted)
// surfaces via fsnotify.Remove between cron ticks rather than waiting up
// to RescanSpec's full period.
func (m *Manager) addWatchesForKnownVolumes(ctx context.Context) {
	volumes, err := m.store.ListVolumesForDevice(ctx, m.deviceID)
	if err != nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.watcher == nil {
		return
	}

	for _, v := range volumes {
		if !v.Online || m.watching[v.MountPoint] {
			continue
		}

		if err := m.watcher.Add(v.MountPoint); err != nil {
			m.logger.Debug("volume: failed to watch mount point", "path", v.MountPoint, "error", err)
			continue
		}

		m.watching[v.MountPoint] = true
	}
}

func (m *Manager) watchLoop(ctx context.Context) {
	defer m.wg.Done()

	m.mu.Lock()
	w := m.watcher
	m.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}

			if ev.Has(fsnotify.Remove) {
				m.logger.Info("volume: mount point disappeared, triggering reconciliation", "path", ev.Name)

				reconcileCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				if err := m.Reconcile(reconcileCtx); err != nil {
					m.logger.Warn("volume: reconciliation after mount-point removal failed", "error", err)
				}
				cancel()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}

			m.logger.Warn("volume: fsnotify error", "error", err)
		}
	}
}
