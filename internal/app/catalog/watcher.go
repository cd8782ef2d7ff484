package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"toolscope/internal/domain"
	infraCatalog "toolscope/internal/infra/catalog"
	"toolscope/internal/infra/hashutil"
	"toolscope/internal/infra/telemetry"
)

const defaultReloadDebounce = 200 * time.Millisecond

// Invalidator drops the cached catalog of one owner.
type Invalidator interface {
	Invalidate(ownerKey string)
}

// Update describes a catalog change observed by the watcher.
type Update struct {
	Catalog       infraCatalog.Catalog
	Revision      uint64
	PreviousOwner string
}

type state struct {
	catalog  infraCatalog.Catalog
	owner    *domain.StaticOwner
	revision uint64
	etag     string
}

// Watcher serves a catalog file and reloads it when the file changes.
type Watcher struct {
	logger      *zap.Logger
	loader      *infraCatalog.Loader
	path        string
	invalidator Invalidator
	debounce    time.Duration

	state atomic.Pointer[state]

	subsMu sync.Mutex
	subs   map[chan Update]struct{}

	reloadMu sync.Mutex
}

// NewWatcher loads the catalog at path. The invalidator, when set, is told about
// owners whose tools changed.
func NewWatcher(ctx context.Context, path string, invalidator Invalidator, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loader := infraCatalog.NewLoader(logger)
	catalog, err := loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		logger:      logger.Named("catalog_watcher"),
		loader:      loader,
		path:        path,
		invalidator: invalidator,
		debounce:    defaultReloadDebounce,
		subs:        make(map[chan Update]struct{}),
	}
	w.state.Store(w.newState(catalog, 1))
	return w, nil
}

func (w *Watcher) newState(catalog infraCatalog.Catalog, revision uint64) *state {
	etag, err := hashutil.HashJSON(catalog)
	if err != nil {
		w.logger.Warn("catalog hash failed", zap.Error(err))
	}
	return &state{
		catalog:  catalog,
		owner:    catalog.Owner(),
		revision: revision,
		etag:     etag,
	}
}

// Catalog returns the last successfully loaded catalog.
func (w *Watcher) Catalog() infraCatalog.Catalog {
	return w.state.Load().catalog
}

// Owner returns the tool owner built from the current catalog. The same owner
// value is returned until the catalog changes.
func (w *Watcher) Owner() domain.ToolOwner {
	return w.state.Load().owner
}

// Revision counts successful loads that changed the catalog.
func (w *Watcher) Revision() uint64 {
	return w.state.Load().revision
}

// Subscribe returns a channel receiving catalog updates until ctx is done.
// Slow subscribers miss updates rather than block reloads.
func (w *Watcher) Subscribe(ctx context.Context) <-chan Update {
	ch := make(chan Update, 1)
	w.subsMu.Lock()
	w.subs[ch] = struct{}{}
	w.subsMu.Unlock()

	go func() {
		<-ctx.Done()
		w.subsMu.Lock()
		delete(w.subs, ch)
		w.subsMu.Unlock()
	}()
	return ch
}

// Reload reads the catalog file again. A failed load keeps the previous catalog.
func (w *Watcher) Reload(ctx context.Context) error {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	prev := w.state.Load()
	catalog, err := w.loader.Load(ctx, w.path)
	if err != nil {
		return err
	}

	next := w.newState(catalog, prev.revision+1)
	if next.etag != "" && next.etag == prev.etag {
		return nil
	}
	w.state.Store(next)

	w.invalidate(prev.catalog.OwnerKey)
	if catalog.OwnerKey != prev.catalog.OwnerKey {
		w.invalidate(catalog.OwnerKey)
	}
	w.logger.Info("catalog reloaded",
		telemetry.EventField(telemetry.EventCatalogReload),
		telemetry.OwnerKeyField(catalog.OwnerKey),
		zap.Uint64("revision", next.revision),
		zap.Int("tools", len(catalog.Tools)),
	)
	w.broadcast(Update{
		Catalog:       catalog,
		Revision:      next.revision,
		PreviousOwner: prev.catalog.OwnerKey,
	})
	return nil
}

func (w *Watcher) invalidate(ownerKey string) {
	if w.invalidator == nil || ownerKey == "" {
		return
	}
	w.invalidator.Invalidate(ownerKey)
	w.logger.Debug("catalog invalidated",
		telemetry.EventField(telemetry.EventCatalogInvalidated),
		telemetry.OwnerKeyField(ownerKey),
	)
}

func (w *Watcher) broadcast(update Update) {
	w.subsMu.Lock()
	subs := make([]chan Update, 0, len(w.subs))
	for ch := range w.subs {
		subs = append(subs, ch)
	}
	w.subsMu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- update:
		default:
		}
	}
}

// Run watches the catalog file until ctx is done. Changes are debounced before
// each reload.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("catalog watcher closed")
			}
			w.logger.Warn("catalog watcher error", zap.Error(err))
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("catalog watcher closed")
			}
			if !shouldReloadForPath(event.Name, w.path) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
		case <-timerChan(timer):
			timer = nil
			if err := w.Reload(ctx); err != nil {
				w.logger.Warn("catalog reload failed", zap.String("path", w.path), zap.Error(err))
			}
		}
	}
}

func shouldReloadForPath(path string, catalogPath string) bool {
	if path == "" || catalogPath == "" {
		return false
	}
	return filepath.Clean(path) == filepath.Clean(catalogPath)
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
