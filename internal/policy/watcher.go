package policy

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/h2labs/hevsup/internal/ports"
)

// DefaultDebounceDelay is how long the watcher waits after a file change
// before reloading, so editors and atomic renames settle first.
const DefaultDebounceDelay = 100 * time.Millisecond

// WatcherConfig controls the model file watcher.
type WatcherConfig struct {
	// Path is the model file to watch and load.
	Path string

	// DebounceDelay overrides DefaultDebounceDelay when positive.
	DebounceDelay time.Duration
}

// Watcher keeps the holder's adjustment policy in sync with the model file.
// It watches the file's directory, which survives editors that replace the
// file instead of writing it in place. A file that fails to load is logged
// and skipped; the previously active policy stays installed.
type Watcher struct {
	cfg    WatcherConfig
	holder *Holder
	logger ports.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	reloads atomic.Uint64

	mu       sync.Mutex
	debounce *time.Timer
}

// NewWatcher creates a watcher that swaps reloaded models into holder.
func NewWatcher(cfg WatcherConfig, holder *Holder, logger ports.Logger) *Watcher {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = DefaultDebounceDelay
	}
	return &Watcher{cfg: cfg, holder: holder, logger: logger}
}

// Start loads the model once, then begins watching for changes. The initial
// load may fail without failing Start: the supervisor can run on the Zero
// adjustment until a valid model appears.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(w.cfg.Path)); err != nil {
		fw.Close()
		return err
	}

	w.reload()

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	go w.loop(watchCtx, fw)
	return nil
}

// Stop ends the watch loop and cancels any pending debounced reload.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()

	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()
}

// Reloads returns how many models have been successfully installed.
func (w *Watcher) Reloads() uint64 {
	return w.reloads.Load()
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer w.wg.Done()
	defer fw.Close()

	base := filepath.Base(w.cfg.Path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceReload()

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("model watcher error", ports.Err(err))
		}
	}
}

func (w *Watcher) debounceReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.cfg.DebounceDelay, w.reload)
}

func (w *Watcher) reload() {
	model, err := LoadModel(w.cfg.Path)
	if err != nil {
		w.logger.Warn("model reload skipped",
			ports.String("path", w.cfg.Path),
			ports.Err(err),
		)
		return
	}
	adj, err := NewLinearAdjustment(model)
	if err != nil {
		w.logger.Warn("model reload skipped",
			ports.String("path", w.cfg.Path),
			ports.Err(err),
		)
		return
	}

	w.holder.Swap(adj)
	w.reloads.Add(1)
	w.logger.Info("adjustment model installed",
		ports.String("path", w.cfg.Path),
		ports.Int("axes", model.Dim()),
		ports.Float64("confidence", model.Confidence),
	)
}
