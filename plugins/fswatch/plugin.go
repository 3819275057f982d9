// Package fswatch provides a file-watching component for the rigging
// orchestrator. The component starts an fsnotify watcher on start, debounces
// change bursts, and delivers changed paths to a handler until stopped.
package fswatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/rigging/pkg/log"
)

// DefaultDebounce is the delay applied to change bursts before the handler
// fires.
const DefaultDebounce = 100 * time.Millisecond

// ErrNoPaths is returned on start when the watcher has nothing to watch.
var ErrNoPaths = errors.New("fswatch: no paths configured")

// Handler receives the path of a changed file after debouncing.
type Handler func(path string)

// Config holds the watcher component's configuration.
type Config struct {
	// Paths are the files or directories to watch.
	Paths []string

	// Debounce coalesces change bursts per path. Zero means DefaultDebounce.
	Debounce time.Duration

	// Handler receives changed paths. A nil handler drops events.
	Handler Handler

	// Logger receives watcher diagnostics. Nil means no output.
	Logger log.Logger
}

// DefaultConfig returns a Config with default settings.
func DefaultConfig() Config {
	return Config{Debounce: DefaultDebounce}
}

// Watcher is the component. It implements the start, stop, and destroy
// lifecycle hooks: the watch loop runs between OnStart and OnStop.
type Watcher struct {
	cfg    Config
	logger log.Logger

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	cancel   context.CancelFunc
	stopped  chan struct{}
	debounce map[string]*time.Timer
}

// New creates a watcher component for the given configuration.
func New(cfg Config) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Watcher{
		cfg:      cfg,
		logger:   logger,
		debounce: make(map[string]*time.Timer),
	}
}

// OnStart creates the fsnotify watcher, registers every configured path,
// and launches the watch loop. The loop outlives the hook's context; OnStop
// terminates it.
func (w *Watcher) OnStart(ctx context.Context) error {
	if len(w.cfg.Paths) == 0 {
		return ErrNoPaths
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, p := range w.cfg.Paths {
		if err := fw.Add(p); err != nil {
			_ = fw.Close()
			return err
		}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})

	w.mu.Lock()
	w.watcher = fw
	w.cancel = cancel
	w.stopped = stopped
	w.mu.Unlock()

	go w.loop(loopCtx, fw, stopped)
	w.logger.Info("file watcher started", log.Int("paths", len(w.cfg.Paths)))
	return nil
}

// OnStop terminates the watch loop and closes the watcher. Pending debounce
// timers are discarded.
func (w *Watcher) OnStop(ctx context.Context) error {
	w.mu.Lock()
	cancel, fw, stopped := w.cancel, w.watcher, w.stopped
	w.cancel, w.watcher, w.stopped = nil, nil, nil
	for p, t := range w.debounce {
		t.Stop()
		delete(w.debounce, p)
	}
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	err := fw.Close()
	select {
	case <-stopped:
	case <-ctx.Done():
		return ctx.Err()
	}
	w.logger.Info("file watcher stopped")
	return err
}

// OnDestroy releases anything a missed stop left behind.
func (w *Watcher) OnDestroy(ctx context.Context) error {
	w.mu.Lock()
	cancel, fw := w.cancel, w.watcher
	w.cancel, w.watcher, w.stopped = nil, nil, nil
	w.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if fw != nil {
		return fw.Close()
	}
	return nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, stopped chan struct{}) {
	defer close(stopped)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", log.Err(err))
		}
	}
}

// schedule arms (or re-arms) the per-path debounce timer.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounce[path]; ok {
		t.Stop()
	}
	w.debounce[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		delete(w.debounce, path)
		w.mu.Unlock()
		if w.cfg.Handler != nil {
			w.cfg.Handler(path)
		}
		w.logger.Debug("file changed", log.String("path", path))
	})
}
