// Package heartbeat provides a minimal long-running component: a ticker
// that logs a beat at a fixed interval between start and stop.
package heartbeat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/rigging/pkg/log"
)

// ErrBadInterval is returned on start when the interval is not positive.
var ErrBadInterval = errors.New("heartbeat: interval must be positive")

// Config holds the beater's configuration.
type Config struct {
	// Interval between beats.
	Interval time.Duration

	// OnBeat, if set, is called on every beat with the beat ordinal.
	OnBeat func(n uint64)

	// Logger receives beat output. Nil means no output.
	Logger log.Logger
}

// Beater emits a beat every interval while started.
type Beater struct {
	cfg    Config
	logger log.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
	beats   uint64
}

// New creates a beater for the given configuration.
func New(cfg Config) *Beater {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Beater{cfg: cfg, logger: logger}
}

// Beats returns how many beats have fired since the last start.
func (b *Beater) Beats() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.beats
}

// OnStart launches the tick loop. The loop outlives the hook's context;
// OnStop terminates it.
func (b *Beater) OnStart(ctx context.Context) error {
	if b.cfg.Interval <= 0 {
		return ErrBadInterval
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})

	b.mu.Lock()
	b.cancel = cancel
	b.stopped = stopped
	b.beats = 0
	b.mu.Unlock()

	go b.loop(loopCtx, stopped)
	return nil
}

// OnStop terminates the tick loop and waits for it to exit.
func (b *Beater) OnStop(ctx context.Context) error {
	b.mu.Lock()
	cancel, stopped := b.cancel, b.stopped
	b.cancel, b.stopped = nil, nil
	b.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnDestroy terminates a loop a missed stop left running.
func (b *Beater) OnDestroy(ctx context.Context) error {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel, b.stopped = nil, nil
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

func (b *Beater) loop(ctx context.Context, stopped chan struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.mu.Lock()
			b.beats++
			n := b.beats
			b.mu.Unlock()
			b.logger.Info("beat", log.Any("n", n))
			if b.cfg.OnBeat != nil {
				b.cfg.OnBeat(n)
			}
		}
	}
}
