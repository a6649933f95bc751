package featurestore

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Sweeper periodically soft-deletes expired durable rows. It is safe to run
// concurrently with writers: a rewrite bumps the row's TTL into the future,
// removing it from the sweep's match set, and the sweep itself is idempotent.
type Sweeper struct {
	store    *Store
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// SweeperOption is a functional option for configuring a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepInterval sets how often the sweep runs.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithSweeperLogger sets the logger for the sweeper.
func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSweeper creates a TTL sweeper over the given store.
func NewSweeper(store *Store, opts ...SweeperOption) (*Sweeper, error) {
	if store == nil {
		return nil, errors.Join(ErrInvalidInput, errors.New("store cannot be nil"))
	}
	s := &Sweeper{
		store:    store,
		interval: 5 * time.Minute,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the background sweep loop. It returns ErrSweeperRunning if
// the sweeper is already started.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrSweeperRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	// The goroutine closes its captured channel, never the struct field:
	// Stop and a later Start reassign s.done while the loop may still be
	// winding down.
	go func() {
		defer close(done)
		s.run(ctx)
	}()

	s.logger.Info("feature sweeper started", slog.Duration("interval", s.interval))
	return nil
}

// Stop cancels the sweep loop and waits for it to exit. Stopping a sweeper
// that was never started is a no-op.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := s.store.CleanupExpired(ctx)
			if err != nil {
				s.logger.Error("feature sweep failed", slog.String("error", err.Error()))
				continue
			}
			if count > 0 {
				s.logger.Info("feature sweep completed", slog.Int64("expired", count))
			}
		}
	}
}
