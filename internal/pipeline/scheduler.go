package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrAlreadyRunning is returned when a run is requested while one is in
// flight.
var ErrAlreadyRunning = errors.New("sync already running")

// Scheduler runs the pipeline on a fixed interval and serializes manual
// triggers against scheduled ones.
type Scheduler struct {
	pipeline *Pipeline
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a Scheduler.
func NewScheduler(p *Pipeline, interval time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		pipeline: p,
		interval: interval,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Run executes one pipeline run unless one is already in flight.
func (s *Scheduler) Run(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	return s.pipeline.Run(ctx)
}

// Start blocks, running the pipeline every interval until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil && !errors.Is(err, ErrAlreadyRunning) {
				s.log.Error().Err(err).Msg("scheduled sync failed")
			}
		}
	}
}
