package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper is the minimal interface the scheduler needs from a store that
// expires idle entries. Sweep returns the number of entries removed.
type Sweeper interface {
	Sweep(ctx context.Context, idleFor time.Duration) (int, error)
}

// Scheduler periodically runs a Sweeper's Sweep method.
type Scheduler struct {
	interval time.Duration
	ttl      time.Duration
	sweeper  Sweeper
	log      *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler constructs a scheduler that calls sweeper.Sweep(ttl) every `interval`.
// If interval <= 0 it defaults to 1 minute.
func NewScheduler(interval, ttl time.Duration, sweeper Sweeper, log *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Scheduler{
		interval: interval,
		ttl:      ttl,
		sweeper:  sweeper,
		log:      log,
		done:     make(chan struct{}),
	}
}

// Start begins the scheduler loop in a background goroutine.
// Calling Start multiple times has no effect.
func (s *Scheduler) Start(parentCtx context.Context) {
	if s.ctx != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	s.ctx = ctx
	s.cancel = cancel

	go s.loop()
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(s.done)
	}()

	s.log.Info().Dur("interval", s.interval).Dur("ttl", s.ttl).Msg("sweeper started")
	for {
		select {
		case <-s.ctx.Done():
			s.log.Info().Msg("sweeper stopping")
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *Scheduler) runOnce() {
	runCtx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()
	n, err := s.sweeper.Sweep(runCtx, s.ttl)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep failed")
		return
	}
	if n > 0 {
		s.log.Debug().Int("removed", n).Msg("swept idle conversations")
	}
}

// Stop cancels the scheduler and waits for the loop to finish. It is idempotent.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.ctx = nil
	s.cancel = nil
	s.done = make(chan struct{})
}
