package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"hftish_go/internal/broker"
	"hftish_go/internal/domain"
)

// clockRetryDelay is how long to wait before re-fetching the clock when it
// is unavailable or has not yet rolled past the previous session boundary.
const clockRetryDelay = 15 * time.Minute

// Scheduler drives session bring-up and tear-down from the broker's market
// clock. Timers are strictly one-shot: every firing re-arms exactly one
// successor, and at most one timer is outstanding at any time.
type Scheduler struct {
	gateway broker.Gateway
	onOpen  func(context.Context)
	onClose func(context.Context)

	retryDelay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewScheduler creates a scheduler calling onOpen at each market open and
// onClose at each close.
func NewScheduler(gw broker.Gateway, onOpen, onClose func(context.Context)) *Scheduler {
	return &Scheduler{
		gateway:    gw,
		onOpen:     onOpen,
		onClose:    onClose,
		retryDelay: clockRetryDelay,
	}
}

// ComputeDelay returns the duration from now until target. Callers must
// treat a negative result as "clock not yet rolled over" and re-fetch after
// a fixed wait instead of firing immediately.
func ComputeDelay(now, target time.Time) time.Duration {
	return target.Sub(now)
}

// Start fetches the clock and either brings the session up immediately (if
// the market is already open) or arms the open timer. A failed clock fetch
// arms a retry instead of crashing.
func (s *Scheduler) Start(ctx context.Context) {
	clock, err := s.gateway.GetClock(ctx)
	if err != nil {
		slog.Error("Clock unavailable; retrying", "err", err, "retry_in", s.retryDelay)
		s.arm(s.retryDelay, func() { s.Start(ctx) })
		return
	}
	if clock.IsOpen {
		s.fireOpen(ctx)
	} else {
		s.scheduleOpen(ctx, clock)
	}
}

// Stop kills any armed timer. No further callbacks fire after Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) scheduleOpen(ctx context.Context, clock domain.Clock) {
	delay := ComputeDelay(time.Now(), clock.NextOpen)
	if delay < 0 {
		slog.Info("Clock has not yet rolled over after market close, sleeping for 15 minutes")
		s.arm(s.retryDelay, func() { s.refetchThen(ctx, s.scheduleOpen) })
		return
	}
	slog.Info("Market is closed", slog.Int64("opens_in_minutes", int64(delay.Minutes())))
	s.arm(delay, func() { s.fireOpen(ctx) })
}

func (s *Scheduler) scheduleClose(ctx context.Context, clock domain.Clock) {
	delay := ComputeDelay(time.Now(), clock.NextClose)
	if delay < 0 {
		slog.Info("Clock has not yet rolled over past the open, sleeping for 15 minutes")
		s.arm(s.retryDelay, func() { s.refetchThen(ctx, s.scheduleClose) })
		return
	}
	slog.Info("Market will close", slog.Int64("closes_in_minutes", int64(delay.Minutes())))
	s.arm(delay, func() { s.fireClose(ctx) })
}

// fireOpen runs session bring-up, then arms the close timer.
func (s *Scheduler) fireOpen(ctx context.Context) {
	slog.Info("Market is now open")
	s.onOpen(ctx)
	s.refetchThen(ctx, s.scheduleClose)
}

// fireClose runs session tear-down, then arms the next open timer.
func (s *Scheduler) fireClose(ctx context.Context) {
	s.onClose(ctx)
	slog.Info("Market is now closed")
	s.refetchThen(ctx, s.scheduleOpen)
}

// refetchThen fetches the clock and hands it to next, arming a retry on
// failure.
func (s *Scheduler) refetchThen(ctx context.Context, next func(context.Context, domain.Clock)) {
	clock, err := s.gateway.GetClock(ctx)
	if err != nil {
		slog.Error("Clock unavailable; retrying", "err", err, "retry_in", s.retryDelay)
		s.arm(s.retryDelay, func() { s.refetchThen(ctx, next) })
		return
	}
	next(ctx, clock)
}

// arm replaces any outstanding timer with a single one-shot successor.
func (s *Scheduler) arm(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, fn)
}
