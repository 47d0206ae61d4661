package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/screwyprof/daodelegate/pkg/clock"
)

// Option configures the Service
// ------------------------------------------------
type Option func(*Service)

// WithClock injects a custom Clock (e.g., for testing)
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithInterval sets the refresh interval
func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

// Service recomputes the power of every watched address, once on start and then
// every interval until the context is cancelled.
// -----------------------------------------------------------------
type Service struct {
	source   PowerSource
	sink     Sink
	watch    []common.Address
	clock    Clock
	interval time.Duration
	events   chan Event
}

// NewService constructs a Service. Duplicate addresses in watch are refreshed once.
func NewService(source PowerSource, sink Sink, watch []common.Address, opts ...Option) (*Service, error) {
	watch = dedupe(watch)
	if len(watch) == 0 {
		return nil, ErrEmptyWatchList
	}

	s := &Service{
		source:   source,
		sink:     sink,
		watch:    watch,
		clock:    clock.SystemClock{},
		interval: DefaultInterval,
		events:   make(chan Event, 10),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the monitor and returns the events channel and done channel.
//
// Shutdown pattern:
//  1. Cancel context to request shutdown: cancel()
//  2. Service stops producing events and closes events channel
//  3. Wait for complete shutdown: <-done
func (s *Service) Start(ctx context.Context) (<-chan Event, <-chan struct{}) {
	done := make(chan struct{})
	go func() {
		defer close(s.events)
		defer close(done)
		s.run(ctx)
	}()
	return s.events, done
}

func (s *Service) run(ctx context.Context) {
	// Warmup
	start := s.clock.Now()
	s.events <- WarmupStarted{StartedAt: start, Watched: len(s.watch)}

	summary, err := s.refreshAll(ctx)
	if err != nil {
		s.events <- PollingShutdown{Reason: err}
		return
	}
	s.events <- WarmupDone{Summary: summary, Duration: s.clock.Now().Sub(start)}

	// Polling
	s.events <- PollingStarted{Interval: s.interval}
	for {
		select {
		case <-ctx.Done():
			s.events <- PollingShutdown{Reason: ctx.Err()}
			return
		case <-s.clock.After(s.interval):
			summary, err := s.refreshAll(ctx)
			if err != nil {
				s.events <- PollingShutdown{Reason: err}
				return
			}
			s.events <- CycleCompleted{Summary: summary}
		}
	}
}

// refreshAll walks the watch list once. Only cancellation aborts the pass; per-address
// failures are reported and counted.
func (s *Service) refreshAll(ctx context.Context) (CycleSummary, error) {
	var summary CycleSummary
	for _, addr := range s.watch {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		power, err := s.source.EffectivePower(ctx, addr)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Failed++
			s.events <- RefreshError{Address: addr, Err: fmt.Errorf("%w: %w", ErrRefreshFailed, err)}
			continue
		}

		entry := s.sink.Put(addr, power)
		summary.Refreshed++
		if power.Incomplete {
			summary.Incomplete++
		}
		s.events <- PowerRefreshed{Entry: entry}
	}
	return summary, nil
}

func dedupe(addrs []common.Address) []common.Address {
	seen := make(map[common.Address]struct{}, len(addrs))
	out := make([]common.Address, 0, len(addrs))
	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
