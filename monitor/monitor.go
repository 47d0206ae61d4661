// Package monitor keeps effective voting power of a watch list fresh by recomputing it
// on a fixed interval.
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/screwyprof/daodelegate/delegation"
	"github.com/screwyprof/daodelegate/pkg/cache"
	"github.com/screwyprof/daodelegate/pkg/clock"
)

// Sentinel errors for failure cases
var (
	ErrEmptyWatchList = errors.New("watch list is empty")
	ErrRefreshFailed  = errors.New("power refresh failed")
)

// DefaultInterval matches the freshness window of a power snapshot
const DefaultInterval = 30 * time.Second

// PowerSource computes effective voting power
// -------------------------------------------
type PowerSource interface {
	EffectivePower(ctx context.Context, addr common.Address) (delegation.Power, error)
}

// Sink receives refreshed snapshots. *cache.Store satisfies it.
type Sink interface {
	Put(addr common.Address, power delegation.Power) cache.Entry[delegation.Power]
}

// Clock abstracts time for production and testing
type Clock = clock.Clock

// Event represents a service lifecycle event
// ------------------------------------------
type Event any

// WarmupStarted is emitted before the first refresh of the watch list
type WarmupStarted struct {
	StartedAt time.Time
	Watched   int
}

// WarmupDone is emitted once every watched address has been refreshed once
type WarmupDone struct {
	Summary  CycleSummary
	Duration time.Duration
}

// PowerRefreshed carries one fresh snapshot
type PowerRefreshed struct {
	Entry cache.Entry[delegation.Power]
}

// RefreshError reports an address whose power could not be computed
type RefreshError struct {
	Address common.Address
	Err     error
}

type PollingStarted struct {
	Interval time.Duration
}

type CycleCompleted struct {
	Summary CycleSummary
}

type PollingShutdown struct {
	Reason error // ctx.Err()
}

// CycleSummary counts the outcome of one pass over the watch list
type CycleSummary struct {
	Refreshed  int
	Incomplete int
	Failed     int
}
