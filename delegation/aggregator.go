package delegation

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultConcurrency caps parallel ledger reads per request
const DefaultConcurrency = 8

// Option configures the Aggregator
// ---------------------------------
type Option func(*Aggregator)

// WithMaxDepth sets the walk cap used for chains and delegator discovery
func WithMaxDepth(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxDepth = n
		}
	}
}

// WithHardLimit sets the depth at which delegations are blocked
func WithHardLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.hardLimit = n
		}
	}
}

// WithConcurrency sets how many ledger reads may run at once
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// Aggregator answers chain, preflight and voting power questions against a Ledger.
// It holds no per-request state and is safe for concurrent use.
type Aggregator struct {
	ledger      Ledger
	maxDepth    int
	hardLimit   int
	concurrency int
}

// NewAggregator constructs an Aggregator with required dependencies and options
// ---------------------------------------------------------------------------
// By default, it walks at most 10 hops, blocks at depth 8 and runs 8 reads at once.
func NewAggregator(ledger Ledger, opts ...Option) *Aggregator {
	a := &Aggregator{
		ledger:      ledger,
		maxDepth:    DefaultMaxDepth,
		hardLimit:   DefaultHardLimit,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MaxDepth returns the configured walk cap
func (a *Aggregator) MaxDepth() int { return a.maxDepth }

// HardLimit returns the configured blocking depth
func (a *Aggregator) HardLimit() int { return a.hardLimit }

// Chain resolves the delegation chain of addr with the configured cap
func (a *Aggregator) Chain(ctx context.Context, addr common.Address) Chain {
	return ResolveChain(ctx, addr, a.ledger, a.maxDepth)
}

// ChainWithDepth resolves the chain of addr with a caller-chosen cap, never above the configured one
func (a *Aggregator) ChainWithDepth(ctx context.Context, addr common.Address, maxDepth int) Chain {
	if maxDepth <= 0 || maxDepth > a.maxDepth {
		maxDepth = a.maxDepth
	}
	return ResolveChain(ctx, addr, a.ledger, maxDepth)
}

// Classify grades an existing chain for display. The level is informational here;
// Check is what refuses new delegations.
func (a *Aggregator) Classify(c Chain) WarningLevel {
	return ClassifyWithLimit(c.Depth, c.HasCycle, a.hardLimit)
}
