package delegation

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultMaxDepth bounds every walk regardless of what the contract returns
const DefaultMaxDepth = 10

// ErrLookupFailed marks a chain cut short by a failed delegate lookup
var ErrLookupFailed = errors.New("delegate lookup failed")

// Chain is the ordered delegation path starting at a queried address.
//
// Path[0] is the queried address. When HasCycle is set, the last element is the
// revisited address and CycleIndex points at it; otherwise CycleIndex is -1.
type Chain struct {
	Path       []common.Address
	Depth      int  // edges traversed, always len(Path)-1
	HasCycle   bool // the walk revisited an address
	CycleIndex int
	Truncated  bool  // max depth reached while the chain still continued
	Err        error // set when a lookup failure or cancellation stopped the walk
}

// Partial reports whether the walk stopped before reaching a terminator
func (c Chain) Partial() bool {
	return c.Err != nil
}

// Start returns the queried address
func (c Chain) Start() common.Address {
	return c.Path[0]
}

// Terminus returns the last address on the path.
// Only meaningful for complete, acyclic, untruncated chains.
func (c Chain) Terminus() common.Address {
	return c.Path[len(c.Path)-1]
}

// Delegated reports whether the start address delegates to someone else
func (c Chain) Delegated() bool {
	return c.Depth > 0
}

// Contains reports whether addr is somewhere on the path
func (c Chain) Contains(addr common.Address) bool {
	for _, a := range c.Path {
		if a == addr {
			return true
		}
	}
	return false
}

// ResolveChain follows outgoing delegation edges from start until self-delegation,
// the zero address, a revisited address or maxDepth hops. A non-positive maxDepth
// means DefaultMaxDepth.
//
// A failed lookup stops the walk at the last resolved node and is reported through
// Chain.Err; it is never read as "not delegating".
func ResolveChain(ctx context.Context, start common.Address, lookup DelegateLookup, maxDepth int) Chain {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	chain := Chain{
		Path:       []common.Address{start},
		CycleIndex: -1,
	}
	visited := map[common.Address]struct{}{start: {}}

	previous := start
	current, err := lookupDelegate(ctx, lookup, start)
	if err != nil {
		chain.Err = err
		return chain
	}

	for range maxDepth {
		if IsZero(current) || current == previous {
			return chain.finish()
		}

		if _, seen := visited[current]; seen {
			chain.Path = append(chain.Path, current)
			chain.HasCycle = true
			chain.CycleIndex = len(chain.Path) - 1
			return chain.finish()
		}

		chain.Path = append(chain.Path, current)
		visited[current] = struct{}{}
		previous = current

		current, err = lookupDelegate(ctx, lookup, current)
		if err != nil {
			chain.Err = err
			return chain.finish()
		}
	}

	// The cap was hit; the last lookup tells whether the chain ends right here
	if !IsZero(current) && current != previous {
		chain.Truncated = true
	}
	return chain.finish()
}

func (c Chain) finish() Chain {
	c.Depth = len(c.Path) - 1
	return c
}

func lookupDelegate(ctx context.Context, lookup DelegateLookup, addr common.Address) (common.Address, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, err
	}
	delegate, err := lookup.DelegateOf(ctx, addr)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return common.Address{}, ctxErr
		}
		return common.Address{}, fmt.Errorf("%w: %s: %w", ErrLookupFailed, addr.Hex(), err)
	}
	return delegate, nil
}
