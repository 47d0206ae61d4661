package delegation

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Assessment is the projected outcome of a delegation from From to To
type Assessment struct {
	From      common.Address
	To        common.Address
	Path      []common.Address // From followed by To's chain as it would be after the change
	Depth     int
	HasCycle  bool
	Truncated bool
	Level     WarningLevel
	Err       error // lookup failure that left the projection partial
}

// Blocked reports whether the delegation must be refused
func (a Assessment) Blocked() bool {
	return a.Level == WarningBlocked
}

// Partial reports whether the projection is based on incomplete data
func (a Assessment) Partial() bool {
	return a.Err != nil
}

// Check projects the chain created by delegating from -> to and grades it before the
// transaction is submitted. Delegating to self or to the zero address is an
// un-delegation and always passes.
//
// A partial projection is graded on what was resolved and returned with Err set;
// the caller decides whether to proceed. The error result is only for cancellation.
func (a *Aggregator) Check(ctx context.Context, from, to common.Address) (Assessment, error) {
	as := Assessment{
		From: from,
		To:   to,
		Path: []common.Address{from},
	}
	if IsZero(to) || to == from {
		as.Level = WarningNone
		return as, nil
	}

	chain := ResolveChain(ctx, to, a.ledger, a.maxDepth)
	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}

	projected := chain.Path
	if idx := indexOf(chain.Path, from); idx >= 0 {
		// from already sits downstream of to: the new edge closes a loop at from
		projected = chain.Path[:idx+1]
		as.HasCycle = true
	} else {
		as.HasCycle = chain.HasCycle
		as.Truncated = chain.Truncated
		as.Err = chain.Err
	}

	as.Path = append(as.Path, projected...)
	as.Depth = len(as.Path) - 1
	as.Level = ClassifyWithLimit(as.Depth, as.HasCycle, a.hardLimit)
	if as.Truncated {
		as.Level = WarningBlocked
	}
	return as, nil
}

func indexOf(path []common.Address, addr common.Address) int {
	for i, a := range path {
		if a == addr {
			return i
		}
	}
	return -1
}
