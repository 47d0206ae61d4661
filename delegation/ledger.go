package delegation

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DelegateLookup resolves the current outgoing delegation edge of an address.
// Self or the zero address means the account is not delegating.
type DelegateLookup interface {
	DelegateOf(ctx context.Context, addr common.Address) (common.Address, error)
}

// DelegatorLister lists addresses whose outgoing edge points at addr, in no particular order
type DelegatorLister interface {
	DelegatorsOf(ctx context.Context, addr common.Address) ([]common.Address, error)
}

// BalanceReader returns the current token balance of an address
type BalanceReader interface {
	BalanceOf(ctx context.Context, addr common.Address) (*big.Int, error)
}

// Ledger is the token contract surface the aggregator reads from
type Ledger interface {
	DelegateLookup
	DelegatorLister
	BalanceReader
}
