package delegation_test

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
)

var errRPCUnavailable = errors.New("rpc unavailable")

// fakeLedger is an in-memory token contract. Delegators are derived from the
// delegate edges so the two views can never disagree.
type fakeLedger struct {
	mu        sync.Mutex
	delegates map[common.Address]common.Address
	balances  map[common.Address]*big.Int

	failDelegate   map[common.Address]bool
	failDelegators map[common.Address]bool
	failBalance    map[common.Address]bool

	// next, when set, answers DelegateOf for addresses without an edge
	next func(common.Address) common.Address
	// listed, when set, runs after each successful DelegatorsOf lookup
	listed func(common.Address)

	delegateCalls atomic.Int64
}

func newLedger() *fakeLedger {
	return &fakeLedger{
		delegates:      make(map[common.Address]common.Address),
		balances:       make(map[common.Address]*big.Int),
		failDelegate:   make(map[common.Address]bool),
		failDelegators: make(map[common.Address]bool),
		failBalance:    make(map[common.Address]bool),
	}
}

func (l *fakeLedger) edge(from, to common.Address) *fakeLedger {
	l.delegates[from] = to
	return l
}

func (l *fakeLedger) path(addrs ...common.Address) *fakeLedger {
	for i := 0; i+1 < len(addrs); i++ {
		l.delegates[addrs[i]] = addrs[i+1]
	}
	return l
}

func (l *fakeLedger) balance(addr common.Address, amount int64) *fakeLedger {
	l.balances[addr] = big.NewInt(amount)
	return l
}

func (l *fakeLedger) DelegateOf(ctx context.Context, addr common.Address) (common.Address, error) {
	l.delegateCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return common.Address{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failDelegate[addr] {
		return common.Address{}, errRPCUnavailable
	}
	if to, ok := l.delegates[addr]; ok {
		return to, nil
	}
	if l.next != nil {
		return l.next(addr), nil
	}
	return addr, nil
}

func (l *fakeLedger) DelegatorsOf(ctx context.Context, addr common.Address) ([]common.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failDelegators[addr] {
		return nil, errRPCUnavailable
	}
	var out []common.Address
	for _, from := range sortedKeys(l.delegates) {
		if l.delegates[from] == addr && from != addr {
			out = append(out, from)
		}
	}
	if l.listed != nil {
		l.listed(addr)
	}
	return out, nil
}

func (l *fakeLedger) BalanceOf(ctx context.Context, addr common.Address) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failBalance[addr] {
		return nil, errRPCUnavailable
	}
	if b, ok := l.balances[addr]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func sortedKeys(m map[common.Address]common.Address) []common.Address {
	keys := make([]common.Address, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b common.Address) int {
		return bytes.Compare(a[:], b[:])
	})
	return keys
}

// addr builds a readable test address from a short name
func addr(name string) common.Address {
	return common.BytesToAddress([]byte(name))
}

func addrs(names ...string) []common.Address {
	out := make([]common.Address, len(names))
	for i, n := range names {
		out[i] = addr(n)
	}
	return out
}

// numbered returns n distinct addresses n0..n(n-1)
func numbered(prefix string, n int) []common.Address {
	out := make([]common.Address, n)
	for i := range out {
		out[i] = common.BytesToAddress(append([]byte(prefix), byte(i)))
	}
	return out
}
