// Package evmtest provides an in-memory contract backend that speaks the real ABI,
// so bindings and everything above them can be tested without a node.
package evmtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/screwyprof/daodelegate/pkg/evm"
)

// ErrReverted mimics the node error for a reverted call
var ErrReverted = errors.New("execution reverted")

// Backend answers getDelegate, getDelegatorsOf, balanceOf and hasRole from memory.
// It satisfies evm.Caller.
type Backend struct {
	mu        sync.Mutex
	methods   map[string]abi.Method // by 4-byte selector
	delegates map[common.Address]common.Address
	balances  map[common.Address]*big.Int
	roles     map[common.Hash]map[common.Address]bool

	failMethod   map[string]error
	failAddress  map[common.Address]error
	failNext     int
	failNextErr  error
	raw          []byte
	calls        map[string]int
	lastContract common.Address

	hold <-chan struct{}
	held int
}

// NewBackend creates an empty ledger where nobody has delegated
func NewBackend(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		methods:     make(map[string]abi.Method),
		delegates:   make(map[common.Address]common.Address),
		balances:    make(map[common.Address]*big.Int),
		roles:       make(map[common.Hash]map[common.Address]bool),
		failMethod:  make(map[string]error),
		failAddress: make(map[common.Address]error),
		calls:       make(map[string]int),
	}
	for _, def := range []string{evm.TokenABI, evm.AccessControlABI} {
		parsed, err := abi.JSON(strings.NewReader(def))
		require.NoError(t, err)
		for _, m := range parsed.Methods {
			b.methods[string(m.ID)] = m
		}
	}
	return b
}

// Delegate points from at to
func (b *Backend) Delegate(from, to common.Address) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delegates[from] = to
	return b
}

// Path delegates each address to the next; the last one delegates to itself
func (b *Backend) Path(addrs ...common.Address) *Backend {
	for i := 0; i < len(addrs)-1; i++ {
		b.Delegate(addrs[i], addrs[i+1])
	}
	if len(addrs) == 0 {
		return b
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	last := addrs[len(addrs)-1]
	if _, ok := b.delegates[last]; !ok {
		b.delegates[last] = last
	}
	return b
}

// Balance sets the token balance of addr
func (b *Backend) Balance(addr common.Address, amount int64) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[addr] = big.NewInt(amount)
	return b
}

// Grant gives account the role
func (b *Backend) Grant(role common.Hash, account common.Address) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.roles[role] == nil {
		b.roles[role] = make(map[common.Address]bool)
	}
	b.roles[role][account] = true
	return b
}

// FailMethod makes every call to method fail with err
func (b *Backend) FailMethod(method string, err error) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failMethod[method] = err
	return b
}

// FailAddress makes every call whose first argument is addr fail with err
func (b *Backend) FailAddress(addr common.Address, err error) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failAddress[addr] = err
	return b
}

// FailNext makes the next n calls fail with err, whatever they are
func (b *Backend) FailNext(n int, err error) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext = n
	b.failNextErr = err
	return b
}

// Raw makes every call return data verbatim, bypassing the ABI
func (b *Backend) Raw(data []byte) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.raw = data
	return b
}

// Hold parks every call until release is closed or the call's context is done
func (b *Backend) Hold(release <-chan struct{}) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hold = release
	return b
}

// Held reports how many calls are parked by Hold right now
func (b *Backend) Held() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.held
}

// Calls reports how many times method was called. An empty name counts all calls.
func (b *Backend) Calls(method string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if method == "" {
		total := 0
		for _, n := range b.calls {
			total += n
		}
		return total
	}
	return b.calls[method]
}

// LastContract is the address targeted by the most recent call
func (b *Backend) LastContract() common.Address {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastContract
}

// CallContract implements evm.Caller
func (b *Backend) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(msg.Data) < 4 {
		return nil, fmt.Errorf("%w: missing selector", ErrReverted)
	}
	if err := b.wait(ctx); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	method, ok := b.methods[string(msg.Data[:4])]
	if !ok {
		return nil, fmt.Errorf("%w: unknown selector %x", ErrReverted, msg.Data[:4])
	}
	b.calls[method.Name]++
	if msg.To != nil {
		b.lastContract = *msg.To
	}

	if b.failNext > 0 {
		b.failNext--
		return nil, b.failNextErr
	}
	if err := b.failMethod[method.Name]; err != nil {
		return nil, err
	}
	if b.raw != nil {
		return b.raw, nil
	}

	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReverted, err)
	}
	if len(args) > 0 {
		if addr, ok := args[0].(common.Address); ok {
			if err := b.failAddress[addr]; err != nil {
				return nil, err
			}
		}
	}

	out, err := b.answer(method.Name, args)
	if err != nil {
		return nil, err
	}
	return method.Outputs.Pack(out)
}

func (b *Backend) wait(ctx context.Context) error {
	b.mu.Lock()
	hold := b.hold
	if hold != nil {
		b.held++
	}
	b.mu.Unlock()
	if hold == nil {
		return nil
	}

	defer func() {
		b.mu.Lock()
		b.held--
		b.mu.Unlock()
	}()
	select {
	case <-hold:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Backend) answer(method string, args []any) (any, error) {
	switch method {
	case "getDelegate":
		return b.delegates[args[0].(common.Address)], nil
	case "getDelegatorsOf":
		return b.delegatorsOf(args[0].(common.Address)), nil
	case "balanceOf":
		if bal, ok := b.balances[args[0].(common.Address)]; ok {
			return new(big.Int).Set(bal), nil
		}
		return new(big.Int), nil
	case "hasRole":
		role := common.Hash(args[0].([32]byte))
		return b.roles[role][args[1].(common.Address)], nil
	default:
		return nil, fmt.Errorf("%w: %s not implemented", ErrReverted, method)
	}
}

// delegatorsOf lists every address whose edge points at target, self-delegations excluded
func (b *Backend) delegatorsOf(target common.Address) []common.Address {
	out := []common.Address{}
	for from, to := range b.delegates {
		if to == target && from != target {
			out = append(out, from)
		}
	}
	slices.SortFunc(out, func(x, y common.Address) int { return bytes.Compare(x[:], y[:]) })
	return out
}
