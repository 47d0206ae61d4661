package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token reads delegation state from the governance token contract.
// It is the single authoritative source for chains and voting power.
type Token struct {
	*contract
}

// NewToken binds the token deployed at address
func NewToken(address common.Address, caller Caller, opts ...Option) (*Token, error) {
	c, err := newContract(address, TokenABI, caller, opts...)
	if err != nil {
		return nil, err
	}
	return &Token{contract: c}, nil
}

// Address returns the bound contract address
func (t *Token) Address() common.Address {
	return t.address
}

// DelegateOf returns the current delegate of addr
func (t *Token) DelegateOf(ctx context.Context, addr common.Address) (common.Address, error) {
	values, err := t.call(ctx, methodGetDelegate, addr)
	if err != nil {
		return common.Address{}, err
	}
	delegate, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s returned %T", ErrUnexpectedOutput, methodGetDelegate, values[0])
	}
	return delegate, nil
}

// DelegatorsOf returns every address currently delegating to addr
func (t *Token) DelegatorsOf(ctx context.Context, addr common.Address) ([]common.Address, error) {
	values, err := t.call(ctx, methodGetDelegatorsOf, addr)
	if err != nil {
		return nil, err
	}
	delegators, ok := values[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned %T", ErrUnexpectedOutput, methodGetDelegatorsOf, values[0])
	}
	return delegators, nil
}

// BalanceOf returns the token balance of addr
func (t *Token) BalanceOf(ctx context.Context, addr common.Address) (*big.Int, error) {
	values, err := t.call(ctx, methodBalanceOf, addr)
	if err != nil {
		return nil, err
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned %T", ErrUnexpectedOutput, methodBalanceOf, values[0])
	}
	return balance, nil
}
