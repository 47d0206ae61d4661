package evm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// AccessControl answers role membership questions for one access-control contract
type AccessControl struct {
	*contract
}

// NewAccessControl binds the access-control contract deployed at address
func NewAccessControl(address common.Address, caller Caller, opts ...Option) (*AccessControl, error) {
	c, err := newContract(address, AccessControlABI, caller, opts...)
	if err != nil {
		return nil, err
	}
	return &AccessControl{contract: c}, nil
}

// HasRole reports whether account holds role
func (a *AccessControl) HasRole(ctx context.Context, role common.Hash, account common.Address) (bool, error) {
	values, err := a.call(ctx, methodHasRole, [32]byte(role), account)
	if err != nil {
		return false, err
	}
	granted, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s returned %T", ErrUnexpectedOutput, methodHasRole, values[0])
	}
	return granted, nil
}
