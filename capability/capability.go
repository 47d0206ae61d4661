// Package capability resolves what an account may do in the DAO from a single
// access-control contract.
package capability

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/sync/errgroup"
)

// ErrResolveFailed is returned when any role query fails. The set returned with it is empty.
var ErrResolveFailed = errors.New("failed to resolve capabilities")

// Capability names one role-gated action
type Capability string

const (
	Admin   Capability = "admin"
	Propose Capability = "propose"
	Execute Capability = "execute"
	Cancel  Capability = "cancel"
)

// All lists every known capability in display order
var All = []Capability{Admin, Propose, Execute, Cancel}

// Role returns the access-control role that grants c
func (c Capability) Role() common.Hash {
	switch c {
	case Admin:
		return common.Hash{} // DEFAULT_ADMIN_ROLE
	case Propose:
		return crypto.Keccak256Hash([]byte("PROPOSER_ROLE"))
	case Execute:
		return crypto.Keccak256Hash([]byte("EXECUTOR_ROLE"))
	case Cancel:
		return crypto.Keccak256Hash([]byte("CANCELLER_ROLE"))
	default:
		return crypto.Keccak256Hash([]byte(strings.ToUpper(string(c)) + "_ROLE"))
	}
}

// Set is the resolved capabilities of one account, kept in display order
type Set []Capability

// Has reports whether c is in the set
func (s Set) Has(c Capability) bool {
	return slices.Contains(s, c)
}

// Empty reports whether the account may do nothing role-gated
func (s Set) Empty() bool {
	return len(s) == 0
}

// RoleChecker answers role membership. *evm.AccessControl satisfies it.
type RoleChecker interface {
	HasRole(ctx context.Context, role common.Hash, account common.Address) (bool, error)
}

// Resolver computes capability sets
type Resolver struct {
	roles RoleChecker
}

// NewResolver creates a Resolver backed by roles
func NewResolver(roles RoleChecker) *Resolver {
	return &Resolver{roles: roles}
}

// Resolve queries every role for account in one pass. It fails closed: if any
// query fails the result is an empty set and an error, never a partial grant.
func (r *Resolver) Resolve(ctx context.Context, account common.Address) (Set, error) {
	granted := make([]bool, len(All))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range All {
		g.Go(func() error {
			ok, err := r.roles.HasRole(gctx, c.Role(), account)
			if err != nil {
				return fmt.Errorf("%s: %w", c, err)
			}
			granted[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Set{}, fmt.Errorf("%w: %s: %w", ErrResolveFailed, account.Hex(), err)
	}

	set := make(Set, 0, len(All))
	for i, c := range All {
		if granted[i] {
			set = append(set, c)
		}
	}
	return set, nil
}
