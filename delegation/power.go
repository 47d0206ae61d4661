package delegation

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// Contribution is the balance one delegator adds to a self-delegated address
type Contribution struct {
	Address common.Address
	Balance *big.Int
	Hops    int            // 1 for direct delegators, more for pass-through
	Via     common.Address // the address this delegator points at
}

// Power is a voting power snapshot of a single address
type Power struct {
	Address   common.Address
	Balance   *big.Int // own raw balance
	Effective *big.Int

	// Delegated is set when Address gave its power away; Delegate is the first hop
	Delegated bool
	Delegate  common.Address

	Direct      []Contribution
	PassThrough []Contribution

	// Incomplete is set whenever Effective is a lower bound rather than the exact value.
	// Missing lists addresses whose lookups failed. For an address that delegated away
	// it may name that address alone: Effective is still exactly zero, only Balance is unknown.
	Incomplete bool
	Truncated  bool // delegators exist beyond the walk cap
	Missing    []common.Address
}

// Settled reports whether every lookup behind the snapshot succeeded
func (p Power) Settled() bool {
	return !p.Incomplete && len(p.Missing) == 0
}

// Contributors returns the number of delegators counted into Effective
func (p Power) Contributors() int {
	return len(p.Direct) + len(p.PassThrough)
}

// EffectivePower computes the voting power of addr.
//
// An address that delegates away has zero effective power. A self-delegated address
// holds its own balance plus the balance of every address whose chain ends at it,
// each counted once however many hops away it sits. Failed lookups contribute
// nothing and are listed in Missing; those that could have added power also mark the
// result Incomplete. The error is reserved for cancellation.
func (a *Aggregator) EffectivePower(ctx context.Context, addr common.Address) (Power, error) {
	p := Power{
		Address:   addr,
		Balance:   new(big.Int),
		Effective: new(big.Int),
	}

	chain := ResolveChain(ctx, addr, a.ledger, a.maxDepth)
	if err := ctx.Err(); err != nil {
		return Power{}, err
	}

	if chain.Delegated() {
		p.Delegated = true
		p.Delegate = chain.Path[1]
		if err := a.readOwnBalance(ctx, &p); err != nil {
			return Power{}, err
		}
		return p, nil
	}

	if chain.Partial() {
		// Unknown whether addr delegates; nothing can be attributed to it
		p.Incomplete = true
		p.Missing = append(p.Missing, addr)
		return p, nil
	}

	contributions, err := a.discoverDelegators(ctx, addr, &p)
	if err != nil {
		return Power{}, err
	}

	if err := a.readBalances(ctx, &p, contributions); err != nil {
		return Power{}, err
	}

	return p, nil
}

func (a *Aggregator) readOwnBalance(ctx context.Context, p *Power) error {
	bal, err := a.ledger.BalanceOf(ctx, p.Address)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil || bal == nil {
		p.Missing = append(p.Missing, p.Address)
		return nil
	}
	p.Balance = bal
	return nil
}

// discoverDelegators walks DelegatorsOf breadth-first from target, one level per hop.
// Each level is listed in parallel; the visited set is only touched between levels.
func (a *Aggregator) discoverDelegators(ctx context.Context, target common.Address, p *Power) ([]Contribution, error) {
	seen := map[common.Address]struct{}{target: {}}
	frontier := []common.Address{target}

	var found []Contribution
	for hops := 1; len(frontier) > 0; hops++ {
		lists, errs, err := a.listLevel(ctx, frontier)
		if err != nil {
			return nil, err
		}

		var next []common.Address
		for i, node := range frontier {
			if errs[i] != nil {
				p.Incomplete = true
				p.Missing = append(p.Missing, node)
				continue
			}
			for _, d := range lists[i] {
				if IsZero(d) || d == node {
					continue
				}
				if _, ok := seen[d]; ok {
					continue
				}
				if hops > a.maxDepth {
					p.Truncated = true
					p.Incomplete = true
					continue
				}
				seen[d] = struct{}{}
				found = append(found, Contribution{Address: d, Hops: hops, Via: node})
				next = append(next, d)
			}
		}
		if hops > a.maxDepth {
			break
		}
		frontier = next
	}
	return found, nil
}

// listLevel lists the delegators of every node. A failed lookup is kept per node so
// the rest of the level still counts; only cancellation fails the level as a whole.
func (a *Aggregator) listLevel(ctx context.Context, nodes []common.Address) ([][]common.Address, []error, error) {
	lists := make([][]common.Address, len(nodes))
	errs := make([]error, len(nodes))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, node := range nodes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			list, err := a.ledger.DelegatorsOf(ctx, node)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				errs[i] = fmt.Errorf("listing delegators of %s: %w", node.Hex(), err)
				return nil
			}
			lists[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return lists, errs, nil
}

// readBalances reads the target and every contributor in parallel, then reduces
// the results into p sequentially.
func (a *Aggregator) readBalances(ctx context.Context, p *Power, contributions []Contribution) error {
	addrs := make([]common.Address, 0, len(contributions)+1)
	addrs = append(addrs, p.Address)
	for _, c := range contributions {
		addrs = append(addrs, c.Address)
	}

	balances := make([]*big.Int, len(addrs))
	errs := make([]error, len(addrs))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, addr := range addrs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			balances[i], errs[i] = a.ledger.BalanceOf(ctx, addr)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	total := new(big.Int)
	for i, addr := range addrs {
		if errs[i] != nil || balances[i] == nil {
			p.Incomplete = true
			p.Missing = append(p.Missing, addr)
			continue
		}
		total.Add(total, balances[i])
		if i == 0 {
			p.Balance = new(big.Int).Set(balances[i])
			continue
		}

		c := contributions[i-1]
		c.Balance = new(big.Int).Set(balances[i])
		if c.Hops == 1 {
			p.Direct = append(p.Direct, c)
		} else {
			p.PassThrough = append(p.PassThrough, c)
		}
	}
	p.Effective = total
	return nil
}
