package bind

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/screwyprof/daodelegate/capability"
	"github.com/screwyprof/daodelegate/delegation"
	"github.com/screwyprof/daodelegate/pkg/cache"
	"github.com/screwyprof/daodelegate/web/api"
)

// Sentinel errors for request binding
var (
	ErrInvalidAddress  = errors.New("invalid address parameter")
	ErrInvalidFrom     = errors.New("invalid from parameter")
	ErrInvalidTo       = errors.New("invalid to parameter")
	ErrInvalidMaxDepth = errors.New("invalid max_depth parameter")

	ErrMaxDepthNotNumeric  = errors.New("max_depth must be numeric")
	ErrMaxDepthNotPositive = errors.New("max_depth must be positive")
)

// Chain is a bound chain query
type Chain struct {
	Address  common.Address
	MaxDepth int
}

// Check is a bound preflight query
type Check struct {
	From common.Address
	To   common.Address
}

// AddressParam binds the {address} path value
func AddressParam(r *http.Request) (common.Address, error) {
	addr, err := delegation.ParseAddress(r.PathValue("address"))
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	return addr, nil
}

// ChainRequest binds GET /delegations/{address}/chain. max_depth may not exceed maxDepth,
// larger values are clamped rather than rejected.
func ChainRequest(r *http.Request, maxDepth int) (Chain, error) {
	req := api.ChainRequest{
		Address: r.PathValue("address"),
	}

	addr, err := delegation.ParseAddress(req.Address)
	if err != nil {
		return Chain{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}

	if param := r.URL.Query().Get("max_depth"); param != "" {
		depth, err := parseMaxDepth(param)
		if err != nil {
			return Chain{}, fmt.Errorf("%w: %w", ErrInvalidMaxDepth, err)
		}
		req.MaxDepth = depth
	}
	if req.MaxDepth == 0 || req.MaxDepth > maxDepth {
		req.MaxDepth = maxDepth
	}

	return Chain{Address: addr, MaxDepth: req.MaxDepth}, nil
}

// CheckRequest binds GET /delegations/check. An empty to means un-delegation.
func CheckRequest(r *http.Request) (Check, error) {
	query := r.URL.Query()
	req := api.CheckRequest{From: query.Get("from"), To: query.Get("to")}

	from, err := delegation.ParseAddress(req.From)
	if err != nil {
		return Check{}, fmt.Errorf("%w: %w", ErrInvalidFrom, err)
	}

	var to common.Address
	if req.To != "" {
		to, err = delegation.ParseAddress(req.To)
		if err != nil {
			return Check{}, fmt.Errorf("%w: %w", ErrInvalidTo, err)
		}
	}

	return Check{From: from, To: to}, nil
}

func parseMaxDepth(param string) (int, error) {
	depth, err := strconv.Atoi(param)
	if err != nil {
		return 0, ErrMaxDepthNotNumeric
	}
	if depth <= 0 {
		return 0, ErrMaxDepthNotPositive
	}
	return depth, nil
}

// ChainResponse binds a resolved chain and its informational level
func ChainResponse(c delegation.Chain, level delegation.WarningLevel) api.ChainResponse {
	resp := api.ChainResponse{
		Address:   c.Start().Hex(),
		Path:      hexes(c.Path),
		Depth:     c.Depth,
		HasCycle:  c.HasCycle,
		Truncated: c.Truncated,
		Partial:   c.Partial(),
		Warning:   level.String(),
	}
	if c.HasCycle {
		idx := c.CycleIndex
		resp.CycleIndex = &idx
	}
	if c.Err != nil {
		resp.Error = delegation.ErrLookupFailed.Error()
	}
	return resp
}

// CheckResponse binds a preflight assessment
func CheckResponse(a delegation.Assessment) api.CheckResponse {
	resp := api.CheckResponse{
		From:      a.From.Hex(),
		To:        a.To.Hex(),
		Path:      hexes(a.Path),
		Depth:     a.Depth,
		HasCycle:  a.HasCycle,
		Truncated: a.Truncated,
		Partial:   a.Partial(),
		Warning:   a.Level.String(),
		Blocked:   a.Blocked(),
	}
	if a.Err != nil {
		resp.Error = delegation.ErrLookupFailed.Error()
	}
	return resp
}

// PowerResponse binds a cached power snapshot
func PowerResponse(e cache.Entry[delegation.Power]) api.PowerResponse {
	p := e.Value
	resp := api.PowerResponse{
		Address:     p.Address.Hex(),
		Balance:     amount(p.Balance),
		Effective:   amount(p.Effective),
		Delegated:   p.Delegated,
		Direct:      contributions(p.Direct),
		PassThrough: contributions(p.PassThrough),
		Incomplete:  p.Incomplete,
		Truncated:   p.Truncated,
		Missing:     hexes(p.Missing),
		FetchedAt:   e.FetchedAt.Format(time.RFC3339),
		ExpiresAt:   e.ExpiresAt().Format(time.RFC3339),
	}
	if p.Delegated {
		resp.Delegate = p.Delegate.Hex()
	}
	return resp
}

// CapabilitiesResponse binds a cached capability set
func CapabilitiesResponse(addr common.Address, e cache.Entry[capability.Set]) api.CapabilitiesResponse {
	caps := make([]string, len(e.Value))
	for i, c := range e.Value {
		caps[i] = string(c)
	}
	return api.CapabilitiesResponse{
		Address:      addr.Hex(),
		Capabilities: caps,
		FetchedAt:    e.FetchedAt.Format(time.RFC3339),
		ExpiresAt:    e.ExpiresAt().Format(time.RFC3339),
	}
}

func contributions(cs []delegation.Contribution) []api.Contribution {
	out := make([]api.Contribution, len(cs))
	for i, c := range cs {
		out[i] = api.Contribution{
			Address: c.Address.Hex(),
			Balance: amount(c.Balance),
			Hops:    c.Hops,
			Via:     c.Via.Hex(),
		}
	}
	return out
}

func hexes(addrs []common.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out
}

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
