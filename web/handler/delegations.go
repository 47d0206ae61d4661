package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/screwyprof/daodelegate/delegation"
	"github.com/screwyprof/daodelegate/pkg/cache"
	"github.com/screwyprof/daodelegate/pkg/httpkit"
	"github.com/screwyprof/daodelegate/web/api"
	"github.com/screwyprof/daodelegate/web/handler/bind"
)

// Routes served by Delegations
const (
	GetChainRoute = http.MethodGet + " /delegations/{address}/chain"
	GetCheckRoute = http.MethodGet + " /delegations/check"
	GetPowerRoute = http.MethodGet + " /delegations/{address}/power"
)

// Sentinel errors
var (
	ErrPowerFailed = errors.New("failed to compute effective power")
)

// Resolver is the delegation core as seen by the HTTP layer.
// *delegation.Aggregator satisfies it.
type Resolver interface {
	MaxDepth() int
	ChainWithDepth(ctx context.Context, addr common.Address, maxDepth int) delegation.Chain
	Classify(c delegation.Chain) delegation.WarningLevel
	Check(ctx context.Context, from, to common.Address) (delegation.Assessment, error)
	EffectivePower(ctx context.Context, addr common.Address) (delegation.Power, error)
}

// PowerCache holds power snapshots for their freshness window.
// *cache.Store[common.Address, delegation.Power] satisfies it.
type PowerCache interface {
	Fetch(ctx context.Context, key common.Address, load func(context.Context) (delegation.Power, error)) (cache.Entry[delegation.Power], error)
}

type Delegations struct {
	resolver Resolver
	power    PowerCache
}

func NewDelegations(resolver Resolver, power PowerCache) *Delegations {
	return &Delegations{
		resolver: resolver,
		power:    power,
	}
}

func (h *Delegations) AddRoutes(m *http.ServeMux) {
	m.Handle(GetChainRoute, httpkit.HandlerFunc(h.GetChain))
	m.Handle(GetCheckRoute, httpkit.HandlerFunc(h.GetCheck))
	m.Handle(GetPowerRoute, httpkit.HandlerFunc(h.GetPower))
}

// GetChain shows an existing chain. A lookup failure mid-walk is not an HTTP error:
// the partial chain is returned flagged as such.
func (h *Delegations) GetChain(w http.ResponseWriter, r *http.Request) http.HandlerFunc {
	req, err := bind.ChainRequest(r, h.resolver.MaxDepth())
	if err != nil {
		return httpkit.JsonError(api.BadRequest(err))
	}

	chain := h.resolver.ChainWithDepth(r.Context(), req.Address, req.MaxDepth)
	if err := r.Context().Err(); err != nil {
		return httpkit.JsonError(api.Wrap(err))
	}

	return httpkit.NoStore(httpkit.JSON(bind.ChainResponse(chain, h.resolver.Classify(chain))))
}

// GetCheck grades a delegation before the transaction is signed
func (h *Delegations) GetCheck(w http.ResponseWriter, r *http.Request) http.HandlerFunc {
	req, err := bind.CheckRequest(r)
	if err != nil {
		return httpkit.JsonError(api.BadRequest(err))
	}

	assessment, err := h.resolver.Check(r.Context(), req.From, req.To)
	if err != nil {
		return httpkit.JsonError(api.Wrap(err))
	}

	return httpkit.NoStore(httpkit.JSON(bind.CheckResponse(assessment)))
}

// GetPower serves a power snapshot, computing it when no fresh one is cached
func (h *Delegations) GetPower(w http.ResponseWriter, r *http.Request) http.HandlerFunc {
	addr, err := bind.AddressParam(r)
	if err != nil {
		return httpkit.JsonError(api.BadRequest(err))
	}

	entry, err := h.power.Fetch(r.Context(), addr, func(ctx context.Context) (delegation.Power, error) {
		return h.resolver.EffectivePower(ctx, addr)
	})
	if err != nil {
		return httpkit.JsonError(api.Wrap(fmt.Errorf("%w: %w", ErrPowerFailed, err)))
	}

	return httpkit.NoStore(httpkit.JSON(bind.PowerResponse(entry)))
}
