package handler

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/screwyprof/daodelegate/capability"
	"github.com/screwyprof/daodelegate/pkg/cache"
	"github.com/screwyprof/daodelegate/pkg/httpkit"
	"github.com/screwyprof/daodelegate/web/api"
	"github.com/screwyprof/daodelegate/web/handler/bind"
)

const GetCapabilitiesRoute = http.MethodGet + " /capabilities/{address}"

// CapabilityResolver resolves role-gated capabilities. *capability.Resolver satisfies it.
type CapabilityResolver interface {
	Resolve(ctx context.Context, account common.Address) (capability.Set, error)
}

// CapabilityCache holds resolved sets for a session-length window
type CapabilityCache interface {
	Fetch(ctx context.Context, key common.Address, load func(context.Context) (capability.Set, error)) (cache.Entry[capability.Set], error)
}

type Capabilities struct {
	resolver CapabilityResolver
	sets     CapabilityCache
}

func NewCapabilities(resolver CapabilityResolver, sets CapabilityCache) *Capabilities {
	return &Capabilities{
		resolver: resolver,
		sets:     sets,
	}
}

func (h *Capabilities) AddRoutes(m *http.ServeMux) {
	m.Handle(GetCapabilitiesRoute, httpkit.HandlerFunc(h.GetCapabilities))
}

// GetCapabilities fails closed: when the access-control contract cannot be read the
// caller gets a 502 and no capabilities at all.
func (h *Capabilities) GetCapabilities(w http.ResponseWriter, r *http.Request) http.HandlerFunc {
	addr, err := bind.AddressParam(r)
	if err != nil {
		return httpkit.JsonError(api.BadRequest(err))
	}

	entry, err := h.sets.Fetch(r.Context(), addr, func(ctx context.Context) (capability.Set, error) {
		return h.resolver.Resolve(ctx, addr)
	})
	if err != nil {
		if r.Context().Err() != nil {
			return httpkit.JsonError(api.Wrap(err))
		}
		return httpkit.JsonError(api.BadGateway(err))
	}

	return httpkit.NoStore(httpkit.JSON(bind.CapabilitiesResponse(addr, entry)))
}
