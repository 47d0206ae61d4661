// Package web serves the delegation core over read-only JSON endpoints.
package web

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/screwyprof/daodelegate/pkg/logger"
	"github.com/screwyprof/daodelegate/pkg/metrics"
	"github.com/screwyprof/daodelegate/web/handler"
)

// Deps are the collaborators the HTTP API is built from
type Deps struct {
	Log          *slog.Logger
	Registry     *prometheus.Registry
	Resolver     handler.Resolver
	Power        handler.PowerCache
	Capabilities handler.CapabilityResolver // optional
	Sets         handler.CapabilityCache
}

// NewHandler registers every route and wraps the mux with metrics and access logging
func NewHandler(d Deps) http.Handler {
	mux := http.NewServeMux()

	handler.NewDelegations(d.Resolver, d.Power).AddRoutes(mux)
	if d.Capabilities != nil {
		handler.NewCapabilities(d.Capabilities, d.Sets).AddRoutes(mux)
	}
	mux.Handle(metrics.Route, metrics.Handler(d.Registry))

	requests := metrics.NewHTTP(d.Registry)
	return logger.NewMiddleware(d.Log)(requests.Middleware(mux))
}
