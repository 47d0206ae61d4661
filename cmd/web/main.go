package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/screwyprof/daodelegate/capability"
	"github.com/screwyprof/daodelegate/delegation"
	"github.com/screwyprof/daodelegate/monitor"
	"github.com/screwyprof/daodelegate/pkg/cache"
	"github.com/screwyprof/daodelegate/pkg/evm"
	"github.com/screwyprof/daodelegate/pkg/logger"
	"github.com/screwyprof/daodelegate/pkg/metrics"
	"github.com/screwyprof/daodelegate/web"
	"github.com/screwyprof/daodelegate/web/config"
)

var (
	version = "dev"
	date    = "unknown"
)

func main() {
	// Load configuration
	cfg := config.New()

	// Initialize logger and set as default
	log := logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
		Service:          "web",
	})
	slog.SetDefault(log)

	// Prepare context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.InfoContext(ctx, "DAO Delegation API starting",
		slog.String("version", version),
		slog.String("date", date),
	)

	tokenAddr, err := delegation.ParseAddress(cfg.TokenAddress)
	if err != nil {
		log.ErrorContext(ctx, "Invalid token address", slog.Any("error", err))
		os.Exit(1)
	}
	watch, err := delegation.ParseAddresses(cfg.WatchAddresses)
	if err != nil {
		log.ErrorContext(ctx, "Invalid monitor watch list", slog.Any("error", err))
		os.Exit(1)
	}

	// JSON-RPC connection
	client, err := evm.Dial(ctx, cfg.RPCURL)
	if err != nil {
		log.ErrorContext(ctx, "Failed to connect to JSON-RPC provider", slog.Any("error", err))
		os.Exit(1)
	}
	defer client.Close()

	// Contract bindings
	reg := metrics.NewRegistry()
	callOpts := []evm.Option{
		evm.WithRetryPolicy(evm.RetryPolicy{MaxRetries: cfg.RPCRetries, Interval: cfg.RPCRetryInterval}),
		evm.WithCallTimeout(cfg.RPCCallTimeout),
		evm.WithMetrics(evm.NewMetrics(reg)),
	}
	token, err := evm.NewToken(tokenAddr, client, callOpts...)
	if err != nil {
		log.ErrorContext(ctx, "Failed to bind token contract", slog.Any("error", err))
		os.Exit(1)
	}

	aggregator := delegation.NewAggregator(token,
		delegation.WithMaxDepth(cfg.MaxDepth),
		delegation.WithHardLimit(cfg.HardLimit),
		delegation.WithConcurrency(cfg.Concurrency),
	)

	// Caches
	power, err := cache.NewStore[common.Address, delegation.Power](cfg.PowerCacheSize, cfg.PowerCacheTTL,
		cache.WithAdmission(delegation.Power.Settled),
	)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create power cache", slog.Any("error", err))
		os.Exit(1)
	}
	sets, err := cache.NewStore[common.Address, capability.Set](cfg.CapabilityCacheSize, cfg.CapabilityCacheTTL)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create capability cache", slog.Any("error", err))
		os.Exit(1)
	}

	deps := web.Deps{
		Log:      log,
		Registry: reg,
		Resolver: aggregator,
		Power:    power,
		Sets:     sets,
	}
	if cfg.AccessControlAddress != "" {
		acAddr, err := delegation.ParseAddress(cfg.AccessControlAddress)
		if err != nil {
			log.ErrorContext(ctx, "Invalid access control address", slog.Any("error", err))
			os.Exit(1)
		}
		roles, err := evm.NewAccessControl(acAddr, client, callOpts...)
		if err != nil {
			log.ErrorContext(ctx, "Failed to bind access control contract", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Capabilities = capability.NewResolver(roles)
	} else {
		log.InfoContext(ctx, "No access control contract configured, capabilities endpoint disabled")
	}

	// Keep the watch list warm in the power cache
	var monitorDone <-chan struct{}
	if len(watch) > 0 {
		svc, err := monitor.NewService(aggregator, power, watch, monitor.WithInterval(cfg.WatchInterval))
		if err != nil {
			log.ErrorContext(ctx, "Failed to create power monitor", slog.Any("error", err))
			os.Exit(1)
		}
		var events <-chan monitor.Event
		events, monitorDone = svc.Start(ctx)
		subCloser := monitor.LogEvents(ctx, events, log)
		defer subCloser()
	}

	// Create server address
	addr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)

	server := &http.Server{
		Addr:    addr,
		Handler: web.NewHandler(deps),
	}

	// Start server in a goroutine
	go func() {
		log.InfoContext(ctx, "Server started",
			slog.String("addr", addr),
			slog.String("token", tokenAddr.Hex()),
			slog.Int("maxDepth", aggregator.MaxDepth()),
			slog.Int("hardLimit", aggregator.HardLimit()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(ctx, "Server failed to start", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	log.InfoContext(ctx, "Shutting down server...")

	// Give outstanding requests time to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.ErrorContext(ctx, "Server forced to shutdown", slog.Any("error", err))
		os.Exit(1)
	}
	if monitorDone != nil {
		<-monitorDone
	}

	log.InfoContext(ctx, "Server exited gracefully")
}
