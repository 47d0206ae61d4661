package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/screwyprof/daodelegate/cmd/monitor/config"
	"github.com/screwyprof/daodelegate/delegation"
	"github.com/screwyprof/daodelegate/monitor"
	"github.com/screwyprof/daodelegate/pkg/cache"
	"github.com/screwyprof/daodelegate/pkg/evm"
	"github.com/screwyprof/daodelegate/pkg/logger"
	"github.com/screwyprof/daodelegate/pkg/metrics"
)

func main() {
	// Load configuration
	cfg := config.New()

	// Initialize logger and set as default
	log := logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
		Service:          "monitor",
	})
	slog.SetDefault(log)

	// Prepare context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokenAddr, err := delegation.ParseAddress(cfg.TokenAddress)
	if err != nil {
		log.ErrorContext(ctx, "Invalid token address", slog.Any("error", err))
		os.Exit(1)
	}
	watch, err := delegation.ParseAddresses(cfg.Watch)
	if err != nil {
		log.ErrorContext(ctx, "Invalid watch list", slog.Any("error", err))
		os.Exit(1)
	}

	// JSON-RPC connection and token binding
	client, err := evm.Dial(ctx, cfg.RPCURL)
	if err != nil {
		log.ErrorContext(ctx, "Failed to connect to JSON-RPC provider", slog.Any("error", err))
		os.Exit(1)
	}
	defer client.Close()

	reg := metrics.NewRegistry()
	token, err := evm.NewToken(tokenAddr, client,
		evm.WithRetryPolicy(evm.RetryPolicy{MaxRetries: cfg.RPCRetries, Interval: cfg.RPCRetryInterval}),
		evm.WithCallTimeout(cfg.RPCCallTimeout),
		evm.WithMetrics(evm.NewMetrics(reg)),
	)
	if err != nil {
		log.ErrorContext(ctx, "Failed to bind token contract", slog.Any("error", err))
		os.Exit(1)
	}

	aggregator := delegation.NewAggregator(token,
		delegation.WithMaxDepth(cfg.MaxDepth),
		delegation.WithConcurrency(cfg.Concurrency),
	)
	snapshots, err := cache.NewStore[common.Address, delegation.Power](cfg.PowerCacheSize, cfg.PowerCacheTTL)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create snapshot store", slog.Any("error", err))
		os.Exit(1)
	}

	// Scrape endpoint
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle(metrics.Route, metrics.Handler(reg))
		server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		go func() {
			log.InfoContext(ctx, "Metrics endpoint started", slog.String("addr", cfg.MetricsAddr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.ErrorContext(ctx, "Metrics endpoint failed", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	// Create monitor service
	svc, err := monitor.NewService(aggregator, snapshots, watch, monitor.WithInterval(cfg.Interval))
	if err != nil {
		log.ErrorContext(ctx, "Failed to create power monitor", slog.Any("error", err))
		os.Exit(1)
	}

	// Start service
	log.InfoContext(ctx, "Starting voting power monitor",
		slog.String("token", tokenAddr.Hex()),
		slog.Int("watched", len(watch)),
		slog.Duration("interval", cfg.Interval),
	)
	events, done := svc.Start(ctx)

	// Subscribe to events for logging
	subCloser := monitor.LogEvents(ctx, events, log)
	defer subCloser()

	// Wait for shutdown
	<-done
	log.InfoContext(ctx, "Monitor stopped gracefully")
}
