package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpc_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/grpc"
	http_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/http"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/internal/bootstrap"
	"github.com/JoeShih716/go-bank-ledger/internal/config"
	"github.com/JoeShih716/go-bank-ledger/pkg/ledgerrpc"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
	promcollector "github.com/JoeShih716/go-bank-ledger/pkg/metrics/prometheus"
	"github.com/JoeShih716/go-bank-ledger/pkg/resilience"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// 1. 載入設定
	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 指標
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := promcollector.NewCollector("ledger")
	if err := collector.Register(registry); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// 3. 儲存層
	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close store", zap.Error(err))
		}
	}()
	logger.Info("store ready", zap.String("driver", cfg.Store.Driver))

	// 4. UseCase 與重試/斷路器
	core := usecase.NewCoreUseCase(store, usecase.WithLogger(logger), usecase.WithMetrics(collector))
	retryCfg := cfg.Retry
	retryCfg.Retryable = domain.IsTransient
	executor := resilience.NewExecutor("ledger", retryCfg, collector, logger)

	// 5. gRPC (Driving Adapter)
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc_adapter.LoggingInterceptor(logger)))
	ledgerrpc.RegisterLedgerServiceServer(grpcServer, grpc_adapter.NewGrpcServer(core, executor, logger))
	healthServer := health.NewServer()
	healthServer.SetServingStatus(ledgerrpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// 6. HTTP
	handler := http_adapter.NewHandler(core, executor, logger)
	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      http_adapter.NewRouter(handler, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), collector, logger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			return fmt.Errorf("listen grpc: %w", err)
		}
		g.Go(func() error {
			logger.Info("starting grpc server", zap.String("addr", cfg.GRPC.Addr))
			return grpcServer.Serve(lis)
		})
	}
	if cfg.HTTP.Addr != "" {
		g.Go(func() error {
			logger.Info("starting http server", zap.String("addr", cfg.HTTP.Addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	// Graceful Shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down servers")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server exited")
	return nil
}
