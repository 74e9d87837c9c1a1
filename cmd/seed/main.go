package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/internal/bootstrap"
	"github.com/JoeShih716/go-bank-ledger/internal/config"
	"github.com/JoeShih716/go-bank-ledger/internal/seed"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
)

func main() {
	opts := seed.DefaultOptions()
	flag.IntVar(&opts.Clients, "clients", opts.Clients, "number of clients to create")
	flag.IntVar(&opts.Accounts, "accounts", opts.Accounts, "number of accounts to create")
	flag.IntVar(&opts.Branches, "branches", opts.Branches, "number of branches to create")
	flag.IntVar(&opts.Transactions, "transactions", opts.Transactions, "number of transactions to post")
	flag.IntVar(&opts.Concurrency, "concurrency", opts.Concurrency, "concurrent transactions")
	flag.Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts seed.Options) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg.Store.Migrate = true
	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	start := time.Now()
	res, err := seed.Populate(ctx, usecase.NewCoreUseCase(store, usecase.WithLogger(logging.NewNoOpLogger())), opts, logger)
	if err != nil {
		return fmt.Errorf("populate: %w", err)
	}
	logger.Info("database population complete",
		zap.String("driver", cfg.Store.Driver),
		zap.Int("clients", res.Clients),
		zap.Int("accounts", res.Accounts),
		zap.Int64("posted", res.Posted),
		zap.Int64("rejected", res.Rejected),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
