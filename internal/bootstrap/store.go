package bootstrap

import (
	"context"
	"fmt"

	memory_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/mysql"
	postgres_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/postgres"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/internal/config"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
	"github.com/JoeShih716/go-bank-ledger/pkg/postgres"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

// OpenStore 依 store.driver 建立儲存層，store.migrate 開啟時順便建立資料表
func OpenStore(ctx context.Context, cfg config.Config, logger *logging.Logger) (usecase.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMySQL:
		client, err := mysql.NewClient(ctx, cfg.MySQL, logger)
		if err != nil {
			return nil, err
		}
		store := mysql_adapter.NewStore(client, logger)
		if cfg.Store.Migrate {
			if err := store.Migrate(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("migrate mysql: %w", err)
			}
		}
		return store, nil

	case config.DriverPostgres:
		client, err := postgres.Open(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		store := postgres_adapter.NewStore(client, logger)
		if cfg.Store.Migrate {
			if err := store.Migrate(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		return store, nil

	default:
		opts := []memory_adapter.Option{
			memory_adapter.WithLockTimeout(cfg.Ledger.LockTimeout),
			memory_adapter.WithLogger(logger),
		}
		var walFile *wal.WAL
		if cfg.Memory.WALPath != "" {
			var err error
			if walFile, err = wal.NewWAL(cfg.Memory.WALPath); err != nil {
				return nil, fmt.Errorf("init wal: %w", err)
			}
			opts = append(opts, memory_adapter.WithWAL(walFile))
		}
		store, err := memory_adapter.NewStore(opts...)
		if err != nil {
			if walFile != nil {
				_ = walFile.Close()
			}
			return nil, err
		}
		return store, nil
	}
}
