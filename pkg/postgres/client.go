package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
)

// Client 封裝 *sql.DB
type Client struct {
	db          *sql.DB
	lockTimeout time.Duration
}

// Open 建立連線池並以 Ping 確認可用，失敗時依設定重試
//
// 參數:
//
//	ctx: 取消時停止重試
//	cfg: 連線設定
//	log: 重試過程的 logger
//
// 回傳:
//
//	*Client: 可用的客戶端
//	error: 重試用盡或 ctx 結束
func Open(ctx context.Context, cfg Config, log *logging.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	for i := 0; i < cfg.ConnectRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			break
		}
		if i < cfg.ConnectRetries-1 {
			log.Warn("failed to connect to postgres, retrying",
				zap.Int("attempt", i+1),
				zap.Int("max_attempts", cfg.ConnectRetries),
				zap.Duration("retry_in", cfg.RetryInterval),
				zap.Error(err))
			select {
			case <-ctx.Done():
				_ = db.Close()
				return nil, ctx.Err()
			case <-time.After(cfg.RetryInterval):
			}
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", cfg.ConnectRetries, err)
	}
	return &Client{db: db, lockTimeout: cfg.LockTimeout}, nil
}

// NewClientFromDB 包裝既有的 *sql.DB
func NewClientFromDB(db *sql.DB, lockTimeout time.Duration) *Client {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &Client{db: db, lockTimeout: lockTimeout}
}

func (c *Client) DB() *sql.DB { return c.db }

// LockTimeout 每個 transaction 套用的 lock_timeout
func (c *Client) LockTimeout() time.Duration { return c.lockTimeout }

func (c *Client) Close() error {
	return c.db.Close()
}
