package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
	"github.com/JoeShih716/go-bank-ledger/pkg/postgres"
	"github.com/JoeShih716/go-bank-ledger/pkg/resilience"
)

// DefaultPath 未設定 LEDGER_CONFIG 時讀取的設定檔
const DefaultPath = "config/config.yaml"

// 儲存層種類
const (
	DriverMemory   = "memory"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config 服務設定
type Config struct {
	Store    StoreConfig       `yaml:"store"`
	Memory   MemoryConfig      `yaml:"memory"`
	MySQL    mysql.Config      `yaml:"mysql"`
	Postgres postgres.Config   `yaml:"postgres"`
	Ledger   LedgerConfig      `yaml:"ledger"`
	GRPC     ServerConfig      `yaml:"grpc"`
	HTTP     HTTPConfig        `yaml:"http"`
	Retry    resilience.Config `yaml:"retry"`
	Log      logging.Config    `yaml:"log"`
}

type StoreConfig struct {
	// Driver: memory, mysql, postgres
	Driver string `yaml:"driver"`
	// Migrate 啟動時建立資料表 (mysql / postgres)
	Migrate bool `yaml:"migrate"`
}

type MemoryConfig struct {
	// WALPath 空字串代表不持久化
	WALPath string `yaml:"wal_path"`
}

type LedgerConfig struct {
	// LockTimeout 等待帳戶鎖的上限，套用到所有儲存層
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default 所有欄位的預設值
func Default() Config {
	return Config{
		Store:  StoreConfig{Driver: DriverMemory},
		Memory: MemoryConfig{WALPath: "wal.log"},
		Ledger: LedgerConfig{LockTimeout: 5 * time.Second},
		GRPC:   ServerConfig{Addr: ":50051"},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Retry: resilience.DefaultConfig(),
		Log:   logging.DefaultConfig(),
	}
}

// Path 設定檔路徑，LEDGER_CONFIG 優先
func Path() string {
	if p := os.Getenv("LEDGER_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load 讀取 YAML 設定，未填的欄位保留預設值
//
// 參數:
//
//	path: 設定檔路徑
//
// 回傳:
//
//	Config: 套用預設值、環境變數並通過驗證的設定
//	error: 讀檔、解析或驗證失敗
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse 解析 YAML 內容
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Log = logging.ApplyEnv(cfg.Log)
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyDefaults 帳戶鎖逾時同步到資料庫設定
func (c *Config) applyDefaults() {
	if c.MySQL.LockWaitTimeout == 0 {
		c.MySQL.LockWaitTimeout = c.Ledger.LockTimeout
	}
	if c.Postgres.LockTimeout == 0 {
		c.Postgres.LockTimeout = c.Ledger.LockTimeout
	}
	switch c.Store.Driver {
	case DriverMySQL:
		c.MySQL.ApplyDefaults()
	case DriverPostgres:
		c.Postgres.ApplyDefaults()
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverMemory:
	case DriverMySQL:
		errs = append(errs, c.MySQL.Validate())
	case DriverPostgres:
		errs = append(errs, c.Postgres.Validate())
	default:
		errs = append(errs, fmt.Errorf("config: unknown store.driver %q", c.Store.Driver))
	}
	if c.Ledger.LockTimeout <= 0 {
		errs = append(errs, errors.New("config: ledger.lock_timeout must be positive"))
	}
	if c.GRPC.Addr == "" && c.HTTP.Addr == "" {
		errs = append(errs, errors.New("config: at least one of grpc.addr and http.addr is required"))
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("config: http.shutdown_timeout must be positive"))
	}
	errs = append(errs, c.Retry.Validate())
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
