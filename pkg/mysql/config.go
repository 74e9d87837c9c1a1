package mysql

import (
	"errors"
	"net"
	"strconv"
	"time"

	driver "github.com/go-sql-driver/mysql"
)

// Config 定義 MySQL 連線與連線池的配置
type Config struct {
	Host     string `yaml:"host"`     // 資料庫主機地址
	Port     int    `yaml:"port"`     // 資料庫埠號 (預設 3306)
	User     string `yaml:"user"`     // 使用者名稱
	Password string `yaml:"password"` // 密碼
	DBName   string `yaml:"db_name"`  // 資料庫名稱

	// 連線池設定
	// 參考: https://github.com/go-sql-driver/mysql#important-settings
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`

	// LockWaitTimeout 每條連線的 innodb_lock_wait_timeout (秒精度，最少 1 秒)
	LockWaitTimeout time.Duration `yaml:"lock_wait_timeout"`

	// 啟動時連線重試
	ConnectRetries int           `yaml:"connect_retries"`
	RetryInterval  time.Duration `yaml:"retry_interval"`

	// GORM Log 等級: "silent", "error", "warn", "info"
	LogLevel string `yaml:"log_level"`
}

// ApplyDefaults 補全未設定的欄位
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 3306
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 100
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 10
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 30 * time.Minute
	}
	if c.LockWaitTimeout == 0 {
		c.LockWaitTimeout = 5 * time.Second
	}
	if c.ConnectRetries == 0 {
		c.ConnectRetries = 10
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = 2 * time.Second
	}
}

// Validate 檢查必填欄位
func (c *Config) Validate() error {
	if c.Host == "" || c.User == "" || c.DBName == "" {
		return errors.New("mysql: host, user and db_name are required")
	}
	return nil
}

// DSN (Data Source Name) 產生連線字串
// 由 driver 組字串，密碼中的特殊字元不需要自行跳脫
func (c *Config) DSN() string {
	seconds := max(int(c.LockWaitTimeout/time.Second), 1)
	dc := driver.NewConfig()
	dc.User = c.User
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	dc.DBName = c.DBName
	dc.ParseTime = true
	dc.Loc = time.UTC
	dc.Params = map[string]string{
		"charset":                  "utf8mb4",
		"innodb_lock_wait_timeout": strconv.Itoa(seconds),
		"transaction_isolation":    "'READ-COMMITTED'",
	}
	return dc.FormatDSN()
}
