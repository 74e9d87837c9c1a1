package postgres

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config PostgreSQL 連線與連線池設定
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`

	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`

	// LockTimeout 每個 transaction 的 lock_timeout
	LockTimeout time.Duration `yaml:"lock_timeout"`

	ConnectRetries int           `yaml:"connect_retries"`
	RetryInterval  time.Duration `yaml:"retry_interval"`
}

// DefaultConfig 本機開發用的預設值
func DefaultConfig() Config {
	cfg := Config{
		Host:     "localhost",
		User:     "postgres",
		Database: "bank",
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults 補全未設定的欄位
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 30 * time.Minute
	}
	if c.LockTimeout == 0 {
		c.LockTimeout = 5 * time.Second
	}
	if c.ConnectRetries == 0 {
		c.ConnectRetries = 10
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = 2 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Host == "" || c.User == "" || c.Database == "" {
		return errors.New("postgres: host, user and database are required")
	}
	if c.LockTimeout < time.Millisecond {
		return errors.New("postgres: lock_timeout must be at least 1ms")
	}
	return nil
}

// DSN 產生 lib/pq 的 key=value 連線字串，值一律加上單引號並跳脫
func (c *Config) DSN() string {
	pairs := []struct {
		key, value string
	}{
		{"host", c.Host},
		{"port", fmt.Sprint(c.Port)},
		{"user", c.User},
		{"password", c.Password},
		{"dbname", c.Database},
		{"sslmode", c.SSLMode},
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		parts = append(parts, p.key+"="+quote(p.value))
	}
	return strings.Join(parts, " ")
}

func quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
