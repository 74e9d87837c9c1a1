package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Store.Driver != DriverMemory || cfg.Ledger.LockTimeout != 5*time.Second || cfg.GRPC.Addr != ":50051" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Fatalf("retry defaults not applied: %+v", cfg.Retry)
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "")

	cfg, err := Parse([]byte(`
store:
  driver: postgres
  migrate: true
ledger:
  lock_timeout: 2s
postgres:
  host: db
  user: bank
  database: ledger
retry:
  max_attempts: 5
  initial_backoff: 10ms
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Postgres.LockTimeout != 2*time.Second || cfg.Postgres.Port != 5432 {
		t.Fatalf("postgres = %+v", cfg.Postgres)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.InitialBackoff != 10*time.Millisecond || cfg.Retry.MaxBackoff != time.Second {
		t.Fatalf("retry = %+v", cfg.Retry)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("LOG_LEVEL not applied: %q", cfg.Log.Level)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown driver", "store: {driver: sqlite}", "unknown store.driver"},
		{"mysql without host", "store: {driver: mysql}", "mysql: host"},
		{"zero lock timeout", "ledger: {lock_timeout: 0s}", "lock_timeout"},
		{"bad level", "log: {level: loud}", "loud"},
		{"no listeners", "grpc: {addr: ''}\nhttp: {addr: ''}", "grpc.addr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("http: {addr: ':9090'}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" || cfg.HTTP.ShutdownTimeout != 10*time.Second {
		t.Fatalf("http = %+v", cfg.HTTP)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestPath(t *testing.T) {
	t.Setenv("LEDGER_CONFIG", "")
	if Path() != DefaultPath {
		t.Fatalf("Path = %s", Path())
	}
	t.Setenv("LEDGER_CONFIG", "/etc/ledger.yaml")
	if Path() != "/etc/ledger.yaml" {
		t.Fatalf("Path = %s", Path())
	}
}
