package mysql

import (
	"testing"
	"time"

	driver "github.com/go-sql-driver/mysql"
)

func TestDSNRoundTrip(t *testing.T) {
	cfg := Config{Host: "db", User: "ledger", Password: "p@ss:w/rd", DBName: "bank", LockWaitTimeout: 3 * time.Second}
	cfg.ApplyDefaults()

	parsed, err := driver.ParseDSN(cfg.DSN())
	if err != nil {
		t.Fatalf("ParseDSN: %v", err)
	}
	if parsed.Passwd != cfg.Password {
		t.Errorf("password = %q", parsed.Passwd)
	}
	if parsed.Addr != "db:3306" || parsed.DBName != "bank" || !parsed.ParseTime {
		t.Errorf("unexpected dsn fields: %+v", parsed)
	}
	if got := parsed.Params["innodb_lock_wait_timeout"]; got != "3" {
		t.Errorf("innodb_lock_wait_timeout = %q, want 3", got)
	}
}

func TestLockWaitTimeoutAtLeastOneSecond(t *testing.T) {
	cfg := Config{Host: "db", User: "u", DBName: "d", LockWaitTimeout: 200 * time.Millisecond}
	cfg.ApplyDefaults()
	parsed, err := driver.ParseDSN(cfg.DSN())
	if err != nil {
		t.Fatalf("ParseDSN: %v", err)
	}
	if got := parsed.Params["innodb_lock_wait_timeout"]; got != "1" {
		t.Errorf("innodb_lock_wait_timeout = %q, want 1", got)
	}
}

func TestValidate(t *testing.T) {
	if err := (&Config{Host: "db"}).Validate(); err == nil {
		t.Error("expected error for missing user and db_name")
	}
}
