package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/config"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
)

func TestOpenStoreMemoryWithWAL(t *testing.T) {
	cfg := config.Default()
	cfg.Memory.WALPath = filepath.Join(t.TempDir(), "wal.log")
	ctx := context.Background()

	store, err := OpenStore(ctx, cfg, logging.NewNoOpLogger())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	client := &domain.Client{FullName: "A", Email: "a@bank.com"}
	if err := store.CreateClient(ctx, client); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenStore(ctx, cfg, logging.NewNoOpLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetClient(ctx, client.ID); err != nil {
		t.Fatalf("client not recovered: %v", err)
	}
}

func TestOpenStoreMemoryWithoutWAL(t *testing.T) {
	cfg := config.Default()
	cfg.Memory.WALPath = ""
	store, err := OpenStore(context.Background(), cfg, logging.NewNoOpLogger())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
}
