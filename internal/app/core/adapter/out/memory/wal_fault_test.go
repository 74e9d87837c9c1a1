package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

var errDisk = errors.New("disk failure")

// faultyFile 依計數注入寫入、fsync、截斷失敗
type faultyFile struct {
	*os.File
	shortWrites   int
	failSyncs     int
	failTruncates int
}

func (f *faultyFile) Write(p []byte) (int, error) {
	if f.shortWrites > 0 {
		f.shortWrites--
		n, _ := f.File.Write(p[:len(p)/2])
		return n, errDisk
	}
	return f.File.Write(p)
}

func (f *faultyFile) Sync() error {
	if f.failSyncs > 0 {
		f.failSyncs--
		return errDisk
	}
	return f.File.Sync()
}

func (f *faultyFile) Truncate(size int64) error {
	if f.failTruncates > 0 {
		f.failTruncates--
		return errDisk
	}
	return f.File.Truncate(size)
}

func openFaultyWAL(t *testing.T, path string) (*wal.WAL, *faultyFile) {
	t.Helper()
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, wal.FileModePrivate)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ff := &faultyFile{File: file}
	w, err := wal.Open(ff)
	if err != nil {
		t.Fatalf("wal.Open: %v", err)
	}
	return w, ff
}

func reopen(t *testing.T, path string) *Store {
	t.Helper()
	w, err := wal.NewWAL(path)
	if err != nil {
		t.Fatalf("reopen wal: %v", err)
	}
	return newTestStore(t, WithWAL(w))
}

func TestFailedWALWriteLeavesNoTrace(t *testing.T) {
	tests := []struct {
		name   string
		inject func(f *faultyFile)
	}{
		{"short write", func(f *faultyFile) { f.shortWrites = 1 }},
		{"sync after full write", func(f *faultyFile) { f.failSyncs = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ledger.wal")
			w, ff := openFaultyWAL(t, path)
			s, err := NewStore(WithWAL(w))
			if err != nil {
				t.Fatalf("NewStore: %v", err)
			}
			f := seed(t, s)
			a := openAccount(t, s, f, "100.00")
			b := openAccount(t, s, f, "0")

			tt.inject(ff)
			_, err = tryTransfer(t, s, f.transferTypeID, a, b, "40.00")
			if !errors.Is(err, domain.ErrWALWriteFailed) || !domain.IsTransient(err) {
				t.Fatalf("Commit err = %v, want ErrWALWriteFailed", err)
			}
			if got := balanceOf(t, s, a); got != "100.00" {
				t.Errorf("a balance after failed commit = %s", got)
			}
			if _, err := s.GetTransaction(context.Background(), 1); !errors.Is(err, domain.ErrTransactionNotFound) {
				t.Errorf("failed entry is visible: %v", err)
			}

			// 之後的寫入照常，序號沿用
			next := commitTransfer(t, s, f.transferTypeID, a, b, "10.00")
			if next.ID != 1 {
				t.Errorf("next transaction id = %d, want 1", next.ID)
			}
			if err := s.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			recovered := reopen(t, path)
			if got := balanceOf(t, recovered, a); got != "90.00" {
				t.Errorf("recovered a balance = %s, want 90.00", got)
			}
			if got := balanceOf(t, recovered, b); got != "10.00" {
				t.Errorf("recovered b balance = %s, want 10.00", got)
			}
			list, err := recovered.ListTransactions(context.Background(), domain.TransactionFilter{})
			if err != nil {
				t.Fatalf("ListTransactions: %v", err)
			}
			if len(list) != 1 || list[0].ID != 1 || !list[0].Amount.Equal(next.Amount) {
				t.Errorf("recovered ledger = %+v", list)
			}
		})
	}
}

func TestBrokenWALStopsJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")
	w, ff := openFaultyWAL(t, path)
	s := newTestStore(t, WithWAL(w))
	f := seed(t, s)
	a := openAccount(t, s, f, "100.00")
	b := openAccount(t, s, f, "0")

	ff.shortWrites, ff.failTruncates = 1, 1
	if _, err := tryTransfer(t, s, f.transferTypeID, a, b, "40.00"); !errors.Is(err, wal.ErrBroken) {
		t.Fatalf("Commit err = %v, want ErrBroken", err)
	}

	// 磁碟恢復也不再接受寫入
	if _, err := tryTransfer(t, s, f.transferTypeID, a, b, "1.00"); !errors.Is(err, domain.ErrWALWriteFailed) || !domain.IsTransient(err) {
		t.Fatalf("Commit after broken wal err = %v", err)
	}
	err := s.CreateBranch(context.Background(), &domain.Branch{BranchName: "x"})
	if !errors.Is(err, domain.ErrWALWriteFailed) {
		t.Fatalf("CreateBranch after broken wal err = %v", err)
	}
	if got := balanceOf(t, s, a); got != "100.00" {
		t.Errorf("a balance = %s", got)
	}
}
