package wal

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type entry struct {
	Seq  int    `json:"seq"`
	Note string `json:"note"`
}

func readEntries(t *testing.T, w *WAL) []entry {
	t.Helper()
	var out []entry
	err := w.ReadAll(func(raw []byte) error {
		var e entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return out
}

func TestWriteThenReadAllAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")

	w, err := NewWAL(path)
	if err != nil {
		t.Fatalf("NewWAL: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := w.Write(entry{Seq: i, Note: "x"}); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	w, err = NewWAL(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer w.Close()

	got := readEntries(t, w)
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	for i, e := range got {
		if e.Seq != i+1 {
			t.Errorf("entry %d seq = %d", i, e.Seq)
		}
	}
}

func TestReadAllTruncatesTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")
	content := `{"seq":1,"note":"a"}` + "\n" + `{"seq":2,"no`
	if err := os.WriteFile(path, []byte(content), FileModePrivate); err != nil {
		t.Fatal(err)
	}

	w, err := NewWAL(path)
	if err != nil {
		t.Fatalf("NewWAL: %v", err)
	}
	defer w.Close()

	if got := readEntries(t, w); len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	if err := w.Write(entry{Seq: 3}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got := readEntries(t, w)
	if len(got) != 2 || got[1].Seq != 3 {
		t.Fatalf("after append got %+v", got)
	}
}

func TestReadAllEmptyFile(t *testing.T) {
	w, err := NewWAL(filepath.Join(t.TempDir(), "empty.wal"))
	if err != nil {
		t.Fatalf("NewWAL: %v", err)
	}
	defer w.Close()

	if got := readEntries(t, w); len(got) != 0 {
		t.Fatalf("got %d entries, want 0", len(got))
	}
}

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

func openFaulty(t *testing.T, path string) (*WAL, *faultyFile) {
	t.Helper()
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModePrivate)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ff := &faultyFile{File: file}
	w, err := Open(ff)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return w, ff
}

func TestWriteFailureRollsBack(t *testing.T) {
	tests := []struct {
		name   string
		inject func(f *faultyFile)
	}{
		{"short write", func(f *faultyFile) { f.shortWrites = 1 }},
		{"sync", func(f *faultyFile) { f.failSyncs = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ledger.wal")
			w, ff := openFaulty(t, path)

			if err := w.Write(entry{Seq: 1}); err != nil {
				t.Fatalf("Write: %v", err)
			}
			tt.inject(ff)
			if err := w.Write(entry{Seq: 2, Note: "lost"}); !errors.Is(err, errDisk) {
				t.Fatalf("Write err = %v, want injected failure", err)
			}
			if err := w.Write(entry{Seq: 3}); err != nil {
				t.Fatalf("Write after rollback: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			w, err := NewWAL(path)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer w.Close()
			got := readEntries(t, w)
			if len(got) != 2 || got[0].Seq != 1 || got[1].Seq != 3 {
				t.Fatalf("entries = %+v, want seq 1 and 3", got)
			}
		})
	}
}

func TestWriteStopsWhenTruncateFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")
	w, ff := openFaulty(t, path)
	defer w.Close()

	if err := w.Write(entry{Seq: 1}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	ff.shortWrites, ff.failTruncates = 1, 1
	if err := w.Write(entry{Seq: 2}); !errors.Is(err, ErrBroken) {
		t.Fatalf("Write err = %v, want ErrBroken", err)
	}
	if err := w.Write(entry{Seq: 3}); !errors.Is(err, ErrBroken) {
		t.Fatalf("Write after broken err = %v, want ErrBroken", err)
	}
}

func TestRollbackAfterTornTailRecovery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.wal")
	content := `{"seq":1,"note":"a"}` + "\n" + `{"seq":2,"no`
	if err := os.WriteFile(path, []byte(content), FileModePrivate); err != nil {
		t.Fatal(err)
	}
	w, ff := openFaulty(t, path)
	if got := readEntries(t, w); len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}

	ff.failSyncs = 1
	if err := w.Write(entry{Seq: 3}); !errors.Is(err, errDisk) {
		t.Fatalf("Write err = %v", err)
	}
	if err := w.Write(entry{Seq: 4}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := readEntries(t, w)
	if len(got) != 2 || got[1].Seq != 4 {
		t.Fatalf("entries = %+v", got)
	}
	w.Close()
}
