package wal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// 檔案權限
const (
	// rw-r--r--
	FileModeReadOnly fs.FileMode = 0644
	// rw-------
	FileModePrivate fs.FileMode = 0600
)

// ErrBroken 寫入失敗後無法把檔案截回寫入前的長度，WAL 不再接受寫入
var ErrBroken = errors.New("wal: log is broken")

// File WAL 底層檔案需要的操作，*os.File 即滿足
type File interface {
	io.ReadWriteSeeker
	io.Closer
	Sync() error
	Truncate(size int64) error
}

// WAL 以 JSON Lines 格式追加寫入的 Write-Ahead Log，每筆寫入後 fsync
//
// 寫入或 fsync 失敗時會把檔案截回寫入前的長度，失敗的紀錄不會在重播時出現
type WAL struct {
	file File
	mu   sync.Mutex
	// 最後一筆完整紀錄之後的位置
	size int64
	// 非 nil 代表截斷失敗，之後的寫入一律拒絕
	broken error
}

// NewWAL 開啟或建立一個 WAL 檔案
// O_APPEND 每次寫入時自動跳到文件末尾
// O_CREATE 如果文件不存在則建立
func NewWAL(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModePrivate)
	if err != nil {
		return nil, err
	}
	w, err := Open(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return w, nil
}

// Open 以已開啟的檔案建立 WAL，檔案必須是追加模式
//
// 參數:
//
//	file: 底層檔案
//
// 回傳:
//
//	*WAL: WAL 實例
//	error: 取得檔案長度失敗
func Open(file File) (*WAL, error) {
	size, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	return &WAL{file: file, size: size}, nil
}

// Write 寫入一筆資料並刷入硬碟，回傳 nil 代表資料已落地
//
// 回傳錯誤時檔案已回到寫入前的狀態；若連截斷都失敗，回傳的錯誤包含 ErrBroken
func (w *WAL) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.broken != nil {
		return w.broken
	}

	n, err := w.file.Write(line)
	if err == nil && n < len(line) {
		err = io.ErrShortWrite
	}
	if err == nil {
		err = w.file.Sync()
	}
	if err != nil {
		return w.rollback(err)
	}
	w.size += int64(n)
	return nil
}

// rollback 截掉寫到一半或未確認落地的資料
func (w *WAL) rollback(cause error) error {
	if err := w.file.Truncate(w.size); err != nil {
		w.broken = fmt.Errorf("%w: truncate to %d after %v: %w", ErrBroken, w.size, cause, err)
		return w.broken
	}
	if err := w.file.Sync(); err != nil {
		w.broken = fmt.Errorf("%w: sync after truncate: %w", ErrBroken, err)
		return w.broken
	}
	return cause
}

// Sync 強制刷入硬碟
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Sync()
}

// Close 關閉檔案
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// ReadAll 依寫入順序讀取所有資料
//
// 參數:
//
//	callback: 每筆資料呼叫一次，回傳錯誤會中止讀取
//
// 回傳:
//
//	error: 讀檔、解析或 callback 錯誤
//
// 檔尾若有寫到一半的資料 (程序在寫入途中終止)，會被截掉，之後的寫入從最後一筆完整資料之後開始
func (w *WAL) ReadAll(callback func(jsonRaw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(w.file)
	var good int64
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				size, err := w.file.Seek(0, io.SeekEnd)
				if err != nil {
					return err
				}
				w.size = size
				return nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				if err := w.file.Truncate(good); err != nil {
					return err
				}
				w.size = good
				return nil
			}
			return err
		}
		if err := callback(raw); err != nil {
			return err
		}
		good = decoder.InputOffset()
	}
}
