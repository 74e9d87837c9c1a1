package memory

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

// ErrStoreClosed Store 已關閉
var ErrStoreClosed = fmt.Errorf("%w: memory store closed", domain.ErrTransient)

// journalRequest 變更請求，submit 會等待 result
type journalRequest struct {
	build  func() (*walRecord, error)
	rec    *walRecord
	result chan error
}

// journal 單一寫入者迴圈
//
// 所有變更都在此 goroutine 依序: 檢查 → 寫入 WAL → 套用到記憶體
// 帳戶鎖由 unit of work 持有，這裡只保證 WAL 與記憶體的順序一致
type journal struct {
	wal   *wal.WAL
	mu    *sync.RWMutex
	apply func(*walRecord)
	log   *logging.Logger

	// 無緩衝，送出成功代表迴圈已收到
	requests    chan *journalRequest
	requestPool sync.Pool
	done        chan struct{}
	stopped     chan struct{}
	closeOnce   sync.Once

	// WAL 無法回復到一致狀態後設定，之後所有變更直接拒絕 (只在寫入迴圈內讀寫)
	failed error
}

func newJournal(w *wal.WAL, mu *sync.RWMutex, apply func(*walRecord), log *logging.Logger) *journal {
	return &journal{
		wal:      w,
		mu:       mu,
		apply:    apply,
		log:      log,
		requests: make(chan *journalRequest),
		requestPool: sync.Pool{
			New: func() any {
				return &journalRequest{result: make(chan error, 1)}
			},
		},
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// start 啟動寫入迴圈 (非同步)
func (j *journal) start() {
	go j.run()
}

// stop 停止迴圈並等待結束
func (j *journal) stop() {
	j.closeOnce.Do(func() { close(j.done) })
	<-j.stopped
}

// submit 送出一筆變更並等待結果
//
// 參數:
//
//	build: 在寫入迴圈內執行，檢查約束並產生 WAL 紀錄 (此時沒有其他寫入者)
//
// 回傳:
//
//	*walRecord: 已套用的紀錄
//	error: build 錯誤、WAL 寫入失敗 (ErrWALWriteFailed) 或 ErrStoreClosed
func (j *journal) submit(build func() (*walRecord, error)) (*walRecord, error) {
	req := j.requestPool.Get().(*journalRequest)
	req.build = build

	select {
	case j.requests <- req:
	case <-j.done:
		req.build = nil
		j.requestPool.Put(req)
		return nil, ErrStoreClosed
	}

	err := <-req.result
	rec := req.rec
	req.build, req.rec = nil, nil
	j.requestPool.Put(req)
	return rec, err
}

func (j *journal) run() {
	defer close(j.stopped)
	for {
		select {
		case <-j.done:
			return
		case req := <-j.requests:
			j.process(req)
		}
	}
}

func (j *journal) process(req *journalRequest) {
	if j.failed != nil {
		req.result <- j.failed
		return
	}

	rec, err := req.build()
	if err != nil {
		req.result <- err
		return
	}

	// WAL 先落地，才更新記憶體
	if j.wal != nil {
		// 失敗時 WAL 已截回寫入前的長度，記憶體也沒動，這筆變更完全不存在
		if err := j.wal.Write(rec); err != nil {
			err = fmt.Errorf("%w: %w", domain.ErrWALWriteFailed, err)
			if errors.Is(err, wal.ErrBroken) {
				j.failed = err
				j.log.Error("wal is broken, rejecting all further writes", zap.Error(err))
			} else {
				j.log.Warn("wal write failed, record discarded", zap.String("kind", rec.Kind), zap.Error(err))
			}
			req.result <- err
			return
		}
	}

	j.mu.Lock()
	j.apply(rec)
	j.mu.Unlock()

	req.rec = rec
	req.result <- nil
}
