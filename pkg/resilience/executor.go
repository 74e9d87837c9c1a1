package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
	"github.com/JoeShih716/go-bank-ledger/pkg/metrics"
)

// ErrCircuitOpen 斷路器開啟，請求未被執行
var ErrCircuitOpen = errors.New("resilience: circuit breaker open")

// Executor 以斷路器保護呼叫，並對可重試錯誤做有上限的指數退避重試
type Executor struct {
	name    string
	cfg     Config
	cb      *gobreaker.CircuitBreaker
	metrics metrics.Collector
	logger  *logging.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewExecutor 建立 Executor
//
// 參數:
//
//	name: 斷路器名稱 (用於 log 與 metrics)
//	cfg: 重試與斷路器設定
//	collector: 指標，nil 時不記錄
//	logger: nil 時不輸出
//
// 回傳:
//
//	*Executor: 實例
func NewExecutor(name string, cfg Config, collector metrics.Collector, logger *logging.Logger) *Executor {
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	if cfg.Retryable == nil {
		cfg.Retryable = func(error) bool { return false }
	}

	e := &Executor{
		name:    name,
		cfg:     cfg,
		metrics: collector,
		logger:  logger.Named("resilience").With(zap.String("breaker", name)),
		sleep:   sleepContext,
	}

	threshold := cfg.Breaker.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	e.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// 業務拒絕與取消不算儲存層故障
		IsSuccessful: func(err error) bool {
			return err == nil || !cfg.Retryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn("circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			e.metrics.RecordCircuitState(name, toCircuitState(to))
		},
	})
	return e
}

// Do 執行 fn，見 Execute
func (e *Executor) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	_, err := Execute(ctx, e, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Execute 透過 Executor 執行 fn 並回傳結果
//
// 參數:
//
//	ctx: 取消時停止等待與重試
//	e: Executor
//	op: 操作名稱 (用於 log 與 metrics)
//	fn: 實際呼叫
//
// 回傳:
//
//	T: fn 的結果
//	error: fn 最後一次的錯誤，或 ErrCircuitOpen
func Execute[T any](ctx context.Context, e *Executor, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	backoff := e.cfg.InitialBackoff
	for attempt := 1; ; attempt++ {
		res, err := e.cb.Execute(func() (any, error) {
			return fn(ctx)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			e.logger.Warn("circuit breaker open, request rejected", zap.String("op", op))
			return zero, ErrCircuitOpen
		}
		if err == nil {
			v, _ := res.(T)
			return v, nil
		}
		if !e.cfg.Retryable(err) || attempt >= e.cfg.MaxAttempts || ctx.Err() != nil {
			return zero, err
		}

		e.metrics.RecordRetry(op)
		e.logger.Info("retrying transient failure",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		if sleepErr := e.sleep(ctx, backoff); sleepErr != nil {
			return zero, err
		}
		backoff = min(time.Duration(float64(backoff)*e.cfg.Multiplier), e.cfg.MaxBackoff)
	}
}

// State 目前斷路器狀態
func (e *Executor) State() metrics.CircuitState {
	return toCircuitState(e.cb.State())
}

func toCircuitState(s gobreaker.State) metrics.CircuitState {
	switch s {
	case gobreaker.StateOpen:
		return metrics.CircuitOpen
	case gobreaker.StateHalfOpen:
		return metrics.CircuitHalfOpen
	default:
		return metrics.CircuitClosed
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
