package metrics

import "time"

// Collector 帳務系統的指標收集介面，實作可接 Prometheus 或其他後端
type Collector interface {
	// RecordOperation 記錄一次帳務操作 (transfer, withdraw) 的結果與耗時
	RecordOperation(op, outcome string, duration time.Duration)
	// RecordLockWait 記錄取得帳戶鎖所花的時間
	RecordLockWait(duration time.Duration)
	// RecordRetry 記錄 transport 層的重試
	RecordRetry(op string)
	// RecordCircuitState 記錄斷路器狀態變化
	RecordCircuitState(name string, state CircuitState)
	// RecordHTTPRequest 記錄 HTTP 請求
	RecordHTTPRequest(method, endpoint string, status int, duration time.Duration)
}

// CircuitState 斷路器狀態
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// NoOpCollector 不做任何事，未設定指標時的預設值
type NoOpCollector struct{}

func (NoOpCollector) RecordOperation(op, outcome string, duration time.Duration) {}

func (NoOpCollector) RecordLockWait(duration time.Duration) {}

func (NoOpCollector) RecordRetry(op string) {}

func (NoOpCollector) RecordCircuitState(name string, state CircuitState) {}

func (NoOpCollector) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {}

var _ Collector = NoOpCollector{}
