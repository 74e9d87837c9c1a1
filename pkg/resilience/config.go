package resilience

import (
	"errors"
	"time"
)

// Config 重試與斷路器設定
type Config struct {
	// MaxAttempts 含第一次呼叫的總次數，1 代表不重試
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier"`

	Breaker BreakerConfig `yaml:"breaker"`

	// Retryable 判斷錯誤是否可重試，同時決定是否計入斷路器失敗；nil 代表都不重試
	Retryable func(err error) bool `yaml:"-"`
}

// BreakerConfig 斷路器設定
type BreakerConfig struct {
	// MaxRequests half-open 狀態允許通過的請求數
	MaxRequests uint32 `yaml:"max_requests"`
	// Interval closed 狀態下清除計數的週期，0 代表不清除
	Interval time.Duration `yaml:"interval"`
	// Timeout open 狀態持續多久後轉為 half-open
	Timeout time.Duration `yaml:"timeout"`
	// ConsecutiveFailures 連續失敗幾次後跳開
	ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
}

// DefaultConfig 預設值: 最多 3 次，50ms 起跳，倍數 2，上限 1s
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2,
		Breaker: BreakerConfig{
			MaxRequests:         1,
			Interval:            time.Minute,
			Timeout:             30 * time.Second,
			ConsecutiveFailures: 5,
		},
	}
}

// Validate 檢查設定
func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return errors.New("resilience: max_attempts must be at least 1")
	}
	if c.InitialBackoff < 0 || c.MaxBackoff < c.InitialBackoff {
		return errors.New("resilience: backoff must satisfy 0 <= initial_backoff <= max_backoff")
	}
	if c.Multiplier < 1 {
		return errors.New("resilience: multiplier must be >= 1")
	}
	if c.Breaker.ConsecutiveFailures == 0 {
		return errors.New("resilience: breaker.consecutive_failures must be positive")
	}
	return nil
}
