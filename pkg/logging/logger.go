package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 包裝 zap.Logger
type Logger struct {
	*zap.Logger
}

// Config 日誌設定
type Config struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level"`
	// Format: json 或 console
	Format      string   `yaml:"format"`
	OutputPaths []string `yaml:"output_paths"`
	// Development: 開啟後帶 caller 與 stacktrace
	Development bool `yaml:"development"`
}

// DefaultConfig 預設設定 (json 輸出到 stdout)
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{"stdout"},
	}
}

// NewLogger 依設定建立 Logger
//
// 參數:
//
//	cfg: 日誌設定
//
// 回傳:
//
//	*Logger: Logger 實例
//	error: 等級或格式不合法
func NewLogger(cfg Config) (*Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "console" {
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}
	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Development,
		DisableCaller:     !cfg.Development,
		DisableStacktrace: !cfg.Development,
		Encoding:          format,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
	}
	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{logger}, nil
}

// ApplyEnv 以環境變數 LOG_LEVEL / LOG_FORMAT 覆寫設定
func ApplyEnv(cfg Config) Config {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Format = format
	}
	return cfg
}

// NewNoOpLogger 丟棄所有輸出，測試用
func NewNoOpLogger() *Logger {
	return &Logger{zap.NewNop()}
}

// ParseLevel 解析日誌等級，空字串視為 info
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("logging: unknown level %q", level)
	}
}

// With 建立帶額外欄位的子 Logger
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{l.Logger.With(fields...)}
}

// Named 建立具名子 Logger
func (l *Logger) Named(name string) *Logger {
	return &Logger{l.Logger.Named(name)}
}
