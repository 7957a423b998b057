package logger

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// PerformanceConfig tunes the level floor and rate limit of the builder logger.
type PerformanceConfig struct {
	MinLogLevel     zapcore.Level `json:"min_log_level"`
	MaxLogPerSecond int           `json:"max_log_per_second"`
	EnableRateLimit bool          `json:"enable_rate_limit"`
}

func DefaultPerformanceConfig() PerformanceConfig {
	return PerformanceConfig{
		MinLogLevel:     zapcore.DebugLevel,
		MaxLogPerSecond: 10000,
		EnableRateLimit: false,
	}
}

func ProductionConfig() PerformanceConfig {
	return PerformanceConfig{
		MinLogLevel:     zapcore.InfoLevel,
		MaxLogPerSecond: 500,
		EnableRateLimit: true,
	}
}

// OptimizedLogger wraps the zap core behind level and rate checks so that
// discarded entries never allocate their fields.
type OptimizedLogger struct {
	config      PerformanceConfig
	logger      *zap.Logger
	rateLimiter *RateLimiter
	mu          sync.RWMutex
}

// RateLimiter caps the number of log entries per second
type RateLimiter struct {
	maxLogs   int
	current   int
	lastReset time.Time
	mu        sync.Mutex
}

func NewRateLimiter(maxLogs int) *RateLimiter {
	return &RateLimiter{
		maxLogs:   maxLogs,
		lastReset: time.Now(),
	}
}

func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastReset) >= time.Second {
		rl.current = 0
		rl.lastReset = now
	}

	if rl.current >= rl.maxLogs {
		return false
	}

	rl.current++
	return true
}

func NewOptimizedLogger(config PerformanceConfig) *OptimizedLogger {
	return &OptimizedLogger{
		config:      config,
		logger:      GetLogger(),
		rateLimiter: NewRateLimiter(config.MaxLogPerSecond),
	}
}

// ShouldLog decides whether an entry at the given level gets written
func (ol *OptimizedLogger) ShouldLog(level zapcore.Level) bool {
	if level < ol.config.MinLogLevel {
		return false
	}

	if ol.config.EnableRateLimit && !ol.rateLimiter.Allow() {
		return false
	}

	return true
}

// Global optimized logger instance
var (
	optimizedLogger *OptimizedLogger
	optimizedOnce   sync.Once
)

// GetOptimizedLogger returns the optimized logger, initializing it lazily
// from the GO_ENV environment when nothing configured it explicitly.
func GetOptimizedLogger() *OptimizedLogger {
	optimizedOnce.Do(func() {
		if optimizedLogger == nil {
			config := DefaultPerformanceConfig()
			if os.Getenv("GO_ENV") == "production" {
				config = ProductionConfig()
			}
			optimizedLogger = NewOptimizedLogger(config)
		}
	})
	return optimizedLogger
}

// InitOptimizedLogger installs an optimized logger with an explicit config
func InitOptimizedLogger(config PerformanceConfig) {
	optimizedLogger = NewOptimizedLogger(config)
}
