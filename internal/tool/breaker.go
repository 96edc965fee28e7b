package tool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Default circuit breaker settings.
const (
	defaultBreakerMaxFailures uint32        = 5
	defaultBreakerTimeout     time.Duration = 30 * time.Second
	defaultBreakerInterval    time.Duration = 60 * time.Second
)

// BreakerConfig configures per-tool circuit breakers.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before a tool's circuit opens.
	MaxFailures uint32
	// Timeout is how long an open circuit waits before probing again.
	Timeout time.Duration
	// Interval clears failure counts while closed. Zero keeps the default.
	Interval time.Duration
}

// BreakerInvoker wraps an Invoker with one circuit breaker per tool id, so a
// tool that keeps failing fails fast without reaching its backend.
type BreakerInvoker struct {
	inner    Invoker
	cfg      BreakerConfig
	breakers map[string]*gobreaker.CircuitBreaker[Result]
	mu       sync.Mutex
	logger   *zap.Logger
}

// NewBreakerInvoker wraps inner. Zero config fields take defaults.
func NewBreakerInvoker(inner Invoker, cfg BreakerConfig, logger *zap.Logger) *BreakerInvoker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = defaultBreakerMaxFailures
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultBreakerTimeout
	}
	if cfg.Interval == 0 {
		cfg.Interval = defaultBreakerInterval
	}
	return &BreakerInvoker{
		inner:    inner,
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker[Result]),
		logger:   logger,
	}
}

// Invoke implements Invoker. An unsuccessful Result counts as a failure.
func (b *BreakerInvoker) Invoke(ctx context.Context, toolID string, params map[string]any, cc CallContext) (Result, error) {
	res, err := b.breaker(toolID).Execute(func() (Result, error) {
		r, err := b.inner.Invoke(ctx, toolID, params, cc)
		if err == nil && !r.Success {
			err = fmt.Errorf("%w: %s: %s", ErrToolExecutionFailed, toolID, r.Error)
		}
		return r, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		wrapped := fmt.Errorf("%w: tool %q circuit open: %v", ErrToolExecutionFailed, toolID, err)
		return Result{Error: wrapped.Error()}, wrapped
	}
	return res, err
}

// State returns the breaker state for a tool.
func (b *BreakerInvoker) State(toolID string) gobreaker.State {
	return b.breaker(toolID).State()
}

func (b *BreakerInvoker) breaker(toolID string) *gobreaker.CircuitBreaker[Result] {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := b.breakers[toolID]; ok {
		return cb
	}
	maxFailures := b.cfg.MaxFailures
	cb := gobreaker.NewCircuitBreaker[Result](gobreaker.Settings{
		Name:        "tool:" + toolID,
		MaxRequests: 1,
		Interval:    b.cfg.Interval,
		Timeout:     b.cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	b.breakers[toolID] = cb
	return cb
}
