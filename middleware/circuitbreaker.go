package middleware

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	llmcomplete "github.com/bluefunda/llm-complete"
	"github.com/sony/gobreaker"
)

// CircuitBreakerMiddleware stops opening streams to a provider that keeps
// failing. Each provider has its own breaker. It never retries.
type CircuitBreakerMiddleware struct {
	name        string
	maxFailures uint32
	timeout     time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	breakers map[llmcomplete.Provider]*gobreaker.CircuitBreaker
}

// CircuitBreakerOption configures a CircuitBreakerMiddleware
type CircuitBreakerOption func(*CircuitBreakerMiddleware)

// WithBreakerLogger sets the logger for state changes
func WithBreakerLogger(logger *slog.Logger) CircuitBreakerOption {
	return func(m *CircuitBreakerMiddleware) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewCircuitBreakerMiddleware creates a new circuit breaker middleware
func NewCircuitBreakerMiddleware(name string, maxFailures uint32, timeout time.Duration, opts ...CircuitBreakerOption) *CircuitBreakerMiddleware {
	m := &CircuitBreakerMiddleware{
		name:        name,
		maxFailures: maxFailures,
		timeout:     timeout,
		logger:      slog.Default(),
		breakers:    make(map[llmcomplete.Provider]*gobreaker.CircuitBreaker),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Wrap wraps a client with the breaker of its provider
func (m *CircuitBreakerMiddleware) Wrap(next llmcomplete.Client) llmcomplete.Client {
	return &circuitBreakerClient{
		Client: next,
		cb:     m.breaker(next.Provider()),
	}
}

// State returns the state of the provider's breaker
func (m *CircuitBreakerMiddleware) State(p llmcomplete.Provider) gobreaker.State {
	m.mu.Lock()
	defer m.mu.Unlock()

	cb, ok := m.breakers[p]
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}

func (m *CircuitBreakerMiddleware) breaker(p llmcomplete.Provider) *gobreaker.CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cb, ok := m.breakers[p]; ok {
		return cb
	}

	maxFailures := m.maxFailures
	logger := m.logger
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        m.name + "/" + p.String(),
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     m.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: isHealthy,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})
	m.breakers[p] = cb
	return cb
}

// isHealthy reports whether err says nothing about the provider's health.
// A rejected key or request and a caller cancellation are answers, not outages.
func isHealthy(err error) bool {
	return err == nil ||
		errors.Is(err, llmcomplete.ErrAuthFailed) ||
		errors.Is(err, llmcomplete.ErrInvalidRequest) ||
		errors.Is(err, context.Canceled)
}

type circuitBreakerClient struct {
	llmcomplete.Client
	cb *gobreaker.CircuitBreaker
}

func (c *circuitBreakerClient) Stream(ctx context.Context, req *llmcomplete.Request) (llmcomplete.RawStream, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		return c.Client.Stream(ctx, req)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, llmcomplete.ErrCircuitOpen
		}
		return nil, err
	}

	return result.(llmcomplete.RawStream), nil
}
