package middleware

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	llmcomplete "github.com/bluefunda/llm-complete"
	"github.com/prometheus/client_golang/prometheus"
)

// LLMBuckets defines histogram buckets suited for time to first byte of an
// LLM response, ranging from 100ms to 60s.
var LLMBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

// MetricsMiddleware records Prometheus metrics for every completion
type MetricsMiddleware struct {
	requests     *prometheus.CounterVec
	streamErrors *prometheus.CounterVec
	chunks       *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// NewMetricsMiddleware creates the metrics and registers them on reg
func NewMetricsMiddleware(reg prometheus.Registerer) (*MetricsMiddleware, error) {
	m := &MetricsMiddleware{
		// requests counts stream opens by provider and outcome
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llmcomplete_requests_total",
				Help: "Completion requests",
			},
			[]string{"provider", "status"},
		),
		// streamErrors counts opened streams that failed before their end
		streamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llmcomplete_stream_errors_total",
				Help: "Streams that failed after opening",
			},
			[]string{"provider"},
		),
		chunks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llmcomplete_stream_chunks_total",
				Help: "Raw stream chunks received",
			},
			[]string{"provider"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llmcomplete_stream_open_seconds",
				Help:    "Time until the provider answered",
				Buckets: LLMBuckets,
			},
			[]string{"provider"},
		),
	}

	for _, c := range []prometheus.Collector{m.requests, m.streamErrors, m.chunks, m.latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Wrap wraps a client with metrics
func (m *MetricsMiddleware) Wrap(next llmcomplete.Client) llmcomplete.Client {
	return &metricsClient{Client: next, m: m}
}

type metricsClient struct {
	llmcomplete.Client
	m *MetricsMiddleware
}

func (c *metricsClient) Stream(ctx context.Context, req *llmcomplete.Request) (llmcomplete.RawStream, error) {
	provider := c.Provider().String()
	start := time.Now()

	stream, err := c.Client.Stream(ctx, req)
	c.m.latency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	c.m.requests.WithLabelValues(provider, statusLabel(err)).Inc()
	if err != nil {
		return nil, err
	}

	return &metricsStream{
		RawStream: stream,
		chunks:    c.m.chunks.WithLabelValues(provider),
		errors:    c.m.streamErrors.WithLabelValues(provider),
	}, nil
}

// statusLabel maps an outcome to a low-cardinality label
func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if code, ok := llmcomplete.StatusCode(err); ok {
		return strconv.Itoa(code)
	}
	switch {
	case errors.Is(err, llmcomplete.ErrStreamUnavailable):
		return "no_stream"
	case errors.Is(err, llmcomplete.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "error"
}

type metricsStream struct {
	llmcomplete.RawStream
	chunks prometheus.Counter
	errors prometheus.Counter
	once   sync.Once
}

func (s *metricsStream) Next() bool {
	if s.RawStream.Next() {
		s.chunks.Inc()
		return true
	}
	s.once.Do(func() {
		if s.RawStream.Err() != nil {
			s.errors.Inc()
		}
	})
	return false
}
