package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	llmcomplete "github.com/bluefunda/llm-complete"
)

// LoggingMiddleware records stream lifecycle events with slog.
// API keys are never logged.
type LoggingMiddleware struct {
	logger *slog.Logger
}

// NewLoggingMiddleware creates a logging middleware. A nil logger means
// slog.Default().
func NewLoggingMiddleware(logger *slog.Logger) *LoggingMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingMiddleware{logger: logger}
}

// Wrap wraps a client with logging
func (m *LoggingMiddleware) Wrap(next llmcomplete.Client) llmcomplete.Client {
	return &loggingClient{
		Client: next,
		logger: m.logger.With("provider", next.Provider().String()),
	}
}

type loggingClient struct {
	llmcomplete.Client
	logger *slog.Logger
}

func (c *loggingClient) Stream(ctx context.Context, req *llmcomplete.Request) (llmcomplete.RawStream, error) {
	start := time.Now()
	c.logger.DebugContext(ctx, "stream opening", "prompt_len", len(req.UserPrompt))

	stream, err := c.Client.Stream(ctx, req)
	if err != nil {
		attrs := []any{"error", err, "duration", time.Since(start)}
		if code, ok := llmcomplete.StatusCode(err); ok {
			attrs = append(attrs, "status", code)
		}
		c.logger.ErrorContext(ctx, "stream open failed", attrs...)
		return nil, err
	}

	c.logger.InfoContext(ctx, "stream opened", "duration", time.Since(start))
	return &loggingStream{RawStream: stream, logger: c.logger, start: start}, nil
}

type loggingStream struct {
	llmcomplete.RawStream
	logger *slog.Logger
	start  time.Time
	chunks int
	once   sync.Once
}

func (s *loggingStream) Next() bool {
	if s.RawStream.Next() {
		s.chunks++
		return true
	}
	s.finish()
	return false
}

func (s *loggingStream) Close() error {
	err := s.RawStream.Close()
	s.finish()
	return err
}

func (s *loggingStream) finish() {
	s.once.Do(func() {
		attrs := []any{"chunks", s.chunks, "duration", time.Since(s.start)}
		if err := s.RawStream.Err(); err != nil {
			s.logger.Warn("stream ended with error", append(attrs, "error", err)...)
			return
		}
		s.logger.Info("stream closed", attrs...)
	})
}
