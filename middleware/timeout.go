package middleware

import (
	"context"
	"sync"
	"time"

	llmcomplete "github.com/bluefunda/llm-complete"
)

// TimeoutMiddleware bounds a whole completion, request and stream reads
type TimeoutMiddleware struct {
	timeout time.Duration
}

// NewTimeoutMiddleware creates a new timeout middleware
func NewTimeoutMiddleware(timeout time.Duration) *TimeoutMiddleware {
	return &TimeoutMiddleware{
		timeout: timeout,
	}
}

// Wrap wraps a client with timeout
func (m *TimeoutMiddleware) Wrap(next llmcomplete.Client) llmcomplete.Client {
	return &timeoutClient{
		Client:  next,
		timeout: m.timeout,
	}
}

type timeoutClient struct {
	llmcomplete.Client
	timeout time.Duration
}

func (c *timeoutClient) Stream(ctx context.Context, req *llmcomplete.Request) (llmcomplete.RawStream, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)

	stream, err := c.Client.Stream(ctx, req)
	if err != nil {
		cancel()
		return nil, err
	}

	// The deadline must outlive Stream: the body is read afterwards
	return &timeoutStream{RawStream: stream, cancel: cancel}, nil
}

// timeoutStream releases the deadline once the stream ends
type timeoutStream struct {
	llmcomplete.RawStream
	cancel context.CancelFunc
	once   sync.Once
}

func (s *timeoutStream) Next() bool {
	if s.RawStream.Next() {
		return true
	}
	s.once.Do(s.cancel)
	return false
}

func (s *timeoutStream) Close() error {
	err := s.RawStream.Close()
	s.once.Do(s.cancel)
	return err
}
