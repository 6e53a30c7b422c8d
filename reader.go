package llmcomplete

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Reader hands out the text fragments of one completion, one per Read.
// It belongs to a single consumer.
type Reader struct {
	src      RawStream
	provider Provider
	logger   *slog.Logger

	mu      sync.Mutex
	done    bool
	aborted atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

func newReader(src RawStream, provider Provider, logger *slog.Logger) *Reader {
	return &Reader{
		src:      src,
		provider: provider,
		logger:   logger,
	}
}

// Read returns the next fragment. Once Result.Done is true every further
// call returns Done as well. A transport failure is returned once as an
// error and the stream is released.
func (r *Reader) Read() (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done {
		return Result{Done: true}, nil
	}
	if r.aborted.Load() {
		r.done = true
		return Result{Done: true}, nil
	}

	for r.src.Next() {
		chunk := r.src.Current()
		if fragment, ok := Normalize(chunk); ok {
			return Result{Value: fragment}, nil
		}
		r.logger.Debug("chunk skipped",
			"provider", r.provider,
			"kind", chunk.Kind,
			"size", len(chunk.Data))
	}

	err := r.src.Err()
	r.done = true
	r.release()

	// Errors caused by Close are the caller's own doing
	if err != nil && !r.aborted.Load() {
		return Result{}, err
	}
	return Result{Done: true}, nil
}

// Close aborts the completion. A Read blocked on the transport returns
// promptly and later reads report Done.
func (r *Reader) Close() error {
	r.aborted.Store(true)
	return r.release()
}

func (r *Reader) release() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.src.Close()
	})
	return r.closeErr
}
