package llmcomplete

import (
	"context"
)

// Client is the interface every vendor client implements
type Client interface {
	// Provider returns the vendor this client talks to
	Provider() Provider

	// Schema returns the kind of RawChunk the client's streams carry
	Schema() ChunkKind

	// Stream issues the request and returns the vendor stream. It returns
	// once the vendor has answered, so HTTP failures are reported here.
	Stream(ctx context.Context, req *Request) (RawStream, error)
}

// RawStream is a pull iterator over the chunks of one vendor response
type RawStream interface {
	// Next advances to the next chunk, returning false at the end of the
	// stream or on failure
	Next() bool

	// Current returns the chunk Next advanced to
	Current() RawChunk

	// Err returns the failure that stopped the stream, if any
	Err() error

	// Close releases the underlying transport
	Close() error
}

// Middleware wraps a Client with additional functionality
type Middleware interface {
	Wrap(next Client) Client
}
