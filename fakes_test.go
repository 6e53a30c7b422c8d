package llmcomplete

import (
	"context"
	"sync"
)

// fakeStream replays a fixed list of chunks, then reports err
type fakeStream struct {
	chunks  []RawChunk
	err     error
	pos     int
	current RawChunk

	mu     sync.Mutex
	closed bool
}

func (s *fakeStream) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pos >= len(s.chunks) {
		return false
	}
	s.current = s.chunks[s.pos]
	s.pos++
	return true
}

func (s *fakeStream) Current() RawChunk { return s.current }

func (s *fakeStream) Err() error { return s.err }

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeClient returns stream (or err) and records the requests it saw
type fakeClient struct {
	provider Provider
	schema   ChunkKind
	stream   *fakeStream
	err      error

	mu       sync.Mutex
	requests []*Request
}

func (c *fakeClient) Provider() Provider { return c.provider }

func (c *fakeClient) Schema() ChunkKind { return c.schema }

func (c *fakeClient) Stream(ctx context.Context, req *Request) (RawStream, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.stream, nil
}

func (c *fakeClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func openAIChunk(json string) RawChunk {
	return RawChunk{Kind: ChunkOpenAI, Data: []byte(json)}
}

func anthropicChunk(json string) RawChunk {
	return RawChunk{Kind: ChunkAnthropic, Data: []byte(json)}
}

// drain reads r until Done or an error
func drain(r *Reader) ([]string, error) {
	var fragments []string
	for {
		res, err := r.Read()
		if err != nil {
			return fragments, err
		}
		if res.Done {
			return fragments, nil
		}
		fragments = append(fragments, res.Value)
	}
}
