package openai

import (
	"bytes"
	"errors"
	"fmt"

	llmcomplete "github.com/bluefunda/llm-complete"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"
)

// doneSentinel terminates an OpenAI event stream
var doneSentinel = []byte("[DONE]")

func convertMessages(req *llmcomplete.Request) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		result = append(result, openai.SystemMessage(req.SystemPrompt))
	}
	return append(result, openai.UserMessage(req.UserPrompt))
}

// chunkStream yields each chat.completion.chunk payload as a raw chunk
type chunkStream struct {
	decoder ssestream.Decoder
	current llmcomplete.RawChunk
	done    bool
}

func (s *chunkStream) Next() bool {
	if s.done {
		return false
	}
	if !s.decoder.Next() {
		s.done = true
		return false
	}

	data := s.decoder.Event().Data
	if bytes.HasPrefix(bytes.TrimSpace(data), doneSentinel) {
		s.done = true
		return false
	}

	s.current = llmcomplete.RawChunk{Kind: llmcomplete.ChunkOpenAI, Data: data}
	return true
}

func (s *chunkStream) Current() llmcomplete.RawChunk {
	return s.current
}

func (s *chunkStream) Err() error {
	return wrapError(s.decoder.Err())
}

func (s *chunkStream) Close() error {
	return s.decoder.Close()
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		return llmcomplete.NewHTTPError(llmcomplete.ProviderOpenAI, oaiErr.StatusCode, oaiErr.Message)
	}

	return fmt.Errorf("%s: %w", llmcomplete.ProviderOpenAI, err)
}
