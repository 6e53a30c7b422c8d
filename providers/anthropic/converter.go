package anthropic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	llmcomplete "github.com/bluefunda/llm-complete"
	"github.com/tidwall/gjson"
)

// messagesRequest is the body of POST /v1/messages
type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Stream    bool      `json:"stream"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func newMessagesRequest(model string, maxTokens int, req *llmcomplete.Request) messagesRequest {
	return messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Stream:    true,
		System:    req.SystemPrompt,
		Messages: []message{
			{Role: "user", Content: req.UserPrompt},
		},
	}
}

// eventStream yields the data of each server-sent event as a raw chunk
type eventStream struct {
	decoder ssestream.Decoder
	current llmcomplete.RawChunk
}

func (s *eventStream) Next() bool {
	if !s.decoder.Next() {
		return false
	}
	s.current = llmcomplete.RawChunk{
		Kind: llmcomplete.ChunkAnthropic,
		Data: s.decoder.Event().Data,
	}
	return true
}

func (s *eventStream) Current() llmcomplete.RawChunk {
	return s.current
}

func (s *eventStream) Err() error {
	return wrapError(s.decoder.Err())
}

func (s *eventStream) Close() error {
	return s.decoder.Close()
}

// wrapError converts SDK errors, keeping the HTTP status and the message of
// the {"error":{"message":...}} body
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return llmcomplete.NewHTTPError(llmcomplete.ProviderAnthropic, apiErr.StatusCode, errorMessage(apiErr.JSON.RawJSON()))
	}

	return fmt.Errorf("%s: %w", llmcomplete.ProviderAnthropic, err)
}

func errorMessage(body string) string {
	if msg := gjson.Get(body, "error.message"); msg.Type == gjson.String && msg.Str != "" {
		return msg.Str
	}
	return strings.TrimSpace(body)
}
