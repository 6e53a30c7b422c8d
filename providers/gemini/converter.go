package gemini

import (
	"errors"
	"fmt"
	"io"
	"strings"

	llmcomplete "github.com/bluefunda/llm-complete"
	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// buildPrompt folds the system and user prompts into one labelled prompt
func buildPrompt(req *llmcomplete.Request) string {
	return fmt.Sprintf("System: %s\nUser: %s", req.SystemPrompt, req.UserPrompt)
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

// textStream re-wraps each generated response as a plain text chunk
type textStream struct {
	iter    responseIterator
	closer  io.Closer
	pending *genai.GenerateContentResponse
	current llmcomplete.RawChunk
	done    bool
	err     error
}

func (s *textStream) Next() bool {
	if s.done {
		return false
	}

	resp := s.pending
	s.pending = nil
	if resp == nil {
		var err error
		resp, err = s.iter.Next()
		if errors.Is(err, iterator.Done) {
			s.done = true
			return false
		}
		if err != nil {
			s.err = wrapError(err)
			s.done = true
			return false
		}
	}

	s.current = llmcomplete.TextChunk(responseText(resp))
	return true
}

func (s *textStream) Current() llmcomplete.RawChunk {
	return s.current
}

func (s *textStream) Err() error {
	return s.err
}

func (s *textStream) Close() error {
	s.done = true
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

// wrapError wraps Gemini errors, keeping the HTTP status when there is one
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) && gErr.Code > 0 {
		return llmcomplete.NewHTTPError(llmcomplete.ProviderGemini, gErr.Code, gErr.Message)
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPCode() > 0 {
		return llmcomplete.NewHTTPError(llmcomplete.ProviderGemini, apiErr.HTTPCode(), apiErr.Error())
	}

	return fmt.Errorf("%s: %w", llmcomplete.ProviderGemini, err)
}
