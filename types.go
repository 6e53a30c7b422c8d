package llmcomplete

import (
	"fmt"
	"net/http"
	"time"
)

// Provider identifies an LLM vendor
type Provider string

const (
	ProviderOpenAI    Provider = "OpenAI"
	ProviderAnthropic Provider = "Anthropic"
	ProviderGemini    Provider = "Gemini"
)

// Providers lists every supported provider in display order
var Providers = []Provider{ProviderOpenAI, ProviderAnthropic, ProviderGemini}

// Valid reports whether p is one of the supported providers
func (p Provider) Valid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		return true
	}
	return false
}

func (p Provider) String() string {
	return string(p)
}

// ParseProvider converts a configured provider name into a Provider
func ParseProvider(name string) (Provider, error) {
	p := Provider(name)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidProvider, name)
	}
	return p, nil
}

// Request is a single completion request. Build it with NewRequest and
// treat it as read-only afterwards.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	APIKey       string
	Provider     Provider
}

// NewRequest builds a Request, rejecting an empty provider, key or prompt
func NewRequest(provider Provider, apiKey, systemPrompt, userPrompt string) (*Request, error) {
	if provider == "" {
		return nil, fmt.Errorf("%w: empty provider", ErrInvalidProvider)
	}
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if userPrompt == "" {
		return nil, ErrNoSelection
	}
	return &Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		APIKey:       apiKey,
		Provider:     provider,
	}, nil
}

// ChunkKind tags the wire schema of a RawChunk
type ChunkKind int

const (
	ChunkText      ChunkKind = iota // Plain text fragment, no envelope
	ChunkOpenAI                     // OpenAI chat.completion.chunk JSON
	ChunkAnthropic                  // Anthropic message stream event JSON
)

func (k ChunkKind) String() string {
	switch k {
	case ChunkText:
		return "text"
	case ChunkOpenAI:
		return "openai"
	case ChunkAnthropic:
		return "anthropic"
	}
	return fmt.Sprintf("ChunkKind(%d)", int(k))
}

// RawChunk is one unit of a provider stream in the provider's native shape.
// Text is set for ChunkText; Data holds the UTF-8 JSON envelope otherwise.
type RawChunk struct {
	Kind ChunkKind
	Text string
	Data []byte
}

// TextChunk wraps a plain text fragment
func TextChunk(s string) RawChunk {
	return RawChunk{Kind: ChunkText, Text: s}
}

// Result is what a Reader hands back on every Read
type Result struct {
	Done  bool
	Value string
}

// ProviderConfig holds common configuration for provider clients.
// API keys are not part of it: they travel with each Request.
type ProviderConfig struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}
