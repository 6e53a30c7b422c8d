// Package providers registers the vendor clients on a router.
package providers

import (
	"fmt"

	llmcomplete "github.com/bluefunda/llm-complete"
	"github.com/bluefunda/llm-complete/providers/anthropic"
	"github.com/bluefunda/llm-complete/providers/gemini"
	"github.com/bluefunda/llm-complete/providers/openai"
)

// Config holds per-provider client configuration. A missing entry means the
// client's defaults.
type Config map[llmcomplete.Provider]llmcomplete.ProviderConfig

// NewClient builds the client for one provider
func NewClient(p llmcomplete.Provider, cfg llmcomplete.ProviderConfig) (llmcomplete.Client, error) {
	switch p {
	case llmcomplete.ProviderOpenAI:
		return openai.New(cfg), nil
	case llmcomplete.ProviderAnthropic:
		return anthropic.New(cfg), nil
	case llmcomplete.ProviderGemini:
		return gemini.New(cfg), nil
	}
	return nil, llmcomplete.ErrInvalidProvider
}

// Options returns router options registering a client for every provider.
// It panics if llmcomplete.Providers names a provider NewClient cannot build.
func Options(cfg Config) []llmcomplete.Option {
	opts := make([]llmcomplete.Option, 0, len(llmcomplete.Providers))
	for _, p := range llmcomplete.Providers {
		c, err := NewClient(p, cfg[p])
		if err != nil {
			panic(fmt.Sprintf("providers: no client for %q: %v", p, err))
		}
		opts = append(opts, llmcomplete.WithClient(c))
	}
	return opts
}
