package anthropic

import (
	"context"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	llmcomplete "github.com/bluefunda/llm-complete"
)

const (
	// DefaultModel is used when ProviderConfig.Model is empty
	DefaultModel = "claude-3-opus-20240229"

	// DefaultBaseURL is the public Anthropic API
	DefaultBaseURL = "https://api.anthropic.com/"

	// DefaultMaxTokens caps the length of a completion
	DefaultMaxTokens = 1024

	apiVersion   = "2023-06-01"
	apiBeta      = "messages-2023-12-15"
	messagesPath = "v1/messages"
)

// Client streams message events from the Anthropic Messages API
type Client struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// New creates a new Anthropic client
func New(cfg llmcomplete.ProviderConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
		option.WithHeader("anthropic-version", apiVersion),
	}
	// The timeout lives on the HTTP client so that it also covers reading
	// the event stream after Post returns.
	httpClient := cfg.HTTPClient
	if httpClient == nil && cfg.Timeout > 0 {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &Client{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: DefaultMaxTokens,
	}
}

// WithMaxTokens overrides DefaultMaxTokens
func (c *Client) WithMaxTokens(n int) *Client {
	c.maxTokens = n
	return c
}

func (c *Client) Provider() llmcomplete.Provider {
	return llmcomplete.ProviderAnthropic
}

func (c *Client) Schema() llmcomplete.ChunkKind {
	return llmcomplete.ChunkAnthropic
}

// Model returns the model requests are sent to
func (c *Client) Model() string {
	return c.model
}

func (c *Client) Stream(ctx context.Context, req *llmcomplete.Request) (llmcomplete.RawStream, error) {
	var raw *http.Response
	err := c.client.Post(ctx, messagesPath, newMessagesRequest(c.model, c.maxTokens, req), &raw,
		option.WithAPIKey(req.APIKey),
		option.WithHeader("anthropic-beta", apiBeta),
		option.WithHeader("Accept", "text/event-stream"),
	)
	if err != nil {
		return nil, wrapError(err)
	}
	if raw == nil || raw.Body == nil || raw.Body == http.NoBody {
		return nil, llmcomplete.ErrStreamUnavailable
	}

	decoder := ssestream.NewDecoder(raw)
	if decoder == nil {
		raw.Body.Close()
		return nil, llmcomplete.ErrStreamUnavailable
	}

	return &eventStream{decoder: decoder}, nil
}
