package openai

import (
	"context"
	"net/http"
	"strings"

	llmcomplete "github.com/bluefunda/llm-complete"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
)

const (
	// DefaultModel is used when ProviderConfig.Model is empty
	DefaultModel = "gpt-4"

	// DefaultBaseURL is the public OpenAI API
	DefaultBaseURL = "https://api.openai.com/v1/"

	completionsPath = "chat/completions"
)

// Client streams chat completions from OpenAI
type Client struct {
	client *openai.Client
	model  string
}

// New creates a new OpenAI client
func New(cfg llmcomplete.ProviderConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	// Ensure trailing slash so url.Parse resolves paths correctly
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
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

func (c *Client) Provider() llmcomplete.Provider {
	return llmcomplete.ProviderOpenAI
}

func (c *Client) Schema() llmcomplete.ChunkKind {
	return llmcomplete.ChunkOpenAI
}

// Model returns the model requests are sent to
func (c *Client) Model() string {
	return c.model
}

func (c *Client) Stream(ctx context.Context, req *llmcomplete.Request) (llmcomplete.RawStream, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.F(c.model),
		Messages: openai.F(convertMessages(req)),
	}

	// Raw body; the typed SDK stream stops at the first chunk it cannot parse.
	var raw *http.Response
	err := c.client.Post(ctx, completionsPath, params, &raw,
		option.WithAPIKey(req.APIKey),
		option.WithJSONSet("stream", true),
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

	return &chunkStream{decoder: decoder}, nil
}
