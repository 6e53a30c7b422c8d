package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	llmcomplete "github.com/bluefunda/llm-complete"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// DefaultModel is used when ProviderConfig.Model is empty
const DefaultModel = "gemini-pro"

// responseIterator is the part of genai.GenerateContentResponseIterator
// the client consumes
type responseIterator interface {
	Next() (*genai.GenerateContentResponse, error)
}

// openFunc starts a generation and returns its responses together with the
// resource to release once the stream ends
type openFunc func(ctx context.Context, apiKey, model, prompt string) (responseIterator, io.Closer, error)

// Client streams generated text from the Gemini API
type Client struct {
	model      string
	opts       []option.ClientOption
	httpClient *http.Client
	open       openFunc
}

// New creates a new Gemini client. The genai client itself is created per
// request because the API key is only known then.
func New(cfg llmcomplete.ProviderConfig) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	opts := []option.ClientOption{}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}

	c := &Client{
		model:      model,
		opts:       opts,
		httpClient: cfg.HTTPClient,
	}
	c.open = c.openGenAI
	return c
}

func (c *Client) Provider() llmcomplete.Provider {
	return llmcomplete.ProviderGemini
}

func (c *Client) Schema() llmcomplete.ChunkKind {
	return llmcomplete.ChunkText
}

// Model returns the model requests are sent to
func (c *Client) Model() string {
	return c.model
}

func (c *Client) Stream(ctx context.Context, req *llmcomplete.Request) (llmcomplete.RawStream, error) {
	iter, closer, err := c.open(ctx, req.APIKey, c.model, buildPrompt(req))
	if err != nil {
		return nil, wrapError(err)
	}

	// The first response carries the HTTP outcome of the call
	first, err := iter.Next()
	if err != nil && !errors.Is(err, iterator.Done) {
		closer.Close()
		return nil, wrapError(err)
	}

	s := &textStream{iter: iter, closer: closer, pending: first}
	if errors.Is(err, iterator.Done) {
		s.pending = nil
		s.done = true
	}
	return s, nil
}

func (c *Client) openGenAI(ctx context.Context, apiKey, model, prompt string) (responseIterator, io.Closer, error) {
	opts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, c.opts...)
	if c.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(keyedHTTPClient(c.httpClient, apiKey)))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create client: %w", err)
	}

	iter := client.GenerativeModel(model).GenerateContentStream(ctx, genai.Text(prompt))
	return iter, client, nil
}

// keyedHTTPClient copies base with a transport that adds apiKey to every
// request. option.WithHTTPClient makes the SDK ignore option.WithAPIKey.
func keyedHTTPClient(base *http.Client, apiKey string) *http.Client {
	keyed := *base
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	keyed.Transport = &transport.APIKey{Key: apiKey, Transport: rt}
	return &keyed
}
