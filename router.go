package llmcomplete

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// DefaultSystemPrompt instructs the model to continue the user's text
const DefaultSystemPrompt = "You are a helpful writing assistant. " +
	"You will be provided with either a prompt, or a partially-completed piece of writing. " +
	"Please complete the text that a user provides. " +
	"Your only output is the text that you generate."

// Router dispatches completions to the registered provider clients
type Router struct {
	clients      map[Provider]Client
	middleware   []Middleware
	systemPrompt string
	logger       *slog.Logger
	mu           sync.RWMutex
}

// New creates a new Router with the given options
func New(opts ...Option) *Router {
	r := &Router{
		clients:      make(map[Provider]Client),
		systemPrompt: DefaultSystemPrompt,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Complete sends selectedText to provider and returns a Reader over the
// generated continuation
func (r *Router) Complete(ctx context.Context, selectedText string, provider Provider, apiKey string) (*Reader, error) {
	if !provider.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProvider, provider)
	}

	r.mu.RLock()
	systemPrompt := r.systemPrompt
	r.mu.RUnlock()

	req, err := NewRequest(provider, apiKey, systemPrompt, selectedText)
	if err != nil {
		return nil, err
	}
	return r.Stream(ctx, req)
}

// Stream runs a prepared request
func (r *Router) Stream(ctx context.Context, req *Request) (*Reader, error) {
	client, err := r.resolveClient(req.Provider)
	if err != nil {
		return nil, err
	}

	handler := r.buildChain(client)

	r.logger.Debug("completion requested",
		"provider", req.Provider,
		"schema", client.Schema(),
		"prompt_len", len(req.UserPrompt))

	raw, err := handler.Stream(ctx, req)
	if err != nil {
		r.logger.Warn("completion failed", "provider", req.Provider, "error", err)
		return nil, err
	}

	return newReader(raw, req.Provider, r.logger), nil
}

// resolveClient finds the client for a provider
func (r *Router) resolveClient(provider Provider) (Client, error) {
	if !provider.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProvider, provider)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not registered", ErrInvalidProvider, provider)
	}
	return c, nil
}

// buildChain wraps the client with middleware
func (r *Router) buildChain(client Client) Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := client
	// Apply middleware in reverse order so first middleware is outermost
	for i := len(r.middleware) - 1; i >= 0; i-- {
		result = r.middleware[i].Wrap(result)
	}
	return result
}

// RegisterClient adds a client to the router, replacing any client
// registered for the same provider
func (r *Router) RegisterClient(c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.Provider()] = c
}

// Providers returns the registered providers, sorted
func (r *Router) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]Provider, 0, len(r.clients))
	for p := range r.clients {
		names = append(names, p)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// GetClient returns the client registered for a provider
func (r *Router) GetClient(p Provider) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[p]
	return c, ok
}

// SetSystemPrompt replaces the system prompt used by Complete
func (r *Router) SetSystemPrompt(prompt string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.systemPrompt = prompt
}

// AddMiddleware adds middleware to the router
func (r *Router) AddMiddleware(m Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, m)
}
