package llmcomplete

import "log/slog"

// Option configures the Router
type Option func(*Router)

// WithClient registers a provider client with the router
func WithClient(c Client) Option {
	return func(r *Router) {
		r.clients[c.Provider()] = c
	}
}

// WithSystemPrompt replaces DefaultSystemPrompt
func WithSystemPrompt(prompt string) Option {
	return func(r *Router) {
		r.systemPrompt = prompt
	}
}

// WithLogger sets the logger used by the router and its readers
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMiddleware adds middleware to the processing chain.
// Use this with middleware from the middleware package:
//
//	import "github.com/bluefunda/llm-complete/middleware"
//
//	router := llmcomplete.New(
//	    llmcomplete.WithMiddleware(
//	        middleware.NewTimeoutMiddleware(60*time.Second),
//	        middleware.NewCircuitBreakerMiddleware("completion", 5, 30*time.Second),
//	    ),
//	)
func WithMiddleware(m ...Middleware) Option {
	return func(r *Router) {
		r.middleware = append(r.middleware, m...)
	}
}
