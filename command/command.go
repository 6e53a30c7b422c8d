// Package command implements the "complete selected text" action of an
// editor integration: it checks the preconditions, runs the completion and
// types the fragments into the document as they arrive.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	llmcomplete "github.com/bluefunda/llm-complete"
	"github.com/bluefunda/llm-complete/settings"
)

// Editor is the part of the host document model the command uses
type Editor interface {
	// Selection returns the selected text
	Selection() string

	// CollapseSelection moves the cursor to the end of the selection and
	// deselects
	CollapseSelection()

	// ReplaceSelection replaces the selection, or inserts at the cursor
	ReplaceSelection(text string)
}

// Notifier shows a transient, dismissable message to the user
type Notifier interface {
	Notice(message string)
}

// Connectivity reports whether the network is reachable
type Connectivity interface {
	Online(ctx context.Context) bool
}

// Completer runs a completion. *llmcomplete.Router implements it.
type Completer interface {
	Complete(ctx context.Context, selectedText string, provider llmcomplete.Provider, apiKey string) (*llmcomplete.Reader, error)
}

// SettingsSource returns the current settings. *settings.Store implements it.
type SettingsSource interface {
	Load() (*settings.Settings, error)
}

// Command completes the editor's selection with the configured provider
type Command struct {
	completer    Completer
	settings     SettingsSource
	notifier     Notifier
	connectivity Connectivity
	logger       *slog.Logger
}

// Option configures a Command
type Option func(*Command)

// WithConnectivity replaces the default NetworkProbe
func WithConnectivity(c Connectivity) Option {
	return func(cmd *Command) {
		cmd.connectivity = c
	}
}

// WithLogger sets the command's logger
func WithLogger(logger *slog.Logger) Option {
	return func(cmd *Command) {
		if logger != nil {
			cmd.logger = logger
		}
	}
}

// New creates a Command
func New(completer Completer, src SettingsSource, notifier Notifier, opts ...Option) *Command {
	cmd := &Command{
		completer:    completer,
		settings:     src,
		notifier:     notifier,
		connectivity: NetworkProbe{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cmd)
	}
	return cmd
}

// Run completes the current selection. Nothing is sent when a key or a
// selection is missing or the network is down; the user gets a notice and
// the matching error is returned. Text already written when the stream
// fails stays in the document.
func (c *Command) Run(ctx context.Context, editor Editor) error {
	cfg, err := c.settings.Load()
	if err != nil {
		c.notifier.Notice("Could not load settings")
		return fmt.Errorf("load settings: %w", err)
	}

	provider := cfg.Provider
	apiKey := settings.ResolveAPIKey(cfg, provider)
	selected := editor.Selection()

	switch {
	case !provider.Valid():
		c.notifier.Notice(fmt.Sprintf("Unsupported provider %q", provider))
		return fmt.Errorf("%w: %q", llmcomplete.ErrInvalidProvider, provider)
	case apiKey == "":
		c.notifier.Notice(fmt.Sprintf("%s API key not set", provider))
		return llmcomplete.ErrNoAPIKey
	case selected == "":
		c.notifier.Notice("Please select text to complete")
		return llmcomplete.ErrNoSelection
	case !c.connectivity.Online(ctx):
		c.notifier.Notice("Please check your internet connection")
		return llmcomplete.ErrOffline
	}

	reader, err := c.completer.Complete(ctx, selected, provider, apiKey)
	if err != nil {
		c.notifier.Notice(failureNotice(provider, err))
		return err
	}
	defer reader.Close()

	editor.CollapseSelection()
	written := 0
	for {
		res, err := reader.Read()
		if err != nil {
			c.logger.Warn("completion interrupted",
				"provider", provider,
				"written", written,
				"error", err)
			c.notifier.Notice(failureNotice(provider, err))
			return err
		}
		if res.Done {
			break
		}
		editor.ReplaceSelection(res.Value)
		editor.CollapseSelection()
		written += len(res.Value)
	}

	c.logger.Debug("completion applied", "provider", provider, "written", written)
	return nil
}

func failureNotice(provider llmcomplete.Provider, err error) string {
	if code, ok := llmcomplete.StatusCode(err); ok {
		return fmt.Sprintf("%s request failed with status %d", provider, code)
	}
	if errors.Is(err, llmcomplete.ErrInvalidProvider) {
		return fmt.Sprintf("Unsupported provider %q", provider)
	}
	return fmt.Sprintf("%s request failed: %v", provider, err)
}

// NetworkProbe checks connectivity by dialing a well-known host
type NetworkProbe struct {
	// Address is dialed over TCP; defaults to api.openai.com:443
	Address string
	// Timeout defaults to 3s
	Timeout time.Duration
}

func (p NetworkProbe) Online(ctx context.Context) bool {
	addr := p.Address
	if addr == "" {
		addr = "api.openai.com:443"
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
