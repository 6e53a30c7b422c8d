package command

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	llmcomplete "github.com/bluefunda/llm-complete"
	"github.com/bluefunda/llm-complete/settings"
)

// fakeEditor records the document edits in call order
type fakeEditor struct {
	selection string
	doc       strings.Builder
	ops       []string
}

func newFakeEditor(selection string) *fakeEditor {
	e := &fakeEditor{selection: selection}
	e.doc.WriteString(selection)
	return e
}

func (e *fakeEditor) Selection() string { return e.selection }

func (e *fakeEditor) CollapseSelection() {
	e.selection = ""
	e.ops = append(e.ops, "collapse")
}

func (e *fakeEditor) ReplaceSelection(text string) {
	e.doc.WriteString(text)
	e.ops = append(e.ops, "insert:"+text)
}

type fakeNotifier struct {
	notices []string
}

func (n *fakeNotifier) Notice(message string) {
	n.notices = append(n.notices, message)
}

type staticSettings struct {
	s   *settings.Settings
	err error
}

func (src staticSettings) Load() (*settings.Settings, error) {
	return src.s, src.err
}

type connectivity bool

func (c connectivity) Online(context.Context) bool { return bool(c) }

type scriptedStream struct {
	chunks  []llmcomplete.RawChunk
	err     error
	pos     int
	current llmcomplete.RawChunk
}

func (s *scriptedStream) Next() bool {
	if s.pos >= len(s.chunks) {
		return false
	}
	s.current = s.chunks[s.pos]
	s.pos++
	return true
}

func (s *scriptedStream) Current() llmcomplete.RawChunk { return s.current }

func (s *scriptedStream) Err() error { return s.err }

func (s *scriptedStream) Close() error { return nil }

// scriptedClient plays back a fixed text stream, or fails with err
type scriptedClient struct {
	provider llmcomplete.Provider
	texts    []string
	tailErr  error
	err      error

	mu    sync.Mutex
	calls int
}

func (c *scriptedClient) Provider() llmcomplete.Provider { return c.provider }

func (c *scriptedClient) Schema() llmcomplete.ChunkKind { return llmcomplete.ChunkText }

func (c *scriptedClient) Stream(ctx context.Context, req *llmcomplete.Request) (llmcomplete.RawStream, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	chunks := make([]llmcomplete.RawChunk, len(c.texts))
	for i, text := range c.texts {
		chunks[i] = llmcomplete.TextChunk(text)
	}
	return &scriptedStream{chunks: chunks, err: c.tailErr}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func withKey(p llmcomplete.Provider, key string) *settings.Settings {
	s := settings.Defaults()
	s.Provider = p
	if key != "" {
		switch p {
		case llmcomplete.ProviderOpenAI:
			s.OpenAIAPIKey = &key
		case llmcomplete.ProviderAnthropic:
			s.AnthropicAPIKey = &key
		case llmcomplete.ProviderGemini:
			s.GeminiAPIKey = &key
		}
	}
	return s
}

type harness struct {
	client   *scriptedClient
	notifier *fakeNotifier
	cmd      *Command
}

func newHarness(t *testing.T, client *scriptedClient, cfg *settings.Settings, online bool) *harness {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	router := llmcomplete.New(llmcomplete.WithClient(client), llmcomplete.WithLogger(discardLogger()))
	notifier := &fakeNotifier{}
	cmd := New(router, staticSettings{s: cfg}, notifier,
		WithConnectivity(connectivity(online)),
		WithLogger(discardLogger()),
	)
	return &harness{client: client, notifier: notifier, cmd: cmd}
}

func TestRun_AppendsContinuation(t *testing.T) {
	client := &scriptedClient{provider: llmcomplete.ProviderGemini, texts: []string{" blue", "", " today."}}
	h := newHarness(t, client, withKey(llmcomplete.ProviderGemini, "gemini-key"), true)

	editor := newFakeEditor("The sky is")
	if err := h.cmd.Run(context.Background(), editor); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := editor.doc.String(); got != "The sky is blue today." {
		t.Errorf("document: got %q", got)
	}
	wantOps := []string{"collapse", "insert: blue", "collapse", "insert:", "collapse", "insert: today.", "collapse"}
	if !reflect.DeepEqual(editor.ops, wantOps) {
		t.Errorf("ops: got %q, want %q", editor.ops, wantOps)
	}
	if len(h.notifier.notices) != 0 {
		t.Errorf("unexpected notices: %q", h.notifier.notices)
	}
}

func TestRun_MissingKey(t *testing.T) {
	client := &scriptedClient{provider: llmcomplete.ProviderOpenAI, texts: []string{"x"}}
	h := newHarness(t, client, withKey(llmcomplete.ProviderOpenAI, ""), true)

	editor := newFakeEditor("The sky is")
	err := h.cmd.Run(context.Background(), editor)
	if !errors.Is(err, llmcomplete.ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}

	if client.calls != 0 {
		t.Errorf("client called %d times", client.calls)
	}
	if want := []string{"OpenAI API key not set"}; !reflect.DeepEqual(h.notifier.notices, want) {
		t.Errorf("notices: got %q, want %q", h.notifier.notices, want)
	}
	if len(editor.ops) != 0 {
		t.Errorf("document changed: %q", editor.ops)
	}
}

func TestRun_KeyFromEnvironment(t *testing.T) {
	client := &scriptedClient{provider: llmcomplete.ProviderAnthropic, texts: []string{" blue"}}
	h := newHarness(t, client, withKey(llmcomplete.ProviderAnthropic, ""), true)
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	editor := newFakeEditor("The sky is")
	if err := h.cmd.Run(context.Background(), editor); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if client.calls != 1 {
		t.Errorf("client called %d times, want 1", client.calls)
	}
}

func TestRun_EmptySelection(t *testing.T) {
	client := &scriptedClient{provider: llmcomplete.ProviderOpenAI}
	h := newHarness(t, client, withKey(llmcomplete.ProviderOpenAI, "sk-key"), true)

	err := h.cmd.Run(context.Background(), newFakeEditor(""))
	if !errors.Is(err, llmcomplete.ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	if client.calls != 0 {
		t.Errorf("client called %d times", client.calls)
	}
	if want := []string{"Please select text to complete"}; !reflect.DeepEqual(h.notifier.notices, want) {
		t.Errorf("notices: got %q, want %q", h.notifier.notices, want)
	}
}

func TestRun_Offline(t *testing.T) {
	client := &scriptedClient{provider: llmcomplete.ProviderOpenAI}
	h := newHarness(t, client, withKey(llmcomplete.ProviderOpenAI, "sk-key"), false)

	err := h.cmd.Run(context.Background(), newFakeEditor("The sky is"))
	if !errors.Is(err, llmcomplete.ErrOffline) {
		t.Fatalf("expected ErrOffline, got %v", err)
	}
	if client.calls != 0 {
		t.Errorf("client called %d times", client.calls)
	}
	if want := []string{"Please check your internet connection"}; !reflect.DeepEqual(h.notifier.notices, want) {
		t.Errorf("notices: got %q, want %q", h.notifier.notices, want)
	}
}

func TestRun_Unauthorized(t *testing.T) {
	client := &scriptedClient{
		provider: llmcomplete.ProviderAnthropic,
		err:      llmcomplete.NewHTTPError(llmcomplete.ProviderAnthropic, http.StatusUnauthorized, "invalid x-api-key"),
	}
	h := newHarness(t, client, withKey(llmcomplete.ProviderAnthropic, "bad-key"), true)

	editor := newFakeEditor("The sky is")
	err := h.cmd.Run(context.Background(), editor)
	if !errors.Is(err, llmcomplete.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
	if editor.doc.String() != "The sky is" {
		t.Errorf("document changed: %q", editor.doc.String())
	}
	if want := []string{"Anthropic request failed with status 401"}; !reflect.DeepEqual(h.notifier.notices, want) {
		t.Errorf("notices: got %q, want %q", h.notifier.notices, want)
	}
}

func TestRun_MidStreamFailureKeepsText(t *testing.T) {
	streamErr := errors.New("connection reset")
	client := &scriptedClient{
		provider: llmcomplete.ProviderGemini,
		texts:    []string{" blue", " and"},
		tailErr:  streamErr,
	}
	h := newHarness(t, client, withKey(llmcomplete.ProviderGemini, "gemini-key"), true)

	editor := newFakeEditor("The sky is")
	err := h.cmd.Run(context.Background(), editor)
	if !errors.Is(err, streamErr) {
		t.Fatalf("expected stream error, got %v", err)
	}
	if got := editor.doc.String(); got != "The sky is blue and" {
		t.Errorf("partial output should stay: got %q", got)
	}
	if len(h.notifier.notices) != 1 || !strings.Contains(h.notifier.notices[0], "connection reset") {
		t.Errorf("notices: got %q", h.notifier.notices)
	}
}

func TestRun_UnsupportedProvider(t *testing.T) {
	client := &scriptedClient{provider: llmcomplete.ProviderOpenAI}
	h := newHarness(t, client, withKey(llmcomplete.ProviderOpenAI, "sk-key"), true)

	cfg := withKey(llmcomplete.ProviderOpenAI, "sk-key")
	cfg.Provider = "Mistral"
	h.cmd.settings = staticSettings{s: cfg}

	err := h.cmd.Run(context.Background(), newFakeEditor("The sky is"))
	if !errors.Is(err, llmcomplete.ErrInvalidProvider) {
		t.Fatalf("expected ErrInvalidProvider, got %v", err)
	}
	if want := []string{`Unsupported provider "Mistral"`}; !reflect.DeepEqual(h.notifier.notices, want) {
		t.Errorf("notices: got %q, want %q", h.notifier.notices, want)
	}
}

func TestRun_SettingsError(t *testing.T) {
	notifier := &fakeNotifier{}
	cmd := New(llmcomplete.New(), staticSettings{err: errors.New("permission denied")}, notifier,
		WithConnectivity(connectivity(true)), WithLogger(discardLogger()))

	if err := cmd.Run(context.Background(), newFakeEditor("x")); err == nil {
		t.Fatal("expected error")
	}
	if want := []string{"Could not load settings"}; !reflect.DeepEqual(notifier.notices, want) {
		t.Errorf("notices: got %q, want %q", notifier.notices, want)
	}
}

func TestNetworkProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	addr := ln.Addr().String()

	probe := NetworkProbe{Address: addr, Timeout: time.Second}
	if !probe.Online(context.Background()) {
		t.Error("expected online while listening")
	}

	ln.Close()
	if probe.Online(context.Background()) {
		t.Error("expected offline after the listener closed")
	}
}
