// Package settings persists the provider choice and API keys.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	llmcomplete "github.com/bluefunda/llm-complete"
	"github.com/google/renameio"
)

// ErrInvalidKeyFormat is returned when a key fails its provider's format check
var ErrInvalidKeyFormat = errors.New("invalid api key format")

// envKeys maps each provider to the environment variable overriding its key
var envKeys = map[llmcomplete.Provider]string{
	llmcomplete.ProviderOpenAI:    "OPENAI_API_KEY",
	llmcomplete.ProviderAnthropic: "ANTHROPIC_API_KEY",
	llmcomplete.ProviderGemini:    "GEMINI_API_KEY",
}

// Settings is the persisted configuration blob. Keys are pointers so that a
// key that was never set stays distinct from an empty one.
type Settings struct {
	Provider        llmcomplete.Provider `json:"provider"`
	OpenAIAPIKey    *string              `json:"openaiApiKey,omitempty"`
	AnthropicAPIKey *string              `json:"anthropicApiKey,omitempty"`
	GeminiAPIKey    *string              `json:"geminiApiKey,omitempty"`
}

// Defaults returns the settings used for anything the file does not set
func Defaults() *Settings {
	return &Settings{Provider: llmcomplete.ProviderOpenAI}
}

func (s *Settings) keyField(p llmcomplete.Provider) **string {
	switch p {
	case llmcomplete.ProviderOpenAI:
		return &s.OpenAIAPIKey
	case llmcomplete.ProviderAnthropic:
		return &s.AnthropicAPIKey
	case llmcomplete.ProviderGemini:
		return &s.GeminiAPIKey
	}
	return nil
}

// APIKey returns the stored key for p, or "" when unset
func (s *Settings) APIKey(p llmcomplete.Provider) string {
	field := s.keyField(p)
	if field == nil || *field == nil {
		return ""
	}
	return **field
}

// SetAPIKey stores key for p after checking its format
func (s *Settings) SetAPIKey(p llmcomplete.Provider, key string) error {
	field := s.keyField(p)
	if field == nil {
		return fmt.Errorf("%w: %q", llmcomplete.ErrInvalidProvider, p)
	}
	if !llmcomplete.ValidKey(p, key) {
		return fmt.Errorf("%w for %s", ErrInvalidKeyFormat, p)
	}
	*field = &key
	return nil
}

// ClearAPIKey forgets the stored key for p
func (s *Settings) ClearAPIKey(p llmcomplete.Provider) {
	if field := s.keyField(p); field != nil {
		*field = nil
	}
}

// SetProvider selects the provider used for completions
func (s *Settings) SetProvider(name string) error {
	p, err := llmcomplete.ParseProvider(name)
	if err != nil {
		return err
	}
	s.Provider = p
	return nil
}

// ResolveAPIKey returns the key for p.
// Priority: provider environment variable > stored value.
func ResolveAPIKey(s *Settings, p llmcomplete.Provider) string {
	if name, ok := envKeys[p]; ok {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}
	if s == nil {
		return ""
	}
	return s.APIKey(p)
}

// Store reads and writes settings in a JSON file
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store backed by path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the settings file path
func (st *Store) Path() string {
	return st.path
}

// Load reads the settings file merged over Defaults. A missing file yields
// the defaults.
func (st *Store) Load() (*Settings, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := Defaults()
	data, err := os.ReadFile(st.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", st.path, err)
	}
	if s.Provider == "" {
		s.Provider = Defaults().Provider
	}
	return s, nil
}

// Save writes s atomically. The last writer wins.
func (st *Store) Save(s *Settings) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "\t")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(st.path), 0o700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := renameio.WriteFile(st.path, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// DefaultPath returns the settings file location.
// Resolution order: $LLMCOMPLETE_CONFIG_DIR > $XDG_CONFIG_HOME/llm-complete > ~/.config/llm-complete
func DefaultPath() string {
	if dir := os.Getenv("LLMCOMPLETE_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, "settings.json")
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "llm-complete", "settings.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "llm-complete", "settings.json")
	}
	return filepath.Join(home, ".config", "llm-complete", "settings.json")
}
