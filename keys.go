package llmcomplete

import "regexp"

var (
	openAIKeyPattern    = regexp.MustCompile(`^sk-[a-zA-Z0-9]{32,}$`)
	anthropicKeyPattern = regexp.MustCompile(`^sk-ant-api\d{2}-[a-zA-Z0-9_-]{95}$`)
	geminiKeyPattern    = regexp.MustCompile(`^AIzaSy[A-Za-z0-9_-]{33}$`)
)

// ValidOpenAIKey reports whether key looks like an OpenAI secret key
func ValidOpenAIKey(key string) bool {
	return openAIKeyPattern.MatchString(key)
}

// ValidAnthropicKey reports whether key looks like an Anthropic API key
func ValidAnthropicKey(key string) bool {
	return anthropicKeyPattern.MatchString(key)
}

// ValidGeminiKey reports whether key looks like a Google AI Studio key
func ValidGeminiKey(key string) bool {
	return geminiKeyPattern.MatchString(key)
}

// ValidKey checks key against the format of the given provider. It checks
// syntax only; nothing is sent over the network.
func ValidKey(p Provider, key string) bool {
	switch p {
	case ProviderOpenAI:
		return ValidOpenAIKey(key)
	case ProviderAnthropic:
		return ValidAnthropicKey(key)
	case ProviderGemini:
		return ValidGeminiKey(key)
	}
	return false
}
