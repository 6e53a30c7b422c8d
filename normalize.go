package llmcomplete

import (
	"github.com/tidwall/gjson"
)

// Field paths inside the vendor JSON envelopes
const (
	openAIChoicesPath     = "choices"
	openAIContentPath     = "choices.0.delta.content"
	anthropicTypePath     = "type"
	anthropicTextPath     = "delta.stop_sequence"
	anthropicMessageDelta = "message_delta"
)

// Normalize turns one raw chunk into at most one text fragment. ok is false
// when the chunk produces no output at all.
//
// Chunks that fail to decode or carry an unknown schema are skipped, never
// reported. Each chunk is decoded on its own; a JSON event split across two
// chunks is lost.
func Normalize(chunk RawChunk) (fragment string, ok bool) {
	switch chunk.Kind {
	case ChunkText:
		return chunk.Text, true
	case ChunkOpenAI:
		return normalizeOpenAI(chunk.Data)
	case ChunkAnthropic:
		return normalizeAnthropic(chunk.Data)
	}
	return "", false
}

// normalizeOpenAI emits the delta content, or an empty fragment for chunks
// that only carry metadata such as the finish reason.
func normalizeOpenAI(data []byte) (string, bool) {
	if !gjson.ValidBytes(data) {
		return "", false
	}
	choices := gjson.GetBytes(data, openAIChoicesPath)
	if !choices.IsArray() {
		return "", false
	}
	return gjson.GetBytes(data, openAIContentPath).String(), true
}

// normalizeAnthropic emits text for message_delta events only. Every other
// event type produces nothing.
func normalizeAnthropic(data []byte) (string, bool) {
	if !gjson.ValidBytes(data) {
		return "", false
	}
	eventType := gjson.GetBytes(data, anthropicTypePath)
	if eventType.Type != gjson.String || eventType.Str != anthropicMessageDelta {
		return "", false
	}
	return gjson.GetBytes(data, anthropicTextPath).String(), true
}
