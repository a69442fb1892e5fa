package insight

import (
	"encoding/json"
	"strings"
)

// Reconstruct turns a raw persisted job log into a best-effort plain-text
// transcript of everything the agent said.
//
// Each line is handled one of three ways:
//   - a structured event carrying an incremental text fragment (streaming
//     text delta, partial tool-input fragment, or a complete assistant
//     message with text content blocks) contributes its text
//   - a non-JSON line is appended verbatim
//   - any other event envelope is dropped
//
// The reconstruction is lossy on purpose. Event shapes vary across agent
// CLI versions, so completeness of captured reasoning wins over strict
// schema validation.
func Reconstruct(raw string) string {
	var out strings.Builder

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		var event map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &event); err != nil {
			// Plain diagnostic text, keep as-is
			appendText(&out, line)
			continue
		}

		if text := textFromEvent(event); text != "" {
			out.WriteString(text)
		}
	}

	return out.String()
}

// textFromEvent extracts the incremental text carried by a single event,
// or "" when the event carries none
func textFromEvent(event map[string]interface{}) string {
	switch stringField(event, "type") {
	case "assistant":
		return assistantText(event)
	case "stream_event":
		// Envelope around an SSE event forwarded by the CLI
		if inner, ok := event["event"].(map[string]interface{}); ok {
			return deltaText(inner)
		}
		return ""
	case "content_block_delta":
		return deltaText(event)
	default:
		return ""
	}
}

// assistantText collects the text content blocks of a complete assistant message
func assistantText(event map[string]interface{}) string {
	message, ok := event["message"].(map[string]interface{})
	if !ok {
		return ""
	}
	content, ok := message["content"].([]interface{})
	if !ok {
		return ""
	}

	var sb strings.Builder
	for _, block := range content {
		b, ok := block.(map[string]interface{})
		if !ok {
			continue
		}
		if stringField(b, "type") != "text" {
			continue
		}
		sb.WriteString(stringField(b, "text"))
	}
	return sb.String()
}

// deltaText extracts a streaming text delta or a partial tool-input fragment
func deltaText(event map[string]interface{}) string {
	delta, ok := event["delta"].(map[string]interface{})
	if !ok {
		return ""
	}
	if text := stringField(delta, "text"); text != "" {
		return text
	}
	return stringField(delta, "partial_json")
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func appendText(out *strings.Builder, line string) {
	if out.Len() > 0 {
		out.WriteString("\n")
	}
	out.WriteString(line)
}
