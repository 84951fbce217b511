package gemini

import "strings"

// StripMarkdownFence removes a Markdown code fence wrapping a JSON payload.
// The model is asked for raw JSON but sometimes wraps it anyway, with or
// without a "json" language tag. Empty input and unfenced input pass through
// unchanged (apart from trimming).
func StripMarkdownFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.Trim(text, "`")
	if len(text) >= 4 && strings.EqualFold(text[:4], "json") {
		text = text[4:]
	}
	return strings.TrimSpace(text)
}
