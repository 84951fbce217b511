package gemini

import (
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

const transcribePrompt = "Transcribe this audio into plain text.\n" +
	"Rules:\n" +
	"- Output only the transcript text.\n" +
	"- Keep original language.\n" +
	"- Do not add explanations.\n" +
	"- If speech is unclear, output your best-effort transcript."

// TranscribeFromURL downloads the media behind url and converts it to text
// through the generation endpoint. Download failures, empty payloads and
// payloads over the configured byte cap fail fast; the generation call uses
// the same transient retry policy as CompleteJSON. Returns "" when the
// service produced no usable transcript.
func (c *Client) TranscribeFromURL(url string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("stt: not enabled, api key is missing")
	}

	resp, err := c.httpc.Get(url)
	if err != nil {
		return "", fmt.Errorf("stt: download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("stt: download status %d", resp.StatusCode)
	}
	// Read one byte past the cap to detect oversize without buffering it all.
	audio, err := io.ReadAll(io.LimitReader(resp.Body, int64(c.cfg.MaxAudioBytes)+1))
	if err != nil {
		return "", fmt.Errorf("stt: read media: %w", err)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("stt: audio file is empty")
	}
	if len(audio) > c.cfg.MaxAudioBytes {
		return "", fmt.Errorf("stt: audio too large (over %d bytes)", c.cfg.MaxAudioBytes)
	}

	payload := generateRequest{
		Contents: []generateContent{{Parts: []generatePart{
			{Text: transcribePrompt},
			{InlineData: &inlineData{
				MimeType: guessAudioMime(resp.Header.Get("Content-Type")),
				Data:     base64.StdEncoding.EncodeToString(audio),
			}},
		}}},
		GenerationConfig: generationConfig{Temperature: 0},
	}
	out, err := c.generate(c.cfg.STTModel, payload)
	if err != nil {
		return "", err
	}
	log.Printf("stt request succeeded, model=%s", c.cfg.STTModel)
	text, err := extractText(out)
	if err != nil {
		// No usable candidate means no transcript, not a pipeline failure.
		return "", nil
	}
	return text, nil
}

// guessAudioMime keeps an audio/* content type and falls back to a generic
// container otherwise.
func guessAudioMime(contentType string) string {
	if strings.HasPrefix(contentType, "audio/") {
		return contentType
	}
	return "audio/webm"
}
