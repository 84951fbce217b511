package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ElaineQian09/eggtart-backend/internal/common"
)

type Config struct {
	APIKey        string
	Model         string
	STTModel      string
	BaseURL       string
	Timeout       time.Duration
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxAudioBytes int
}

// Client calls the Gemini generateContent endpoint with bounded retries.
// All methods are safe for concurrent use.
type Client struct {
	cfg   Config
	httpc *http.Client
	sleep func(time.Duration)
}

func New(cfg Config) *Client {
	if cfg.STTModel == "" {
		cfg.STTModel = cfg.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxAudioBytes <= 0 {
		cfg.MaxAudioBytes = 10 * 1024 * 1024
	}
	return &Client{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.Timeout},
		sleep: time.Sleep,
	}
}

// NewFromEnv builds a client from the process environment.
func NewFromEnv() *Client {
	return New(Config{
		APIKey:        common.GeminiAPIKey,
		Model:         common.GeminiModel,
		STTModel:      common.GeminiSTTModel,
		BaseURL:       common.GeminiBaseURL,
		Timeout:       time.Duration(common.RequestTimeoutSec * float64(time.Second)),
		MaxAttempts:   common.RetryMaxAttempts,
		BaseDelay:     time.Duration(common.RetryBaseDelaySec * float64(time.Second)),
		MaxAudioBytes: common.STTMaxAudioBytes,
	})
}

// Enabled reports whether an API key is configured. With no key the whole
// extraction pipeline is a no-op.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != ""
}

// ValidateModel rejects unsupported model identifiers before any network
// call. Only gemini-3 models are allowed.
func ValidateModel(model string) error {
	normalized := strings.TrimSpace(model)
	if normalized == "" {
		return fmt.Errorf("gemini: model is empty")
	}
	if !strings.HasPrefix(normalized, "gemini-3") {
		return fmt.Errorf("gemini: gemini-3 only mode enabled, invalid model: %s", normalized)
	}
	return nil
}

type generatePart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig generationConfig  `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// CompleteJSON sends prompt in JSON-only mode and returns the raw JSON
// payload from the first candidate, with any Markdown fence stripped.
// Returns MalformedResponseError when the service gives nothing parseable,
// RateLimitError/TransientError when retries are exhausted, and a plain
// error for non-retryable failures.
func (c *Client) CompleteJSON(prompt string) (json.RawMessage, error) {
	payload := generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:      0.2,
			ResponseMimeType: "application/json",
		},
	}
	resp, err := c.generate(c.cfg.Model, payload)
	if err != nil {
		return nil, err
	}
	text, err := extractText(resp)
	if err != nil {
		return nil, err
	}
	text = StripMarkdownFence(text)
	if !json.Valid([]byte(text)) {
		return nil, &MalformedResponseError{Reason: "candidate text is not valid JSON"}
	}
	return json.RawMessage(text), nil
}

// generate runs the single retry loop shared by extraction, comment
// generation and transcription.
func (c *Client) generate(model string, payload generateRequest) (*generateResponse, error) {
	if err := ValidateModel(model); err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}
	url := fmt.Sprintf("%s/%s:generateContent", c.cfg.BaseURL, model)

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gemini: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.cfg.APIKey)

		resp, err := c.httpc.Do(req)
		if err != nil {
			if !isTimeout(err) {
				return nil, fmt.Errorf("gemini: request failed: %w", err)
			}
			delay := backoffDelay(c.cfg.BaseDelay, attempt)
			log.Printf("gemini read timeout, model=%s, attempt=%d/%d, sleeping %s", model, attempt, c.cfg.MaxAttempts, delay)
			if attempt == c.cfg.MaxAttempts {
				return nil, &TransientError{Attempts: c.cfg.MaxAttempts, Model: model}
			}
			c.sleep(delay)
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		action, delay := decideRetry(resp.StatusCode, resp.Header.Get("Retry-After"), attempt, c.cfg.BaseDelay)
		switch action {
		case stopSuccess:
			if readErr != nil {
				return nil, fmt.Errorf("gemini: read response: %w", readErr)
			}
			var out generateResponse
			if err := json.Unmarshal(respBody, &out); err != nil {
				return nil, &MalformedResponseError{Reason: "response body is not valid JSON"}
			}
			log.Printf("gemini request succeeded, model=%s", model)
			return &out, nil
		case stopFatal:
			return nil, fmt.Errorf("gemini: status %d: %s", resp.StatusCode, common.Truncate(string(respBody), 200))
		case retryAfter:
			log.Printf("gemini transient status=%d, model=%s, attempt=%d/%d, sleeping %s", resp.StatusCode, model, attempt, c.cfg.MaxAttempts, delay)
			if attempt == c.cfg.MaxAttempts {
				if resp.StatusCode == http.StatusTooManyRequests {
					return nil, &RateLimitError{Attempts: c.cfg.MaxAttempts, Model: model}
				}
				return nil, &TransientError{Status: resp.StatusCode, Attempts: c.cfg.MaxAttempts, Model: model}
			}
			c.sleep(delay)
		}
	}
	return nil, &TransientError{Attempts: c.cfg.MaxAttempts, Model: model}
}

// extractText pulls the first candidate's first part.
func extractText(resp *generateResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", &MalformedResponseError{Reason: "no candidates"}
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", &MalformedResponseError{Reason: "empty content"}
	}
	return strings.TrimSpace(parts[0].Text), nil
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
