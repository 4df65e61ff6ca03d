package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxResponseBytes bounds how much of a provider reply is read.
const maxResponseBytes = 16 << 20

// Prompt is what a Backend receives: a fixed system instruction and the
// chunk to translate.
type Prompt struct {
	System string
	User   string
}

// Backend is the opaque model invocation: prompt in, text out. Provider
// request and response shaping stays behind this interface.
type Backend interface {
	Name() string
	Model() string
	Invoke(ctx context.Context, p Prompt) (string, error)
}

type apiFormat int

const (
	formatOpenAIChat apiFormat = iota
	formatGeminiNative
	formatCohereChat
	formatOllamaGenerate
)

// HTTPBackend talks to one provider over its HTTP JSON API.
type HTTPBackend struct {
	name        string
	format      apiFormat
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	headers     map[string]string
	client      *http.Client
}

func (b *HTTPBackend) Name() string  { return b.name }
func (b *HTTPBackend) Model() string { return b.model }

// Invoke sends one request. Non-2xx replies and undecodable bodies become
// a *BackendError; 429 and 5xx are marked retryable.
func (b *HTTPBackend) Invoke(ctx context.Context, p Prompt) (string, error) {
	endpoint, headers, body, err := b.buildRequest(p)
	if err != nil {
		return "", &BackendError{Provider: b.name, Err: fmt.Errorf("building request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &BackendError{Provider: b.name, Err: fmt.Errorf("creating request: %w", err)}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return "", &BackendError{Provider: b.name, Retryable: true, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &BackendError{Provider: b.name, Retryable: true, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &BackendError{
			Provider:   b.name,
			StatusCode: resp.StatusCode,
			Retryable:  true,
			RetryAfter: parseRetryDelay(resp.Header, respBody),
			Err:        errors.New("rate limited"),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &BackendError{
			Provider:   b.name,
			StatusCode: resp.StatusCode,
			Retryable:  resp.StatusCode >= 500,
			Err:        fmt.Errorf("API error: %s", truncate(string(respBody), 500)),
		}
	}

	text, err := extractResponseText(respBody)
	if err != nil {
		return "", &BackendError{Provider: b.name, Err: err}
	}
	return text, nil
}

// Ping checks that the backend is usable without spending tokens: Ollama
// is asked for its model list, hosted providers need an API key.
func (b *HTTPBackend) Ping(ctx context.Context) error {
	if b.format != formatOllamaGenerate {
		if b.apiKey == "" {
			return fmt.Errorf("%s API key not configured", b.name)
		}
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(b.baseURL, "/")+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("Ollama not available: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}
	return nil
}

func (b *HTTPBackend) buildRequest(p Prompt) (string, map[string]string, []byte, error) {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	for k, v := range b.headers {
		headers[k] = v
	}
	base := strings.TrimRight(b.baseURL, "/")

	var (
		endpoint string
		body     []byte
		err      error
	)
	switch b.format {
	case formatGeminiNative:
		endpoint = fmt.Sprintf("%s/v1beta/models/%s:generateContent", base, b.model)
		if b.apiKey != "" {
			headers["x-goog-api-key"] = b.apiKey
		}
		body, err = buildGeminiRequest(p.System, p.User, b.temperature)
	case formatCohereChat:
		endpoint = base + "/v2/chat"
		if b.apiKey != "" {
			headers["Authorization"] = "Bearer " + b.apiKey
		}
		body, err = buildCohereRequest(b.model, p.System, p.User, b.temperature)
	case formatOllamaGenerate:
		endpoint = base + "/api/generate"
		body, err = buildOllamaRequest(b.model, p.System, p.User, b.temperature)
	default:
		if strings.HasSuffix(base, "/chat/completions") {
			endpoint = base
		} else {
			endpoint = base + "/chat/completions"
		}
		if b.apiKey != "" {
			headers["Authorization"] = "Bearer " + b.apiKey
		}
		body, err = buildOpenAIChatRequest(b.model, p.System, p.User, b.temperature)
	}
	if err != nil {
		return "", nil, nil, err
	}
	return endpoint, headers, body, nil
}

// extractResponseText tries all known response formats and returns the text.
func extractResponseText(body []byte) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}

	if errObj, ok := raw["error"]; ok && errObj != nil {
		if errMap, ok := errObj.(map[string]any); ok {
			if msg, ok := errMap["message"].(string); ok {
				return "", fmt.Errorf("API error: %s", msg)
			}
		}
		return "", fmt.Errorf("API error: %v", errObj)
	}

	// OpenAI chat: choices[0].message.content
	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if message, ok := choice["message"].(map[string]any); ok {
				if content, ok := message["content"].(string); ok {
					return content, nil
				}
			}
		}
	}

	// Gemini: candidates[0].content.parts[].text
	if candidates, ok := raw["candidates"].([]any); ok && len(candidates) > 0 {
		if candidate, ok := candidates[0].(map[string]any); ok {
			if content, ok := candidate["content"].(map[string]any); ok {
				if parts, ok := content["parts"].([]any); ok && len(parts) > 0 {
					var sb strings.Builder
					for _, p := range parts {
						if part, ok := p.(map[string]any); ok {
							if text, ok := part["text"].(string); ok {
								sb.WriteString(text)
							}
						}
					}
					if sb.Len() > 0 {
						return sb.String(), nil
					}
				}
			}
			if reason, ok := candidate["finishReason"].(string); ok && reason != "STOP" {
				return "", fmt.Errorf("generation stopped: %s", reason)
			}
		}
	}

	// Cohere v2 chat: message.content[].type=="text" -> .text
	if message, ok := raw["message"].(map[string]any); ok {
		if contentArr, ok := message["content"].([]any); ok {
			for _, c := range contentArr {
				if block, ok := c.(map[string]any); ok && block["type"] == "text" {
					if text, ok := block["text"].(string); ok {
						return text, nil
					}
				}
			}
		}
	}

	// Ollama generate: response
	if resp, ok := raw["response"].(string); ok {
		return resp, nil
	}

	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 500))
}

// parseRetryDelay reads the server-requested delay of a 429 reply from the
// Retry-After header or Google's RetryInfo detail. Zero means none given.
func parseRetryDelay(h http.Header, body []byte) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}

	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return 0
	}
	for _, detail := range errResp.Error.Details {
		if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
			if d, err := time.ParseDuration(detail.RetryDelay); err == nil {
				return d
			}
		}
	}
	return 0
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
