// Package llm talks to the Google generative-language REST API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pageforge-dev/pageforge-backend/internal/generation/domain"
)

// Client calls the Gemini generateContent endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

type Options struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

func NewClient(opt Options) *Client {
	if opt.BaseURL == "" {
		opt.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if opt.Model == "" {
		opt.Model = "gemini-2.0-flash"
	}
	if opt.Timeout == 0 {
		opt.Timeout = 90 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(opt.BaseURL, "/"),
		apiKey:  opt.APIKey,
		model:   opt.Model,
		http:    &http.Client{Timeout: opt.Timeout},
	}
}

// APIError carries the upstream status so callers can classify failures.
type APIError struct {
	StatusCode int
	Status     string // e.g. RESOURCE_EXHAUSTED
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini: status %d %s: %s", e.StatusCode, e.Status, e.Message)
}

// IsRateLimited reports whether the error is a quota/rate-limit rejection.
func (e *APIError) IsRateLimited() bool {
	if e.StatusCode == http.StatusTooManyRequests || e.Status == "RESOURCE_EXHAUSTED" {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit")
}

// IsAuth reports whether the error means the configured API key is invalid.
func (e *APIError) IsAuth() bool {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "api key")
}

type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the prompt (with optional system instructions) and returns
// the model's raw text reply.
func (c *Client) Generate(ctx context.Context, prompt, systemInstructions string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	if systemInstructions != "" {
		reqBody.SystemInstruction = &content{Parts: []part{{Text: systemInstructions}}}
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", &APIError{StatusCode: resp.StatusCode, Message: truncate(string(body), 200)}
		}
		return "", fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || out.Error != nil {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if out.Error != nil {
			apiErr.Status = out.Error.Status
			apiErr.Message = out.Error.Message
			if apiErr.StatusCode == http.StatusOK {
				apiErr.StatusCode = out.Error.Code
			}
		}
		return "", apiErr
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", domain.ErrEmptyReply
	}

	text := out.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrEmptyReply
	}
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
