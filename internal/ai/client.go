// Package ai wraps the text/image generation collaborator. The core
// treats it as opaque: prompt in, text or image URL out, or an error.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls an OpenAI-compatible generation API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a generation client. baseURL has no trailing slash.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetTimeout overrides the request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// Complete returns generated text for a prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := c.post(ctx, "/v1/completions", completionRequest{
		Model:     "gpt-3.5-turbo-instruct",
		Prompt:    prompt,
		MaxTokens: 100,
	})
	if err != nil {
		return "", err
	}

	var resp completionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}
	return resp.Choices[0].Text, nil
}

type imageRequest struct {
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// GenerateImage returns the URL of a generated image. size is one of
// small, medium, large; anything else falls through to large.
func (c *Client) GenerateImage(ctx context.Context, prompt, size string) (string, error) {
	var imageSize string
	switch size {
	case "small":
		imageSize = "256x256"
	case "medium":
		imageSize = "512x512"
	default:
		imageSize = "1024x1024"
	}

	body, err := c.post(ctx, "/v1/images/generations", imageRequest{
		Prompt: prompt,
		N:      1,
		Size:   imageSize,
	})
	if err != nil {
		return "", err
	}

	var resp imageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode image response: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("image response contained no data")
	}
	return resp.Data[0].URL, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API returned status code: %d, response: %s", resp.StatusCode, string(body))
	}
	return body, nil
}
