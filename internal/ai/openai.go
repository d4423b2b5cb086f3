// Package ai wraps the two remote capabilities the pipeline depends on:
// describing an uploaded photo and generating an image from a prompt.
// Both are served by an OpenAI-compatible HTTP API and treated as
// opaque, possibly slow, possibly failing calls.
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// GeneratedImage is the result of a generation call: either inline bytes
// or a remote URL that must be downloaded separately.
type GeneratedImage struct {
	URL  string
	Data []byte
}

type Options struct {
	BaseURL     string
	APIKey      string
	VisionModel string
	ImageModel  string
	Timeout     time.Duration
}

type Client struct {
	baseURL     string
	apiKey      string
	visionModel string
	imageModel  string
	http        *http.Client
	logger      *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	if opts.VisionModel == "" {
		opts.VisionModel = "gpt-4o"
	}
	if opts.ImageModel == "" {
		opts.ImageModel = "dall-e-3"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 120 * time.Second
	}

	return &Client{
		baseURL:     opts.BaseURL,
		apiKey:      opts.APIKey,
		visionModel: opts.VisionModel,
		imageModel:  opts.ImageModel,
		http:        &http.Client{Timeout: opts.Timeout},
		logger:      logger,
	}
}

// --- chat completions (vision) ---

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// DescribeImage sends the photo to the vision model and returns its
// natural-language description. The prompt selects plain or
// style-flavored descriptions.
func (c *Client) DescribeImage(ctx context.Context, image []byte, prompt string) (string, error) {
	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)

	req := chatRequest{
		Model:       c.visionModel,
		Temperature: 0.5,
		Messages: []chatMessage{
			{
				Role: "system",
				Content: []contentPart{
					{Type: "text", Text: "You are an assistant that can describe images."},
				},
			},
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: prompt},
					{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
				},
			},
		},
	}

	var resp chatResponse
	if err := c.postJSON(ctx, "/chat/completions", req, &resp); err != nil {
		return "", fmt.Errorf("describe image: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("describe image: empty response from %s", c.visionModel)
	}
	return resp.Choices[0].Message.Content, nil
}

// --- image generation ---

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// GenerateImage asks the image model for one 1024x1024 rendering of the
// prompt. Depending on provider settings the result arrives as a URL or
// as inline base64 data.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (GeneratedImage, error) {
	req := imageRequest{
		Model:  c.imageModel,
		Prompt: prompt,
		N:      1,
		Size:   "1024x1024",
	}

	var resp imageResponse
	if err := c.postJSON(ctx, "/images/generations", req, &resp); err != nil {
		return GeneratedImage{}, fmt.Errorf("generate image: %w", err)
	}
	if len(resp.Data) == 0 {
		return GeneratedImage{}, fmt.Errorf("generate image: empty response from %s", c.imageModel)
	}

	result := GeneratedImage{URL: resp.Data[0].URL}
	if resp.Data[0].B64JSON != "" {
		data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
		if err != nil {
			return GeneratedImage{}, fmt.Errorf("generate image: decode payload: %w", err)
		}
		result.Data = data
	}
	return result, nil
}

// FetchImage downloads a generated image by URL. A non-success status is
// a hard failure; the caller aborts the task rather than retrying.
func (c *Client) FetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch generated image: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch generated image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch generated image: unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// apiError is a structured error returned by the remote API. It is never
// retried: the request reached the service and was rejected.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("remote API returned status %d", e.Status)
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// postJSON issues the request with one retry on transport-level failure.
// API-level rejections (quota, bad request) are returned immediately.
func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			c.logger.Warn("retrying remote call",
				zap.String("path", path),
				zap.Error(lastErr),
			)
		}

		lastErr = c.doOnce(ctx, path, body, out)
		if lastErr == nil {
			return nil
		}

		var apiErr *apiError
		if errors.As(lastErr, &apiErr) || ctx.Err() != nil {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var errBody apiErrorBody
		if json.Unmarshal(data, &errBody) == nil && errBody.Error.Message != "" {
			return &apiError{Status: resp.StatusCode, Message: errBody.Error.Message}
		}
		return &apiError{Status: resp.StatusCode}
	}

	return json.Unmarshal(data, out)
}
