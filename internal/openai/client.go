package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

// Static errors for OpenAI client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key is provided and the
	// OPENAI_API_KEY environment variable is not set.
	ErrAPIKeyNotSet = errors.New("openai: OPENAI_API_KEY environment variable is not set")
	// ErrModelRequired is returned when a call is made without a model.
	ErrModelRequired = errors.New("openai: model is required")
	// ErrRequestFailed is returned when the API responds with a non-2xx status.
	ErrRequestFailed = errors.New("openai: request failed")
)

// Client defines the interface for the completion and transcription provider.
type Client interface {
	// CreateResponse sends a single-turn completion request and returns
	// the provider response.
	CreateResponse(ctx context.Context, model, input string) (Response, error)

	// Transcribe uploads audio for speech transcription and returns the
	// transcript text.
	Transcribe(ctx context.Context, model, filename string, audio io.Reader) (string, error)
}

// HTTPClient is the HTTP implementation of the Client interface.
// Failed calls are not retried; the gateways map failures to fixed
// user-facing messages instead.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(hc *HTTPClient) {
		hc.apiKey = key
	}
}

// WithBaseURL sets a custom base URL for the OpenAI API.
func WithBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// NewClient creates a new OpenAI HTTP client. The API key can be set via
// the WithAPIKey option; if not provided, it is read from OPENAI_API_KEY.
func NewClient(opts ...ClientOption) (*HTTPClient, error) {
	c := &HTTPClient{
		baseURL: "https://api.openai.com/v1",
		// Transcribing a long mix plus a long completion can take minutes.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return c, nil
}

// CreateResponse sends a single-turn completion request to the Responses API.
func (c *HTTPClient) CreateResponse(ctx context.Context, model, input string) (Response, error) {
	if model == "" {
		return Response{}, ErrModelRequired
	}

	body, err := json.Marshal(responseRequest{Model: model, Input: input})
	if err != nil {
		return Response{}, fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var resp Response
	if err := c.do(req, &resp); err != nil {
		return Response{}, err
	}
	if resp.Error != nil {
		return Response{}, fmt.Errorf("%w: %s", ErrRequestFailed, resp.Error.Message)
	}

	return resp, nil
}

// Transcribe uploads audio as multipart form data to the transcription
// endpoint and returns the transcript text.
func (c *HTTPClient) Transcribe(ctx context.Context, model, filename string, audio io.Reader) (string, error) {
	if model == "" {
		return "", ErrModelRequired
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	if err := form.WriteField("model", model); err != nil {
		return "", fmt.Errorf("openai: write model field: %w", err)
	}
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("openai: create file part: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("openai: copy audio: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("openai: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	var resp transcriptionResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}

	return resp.Text, nil
}

// do performs a single HTTP request and decodes the JSON response.
func (c *HTTPClient) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openai: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("openai: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("openai: unmarshal response: %w", err)
		}
	}

	return nil
}

// Ensure HTTPClient implements Client at compile time.
var _ Client = (*HTTPClient)(nil)
