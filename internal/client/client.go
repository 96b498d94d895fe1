// Package client provides a Go client for the studio assistant API. It
// performs the same calls the browser UI makes and satisfies the session
// controller's gateway and store ports.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/project"
	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/session"
)

// ErrBaseURLRequired is returned when no base URL is provided.
var ErrBaseURLRequired = errors.New("client: base URL is required")

// Client is an HTTP client for the studio assistant API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// New creates a client for the API at the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		// Mix analysis uploads and completions can take minutes.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type chatRequest struct {
	Messages []project.Message `json:"messages"`
	Mode     string            `json:"mode"`
	Preset   string            `json:"preset"`
	Tone     project.Tone      `json:"tone"`
}

type replyResponse struct {
	Reply string `json:"reply"`
}

// Reply calls the chat endpoint and returns the assistant text.
func (c *Client) Reply(ctx context.Context, call session.ChatCall) (string, error) {
	body, err := json.Marshal(chatRequest{
		Messages: call.Messages,
		Mode:     call.Mode,
		Preset:   call.Preset,
		Tone:     call.Tone,
	})
	if err != nil {
		return "", fmt.Errorf("client: marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp replyResponse
	if err := c.do(req, http.StatusOK, &resp); err != nil {
		return "", err
	}
	return resp.Reply, nil
}

// Analyze calls the mix analysis endpoint with the audio attachment.
func (c *Client) Analyze(ctx context.Context, call session.AnalyzeCall, audio io.Reader) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	filename := call.Filename
	if filename == "" {
		filename = "mix.wav"
	}
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("client: create file part: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("client: copy audio: %w", err)
	}

	fields := map[string]string{
		"question":   call.Question,
		"mode":       call.Mode,
		"preset":     call.Preset,
		"aggression": call.Aggression,
		"tightness":  call.Tightness,
		"brightness": call.Brightness,
	}
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return "", fmt.Errorf("client: write field %s: %w", name, err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("client: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyze-mix", &buf)
	if err != nil {
		return "", fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var resp replyResponse
	if err := c.do(req, http.StatusOK, &resp); err != nil {
		return "", err
	}
	return resp.Reply, nil
}

type projectsResponse struct {
	Projects []project.Project `json:"projects"`
}

// ListProjects fetches all saved projects, newest first.
func (c *Client) ListProjects(ctx context.Context) ([]project.Project, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/projects", nil)
	if err != nil {
		return nil, fmt.Errorf("client: create request: %w", err)
	}

	var resp projectsResponse
	if err := c.do(req, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Projects, nil
}

// UpsertProject saves a project snapshot and returns the stored row.
func (c *Client) UpsertProject(ctx context.Context, p project.Project) (*project.Project, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("client: marshal project: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/projects", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var stored project.Project
	if err := c.do(req, http.StatusOK, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// DeleteProject removes a saved project by id.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/projects/"+id, nil)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}

	return c.do(req, http.StatusNoContent, nil)
}

// do performs a request, checks the expected status, and decodes the body.
func (c *Client) do(req *http.Request, wantStatus int, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read response: %w", err)
	}

	if resp.StatusCode != wantStatus {
		return fmt.Errorf("client: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("client: unmarshal response: %w", err)
		}
	}

	return nil
}

// Compile-time checks that the client satisfies the session ports.
var (
	_ session.ChatGateway = (*Client)(nil)
	_ session.MixGateway  = (*Client)(nil)
	_ project.Store       = (*Client)(nil)
)
