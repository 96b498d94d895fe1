// Package server provides the HTTP surface for the studio assistant.
// It includes handlers, middleware, routes, and DTOs separated from
// domain types.
package server

import (
	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/project"
)

// ChatMessage is one transcript entry in a chat request.
type ChatMessage struct {
	// Role is the author of the message.
	Role string `json:"role" validate:"required,oneof=user assistant"`
	// Content is the message text.
	Content string `json:"content"`
}

// ChatRequest is the HTTP request body for the chat endpoint.
// Mode, preset and tone are optional; the gateway defaults them.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages" validate:"dive"`
	Mode     string        `json:"mode"`
	Preset   string        `json:"preset"`
	Tone     *project.Tone `json:"tone"`
}

// ReplyResponse is the envelope both AI endpoints answer with, on success
// and on failure alike.
type ReplyResponse struct {
	// Reply is the assistant text, or a fixed friendly message on failure.
	Reply string `json:"reply"`
}

// ProjectsResponse is the HTTP response for listing projects.
type ProjectsResponse struct {
	Projects []project.Project `json:"projects"`
}

// ErrorResponse is the standard error format for the project endpoints.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
