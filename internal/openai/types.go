// Package openai provides an HTTP client for the OpenAI Responses and
// audio transcription APIs.
package openai

import (
	"encoding/json"
	"strings"
)

// responseRequest represents the request body for the /responses endpoint.
type responseRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// transcriptionResponse represents the response from /audio/transcriptions.
type transcriptionResponse struct {
	Text string `json:"text"`
}

// apiError represents the error object returned by the API.
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Response represents a completion returned by the /responses endpoint.
// The API has shipped two shapes over time: a flat output_text field and
// an output array of items whose content pieces carry the text. Both are
// modeled explicitly so extraction is a match over known variants rather
// than field probing.
type Response struct {
	ID         string       `json:"id,omitempty"`
	OutputText string       `json:"output_text,omitempty"`
	Output     []OutputItem `json:"output,omitempty"`
	Error      *apiError    `json:"error,omitempty"`
}

// OutputItem is one entry in the output array.
type OutputItem struct {
	Type    string         `json:"type,omitempty"`
	Content []ContentPiece `json:"content,omitempty"`
}

// ContentPiece is a single content element inside an output item.
type ContentPiece struct {
	Type string    `json:"type"`
	Text TextValue `json:"text"`
}

// TextValue is the text payload of a content piece. The SDK sometimes
// emits a bare string and sometimes an object like {"value": "..."};
// both decode to the same string. Anything else decodes to "".
type TextValue string

// UnmarshalJSON accepts both the string and the {value} wrapper shape.
func (t *TextValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = TextValue(s)
		return nil
	}

	var wrapped struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil {
		*t = TextValue(wrapped.Value)
		return nil
	}

	*t = ""
	return nil
}

// Text extracts the plain reply text from the response. The flat
// output_text field wins when present; otherwise the output items are
// walked and every text-typed content piece is concatenated. Unrecognized
// shapes yield the empty string.
func (r Response) Text() string {
	if r.OutputText != "" {
		return strings.TrimSpace(r.OutputText)
	}

	var b strings.Builder
	for _, item := range r.Output {
		for _, piece := range item.Content {
			switch piece.Type {
			case "output_text", "text":
				b.WriteString(string(piece.Text))
			}
		}
	}
	return strings.TrimSpace(b.String())
}
