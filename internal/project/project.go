// Package project defines the persisted project model and the store port.
// A project is a named snapshot of a chat session: its messages plus the
// mode/preset/tone settings active when it was saved. The uploaded mix
// binary is never part of a project, only its filename label.
package project

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Message roles used across the chat transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrProjectIDRequired is returned when an upsert is attempted without an id.
var ErrProjectIDRequired = errors.New("project: id is required")

// Message is a single entry in a chat transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Tone is the three-axis style dial fed into every prompt.
type Tone struct {
	Aggression string `json:"aggression"`
	Tightness  string `json:"tightness"`
	Brightness string `json:"brightness"`
}

// DefaultTone returns the tone every new session starts with.
func DefaultTone() Tone {
	return Tone{
		Aggression: "medium",
		Tightness:  "medium",
		Brightness: "neutral",
	}
}

// Project is a persisted snapshot of a chat session.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	Messages    []Message `json:"messages,omitempty"`
	Mode        string    `json:"mode,omitempty"`
	PresetID    string    `json:"presetId,omitempty"`
	Tone        *Tone     `json:"tone,omitempty"`
	MixFileName string    `json:"mixFileName,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// Store is the only access path to persisted projects. Implementations
// never cache beyond a single request/response.
type Store interface {
	// ListProjects returns all projects ordered by created_at, newest first.
	ListProjects(ctx context.Context) ([]Project, error)

	// UpsertProject inserts or fully replaces the project keyed by its id.
	// Absent fields are written as null, not left untouched. Returns the
	// stored row.
	UpsertProject(ctx context.Context, p Project) (*Project, error)

	// DeleteProject removes the project with the given id. Irreversible.
	DeleteProject(ctx context.Context, id string) error
}

// ParseTone decodes a tone stored as JSON text. A missing or malformed
// value yields nil rather than an error so a single bad row cannot abort
// a whole list load.
func ParseTone(raw string) *Tone {
	if raw == "" {
		return nil
	}
	var t Tone
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil
	}
	return &t
}

// EncodeTone serializes a tone to the JSON text form stored in the tone
// column. A nil tone encodes to "".
func EncodeTone(t *Tone) string {
	if t == nil {
		return ""
	}
	b, err := json.Marshal(t)
	if err != nil {
		return ""
	}
	return string(b)
}
