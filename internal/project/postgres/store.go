// Package postgres implements the project store on top of PostgreSQL
// using pgx. Column names mirror the original projects table, including
// the camelCase "presetId" and "mixFileName" columns.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/project"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS projects (
	id           TEXT PRIMARY KEY,
	name         TEXT,
	messages     JSONB,
	mode         TEXT,
	"presetId"   TEXT,
	tone         TEXT,
	brightness   TEXT,
	aggression   TEXT,
	tightness    TEXT,
	"mixFileName" TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// Store is a pgx-backed implementation of project.Store.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Connect opens a connection pool for the given database URL and returns
// a Store backed by it. The caller owns the pool via Close.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("project: connect: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.db.Close()
}

// EnsureSchema creates the projects table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("project: ensure schema: %w", err)
	}
	return nil
}

// ListProjects returns all projects ordered by created_at, newest first.
// A row whose tone column holds malformed JSON yields a nil tone rather
// than failing the whole load.
func (s *Store) ListProjects(ctx context.Context) ([]project.Project, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, messages, mode, "presetId", tone, "mixFileName", created_at
		 FROM projects ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("project: list: %w", err)
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		var (
			p           project.Project
			name        *string
			messages    []byte
			mode        *string
			presetID    *string
			tone        *string
			mixFileName *string
			createdAt   time.Time
		)
		if err := rows.Scan(&p.ID, &name, &messages, &mode, &presetID, &tone, &mixFileName, &createdAt); err != nil {
			return nil, fmt.Errorf("project: scan: %w", err)
		}

		p.Name = deref(name)
		p.Mode = deref(mode)
		p.PresetID = deref(presetID)
		p.MixFileName = deref(mixFileName)
		p.CreatedAt = createdAt
		p.Tone = project.ParseTone(deref(tone))

		if len(messages) > 0 {
			// Bad message JSON is treated like bad tone JSON: the row
			// survives with an empty transcript.
			_ = json.Unmarshal(messages, &p.Messages)
		}

		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("project: list: %w", err)
	}

	return projects, nil
}

// UpsertProject inserts or fully replaces the project keyed by its id.
// Absent fields are written as NULL (full-replace semantics, not a
// partial patch). The tone object is serialized to text, with its three
// fields also denormalized into their own columns.
func (s *Store) UpsertProject(ctx context.Context, p project.Project) (*project.Project, error) {
	if p.ID == "" {
		return nil, project.ErrProjectIDRequired
	}

	var messages []byte
	if p.Messages != nil {
		b, err := json.Marshal(p.Messages)
		if err != nil {
			return nil, fmt.Errorf("project: encode messages: %w", err)
		}
		messages = b
	}

	var toneText, brightness, aggression, tightness *string
	if p.Tone != nil {
		toneText = ptr(project.EncodeTone(p.Tone))
		brightness = nullIfEmpty(p.Tone.Brightness)
		aggression = nullIfEmpty(p.Tone.Aggression)
		tightness = nullIfEmpty(p.Tone.Tightness)
	}

	stored := project.Project{}
	var (
		name        *string
		mode        *string
		presetID    *string
		tone        *string
		mixFileName *string
	)

	err := s.db.QueryRow(ctx,
		`INSERT INTO projects (id, name, messages, mode, "presetId", tone, brightness, aggression, tightness, "mixFileName")
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			messages = EXCLUDED.messages,
			mode = EXCLUDED.mode,
			"presetId" = EXCLUDED."presetId",
			tone = EXCLUDED.tone,
			brightness = EXCLUDED.brightness,
			aggression = EXCLUDED.aggression,
			tightness = EXCLUDED.tightness,
			"mixFileName" = EXCLUDED."mixFileName"
		 RETURNING id, name, messages, mode, "presetId", tone, "mixFileName", created_at`,
		p.ID,
		nullIfEmpty(p.Name),
		messages,
		nullIfEmpty(p.Mode),
		nullIfEmpty(p.PresetID),
		toneText,
		brightness,
		aggression,
		tightness,
		nullIfEmpty(p.MixFileName),
	).Scan(&stored.ID, &name, &messages, &mode, &presetID, &tone, &mixFileName, &stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("project: upsert: %w", err)
	}

	stored.Name = deref(name)
	stored.Mode = deref(mode)
	stored.PresetID = deref(presetID)
	stored.MixFileName = deref(mixFileName)
	stored.Tone = project.ParseTone(deref(tone))
	if len(messages) > 0 {
		_ = json.Unmarshal(messages, &stored.Messages)
	}

	return &stored, nil
}

// DeleteProject removes the project with the given id. Deleting an id
// that does not exist is not an error.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id); err != nil {
		return fmt.Errorf("project: delete: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func ptr(s string) *string {
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Ensure Store implements project.Store at compile time.
var _ project.Store = (*Store)(nil)
