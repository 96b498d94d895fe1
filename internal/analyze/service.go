// Package analyze implements the mix analysis gateway. An uploaded mix is
// spooled to temp storage, transcribed best-effort for loose context, and
// fed into a structured critique prompt. Without an upload it falls back
// to a text-only coaching prompt.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/openai"
	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/prompt"
	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/storage"
)

// Static errors for user input problems. Both are raised before any
// provider call is made.
var (
	// ErrNoInput is returned when there is neither a file nor a question.
	ErrNoInput = errors.New("analyze: no file and no question")
	// ErrFileTooLarge is returned when the upload exceeds the size cap.
	ErrFileTooLarge = errors.New("analyze: file exceeds size limit")
)

// DefaultFilename is used when the upload carries no filename.
const DefaultFilename = "mix.wav"

// Input contains the optional upload and context for one analysis request.
type Input struct {
	// Audio is the uploaded mix; nil when no file was attached.
	Audio io.Reader
	// Filename is the uploaded file's name; defaulted to DefaultFilename.
	Filename string
	// Size is the upload size in bytes, checked against the cap.
	Size int64
	// Question is the user's free-text question; may be empty.
	Question string
	// Mode, Preset and the tone fields are labels embedded in the prompt;
	// each is defaulted when empty.
	Mode       string
	Preset     string
	Aggression string
	Tightness  string
	Brightness string
}

// Option configures a Service.
type Option func(*Service)

// WithMaxUploadBytes overrides the upload size cap.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithTranscriptMaxChars overrides the transcript truncation limit.
func WithTranscriptMaxChars(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.transcriptMaxChars = n
		}
	}
}

// Service is the mix analysis gateway.
type Service struct {
	client             openai.Client
	store              storage.Storage
	analysisModel      string
	transcriptionModel string
	maxUploadBytes     int64
	transcriptMaxChars int
	logger             *slog.Logger
}

// NewService creates a mix analysis gateway.
func NewService(client openai.Client, store storage.Storage, analysisModel, transcriptionModel string, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		client:             client,
		store:              store,
		analysisModel:      analysisModel,
		transcriptionModel: transcriptionModel,
		maxUploadBytes:     200 * 1024 * 1024,
		transcriptMaxChars: 4000,
		logger:             logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze runs one analysis request and returns the reply text.
//
// With no upload and no question it returns ErrNoInput. With no upload but
// a question it asks for text-only coaching advice. With an upload it
// spools the file, attempts transcription (failure is logged and degraded
// to an empty transcript, never surfaced), truncates the transcript, and
// asks for a structured critique.
func (s *Service) Analyze(ctx context.Context, in Input) (string, error) {
	pctx := prompt.Defaulted(prompt.Context{
		Mode:       in.Mode,
		Preset:     in.Preset,
		Aggression: in.Aggression,
		Tightness:  in.Tightness,
		Brightness: in.Brightness,
	})

	question := strings.TrimSpace(in.Question)

	if in.Audio == nil {
		if question == "" {
			return "", ErrNoInput
		}

		resp, err := s.client.CreateResponse(ctx, s.analysisModel, prompt.Coaching(pctx, question))
		if err != nil {
			return "", fmt.Errorf("analyze: coaching completion: %w", err)
		}
		return resp.Text(), nil
	}

	if in.Size > s.maxUploadBytes {
		return "", ErrFileTooLarge
	}

	filename := in.Filename
	if filename == "" {
		filename = DefaultFilename
	}

	transcript := s.transcribe(ctx, filename, in.Audio)

	if len(transcript) > s.transcriptMaxChars {
		transcript = transcript[:s.transcriptMaxChars]
	}
	if transcript == "" {
		transcript = prompt.PlaceholderTranscript
	}

	if question == "" {
		question = prompt.PlaceholderQuestion
	}

	resp, err := s.client.CreateResponse(ctx, s.analysisModel, prompt.Analysis(pctx, question, transcript))
	if err != nil {
		return "", fmt.Errorf("analyze: critique completion: %w", err)
	}

	return resp.Text(), nil
}

// transcribe spools the upload and attempts speech transcription. Any
// failure is logged and degraded to an empty transcript so the analysis
// request continues.
func (s *Service) transcribe(ctx context.Context, filename string, audio io.Reader) string {
	path, err := s.store.SaveTemp(ctx, "mix", audio)
	if err != nil {
		s.logger.Warn("failed to spool upload, continuing without transcript",
			slog.String("error", err.Error()),
		)
		return ""
	}
	defer func() {
		if err := s.store.CleanupTemp(ctx, []string{path}); err != nil {
			s.logger.Warn("failed to clean up spooled upload",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}()

	f, err := s.store.LoadTemp(ctx, path)
	if err != nil {
		s.logger.Warn("failed to reopen spooled upload, continuing without transcript",
			slog.String("error", err.Error()),
		)
		return ""
	}
	defer func() { _ = f.Close() }()

	text, err := s.client.Transcribe(ctx, s.transcriptionModel, filename, f)
	if err != nil {
		s.logger.Warn("transcription failed, continuing without transcript",
			slog.String("model", s.transcriptionModel),
			slog.String("error", err.Error()),
		)
		return ""
	}

	return text
}
