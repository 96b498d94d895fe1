// Package bootstrap provides dependency initialization for the studio
// assistant API.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/analyze"
	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/chat"
	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/config"
	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/openai"
	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/project"
	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/project/postgres"
	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	ChatService    *chat.Service
	AnalyzeService *analyze.Service
	ProjectStore   project.Store

	pg *postgres.Store
}

// Close releases held resources.
func (d *Dependencies) Close() {
	if d.pg != nil {
		d.pg.Close()
	}
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	aiClient, err := openai.NewClient(
		openai.WithAPIKey(cfg.OpenAIAPIKey),
		openai.WithBaseURL(cfg.OpenAIBaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("create OpenAI client: %w", err)
	}

	store, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", store.TempDir()),
	)

	pg, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect project store: %w", err)
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("ensure project schema: %w", err)
	}

	chatSvc := chat.NewService(aiClient, cfg.ChatModel, logger)
	analyzeSvc := analyze.NewService(
		aiClient,
		store,
		cfg.AnalysisModel,
		cfg.TranscriptionModel,
		logger,
		analyze.WithMaxUploadBytes(cfg.MaxUploadBytes()),
		analyze.WithTranscriptMaxChars(cfg.TranscriptMaxChars),
	)

	return &Dependencies{
		ChatService:    chatSvc,
		AnalyzeService: analyzeSvc,
		ProjectStore:   pg,
		pg:             pg,
	}, nil
}
