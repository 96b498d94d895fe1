// Package chat implements the chat completion gateway: it turns a running
// conversation plus mode/preset/tone context into a single-turn completion
// request and extracts plain reply text from the provider response.
package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/openai"
	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/prompt"
	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/project"
)

// FallbackReply is returned when extraction yields no text, so the caller
// never receives a blank reply.
const FallbackReply = "I couldn't generate a reply for some reason. Try rephrasing your question about the mix."

// Input contains the conversation and context for a chat completion.
type Input struct {
	// Messages is the ordered conversation so far; may be empty.
	Messages []project.Message
	// Mode is the advice category label; defaulted when empty.
	Mode string
	// Preset is the style label within the mode; defaulted when empty.
	Preset string
	// Tone is the three-axis style dial; fields are defaulted when empty.
	Tone *project.Tone
}

// Service is the chat completion gateway.
type Service struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// NewService creates a chat gateway calling the given model.
func NewService(client openai.Client, model string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client: client,
		model:  model,
		logger: logger,
	}
}

// Reply flattens the conversation into a role-labeled transcript, prepends
// the persona preamble with the mode/preset/tone context, and sends the
// combined string as one completion request. Provider failures are
// returned as errors; no retry is attempted.
func (s *Service) Reply(ctx context.Context, in Input) (string, error) {
	pctx := prompt.Context{
		Mode:   in.Mode,
		Preset: in.Preset,
	}
	if in.Tone != nil {
		pctx.Aggression = in.Tone.Aggression
		pctx.Tightness = in.Tone.Tightness
		pctx.Brightness = in.Tone.Brightness
	}
	pctx = prompt.Defaulted(pctx)

	input := prompt.Chat(pctx, prompt.FlattenConversation(in.Messages))

	resp, err := s.client.CreateResponse(ctx, s.model, input)
	if err != nil {
		return "", fmt.Errorf("chat: completion: %w", err)
	}

	reply := resp.Text()
	if reply == "" {
		s.logger.Warn("completion returned no extractable text",
			slog.String("model", s.model),
		)
		return FallbackReply, nil
	}

	return reply, nil
}
