package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/project"
)

// ChatCall is the payload for a chat completion request.
type ChatCall struct {
	Messages []project.Message
	Mode     string
	Preset   string
	Tone     project.Tone
}

// AnalyzeCall is the payload for a mix analysis request. The audio binary
// is passed separately as a reader.
type AnalyzeCall struct {
	Filename   string
	Question   string
	Mode       string
	Preset     string
	Aggression string
	Tightness  string
	Brightness string
}

// ChatGateway produces an assistant reply for a conversation.
type ChatGateway interface {
	Reply(ctx context.Context, call ChatCall) (string, error)
}

// MixGateway produces a critique for an uploaded mix.
type MixGateway interface {
	Analyze(ctx context.Context, call AnalyzeCall, audio io.Reader) (string, error)
}

// Controller owns the session state and is its only mutator. All
// transitions go through the pure reducer; the controller's job is to
// serialize events and execute the resulting effects against the
// gateways and the project store.
type Controller struct {
	mu    sync.Mutex
	state State
	// attached holds the live mix binary. It is deliberately outside
	// State: the binary is never part of a snapshot and never restored.
	attached []byte

	chat   ChatGateway
	mix    MixGateway
	store  project.Store
	logger *slog.Logger
}

// NewController creates a controller in the default scratch-session state.
func NewController(chat ChatGateway, mix MixGateway, store project.Store, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		state:  NewState(),
		chat:   chat,
		mix:    mix,
		store:  store,
		logger: logger,
	}
}

// State returns a copy of the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// apply runs one event through the reducer under the lock and returns the
// resulting effects.
func (c *Controller) apply(ev Event) []Effect {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, effects := Reduce(c.state, ev)
	c.state = next
	return effects
}

// SelectMode switches the advice category; the preset resets to the
// mode's first entry.
func (c *Controller) SelectMode(mode string) {
	c.apply(SelectMode{Mode: mode})
}

// SelectPreset switches the preset within the current mode.
func (c *Controller) SelectPreset(presetID string) {
	c.apply(SelectPreset{PresetID: presetID})
}

// SetTone updates a single tone field.
func (c *Controller) SetTone(field, value string) {
	c.apply(SetTone{Field: field, Value: value})
}

// Attach binds a mix binary to the session.
func (c *Controller) Attach(name string, data []byte) {
	c.mu.Lock()
	c.attached = data
	c.mu.Unlock()
	c.apply(AttachFile{Name: name})
}

// ClearAttachment unbinds any mix binary.
func (c *Controller) ClearAttachment() {
	c.mu.Lock()
	c.attached = nil
	c.mu.Unlock()
	c.apply(ClearAttachment{})
}

// NewSession discards all session state, including the attachment and any
// active-project association.
func (c *Controller) NewSession() {
	c.mu.Lock()
	c.attached = nil
	c.mu.Unlock()
	c.apply(NewSession{})
}

// RefreshProjects reloads the project list from the store.
func (c *Controller) RefreshProjects(ctx context.Context) error {
	list, err := c.store.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("session: refresh projects: %w", err)
	}
	c.apply(ProjectsLoaded{Projects: list})
	return nil
}

// SelectProject replaces the live session state with a stored snapshot.
// The mix binary is cleared; only the filename label survives.
func (c *Controller) SelectProject(id string) {
	c.mu.Lock()
	c.attached = nil
	c.mu.Unlock()
	c.apply(SelectProject{ID: id})
}

// Send submits the composed input. It blocks until the reply (or failure
// message) has been applied. Overlapping sends are rejected by the
// Sending flag inside the reducer: the second call is a no-op.
func (c *Controller) Send(ctx context.Context, input string) {
	c.mu.Lock()
	next, effects := Reduce(c.state, SendRequested{Input: input})
	c.state = next
	attached := c.attached
	c.mu.Unlock()

	for _, ef := range effects {
		switch call := ef.(type) {
		case CallChat:
			reply, err := c.chat.Reply(ctx, ChatCall{
				Messages: call.Messages,
				Mode:     call.Mode,
				Preset:   call.Preset,
				Tone:     call.Tone,
			})
			if err != nil {
				c.logger.Error("chat call failed", slog.String("error", err.Error()))
				c.apply(SendFailed{Epoch: call.Epoch, Message: ChatFailedMessage})
				continue
			}
			c.apply(ReplyReceived{Epoch: call.Epoch, Content: reply})

		case CallAnalyze:
			reply, err := c.mix.Analyze(ctx, AnalyzeCall{
				Filename:   call.Filename,
				Question:   call.Question,
				Mode:       call.Mode,
				Preset:     call.Preset,
				Aggression: call.Aggression,
				Tightness:  call.Tightness,
				Brightness: call.Brightness,
			}, bytes.NewReader(attached))
			if err != nil {
				c.logger.Error("analyze call failed", slog.String("error", err.Error()))
				c.apply(SendFailed{Epoch: call.Epoch, Message: AnalyzeFailedMessage})
				continue
			}
			c.apply(ReplyReceived{Epoch: call.Epoch, Content: reply})
		}
	}
}

// Save snapshots the session into a project, upserts it, refreshes the
// list, and keeps the (possibly new) id active. A store failure leaves
// the prior state unchanged and is returned to the caller.
func (c *Controller) Save(ctx context.Context, name string) error {
	effects := c.apply(SaveRequested{Name: name})

	for _, ef := range effects {
		save, ok := ef.(SaveProject)
		if !ok {
			continue
		}
		stored, err := c.store.UpsertProject(ctx, save.Project)
		if err != nil {
			return fmt.Errorf("session: save project: %w", err)
		}
		for _, next := range c.apply(ProjectSaved{ID: stored.ID, Name: stored.Name}) {
			if _, ok := next.(RefreshProjects); ok {
				if err := c.RefreshProjects(ctx); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// DeleteActive deletes the active project after interactive confirmation.
// The confirm callback receives the project name; returning false aborts.
// A store failure leaves the prior state unchanged and is returned.
func (c *Controller) DeleteActive(ctx context.Context, confirm func(name string) bool) error {
	c.mu.Lock()
	id := c.state.ActiveProjectID
	name := c.state.ProjectName
	c.mu.Unlock()

	if id == "" {
		return nil
	}
	if confirm != nil && !confirm(name) {
		return nil
	}

	for _, ef := range c.apply(DeleteConfirmed{}) {
		del, ok := ef.(DeleteProject)
		if !ok {
			continue
		}
		if err := c.store.DeleteProject(ctx, del.ID); err != nil {
			return fmt.Errorf("session: delete project: %w", err)
		}
		for _, next := range c.apply(ProjectDeleted{}) {
			if _, ok := next.(RefreshProjects); ok {
				if err := c.RefreshProjects(ctx); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
