package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/project"
)

func TestReduce_SelectMode(t *testing.T) {
	t.Run("resets preset to the mode's first entry for every mode", func(t *testing.T) {
		for _, m := range Modes {
			st, effects := Reduce(NewState(), SelectMode{Mode: m.ID})
			assert.Empty(t, effects)
			assert.Equal(t, m.ID, st.Mode)

			presets := PresetsByMode[m.ID]
			require.NotEmpty(t, presets)
			assert.Equal(t, presets[0].ID, st.PresetID)

			// The active preset is always a member of the mode's list.
			found := false
			for _, p := range presets {
				if p.ID == st.PresetID {
					found = true
				}
			}
			assert.True(t, found, "preset %s not in mode %s", st.PresetID, m.ID)
		}
	})

	t.Run("unknown mode is ignored", func(t *testing.T) {
		st, _ := Reduce(NewState(), SelectMode{Mode: "theremin"})
		assert.Equal(t, DefaultMode, st.Mode)
		assert.Equal(t, DefaultPresetFor(DefaultMode), st.PresetID)
	})
}

func TestReduce_SetTone(t *testing.T) {
	t.Run("only the targeted field changes", func(t *testing.T) {
		st := NewState()

		st, _ = Reduce(st, SetTone{Field: ToneAggression, Value: "high"})
		assert.Equal(t, "high", st.Tone.Aggression)
		assert.Equal(t, "medium", st.Tone.Tightness)
		assert.Equal(t, "neutral", st.Tone.Brightness)

		st, _ = Reduce(st, SetTone{Field: ToneBrightness, Value: "dark"})
		assert.Equal(t, "high", st.Tone.Aggression)
		assert.Equal(t, "medium", st.Tone.Tightness)
		assert.Equal(t, "dark", st.Tone.Brightness)
	})
}

func TestReduce_Send(t *testing.T) {
	t.Run("empty input with no attachment is a no-op", func(t *testing.T) {
		st := NewState()
		next, effects := Reduce(st, SendRequested{Input: "   "})
		assert.Equal(t, st, next)
		assert.Empty(t, effects)
	})

	t.Run("remembered filename without binary appends guidance and never calls a gateway", func(t *testing.T) {
		st := NewState()
		st.MixFileName = "old-mix.wav"
		st.MixAttached = false

		next, effects := Reduce(st, SendRequested{Input: "analyze it"})
		assert.Empty(t, effects)
		require.Len(t, next.Messages, 1)
		assert.Equal(t, project.RoleAssistant, next.Messages[0].Role)
		assert.Equal(t, ReattachGuidance, next.Messages[0].Content)
		assert.False(t, next.Sending)
	})

	t.Run("plain send appends user message and calls chat with the full transcript", func(t *testing.T) {
		st := NewState()
		st.Messages = []project.Message{{Role: project.RoleAssistant, Content: "welcome"}}

		next, effects := Reduce(st, SendRequested{Input: "help my vocals"})
		require.Len(t, next.Messages, 2)
		assert.Equal(t, project.RoleUser, next.Messages[1].Role)
		assert.Equal(t, "help my vocals", next.Messages[1].Content)
		assert.True(t, next.Sending)
		assert.True(t, next.Thinking)

		require.Len(t, effects, 1)
		call, ok := effects[0].(CallChat)
		require.True(t, ok)
		assert.Equal(t, next.Messages, call.Messages)
		assert.Equal(t, "vocals", call.Mode)
		assert.Equal(t, "Modern Metalcore", call.Preset)
	})

	t.Run("send with attachment embeds context in the user message and calls analyze", func(t *testing.T) {
		st := NewState()
		st.MixAttached = true
		st.MixFileName = "demo.wav"
		st.Mode = "drums"
		st.PresetID = "big-room"
		st.Tone = project.Tone{Aggression: "high", Tightness: "loose", Brightness: "bright"}

		next, effects := Reduce(st, SendRequested{Input: "too much low end?"})
		require.Len(t, next.Messages, 1)
		assert.Contains(t, next.Messages[0].Content, "Mode: Drums, Preset: Big Room")
		assert.Contains(t, next.Messages[0].Content, "too much low end?")

		require.Len(t, effects, 1)
		call, ok := effects[0].(CallAnalyze)
		require.True(t, ok)
		assert.Equal(t, "demo.wav", call.Filename)
		assert.Equal(t, "too much low end?", call.Question)
		assert.Equal(t, "Drums", call.Mode)
		assert.Equal(t, "Big Room", call.Preset)
	})

	t.Run("attachment with no question uses the placeholder in the transcript", func(t *testing.T) {
		st := NewState()
		st.MixAttached = true
		st.MixFileName = "demo.wav"

		next, effects := Reduce(st, SendRequested{Input: ""})
		require.Len(t, next.Messages, 1)
		assert.Contains(t, next.Messages[0].Content, NoQuestionPlaceholder)
		require.Len(t, effects, 1)
	})

	t.Run("overlapping send is rejected while sending", func(t *testing.T) {
		st := NewState()
		st.Sending = true

		next, effects := Reduce(st, SendRequested{Input: "another one"})
		assert.Equal(t, st, next)
		assert.Empty(t, effects)
	})
}

func TestReduce_Replies(t *testing.T) {
	t.Run("matching epoch appends the reply and clears flags", func(t *testing.T) {
		st := NewState()
		st, _ = Reduce(st, SendRequested{Input: "hi"})

		st, _ = Reduce(st, ReplyReceived{Epoch: st.Epoch, Content: "hello"})
		require.Len(t, st.Messages, 2)
		assert.Equal(t, project.RoleAssistant, st.Messages[1].Role)
		assert.Equal(t, "hello", st.Messages[1].Content)
		assert.False(t, st.Sending)
		assert.False(t, st.Thinking)
	})

	t.Run("stale epoch is discarded", func(t *testing.T) {
		st := NewState()
		st, _ = Reduce(st, SendRequested{Input: "hi"})
		issued := st.Epoch

		// User starts over before the reply lands.
		st, _ = Reduce(st, NewSession{})

		next, _ := Reduce(st, ReplyReceived{Epoch: issued, Content: "late reply"})
		assert.Empty(t, next.Messages)
	})

	t.Run("failure appends the failure message", func(t *testing.T) {
		st := NewState()
		st, _ = Reduce(st, SendRequested{Input: "hi"})

		st, _ = Reduce(st, SendFailed{Epoch: st.Epoch, Message: ChatFailedMessage})
		require.Len(t, st.Messages, 2)
		assert.Equal(t, ChatFailedMessage, st.Messages[1].Content)
		assert.False(t, st.Sending)
	})
}

func TestReduce_Projects(t *testing.T) {
	stored := project.Project{
		ID:       "p1",
		Name:     "Night Mix",
		Messages: []project.Message{{Role: project.RoleUser, Content: "old chat"}},
		Mode:     "mastering",
		PresetID: "club",
		Tone:     &project.Tone{Aggression: "low", Tightness: "loose", Brightness: "dark"},

		MixFileName: "night.wav",
	}

	t.Run("select project replaces state and clears the binary", func(t *testing.T) {
		st := NewState()
		st.MixAttached = true
		st, _ = Reduce(st, ProjectsLoaded{Projects: []project.Project{stored}})

		st, effects := Reduce(st, SelectProject{ID: "p1"})
		assert.Empty(t, effects)
		assert.Equal(t, "p1", st.ActiveProjectID)
		assert.Equal(t, "Night Mix", st.ProjectName)
		assert.Equal(t, stored.Messages, st.Messages)
		assert.Equal(t, "mastering", st.Mode)
		assert.Equal(t, "club", st.PresetID)
		assert.Equal(t, *stored.Tone, st.Tone)
		assert.Equal(t, "night.wav", st.MixFileName)
		assert.False(t, st.MixAttached)
	})

	t.Run("unknown project id is a no-op", func(t *testing.T) {
		st := NewState()
		next, _ := Reduce(st, SelectProject{ID: "missing"})
		assert.Equal(t, st.ActiveProjectID, next.ActiveProjectID)
	})

	t.Run("save on a scratch session generates an id", func(t *testing.T) {
		st := NewState()
		st.Messages = []project.Message{{Role: project.RoleUser, Content: "hi"}}

		_, effects := Reduce(st, SaveRequested{Name: "My Mix"})
		require.Len(t, effects, 1)
		save, ok := effects[0].(SaveProject)
		require.True(t, ok)
		assert.NotEmpty(t, save.Project.ID)
		assert.Equal(t, "My Mix", save.Project.Name)
		assert.Equal(t, st.Messages, save.Project.Messages)
		require.NotNil(t, save.Project.Tone)
		assert.Equal(t, st.Tone, *save.Project.Tone)
	})

	t.Run("save keeps the active id on re-save", func(t *testing.T) {
		st := NewState()
		st.ActiveProjectID = "p1"
		st.ProjectName = "Night Mix"

		_, effects := Reduce(st, SaveRequested{})
		require.Len(t, effects, 1)
		save := effects[0].(SaveProject)
		assert.Equal(t, "p1", save.Project.ID)
		assert.Equal(t, "Night Mix", save.Project.Name)
	})

	t.Run("save falls back to the mix filename then the default name", func(t *testing.T) {
		st := NewState()
		st.MixFileName = "demo.wav"
		_, effects := Reduce(st, SaveRequested{})
		assert.Equal(t, "demo.wav", effects[0].(SaveProject).Project.Name)

		_, effects = Reduce(NewState(), SaveRequested{})
		assert.Equal(t, DefaultProjectName, effects[0].(SaveProject).Project.Name)
	})

	t.Run("confirmed delete clears the active reference", func(t *testing.T) {
		st := NewState()
		st.ActiveProjectID = "p1"
		st.Messages = []project.Message{{Role: project.RoleUser, Content: "hi"}}

		st, effects := Reduce(st, DeleteConfirmed{})
		require.Len(t, effects, 1)
		assert.Equal(t, DeleteProject{ID: "p1"}, effects[0])

		st, effects = Reduce(st, ProjectDeleted{})
		assert.Empty(t, st.ActiveProjectID)
		assert.Empty(t, st.Messages)
		require.Len(t, effects, 1)
		assert.Equal(t, RefreshProjects{}, effects[0])
	})

	t.Run("delete with no active project is a no-op", func(t *testing.T) {
		_, effects := Reduce(NewState(), DeleteConfirmed{})
		assert.Empty(t, effects)
	})
}

func TestReduce_NewSession(t *testing.T) {
	st := NewState()
	st, _ = Reduce(st, ProjectsLoaded{Projects: []project.Project{{ID: "p1"}}})
	st, _ = Reduce(st, SelectMode{Mode: "mastering"})
	st, _ = Reduce(st, SetTone{Field: ToneAggression, Value: "high"})
	st.Messages = []project.Message{{Role: project.RoleUser, Content: "hi"}}
	st.ActiveProjectID = "p1"
	st.MixFileName = "demo.wav"
	st.MixAttached = true

	next, _ := Reduce(st, NewSession{})
	assert.Equal(t, "vocals", next.Mode)
	assert.Equal(t, "modern-metalcore", next.PresetID)
	assert.Equal(t, project.DefaultTone(), next.Tone)
	assert.Empty(t, next.Messages)
	assert.Empty(t, next.ActiveProjectID)
	assert.Empty(t, next.MixFileName)
	assert.False(t, next.MixAttached)
	// The project list survives; the session identity does not.
	assert.Len(t, next.Projects, 1)
	assert.Equal(t, st.Epoch+1, next.Epoch)
}

// mockChatGateway implements ChatGateway for testing.
type mockChatGateway struct {
	mock.Mock
}

func (m *mockChatGateway) Reply(ctx context.Context, call ChatCall) (string, error) {
	args := m.Called(ctx, call)
	return args.String(0), args.Error(1)
}

// mockMixGateway implements MixGateway for testing.
type mockMixGateway struct {
	mock.Mock
}

func (m *mockMixGateway) Analyze(ctx context.Context, call AnalyzeCall, audio io.Reader) (string, error) {
	args := m.Called(ctx, call, audio)
	return args.String(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestController() (*Controller, *mockChatGateway, *mockMixGateway, *project.MemoryStore) {
	chatGw := &mockChatGateway{}
	mixGw := &mockMixGateway{}
	store := project.NewMemoryStore()
	return NewController(chatGw, mixGw, store, testLogger()), chatGw, mixGw, store
}

func TestController_Send(t *testing.T) {
	t.Run("chat reply is appended to the transcript", func(t *testing.T) {
		c, chatGw, _, _ := newTestController()

		chatGw.On("Reply", mock.Anything, mock.AnythingOfType("session.ChatCall")).
			Return("use a de-esser", nil)

		c.Send(context.Background(), "sibilant vocals")

		st := c.State()
		require.Len(t, st.Messages, 2)
		assert.Equal(t, "use a de-esser", st.Messages[1].Content)
		assert.False(t, st.Sending)
	})

	t.Run("chat failure appends the fixed failure message", func(t *testing.T) {
		c, chatGw, _, _ := newTestController()

		chatGw.On("Reply", mock.Anything, mock.Anything).
			Return("", errors.New("backend down"))

		c.Send(context.Background(), "anyone home?")

		st := c.State()
		require.Len(t, st.Messages, 2)
		assert.Equal(t, ChatFailedMessage, st.Messages[1].Content)
	})

	t.Run("attached binary routes to the mix gateway", func(t *testing.T) {
		c, chatGw, mixGw, _ := newTestController()
		c.Attach("demo.wav", []byte("wav bytes"))

		mixGw.On("Analyze", mock.Anything, mock.AnythingOfType("session.AnalyzeCall"), mock.Anything).
			Return("solid mix", nil)

		c.Send(context.Background(), "thoughts?")

		st := c.State()
		require.Len(t, st.Messages, 2)
		assert.Equal(t, "solid mix", st.Messages[1].Content)
		chatGw.AssertNotCalled(t, "Reply")
	})

	t.Run("remembered filename without binary never calls a gateway", func(t *testing.T) {
		c, chatGw, mixGw, store := newTestController()

		_, err := store.UpsertProject(context.Background(), project.Project{
			ID:          "p1",
			Name:        "Old Mix",
			MixFileName: "old.wav",
		})
		require.NoError(t, err)
		require.NoError(t, c.RefreshProjects(context.Background()))
		c.SelectProject("p1")

		c.Send(context.Background(), "analyze this")

		st := c.State()
		require.Len(t, st.Messages, 1)
		assert.Equal(t, ReattachGuidance, st.Messages[0].Content)
		chatGw.AssertNotCalled(t, "Reply")
		mixGw.AssertNotCalled(t, "Analyze")
	})

	t.Run("empty send is a no-op", func(t *testing.T) {
		c, chatGw, mixGw, _ := newTestController()

		c.Send(context.Background(), "   ")

		assert.Empty(t, c.State().Messages)
		chatGw.AssertNotCalled(t, "Reply")
		mixGw.AssertNotCalled(t, "Analyze")
	})
}

func TestController_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("save then load round-trips the snapshot", func(t *testing.T) {
		c, chatGw, _, _ := newTestController()

		chatGw.On("Reply", mock.Anything, mock.Anything).Return("reply one", nil)

		c.SelectMode("drums")
		c.SelectPreset("blast-beats")
		c.SetTone(ToneAggression, "high")
		c.Send(ctx, "more snare?")

		require.NoError(t, c.Save(ctx, "Drum Session"))
		saved := c.State()
		require.NotEmpty(t, saved.ActiveProjectID)

		// Wipe the session, then load the project back.
		c.NewSession()
		c.SelectProject(saved.ActiveProjectID)

		st := c.State()
		assert.Equal(t, "drums", st.Mode)
		assert.Equal(t, "blast-beats", st.PresetID)
		assert.Equal(t, saved.Tone, st.Tone)
		assert.Equal(t, saved.Messages, st.Messages)
	})

	t.Run("save keeps the active id across re-saves", func(t *testing.T) {
		c, _, _, _ := newTestController()

		require.NoError(t, c.Save(ctx, "First"))
		id := c.State().ActiveProjectID

		require.NoError(t, c.Save(ctx, "Renamed"))
		assert.Equal(t, id, c.State().ActiveProjectID)
		assert.Len(t, c.State().Projects, 1)
	})

	t.Run("delete requires confirmation", func(t *testing.T) {
		c, _, _, _ := newTestController()
		require.NoError(t, c.Save(ctx, "Keep Me"))

		require.NoError(t, c.DeleteActive(ctx, func(string) bool { return false }))
		assert.NotEmpty(t, c.State().ActiveProjectID)
		assert.Len(t, c.State().Projects, 1)
	})

	t.Run("confirmed delete removes the project and clears the reference", func(t *testing.T) {
		c, _, _, _ := newTestController()
		require.NoError(t, c.Save(ctx, "Doomed"))

		var askedFor string
		require.NoError(t, c.DeleteActive(ctx, func(name string) bool {
			askedFor = name
			return true
		}))

		assert.Equal(t, "Doomed", askedFor)
		st := c.State()
		assert.Empty(t, st.ActiveProjectID)
		assert.Empty(t, st.Messages)
		assert.Empty(t, st.Projects)
	})
}
