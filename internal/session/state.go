// Package session models the client-side chat session as an explicit
// state machine: all transitions are pure functions (state, event) →
// (state, effects), so the whole flow can be unit-tested without a
// rendering environment. The Controller in this package owns a State and
// executes effects against the gateways and the project store.
package session

import (
	"strings"

	"github.com/google/uuid"

	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/project"
)

// Fixed user-facing strings appended to the transcript by the session
// itself rather than by a backend call.
const (
	// ReattachGuidance is shown when a loaded project remembers a mix
	// filename but the binary is gone.
	ReattachGuidance = "This project remembers the filename, but not the actual audio file. Please re-attach the WAV/MP3 to analyze."
	// ChatFailedMessage is shown when the chat endpoint call fails.
	ChatFailedMessage = "There was an error talking to the AI backend. Try again in a second."
	// AnalyzeFailedMessage is shown when the analyze endpoint call fails.
	AnalyzeFailedMessage = "There was an error analyzing your mix. Make sure the file is a WAV/MP3 and try again."
	// NoQuestionPlaceholder stands in for an empty question in the user
	// message that announces a mix analysis.
	NoQuestionPlaceholder = "(no question provided)"
	// DefaultProjectName is used when saving with no name at all.
	DefaultProjectName = "Untitled Project"
)

// State is the complete live session state. The zero value is not
// meaningful; use NewState.
type State struct {
	Messages    []project.Message
	Mode        string
	PresetID    string
	Tone        project.Tone
	MixFileName string
	// MixAttached reports whether a live binary is currently bound to the
	// session. A loaded project restores only MixFileName, never the
	// binary.
	MixAttached bool

	Projects        []project.Project
	ActiveProjectID string
	ProjectName     string

	Sending  bool
	Thinking bool

	// Epoch increments whenever the session identity changes (new
	// session, project switch). In-flight sends are tagged with the epoch
	// at issue time; replies whose epoch no longer matches are discarded.
	Epoch uint64
}

// NewState returns the fixed default session state.
func NewState() State {
	return State{
		Mode:     DefaultMode,
		PresetID: DefaultPresetFor(DefaultMode),
		Tone:     project.DefaultTone(),
	}
}

// Event is a user action or an asynchronous result applied to the state.
type Event interface{ isEvent() }

// SelectMode switches the advice category and resets the preset to the
// mode's first entry.
type SelectMode struct{ Mode string }

// SelectPreset switches the preset within the current mode.
type SelectPreset struct{ PresetID string }

// SetTone updates exactly one tone field.
type SetTone struct{ Field, Value string }

// Tone field names accepted by SetTone.
const (
	ToneAggression = "aggression"
	ToneTightness  = "tightness"
	ToneBrightness = "brightness"
)

// AttachFile binds a live mix binary (held by the controller) to the session.
type AttachFile struct{ Name string }

// ClearAttachment unbinds the mix binary and its filename label.
type ClearAttachment struct{}

// ProjectsLoaded replaces the cached project list.
type ProjectsLoaded struct{ Projects []project.Project }

// SelectProject loads a stored snapshot over the live session state.
type SelectProject struct{ ID string }

// SendRequested submits the composed input (and any bound attachment).
type SendRequested struct{ Input string }

// ReplyReceived delivers an assistant reply for an in-flight send.
type ReplyReceived struct {
	Epoch   uint64
	Content string
}

// SendFailed delivers a failure for an in-flight send.
type SendFailed struct {
	Epoch   uint64
	Message string
}

// SaveRequested snapshots the session into a project.
type SaveRequested struct{ Name string }

// ProjectSaved confirms a completed upsert.
type ProjectSaved struct{ ID, Name string }

// DeleteConfirmed is applied after the user confirmed deleting the active
// project.
type DeleteConfirmed struct{}

// ProjectDeleted confirms a completed delete.
type ProjectDeleted struct{}

// NewSession discards all session state unconditionally.
type NewSession struct{}

func (SelectMode) isEvent()      {}
func (SelectPreset) isEvent()    {}
func (SetTone) isEvent()         {}
func (AttachFile) isEvent()      {}
func (ClearAttachment) isEvent() {}
func (ProjectsLoaded) isEvent()  {}
func (SelectProject) isEvent()   {}
func (SendRequested) isEvent()   {}
func (ReplyReceived) isEvent()   {}
func (SendFailed) isEvent()      {}
func (SaveRequested) isEvent()   {}
func (ProjectSaved) isEvent()    {}
func (DeleteConfirmed) isEvent() {}
func (ProjectDeleted) isEvent()  {}
func (NewSession) isEvent()      {}

// Effect is a side effect the controller must execute after a transition.
type Effect interface{ isEffect() }

// CallChat issues a chat completion for the flattened conversation.
type CallChat struct {
	Epoch    uint64
	Messages []project.Message
	Mode     string
	Preset   string
	Tone     project.Tone
}

// CallAnalyze issues a mix analysis for the bound attachment.
type CallAnalyze struct {
	Epoch      uint64
	Filename   string
	Question   string
	Mode       string
	Preset     string
	Aggression string
	Tightness  string
	Brightness string
}

// SaveProject upserts the snapshot to the store.
type SaveProject struct{ Project project.Project }

// DeleteProject removes the project from the store.
type DeleteProject struct{ ID string }

// RefreshProjects reloads the project list from the store.
type RefreshProjects struct{}

func (CallChat) isEffect()        {}
func (CallAnalyze) isEffect()     {}
func (SaveProject) isEffect()     {}
func (DeleteProject) isEffect()   {}
func (RefreshProjects) isEffect() {}

// Reduce applies an event to the state and returns the next state plus
// the effects to execute. It never mutates its input.
func Reduce(st State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case SelectMode:
		if !ValidMode(e.Mode) {
			return st, nil
		}
		st.Mode = e.Mode
		st.PresetID = DefaultPresetFor(e.Mode)
		return st, nil

	case SelectPreset:
		st.PresetID = e.PresetID
		return st, nil

	case SetTone:
		switch e.Field {
		case ToneAggression:
			st.Tone.Aggression = e.Value
		case ToneTightness:
			st.Tone.Tightness = e.Value
		case ToneBrightness:
			st.Tone.Brightness = e.Value
		}
		return st, nil

	case AttachFile:
		st.MixAttached = true
		st.MixFileName = e.Name
		return st, nil

	case ClearAttachment:
		st.MixAttached = false
		st.MixFileName = ""
		return st, nil

	case ProjectsLoaded:
		st.Projects = e.Projects
		return st, nil

	case SelectProject:
		return reduceSelectProject(st, e)

	case SendRequested:
		return reduceSend(st, e)

	case ReplyReceived:
		if e.Epoch != st.Epoch {
			// Reply for a session that no longer exists.
			return st, nil
		}
		st.Messages = appendMessage(st.Messages, project.RoleAssistant, e.Content)
		st.Sending = false
		st.Thinking = false
		return st, nil

	case SendFailed:
		if e.Epoch != st.Epoch {
			return st, nil
		}
		st.Messages = appendMessage(st.Messages, project.RoleAssistant, e.Message)
		st.Sending = false
		st.Thinking = false
		return st, nil

	case SaveRequested:
		return reduceSave(st, e)

	case ProjectSaved:
		st.ActiveProjectID = e.ID
		st.ProjectName = e.Name
		return st, []Effect{RefreshProjects{}}

	case DeleteConfirmed:
		if st.ActiveProjectID == "" {
			return st, nil
		}
		return st, []Effect{DeleteProject{ID: st.ActiveProjectID}}

	case ProjectDeleted:
		st.ActiveProjectID = ""
		st.ProjectName = ""
		st.Messages = nil
		return st, []Effect{RefreshProjects{}}

	case NewSession:
		next := NewState()
		next.Projects = st.Projects
		next.Epoch = st.Epoch + 1
		return next, nil
	}

	return st, nil
}

// reduceSelectProject replaces the live session state with a stored
// snapshot. The mix binary is never restored, only its filename label.
func reduceSelectProject(st State, e SelectProject) (State, []Effect) {
	if e.ID == "" {
		st.ActiveProjectID = ""
		return st, nil
	}

	var found *project.Project
	for i := range st.Projects {
		if st.Projects[i].ID == e.ID {
			found = &st.Projects[i]
			break
		}
	}
	if found == nil {
		return st, nil
	}

	st.ActiveProjectID = found.ID
	st.ProjectName = found.Name
	st.Messages = append([]project.Message(nil), found.Messages...)
	if found.Mode != "" {
		st.Mode = found.Mode
	}
	if found.PresetID != "" {
		st.PresetID = found.PresetID
	}
	if found.Tone != nil {
		st.Tone = *found.Tone
	}
	st.MixFileName = found.MixFileName
	st.MixAttached = false
	st.Sending = false
	st.Thinking = false
	st.Epoch++
	return st, nil
}

// reduceSend handles the Send action, both branches of spec behavior:
// plain chat and mix analysis, plus the guard cases that never reach a
// gateway.
func reduceSend(st State, e SendRequested) (State, []Effect) {
	if st.Sending {
		return st, nil
	}

	input := strings.TrimSpace(e.Input)
	if input == "" && !st.MixAttached {
		return st, nil
	}

	// A loaded project remembers the filename but not the binary; asking
	// the user to re-attach beats sending a broken analysis request.
	if st.MixFileName != "" && !st.MixAttached {
		st.Messages = appendMessage(st.Messages, project.RoleAssistant, ReattachGuidance)
		return st, nil
	}

	modeLabel := ModeLabel(st.Mode)
	presetLabel := PresetLabel(st.Mode, st.PresetID)

	if st.MixAttached {
		question := input
		if question == "" {
			question = NoQuestionPlaceholder
		}
		userContent := "Mode: " + modeLabel + ", Preset: " + presetLabel +
			", Aggression: " + st.Tone.Aggression +
			", Tightness: " + st.Tone.Tightness +
			", Brightness: " + st.Tone.Brightness +
			"\n\n" + question
		st.Messages = appendMessage(st.Messages, project.RoleUser, userContent)
		st.Sending = true
		st.Thinking = true
		return st, []Effect{CallAnalyze{
			Epoch:      st.Epoch,
			Filename:   st.MixFileName,
			Question:   input,
			Mode:       modeLabel,
			Preset:     presetLabel,
			Aggression: st.Tone.Aggression,
			Tightness:  st.Tone.Tightness,
			Brightness: st.Tone.Brightness,
		}}
	}

	st.Messages = appendMessage(st.Messages, project.RoleUser, input)
	st.Sending = true
	st.Thinking = true
	return st, []Effect{CallChat{
		Epoch:    st.Epoch,
		Messages: append([]project.Message(nil), st.Messages...),
		Mode:     st.Mode,
		Preset:   presetLabel,
		Tone:     st.Tone,
	}}
}

// reduceSave snapshots the session into a project, generating an id for a
// scratch session. The active id and name are committed only once the
// store confirms via ProjectSaved.
func reduceSave(st State, e SaveRequested) (State, []Effect) {
	id := st.ActiveProjectID
	if id == "" {
		id = uuid.NewString()
	}

	name := strings.TrimSpace(e.Name)
	if name == "" {
		name = strings.TrimSpace(st.ProjectName)
	}
	if name == "" {
		name = strings.TrimSpace(st.MixFileName)
	}
	if name == "" {
		name = DefaultProjectName
	}

	tone := st.Tone
	snapshot := project.Project{
		ID:          id,
		Name:        name,
		Messages:    append([]project.Message(nil), st.Messages...),
		Mode:        st.Mode,
		PresetID:    st.PresetID,
		Tone:        &tone,
		MixFileName: st.MixFileName,
	}

	return st, []Effect{SaveProject{Project: snapshot}}
}

func appendMessage(messages []project.Message, role, content string) []project.Message {
	out := append([]project.Message(nil), messages...)
	return append(out, project.Message{Role: role, Content: content})
}
