package session

// Choice is a selectable option with a stable id and a display label.
type Choice struct {
	ID    string
	Label string
}

// Modes is the fixed set of advice categories, in display order.
var Modes = []Choice{
	{ID: "vocals", Label: "Vocals"},
	{ID: "guitars", Label: "Guitars"},
	{ID: "drums", Label: "Drums"},
	{ID: "bass", Label: "Bass"},
	{ID: "keys", Label: "Keys/Synths"},
	{ID: "mastering", Label: "Mastering"},
}

// PresetsByMode lists the presets available within each mode. The first
// entry is the mode's default.
var PresetsByMode = map[string][]Choice{
	"vocals": {
		{ID: "modern-metalcore", Label: "Modern Metalcore"},
		{ID: "deathcore", Label: "Deathcore"},
		{ID: "pop-punk", Label: "Pop Punk"},
		{ID: "lofi-vocals", Label: "Lofi Vocals"},
	},
	"guitars": {
		{ID: "djent-prog", Label: "Djent / Prog"},
		{ID: "thrash", Label: "Thrash"},
		{ID: "radio-rock", Label: "Radio Rock"},
	},
	"drums": {
		{ID: "tight-punchy", Label: "Tight & Punchy"},
		{ID: "big-room", Label: "Big Room"},
		{ID: "blast-beats", Label: "Blast Beats"},
	},
	"bass": {
		{ID: "edm-bass", Label: "EDM Bass"},
		{ID: "sub-heavy", Label: "Sub Heavy"},
		{ID: "grit-parallel", Label: "Grit + Parallel"},
	},
	"keys": {
		{ID: "ambient-synth", Label: "Ambient / Synthwave"},
		{ID: "hyperpop", Label: "Hyperpop"},
		{ID: "cinematic", Label: "Cinematic"},
	},
	"mastering": {
		{ID: "streaming-loud", Label: "Streaming Loud"},
		{ID: "dynamic", Label: "Dynamic"},
		{ID: "club", Label: "Club / DJ"},
	},
}

// DefaultMode is the mode every new session starts with.
const DefaultMode = "vocals"

// ValidMode reports whether id names a known mode.
func ValidMode(id string) bool {
	_, ok := PresetsByMode[id]
	return ok
}

// DefaultPresetFor returns the first preset id of the given mode, or ""
// for an unknown mode.
func DefaultPresetFor(mode string) string {
	presets := PresetsByMode[mode]
	if len(presets) == 0 {
		return ""
	}
	return presets[0].ID
}

// ModeLabel returns the display label for a mode id, falling back to the
// raw id for unknown modes.
func ModeLabel(id string) string {
	for _, m := range Modes {
		if m.ID == id {
			return m.Label
		}
	}
	return id
}

// PresetLabel returns the display label for a preset id within a mode,
// falling back to the raw id when the preset does not belong to the
// mode's list.
func PresetLabel(mode, presetID string) string {
	for _, p := range PresetsByMode[mode] {
		if p.ID == presetID {
			return p.Label
		}
	}
	return presetID
}
