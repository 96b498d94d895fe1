// Package prompt assembles the instruction strings sent to the completion
// provider. Every prompt embeds the same studio persona plus the active
// mode/preset/tone context.
package prompt

import (
	"fmt"
	"strings"

	"github.com/dirthalostudios/dirt-halo-studio-assistant/internal/project"
)

// Context is the fully-defaulted mode/preset/tone block embedded in every
// prompt. Callers are expected to apply defaults before building; see
// Defaulted.
type Context struct {
	Mode       string
	Preset     string
	Aggression string
	Tightness  string
	Brightness string
}

// Gateway-level defaults applied when the frontend omits a field.
const (
	DefaultMode       = "Vocals"
	DefaultPreset     = "Modern Metalcore"
	DefaultAggression = "medium"
	DefaultTightness  = "medium"
	DefaultBrightness = "neutral"
)

// PlaceholderTranscript stands in for the transcript when transcription
// produced nothing usable, keeping the prompt structure stable.
const PlaceholderTranscript = "(no reliable transcription)"

// PlaceholderQuestion stands in for the user's question when none was asked.
const PlaceholderQuestion = "(user didn't ask a specific question; give a general critique of this mix)"

// Defaulted returns a copy of the context with every empty field replaced
// by its default, so downstream prompt builders always receive
// fully-populated data.
func Defaulted(c Context) Context {
	if c.Mode == "" {
		c.Mode = DefaultMode
	}
	if c.Preset == "" {
		c.Preset = DefaultPreset
	}
	if c.Aggression == "" {
		c.Aggression = DefaultAggression
	}
	if c.Tightness == "" {
		c.Tightness = DefaultTightness
	}
	if c.Brightness == "" {
		c.Brightness = DefaultBrightness
	}
	return c
}

const chatPreamble = `You are Dirt Halo Studio Assistant, a brutal but helpful metal/metalcore mix engineer.

Mode: %s
Preset: %s
Aggression: %s
Tightness: %s
Brightness: %s

Give clear, practical, step-by-step advice (frequencies, plugin moves, creative tips).
Keep it studio-friendly and conversational.`

// Chat builds the single-turn prompt for the chat endpoint: persona
// preamble, then the conversation flattened to role-labeled lines, then a
// trailing "Assistant:" cue.
func Chat(c Context, conversation string) string {
	preamble := fmt.Sprintf(chatPreamble, c.Mode, c.Preset, c.Aggression, c.Tightness, c.Brightness)
	return fmt.Sprintf("%s\n\nConversation:\n%s\n\nAssistant:", preamble, conversation)
}

const coachingTemplate = `
You are Dirt Halo Studio Assistant, a blunt but helpful mix engineer for heavy music.

Context:
- Mode: %s
- Preset: %s
- Aggression: %s
- Tightness: %s
- Brightness: %s

User question (no audio attached, give general advice only):
"%s"

Give focused, practical mix advice with numbered steps and, where useful, ballpark EQ ranges and compressor settings.
`

// Coaching builds the text-only advice prompt used when no audio is attached.
func Coaching(c Context, question string) string {
	return fmt.Sprintf(coachingTemplate, c.Mode, c.Preset, c.Aggression, c.Tightness, c.Brightness, question)
}

const analysisTemplate = `
You are Dirt Halo Studio Assistant, a brutal but helpful metal/rock mix engineer.

Mix context:
- Mode: %s
- Preset: %s
- Aggression: %s
- Tightness: %s
- Brightness: %s

User's question about the uploaded mix:
"%s"

Transcription of the uploaded mix audio (may be imperfect, just use as loose context, do NOT focus on the lyrics themselves):
%s

Give a detailed, practical answer in this structure:

1. Quick verdict (1–2 sentences) about how the mix feels overall.
2. Frequency balance:
   - Sub (20–40 Hz)
   - Low end (40–120 Hz)
   - Low-mids (120–400 Hz)
   - High-mids (1–5 kHz)
   - Air (8–16 kHz)
   For each, say what feels right or wrong, and which instruments are affected.
3. Dynamics / punch & glue:
   - Comments on compression / limiting
   - Transients on drums, vocals, and master bus
4. Space & width:
   - Reverb, delay, stereo image, depth
5. Concrete action list – 5–10 bullet points of specific moves, for example:
   - "Cut 2–3 dB at 250 Hz on the master bus with a medium-Q bell"
   - "Boost 1–2 dB at 8–10 kHz on the vocals for air"
   - "Use a slower attack and faster release on the drum bus compressor"
   - "Tighten the low end by high-passing guitars around 80–100 Hz"

Write like you're coaching someone in a home studio using common plugins (FabFilter, JST, Waves, Slate, etc.). Be direct but encouraging, and talk in clear, simple language.
`

// Analysis builds the structured mix-critique prompt. The question and
// transcript must already have their placeholders applied; see
// PlaceholderQuestion and PlaceholderTranscript.
func Analysis(c Context, question, transcript string) string {
	return fmt.Sprintf(analysisTemplate, c.Mode, c.Preset, c.Aggression, c.Tightness, c.Brightness, question, transcript)
}

// FlattenConversation renders an ordered transcript as role-labeled lines,
// one message per line.
func FlattenConversation(messages []project.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		who := "Assistant"
		if m.Role == project.RoleUser {
			who = "User"
		}
		lines = append(lines, who+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}
