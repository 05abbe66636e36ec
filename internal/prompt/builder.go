package prompt

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Conceptual-Machines/magda-midigen/internal/midi"
	"github.com/Conceptual-Machines/magda-midigen/internal/models"
	"github.com/Conceptual-Machines/magda-midigen/internal/tracks"
)

const (
	defaultBars = 8

	// General MIDI percussion keys suggested to the model
	drumKick  = 35
	drumSnare = 38
	drumHiHat = 42
)

// InstructionData is the template input for one song request
type InstructionData struct {
	Prompt string
	Mood   string
	Bars   int
	Tempo  int
	Tracks []string

	Pitch    tracks.Range
	Duration tracks.Range
	Velocity tracks.Range
	Start    tracks.Range
	Quarter  int

	Kick  int
	Snare int
	HiHat int
}

// Builder builds prompts for the song generator
type Builder struct {
	loader      *Loader
	instruction *template.Template
}

// NewPromptBuilder creates a new prompt builder
func NewPromptBuilder() *Builder {
	loader := NewPromptLoader()
	return &Builder{
		loader:      loader,
		instruction: template.Must(template.New("instruction").Parse(loader.GetInstructionTemplate())),
	}
}

// BuildSystemPrompt returns the system prompt sent with every request
func (b *Builder) BuildSystemPrompt() string {
	return b.loader.GetSystemPrompt()
}

// BuildInstruction renders the user instruction for a category prompt, mood
// and tempo. A non-positive tempo means midi.DefaultTempo.
func (b *Builder) BuildInstruction(categoryPrompt, mood string, tempo int) (string, error) {
	if tempo <= 0 {
		tempo = midi.DefaultTempo
	}
	data := InstructionData{
		Prompt:   categoryPrompt,
		Mood:     mood,
		Bars:     defaultBars,
		Tempo:    tempo,
		Tracks:   models.TrackNames,
		Pitch:    tracks.PitchRange,
		Duration: tracks.DurationRange,
		Velocity: tracks.VelocityRange,
		Start:    tracks.StartRange,
		Quarter:  midi.TicksPerQuarter,
		Kick:     drumKick,
		Snare:    drumSnare,
		HiHat:    drumHiHat,
	}

	var sb strings.Builder
	if err := b.instruction.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render instruction: %w", err)
	}

	// The template is laid out on several lines for readability; the model gets one paragraph
	return strings.Join(strings.Fields(sb.String()), " "), nil
}
