package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPromptBuilder(t *testing.T) {
	builder := NewPromptBuilder()
	require.NotNil(t, builder)
	assert.NotNil(t, builder.loader)
	assert.NotNil(t, builder.instruction)
}

func TestBuildSystemPrompt(t *testing.T) {
	system := NewPromptBuilder().BuildSystemPrompt()
	assert.Contains(t, system, "music generator")
	assert.Contains(t, system, "JSON")
	assert.Equal(t, strings.TrimSpace(system), system)
}

func TestBuildInstruction(t *testing.T) {
	instruction, err := NewPromptBuilder().BuildInstruction("Jazz song in Bebop style", "mysterious", 120)
	require.NoError(t, err)

	expected := []string{
		"8-bar 'Jazz song in Bebop style' with a mysterious mood",
		"'melody', 'chords', 'bass', 'rhythm'",
		"pitch (0-127)",
		"duration (240=8th, 480=quarter, 960=half)",
		"velocity (0-127)",
		"start_time (0-7680 ticks for 8 bars at 120 BPM)",
		"35=kick, 38=snare, 42=hi-hat",
		`{"melody": [[60, 480, 80, 0], ...]`,
		"Output ONLY a valid JSON object",
	}
	for _, want := range expected {
		assert.Contains(t, instruction, want)
	}

	assert.NotContains(t, instruction, "\n")
	assert.NotContains(t, instruction, "{{")
}

func TestBuildInstruction_Tempo(t *testing.T) {
	builder := NewPromptBuilder()

	instruction, err := builder.BuildInstruction("Pop song in Chill style", "calm", 90)
	require.NoError(t, err)
	assert.Contains(t, instruction, "for 8 bars at 90 BPM")
	assert.NotContains(t, instruction, "120 BPM")

	fallback, err := builder.BuildInstruction("Pop song in Chill style", "calm", 0)
	require.NoError(t, err)
	assert.Contains(t, fallback, "for 8 bars at 120 BPM")
}

func TestLoader(t *testing.T) {
	loader := NewPromptLoader()
	assert.NotEmpty(t, loader.GetSystemPrompt())
	assert.Contains(t, loader.GetInstructionTemplate(), "{{.Prompt}}")
}
