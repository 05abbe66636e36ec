package tracks

import (
	"errors"
	"testing"

	"github.com/Conceptual-Machines/magda-midigen/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{"melody": [[60, 480, 80, 0]], "chords": [[64, 960, 70, 0]], "bass": [[40, 480, 90, 0]], "rhythm": [[35, 240, 100, 0], [38, 240, 100, 240]]}`

func TestParse(t *testing.T) {
	ts, err := Parse(sampleResponse)
	require.NoError(t, err)
	assert.Equal(t, []models.Event{{Pitch: 60, Duration: 480, Velocity: 80, Start: 0}}, ts.Melody)
	assert.Len(t, ts.Rhythm, 2)
}

func TestParse_CodeFence(t *testing.T) {
	ts, err := Parse("```json\n" + sampleResponse + "\n```")
	require.NoError(t, err)
	assert.Equal(t, 5, ts.EventCount())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: "   "},
		{name: "prose", text: "Here is your song!"},
		{name: "python tuples", text: `{'melody': [(60, 480, 80, 0)]}`},
		{name: "truncated", text: `{"melody": [[60, 480, 80, 0]], "chords": [`},
		{name: "trailing text", text: sampleResponse + " Enjoy!"},
		{name: "two values", text: sampleResponse + sampleResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.text)
			require.Error(t, err)

			var decodeErr *DecodeError
			assert.True(t, errors.As(err, &decodeErr))
		})
	}
}

func TestParse_MissingBassIsSchemaError(t *testing.T) {
	_, err := Parse(`{"melody": [], "chords": [], "rhythm": []}`)
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Contains(t, schemaErr.Reason, "bass")

	var decodeErr *DecodeError
	assert.False(t, errors.As(err, &decodeErr))
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence(`  {"a":1}  `))
}
