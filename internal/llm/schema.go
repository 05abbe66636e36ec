package llm

const (
	// TrackSetSchemaName is the schema name sent with structured output requests
	TrackSetSchemaName = "track_set"

	eventTupleLength = 4
)

// trackSetTracks are the keys of the oracle output object, in encoding order
var trackSetTracks = []string{"melody", "chords", "bass", "rhythm"}

// TrackSetSchema returns the JSON schema for the four-track oracle output.
// Each event is a [pitch, duration, velocity, start] integer tuple.
func TrackSetSchema() *OutputSchema {
	event := map[string]any{
		"type":        "array",
		"description": "[pitch, duration, velocity, start] in MIDI note numbers and ticks",
		"items":       map[string]any{"type": "integer"},
		"minItems":    eventTupleLength,
		"maxItems":    eventTupleLength,
	}

	properties := make(map[string]any, len(trackSetTracks))
	for _, name := range trackSetTracks {
		properties[name] = map[string]any{
			"type":  "array",
			"items": event,
		}
	}

	return &OutputSchema{
		Name:        TrackSetSchemaName,
		Description: "Four-track note lists for one song",
		Schema: map[string]any{
			"type":                 "object",
			"properties":           properties,
			"required":             append([]string(nil), trackSetTracks...),
			"additionalProperties": false,
		},
	}
}
