package tracks

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/magda-midigen/internal/models"
)

// Range is an inclusive integer interval
type Range struct {
	Min int
	Max int
}

// Clamp saturates v into the range
func (r Range) Clamp(v int) int {
	return max(r.Min, min(r.Max, v))
}

// Field ranges enforced on every event
var (
	PitchRange    = Range{Min: 0, Max: 127}
	DurationRange = Range{Min: 240, Max: 960}
	VelocityRange = Range{Min: 0, Max: 127}
	StartRange    = Range{Min: 0, Max: 7680}

	// RhythmPitchRange is the General MIDI percussion key window used for the rhythm track
	RhythmPitchRange = Range{Min: 35, Max: 50}
)

const eventFields = 4

// Sanitize checks that raw has the track set shape and clamps every field
// into range. Out-of-range values are coerced, never rejected.
func Sanitize(raw any) (*models.TrackSet, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &SchemaError{Event: -1, Reason: fmt.Sprintf("expected an object, got %s", describe(raw))}
	}

	var missing []string
	for _, name := range models.TrackNames {
		if _, ok := obj[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Event: -1, Reason: "missing required tracks: " + strings.Join(missing, ", ")}
	}

	ts := &models.TrackSet{}
	for _, name := range models.TrackNames {
		events, err := sanitizeTrack(name, obj[name])
		if err != nil {
			return nil, err
		}
		ts.SetTrack(name, events)
	}

	return ts, nil
}

func sanitizeTrack(name string, value any) ([]models.Event, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, &SchemaError{Track: name, Event: -1, Reason: fmt.Sprintf("expected a list, got %s", describe(value))}
	}

	events := make([]models.Event, 0, len(items))
	for i, item := range items {
		fields, ok := item.([]any)
		if !ok || len(fields) != eventFields {
			return nil, &SchemaError{Track: name, Event: i, Reason: "expected [pitch, duration, velocity, start]"}
		}

		var ints [eventFields]int
		for j, f := range fields {
			n, err := toInt(f)
			if err != nil {
				return nil, &SchemaError{Track: name, Event: i, Reason: err.Error()}
			}
			ints[j] = n
		}

		event := models.Event{
			Pitch:    PitchRange.Clamp(ints[0]),
			Duration: DurationRange.Clamp(ints[1]),
			Velocity: VelocityRange.Clamp(ints[2]),
			Start:    StartRange.Clamp(ints[3]),
		}
		if name == models.TrackRhythm {
			event.Pitch = RhythmPitchRange.Clamp(event.Pitch)
		}
		events = append(events, event)
	}

	return events, nil
}

// toInt coerces a decoded JSON scalar to int. Fractions truncate toward zero
// and magnitudes beyond the int range saturate.
func toInt(v any) (int, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("value %q is not a number", n.String())
		}
		return floatToInt(f), nil
	case float64:
		return floatToInt(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
				return int(i), nil
			}
			return 0, fmt.Errorf("value %q is not an integer", n)
		}
		return int(i), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("value of type %s is not an integer", describe(v))
	}
}

func floatToInt(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	default:
		return int(math.Trunc(f))
	}
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "list"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, int, int64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
