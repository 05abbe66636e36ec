package tracks

import "fmt"

const maxPreviewChars = 200

// DecodeError reports oracle output that could not be parsed as JSON
type DecodeError struct {
	Preview string // leading part of the offending text
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode oracle output: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// SchemaError reports a decoded structure that does not have the track set shape
type SchemaError struct {
	Track  string // empty when the problem is at the top level
	Event  int    // -1 when the problem is not tied to one event
	Reason string
}

func (e *SchemaError) Error() string {
	switch {
	case e.Track == "":
		return "schema: " + e.Reason
	case e.Event < 0:
		return fmt.Sprintf("schema: track %q: %s", e.Track, e.Reason)
	default:
		return fmt.Sprintf("schema: track %q event %d: %s", e.Track, e.Event, e.Reason)
	}
}

func preview(s string) string {
	if len(s) <= maxPreviewChars {
		return s
	}
	return s[:maxPreviewChars] + "..."
}
