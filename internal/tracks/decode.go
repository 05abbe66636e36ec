package tracks

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/Conceptual-Machines/magda-midigen/internal/models"
)

// Decode parses oracle text into a generic JSON value. Numbers are kept as
// json.Number so integer fields are not routed through float64.
func Decode(text string) (any, error) {
	cleaned := StripCodeFence(text)
	if cleaned == "" {
		return nil, &DecodeError{Err: errors.New("empty response")}
	}

	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, &DecodeError{Preview: preview(cleaned), Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &DecodeError{Preview: preview(cleaned), Err: errors.New("unexpected data after JSON value")}
	}

	return value, nil
}

// Parse decodes and sanitizes oracle text in one step
func Parse(text string) (*models.TrackSet, error) {
	raw, err := Decode(text)
	if err != nil {
		return nil, err
	}
	return Sanitize(raw)
}

// StripCodeFence removes a surrounding markdown code block, if any
func StripCodeFence(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
