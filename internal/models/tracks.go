package models

// Track names as they appear in oracle output
const (
	TrackMelody = "melody"
	TrackChords = "chords"
	TrackBass   = "bass"
	TrackRhythm = "rhythm"
)

// TrackNames lists the required tracks in encoding order
var TrackNames = []string{TrackMelody, TrackChords, TrackBass, TrackRhythm}

// Event represents a single note with timing in ticks
type Event struct {
	Pitch    int `json:"pitch"`
	Duration int `json:"duration"`
	Velocity int `json:"velocity"`
	Start    int `json:"start"`
}

// TrackSet holds the four note lists of one generated piece
type TrackSet struct {
	Melody []Event `json:"melody"`
	Chords []Event `json:"chords"`
	Bass   []Event `json:"bass"`
	Rhythm []Event `json:"rhythm"`
}

// Track returns the events of the named track, or nil for unknown names
func (ts *TrackSet) Track(name string) []Event {
	switch name {
	case TrackMelody:
		return ts.Melody
	case TrackChords:
		return ts.Chords
	case TrackBass:
		return ts.Bass
	case TrackRhythm:
		return ts.Rhythm
	default:
		return nil
	}
}

// SetTrack replaces the events of the named track. Unknown names are ignored.
func (ts *TrackSet) SetTrack(name string, events []Event) {
	switch name {
	case TrackMelody:
		ts.Melody = events
	case TrackChords:
		ts.Chords = events
	case TrackBass:
		ts.Bass = events
	case TrackRhythm:
		ts.Rhythm = events
	}
}

// EventCount returns the number of events across all tracks
func (ts *TrackSet) EventCount() int {
	return len(ts.Melody) + len(ts.Chords) + len(ts.Bass) + len(ts.Rhythm)
}
