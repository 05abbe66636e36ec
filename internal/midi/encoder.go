package midi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/Conceptual-Machines/magda-midigen/internal/models"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	// TicksPerQuarter is the file resolution. Event times from the oracle are
	// expressed in these ticks.
	TicksPerQuarter = 480

	// DefaultTempo in beats per minute
	DefaultTempo = 120

	MelodicChannel    uint8 = 0
	PercussionChannel uint8 = 9

	// MinTempo is the slowest tempo whose micros per beat fit the 3-byte set-tempo field
	MinTempo = 4

	microsPerMinute  = 60_000_000
	maxMicrosPerBeat = 0xFFFFFF
)

// Programs maps the pitched tracks to General MIDI programs.
// The rhythm track is absent on purpose: channel 9 needs no program change.
var Programs = map[string]uint8{
	models.TrackMelody: 0,  // Acoustic Grand Piano
	models.TrackChords: 0,  // Acoustic Grand Piano
	models.TrackBass:   33, // Electric Bass (finger)
}

// Build assembles a format 1 SMF: a control track with tempo and time
// signature followed by one track per entry of models.TrackNames.
func Build(ts *models.TrackSet, tempo int) (*smf.SMF, error) {
	if ts == nil {
		return nil, &EncodeError{Op: "build", Err: errors.New("nil track set")}
	}
	if tempo <= 0 {
		return nil, &EncodeError{Op: "build", Err: fmt.Errorf("tempo must be positive, got %d", tempo)}
	}
	if microsPerMinute/tempo > maxMicrosPerBeat {
		return nil, &EncodeError{Op: "build", Err: fmt.Errorf("tempo %d is below the minimum of %d bpm", tempo, MinTempo)}
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var control smf.Track
	control.Add(0, tempoMessage(tempo))
	control.Add(0, smf.MetaTimeSig(4, 4, 24, 8))
	control.Close(0)
	if err := s.Add(control); err != nil {
		return nil, &EncodeError{Op: "build", Err: err}
	}

	for _, name := range models.TrackNames {
		if err := s.Add(buildTrack(name, ts.Track(name))); err != nil {
			return nil, &EncodeError{Op: "build", Err: fmt.Errorf("track %s: %w", name, err)}
		}
	}

	return s, nil
}

func buildTrack(name string, events []models.Event) smf.Track {
	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(name))

	channel := MelodicChannel
	if name == models.TrackRhythm {
		channel = PercussionChannel
	} else {
		tr.Add(0, gomidi.ProgramChange(channel, Programs[name]))
	}

	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	// Notes are written back to back. An event starting before the previous
	// note ended gets delta 0, which shifts it later than requested.
	current := 0
	for _, e := range sorted {
		delta := max(0, e.Start-current)
		tr.Add(uint32(delta), gomidi.NoteOn(channel, uint8(e.Pitch), uint8(e.Velocity)))
		tr.Add(uint32(e.Duration), gomidi.NoteOff(channel, uint8(e.Pitch)))
		current = e.Start + e.Duration
	}

	tr.Close(0)
	return tr
}

// tempoMessage builds the set-tempo meta event. Micros per beat use integer
// division so 120 bpm is exactly 500000.
func tempoMessage(bpm int) smf.Message {
	micros := uint32(microsPerMinute / bpm)
	return smf.Message([]byte{0xFF, 0x51, 0x03, byte(micros >> 16), byte(micros >> 8), byte(micros)})
}

// WriteTo encodes the track set and writes it to w
func WriteTo(w io.Writer, ts *models.TrackSet, tempo int) error {
	s, err := Build(ts, tempo)
	if err != nil {
		return err
	}
	if _, err := s.WriteTo(w); err != nil {
		return &EncodeError{Op: "write", Err: err}
	}
	return nil
}

// Encode returns the SMF bytes for the track set
func Encode(ts *models.TrackSet, tempo int) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteTo(&buf, ts, tempo); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes the track set to path. The file is written to a temporary
// name in the same directory and renamed into place, so path either holds a
// complete file or does not exist.
func WriteFile(path string, ts *models.TrackSet, tempo int) error {
	data, err := Encode(ts, tempo)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &EncodeError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &EncodeError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &EncodeError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return &EncodeError{Op: "rename", Path: path, Err: err}
	}

	return nil
}
