package midi

import "fmt"

// EncodeError reports a failure to build or persist a MIDI file
type EncodeError struct {
	Op   string // build, write, rename
	Path string // empty when not writing to disk
	Err  error
}

func (e *EncodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("midi %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("midi %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
