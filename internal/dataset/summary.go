package dataset

import (
	"fmt"
	"time"

	"github.com/Conceptual-Machines/magda-midigen/internal/ledger"
)

// Summary is the bookkeeping of one run
type Summary struct {
	RunID       string
	Expected    int // categories × songs per category
	Produced    int
	Skipped     int // generation exhausted its retries
	Failed      int // generated but could not be written
	Resumed     int // already on disk
	Directories int
	Duration    time.Duration
	Cancelled   bool
}

// Attempted is the number of items handed to the generator
func (s *Summary) Attempted() int {
	return s.Produced + s.Skipped + s.Failed
}

// Totals converts the summary for the ledger
func (s *Summary) Totals() ledger.Totals {
	return ledger.Totals{
		Expected: s.Expected,
		Produced: s.Produced,
		Skipped:  s.Skipped,
		Failed:   s.Failed,
		Resumed:  s.Resumed,
	}
}

func (s *Summary) String() string {
	msg := fmt.Sprintf("Attempted %d of %d expected songs: generated %d MIDI files, skipped %d due to generation failures, %d failed to write",
		s.Attempted(), s.Expected, s.Produced, s.Skipped, s.Failed)
	if s.Resumed > 0 {
		msg += fmt.Sprintf(", %d already present", s.Resumed)
	}
	if s.Cancelled {
		msg += " (interrupted)"
	}
	return msg
}
