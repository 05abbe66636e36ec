package generation

// State is a step of the per-item retry state machine
type State string

const (
	StateRequesting State = "requesting"
	StateDecoding   State = "decoding"
	StateValidating State = "validating"
	StateRetrying   State = "retrying"

	// terminal
	StateSucceeded State = "succeeded"
	StateExhausted State = "exhausted"
)

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateExhausted
}

// Transition describes one state change of an item
type Transition struct {
	Category string
	Index    int
	Attempt  int
	From     State
	To       State
	Err      error // failure that caused a move to Retrying or Exhausted
}
