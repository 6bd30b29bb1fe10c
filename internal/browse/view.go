package browse

import "fmt"

// State is the readiness of a view.
type State int

const (
	// StateIdle means nothing has been navigated to yet.
	StateIdle State = iota

	// StateLoading means a fetch cycle is in flight. Nothing is rendered.
	StateLoading

	// StateReady means every input arrived and the view is complete.
	StateReady

	// StateUnavailable means the last fetch cycle failed.
	StateUnavailable
)

var stateNames = [...]string{"idle", "loading", "ready", "unavailable"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Kind distinguishes the two views.
type Kind int

const (
	KindNone Kind = iota
	KindList
	KindDetail
)

func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindDetail:
		return "detail"
	}
	return "none"
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// View is what a client currently sees. Exactly one of List and Detail is
// set when State is StateReady.
type View struct {
	Kind   Kind        `json:"kind"`
	State  State       `json:"state"`
	ID     string      `json:"id,omitempty"`
	Err    string      `json:"error,omitempty"`
	List   *ListView   `json:"-"`
	Detail *DetailView `json:"-"`
}
