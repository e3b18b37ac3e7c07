package transition

import (
	"errors"
	"fmt"
)

// State is a step of the boot handoff.
type State int

const (
	Init State = iota
	CapabilitiesResolved
	ImageLoaded
	MapSnapshotted
	BootServicesSurrendered
	ControlTransferred
	Aborted
)

var stateNames = [...]string{
	"Init",
	"CapabilitiesResolved",
	"ImageLoaded",
	"MapSnapshotted",
	"BootServicesSurrendered",
	"ControlTransferred",
	"Aborted",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == ControlTransferred || s == Aborted
}

// ErrIllegalTransition is returned for a move the state machine forbids.
var ErrIllegalTransition = errors.New("illegal state transition")

// edges lists the legal forward moves. Aborted is reachable from every
// non-terminal state and is not repeated here.
var edges = map[State][]State{
	Init:                    {CapabilitiesResolved},
	CapabilitiesResolved:    {ImageLoaded},
	ImageLoaded:             {MapSnapshotted},
	MapSnapshotted:          {BootServicesSurrendered, ImageLoaded},
	BootServicesSurrendered: {ControlTransferred},
}

func legal(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == Aborted {
		return true
	}
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition is one recorded state change.
type Transition struct {
	From    State
	To      State
	Attempt int
	Err     error
}

func (t Transition) String() string {
	s := fmt.Sprintf("%s -> %s", t.From, t.To)
	if t.Attempt > 0 {
		s += fmt.Sprintf(" (attempt %d)", t.Attempt)
	}
	if t.Err != nil {
		s += ": " + t.Err.Error()
	}
	return s
}
