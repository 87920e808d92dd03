package session

import (
	"errors"
	"fmt"
)

// State is the single authoritative recording state. Every command is
// gated on it; transitions that are not in the table are rejected.
type State string

const (
	StateIdle      State = "IDLE"
	StateRecording State = "RECORDING"
	StatePaused    State = "PAUSED"
)

// Command is a user-triggered state machine input.
type Command string

const (
	CommandStart  Command = "start"
	CommandStop   Command = "stop"
	CommandPause  Command = "pause"
	CommandResume Command = "resume"
)

// ErrInvalidTransition rejects commands that are not valid in the
// current state.
var ErrInvalidTransition = errors.New("invalid state transition")

// transitions is the full legal transition table. Idle starts to
// Recording, Recording and Paused toggle into each other, and both
// stop back to Idle. No transition skips a state.
var transitions = map[State]map[Command]State{
	StateIdle: {
		CommandStart: StateRecording,
	},
	StateRecording: {
		CommandStop:  StateIdle,
		CommandPause: StatePaused,
	},
	StatePaused: {
		CommandStop:   StateIdle,
		CommandResume: StateRecording,
	},
}

// Next resolves one transition or fails with ErrInvalidTransition.
func Next(from State, cmd Command) (State, error) {
	if to, ok := transitions[from][cmd]; ok {
		return to, nil
	}
	return from, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, cmd, from)
}
