package sequencer

import (
	"gitlab.com/gomidi/midi/v2"
)

// Sink receives the events dispatched by Play.
//
// Slices passed to a Sink point into the loaded sequence and must not be
// modified or retained past the call.
type Sink interface {
	// Reset silences all output. Called once before replaying from the start.
	Reset()

	// ShortMessage delivers a channel or system message of up to 3 bytes.
	ShortMessage(port int, msg midi.Message)

	// SysExMessage delivers a complete system exclusive message, starting with
	// 0xF0 and ending with 0xF7.
	SysExMessage(port int, data []byte)

	// MetaEvent delivers a meta event. data excludes the type byte.
	MetaEvent(typ byte, data []byte)
}
