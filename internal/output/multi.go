package output

import (
	"gitlab.com/gomidi/midi/v2"

	"github.com/divVerent/midisequencer/internal/sequencer"
)

// Multi forwards every call to all of its sinks, in order.
type Multi []sequencer.Sink

var _ sequencer.Sink = Multi(nil)

func (m Multi) Reset() {
	for _, s := range m {
		s.Reset()
	}
}

func (m Multi) ShortMessage(port int, msg midi.Message) {
	for _, s := range m {
		s.ShortMessage(port, msg)
	}
}

func (m Multi) SysExMessage(port int, data []byte) {
	for _, s := range m {
		s.SysExMessage(port, data)
	}
}

func (m Multi) MetaEvent(typ byte, data []byte) {
	for _, s := range m {
		s.MetaEvent(typ, data)
	}
}
