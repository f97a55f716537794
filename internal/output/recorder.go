package output

import (
	"bytes"

	"gitlab.com/gomidi/midi/v2"

	"github.com/divVerent/midisequencer/internal/sequencer"
)

// Call is one recorded sink call.
type Call struct {
	Kind string // "reset", "short", "sysex" or "meta"
	Port int
	Type byte
	Data []byte
}

// Recorder keeps a copy of every call.
type Recorder struct {
	Calls []Call
}

var _ sequencer.Sink = (*Recorder)(nil)

func (r *Recorder) Reset() {
	r.Calls = append(r.Calls, Call{Kind: "reset"})
}

func (r *Recorder) ShortMessage(port int, msg midi.Message) {
	r.Calls = append(r.Calls, Call{Kind: "short", Port: port, Data: bytes.Clone(msg)})
}

func (r *Recorder) SysExMessage(port int, data []byte) {
	r.Calls = append(r.Calls, Call{Kind: "sysex", Port: port, Data: bytes.Clone(data)})
}

func (r *Recorder) MetaEvent(typ byte, data []byte) {
	r.Calls = append(r.Calls, Call{Kind: "meta", Type: typ, Data: bytes.Clone(data)})
}

// Count returns the number of calls of the given kind.
func (r *Recorder) Count(kind string) int {
	n := 0
	for _, c := range r.Calls {
		if c.Kind == kind {
			n++
		}
	}
	return n
}
