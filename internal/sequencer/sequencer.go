package sequencer

import (
	"errors"

	"github.com/divVerent/midisequencer/internal/source"
)

// Kind says how an event's payload is stored.
type Kind uint8

const (
	// KindShort is a channel or system message held inline.
	KindShort Kind = iota
	// KindSysEx refers to a system exclusive message in the long payload table.
	KindSysEx
	// KindMeta refers to a meta event in the long payload table.
	KindMeta
)

func (k Kind) String() string {
	switch k {
	case KindShort:
		return "short"
	case KindSysEx:
		return "sysex"
	case KindMeta:
		return "meta"
	default:
		return "unknown"
	}
}

// Payload is either an inline short message or an index into the long payload table.
type Payload struct {
	Kind Kind

	// Msg and Len hold the message bytes of a KindShort payload.
	Msg [3]byte
	Len uint8

	// Index is the long payload table index of a KindSysEx or KindMeta payload.
	Index int
}

// Event is one decoded event of a MIDI file.
type Event struct {
	// Time is in seconds once loading has finished. While parsing a
	// tick-based file it temporarily holds the absolute tick.
	Time float64

	// Port is the output port, as set by the last MIDI port meta event of the track.
	Port int

	// Track is the index of the track the event came from.
	Track int

	Payload Payload
}

// Sequencer holds one loaded MIDI file and a playback cursor into it.
//
// Load is the only mutator of the loaded data; it must not run concurrently
// with Play or any accessor. Once loaded, the timeline is read-only and may be
// read by several goroutines at once, as long as only one calls Play.
type Sequencer struct {
	// timeline is sorted by Time; equal times keep file order.
	timeline []Event

	// long holds sysex messages (including the leading 0xF0) and meta events
	// (type byte followed by the data).
	long [][]byte

	// pos is the index of the next event to dispatch.
	pos int

	// last is the time of the event before pos. Only meaningful if pos > 0.
	last float64
}

func New() *Sequencer {
	return &Sequencer{}
}

// Clear drops the loaded sequence.
func (s *Sequencer) Clear() {
	s.timeline = nil
	s.long = nil
	s.Rewind()
}

// Rewind moves the cursor back to the start. The next Play that dispatches
// anything resets the sink first.
func (s *Sequencer) Rewind() {
	s.pos = 0
	s.last = 0
}

// Load replaces the current sequence by the one read from src.
// On failure the sequencer is left empty.
func (s *Sequencer) Load(src source.ByteSource) error {
	s.Clear()
	timeline, long, err := decode(src)
	if err != nil {
		return err
	}
	s.timeline = timeline
	s.long = long
	return nil
}

// LoadBytes loads a MIDI file held in memory.
func (s *Sequencer) LoadBytes(data []byte) error {
	return s.Load(source.NewMemory(data))
}

// Len returns the number of events.
func (s *Sequencer) Len() int {
	return len(s.timeline)
}

// Pos returns the number of events already dispatched since the last rewind.
func (s *Sequencer) Pos() int {
	return s.pos
}

// Data returns the bytes of an event: the message for short messages, the
// complete message for sysex, and the type byte followed by the data for meta
// events.
func (s *Sequencer) Data(ev *Event) []byte {
	if ev.Payload.Kind == KindShort {
		return ev.Payload.Msg[:ev.Payload.Len]
	}
	return s.long[ev.Payload.Index]
}

// StopIteration can be returned to return without failure.
var StopIteration = errors.New("ForEachEvent: StopIteration")

// ForEachEvent runs the given function for each event in timeline order.
func (s *Sequencer) ForEachEvent(yield func(ev Event, data []byte) error) error {
	for i := range s.timeline {
		ev := &s.timeline[i]
		err := yield(*ev, s.Data(ev))
		if errors.Is(err, StopIteration) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}
