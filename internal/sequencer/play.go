package sequencer

import (
	"gitlab.com/gomidi/midi/v2"
)

// Play dispatches all events before now that have not been dispatched yet.
//
// If now is not after the last dispatched event, playback restarts from the
// beginning, and the sink is reset before the first event is dispatched again.
// Play does not allocate.
func (s *Sequencer) Play(now float64, sink Sink) {
	if s.pos > 0 && s.last >= now {
		s.Rewind()
	}
	if s.pos == 0 && len(s.timeline) > 0 && s.timeline[0].Time < now {
		sink.Reset()
	}
	for s.pos < len(s.timeline) {
		ev := &s.timeline[s.pos]
		if ev.Time >= now {
			break
		}
		s.pos++
		s.last = ev.Time
		switch ev.Payload.Kind {
		case KindSysEx:
			sink.SysExMessage(ev.Port, s.long[ev.Payload.Index])
		case KindMeta:
			data := s.long[ev.Payload.Index]
			sink.MetaEvent(data[0], data[1:])
		default:
			sink.ShortMessage(ev.Port, midi.Message(ev.Payload.Msg[:ev.Payload.Len]))
		}
	}
}

// Done returns whether all events have been dispatched.
func (s *Sequencer) Done() bool {
	return s.pos >= len(s.timeline)
}
