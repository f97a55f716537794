package sequencer

// defaultTempo is 120 bpm, in microseconds per quarter note.
const defaultTempo = 500000

// applyTempoMap converts the tick times of a merged timeline to seconds.
// A tempo change applies from its own position onwards.
func applyTempoMap(events []Event, long [][]byte, division int) {
	tempo := uint32(defaultTempo)
	var tickBase, timeBase float64
	for i := range events {
		ev := &events[i]
		tick := ev.Time
		ev.Time = timeBase + (tick-tickBase)*float64(tempo)/1000000.0/float64(division)
		if ev.Payload.Kind != KindMeta {
			continue
		}
		data := long[ev.Payload.Index]
		if len(data) != 4 || data[0] != metaTempo {
			continue
		}
		tempo = uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
		tickBase = tick
		timeBase = ev.Time
	}
}
