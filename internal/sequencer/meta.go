package sequencer

// firstMeta returns the data of the first non-empty track 0 meta event of the given type.
func (s *Sequencer) firstMeta(typ byte) string {
	for i := range s.timeline {
		ev := &s.timeline[i]
		if ev.Track != 0 || ev.Payload.Kind != KindMeta {
			continue
		}
		data := s.long[ev.Payload.Index]
		if len(data) > 1 && data[0] == typ {
			return string(data[1:])
		}
	}
	return ""
}

// Title returns the first track name of track 0.
func (s *Sequencer) Title() string {
	return s.firstMeta(metaTitle)
}

// Copyright returns the first copyright notice of track 0.
func (s *Sequencer) Copyright() string {
	return s.firstMeta(metaCopyright)
}

// Song returns all lyrics of track 0, concatenated.
func (s *Sequencer) Song() string {
	var song []byte
	for i := range s.timeline {
		ev := &s.timeline[i]
		if ev.Track != 0 || ev.Payload.Kind != KindMeta {
			continue
		}
		data := s.long[ev.Payload.Index]
		if data[0] == metaLyric {
			song = append(song, data[1:]...)
		}
	}
	return string(song)
}

// NumPorts returns the number of output ports the sequence uses. It is at least 1.
func (s *Sequencer) NumPorts() int {
	maxPort := 0
	for i := range s.timeline {
		maxPort = max(maxPort, s.timeline[i].Port)
	}
	return maxPort + 1
}

// TotalTime returns the time of the last event in seconds.
func (s *Sequencer) TotalTime() float64 {
	if len(s.timeline) == 0 {
		return 0
	}
	return s.timeline[len(s.timeline)-1].Time
}
