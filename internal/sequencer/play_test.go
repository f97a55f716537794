package sequencer

import (
	"fmt"
	"testing"
)

// timelineCalls returns the calls a full playback of s is expected to make, without resets.
func timelineCalls(s *Sequencer) []string {
	var calls []string
	s.ForEachEvent(func(ev Event, data []byte) error {
		switch ev.Payload.Kind {
		case KindShort:
			calls = append(calls, call{kind: "short", port: ev.Port, data: string(data)}.String())
		case KindSysEx:
			calls = append(calls, call{kind: "sysex", port: ev.Port, data: string(data)}.String())
		case KindMeta:
			calls = append(calls, call{kind: "meta", typ: data[0], data: string(data[1:])}.String())
		}
		return nil
	})
	return calls
}

func (r *recordSink) strings() []string {
	var out []string
	for _, c := range r.calls {
		out = append(out, c.String())
	}
	return out
}

func TestPlayDispatchesEachEventOnce(t *testing.T) {
	for _, step := range []float64{0.01, 0.1, 0.5, 0.75, 3} {
		t.Run(fmt.Sprint(step), func(t *testing.T) {
			s := mustLoad(t, exampleFile)
			sink := &recordSink{}
			for now := step; now < 3+step; now += step {
				s.Play(now, sink)
			}
			got := sink.strings()
			want := append([]string{call{kind: "reset"}.String()}, timelineCalls(s)...)
			if fmt.Sprint(got) != fmt.Sprint(want) {
				t.Errorf("got\n%v\nwant\n%v", got, want)
			}
			if !s.Done() {
				t.Errorf("not done after playing everything")
			}
		})
	}
}

func TestPlaySameTimeIsIdempotent(t *testing.T) {
	s := mustLoad(t, exampleFile)
	sink := &recordSink{}
	s.Play(1, sink)
	n := len(sink.calls)
	// Events at exactly 1 are not due yet.
	if n != 9 {
		t.Errorf("got %d calls, want 9", n)
	}
	for i := 0; i < 3; i++ {
		s.Play(1, sink)
	}
	if len(sink.calls) != n {
		t.Errorf("repeated Play dispatched %v", sink.calls[n:])
	}
}

func TestPlayRewind(t *testing.T) {
	for _, tc := range []struct {
		name   string
		rewind float64
		want   int
	}{
		{"before last event", 0.75, 8},
		{"at last event", 1, 8},
		{"to start", 0.25, 7},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := mustLoad(t, exampleFile)
			sink := &recordSink{}
			s.Play(1.5, sink)
			sink.calls = nil
			s.Play(tc.rewind, sink)
			if sink.count("reset") != 1 || sink.calls[0].kind != "reset" {
				t.Fatalf("got calls %v, want one reset first", sink.calls)
			}
			if got := len(sink.calls) - 1; got != tc.want {
				t.Errorf("re-dispatched %d events, want %d", got, tc.want)
			}
			want := timelineCalls(s)[:tc.want]
			if fmt.Sprint(sink.strings()[1:]) != fmt.Sprint(want) {
				t.Errorf("got %v, want %v", sink.strings()[1:], want)
			}
		})
	}
}

func TestPlayRewindToZero(t *testing.T) {
	s := mustLoad(t, smfFile(0, 96, []byte{
		0x60, 0x90, 60, 100, // 0.5 s
		0x60, 0x80, 60, 0, // 1 s
		0, 0xFF, 0x2F, 0,
	}))
	sink := &recordSink{}
	s.Play(0.25, sink)
	if len(sink.calls) != 0 {
		t.Errorf("before first event: got calls %v", sink.calls)
	}
	s.Play(2, sink)
	if sink.count("reset") != 1 || len(sink.calls) != 4 {
		t.Errorf("got calls %v", sink.calls)
	}
	sink.calls = nil
	// Going back before the first event rewinds without output; the reset
	// happens once playback passes the first event again.
	s.Play(0, sink)
	if len(sink.calls) != 0 || s.Pos() != 0 {
		t.Errorf("rewind to 0: got calls %v, pos %d", sink.calls, s.Pos())
	}
	s.Play(0.75, sink)
	if sink.count("reset") != 1 || sink.count("short") != 1 {
		t.Errorf("got calls %v", sink.calls)
	}
}

func TestRewind(t *testing.T) {
	s := mustLoad(t, exampleFile)
	sink := &recordSink{}
	s.Play(3, sink)
	s.Rewind()
	sink.calls = nil
	s.Play(3, sink)
	if sink.count("reset") != 1 || len(sink.calls) != s.Len()+1 {
		t.Errorf("got %d calls with %d resets", len(sink.calls), sink.count("reset"))
	}
}

func TestPlayEmpty(t *testing.T) {
	s := New()
	sink := &recordSink{}
	s.Play(1, sink)
	s.Play(0, sink)
	if len(sink.calls) != 0 {
		t.Errorf("got calls %v", sink.calls)
	}
	if !s.Done() {
		t.Errorf("empty sequencer not done")
	}
}

func TestPlayMetaEvents(t *testing.T) {
	s := mustLoad(t, smfFile(0, 96, []byte{
		0, 0xFF, 0x21, 1, 1,
		0, 0xFF, 0x01, 3, 'a', 'b', 'c',
		0, 0xF0, 1, 0xF7,
		0, 0xFF, 0x2F, 0,
	}))
	sink := &recordSink{}
	s.Play(1, sink)
	want := []string{
		call{kind: "reset"}.String(),
		call{kind: "meta", typ: 0x21, data: "\x01"}.String(),
		call{kind: "meta", typ: 0x01, data: "abc"}.String(),
		call{kind: "sysex", port: 1, data: "\xF0\xF7"}.String(),
		call{kind: "meta", typ: 0x2F}.String(),
	}
	if fmt.Sprint(sink.strings()) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", sink.strings(), want)
	}
}

func TestPlayDoesNotAllocate(t *testing.T) {
	s := mustLoad(t, exampleFile)
	sink := &countSink{}
	allocs := testing.AllocsPerRun(100, func() {
		s.Rewind()
		for now := 0.1; now < 3; now += 0.1 {
			s.Play(now, sink)
		}
	})
	if allocs != 0 {
		t.Errorf("Play allocated %v times per run", allocs)
	}
	if sink.events != 101*s.Len() {
		t.Errorf("dispatched %d events, want %d", sink.events, 101*s.Len())
	}
}
