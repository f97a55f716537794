package output

import (
	"cmp"
	"slices"

	"gitlab.com/gomidi/midi/v2"
)

type key struct {
	port     int
	ch, note uint8
}

func compareKeys(a, b key) int {
	if c := cmp.Compare(a.port, b.port); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ch, b.ch); c != 0 {
		return c
	}
	return cmp.Compare(a.note, b.note)
}

// noteTracker remembers which notes are sounding on which port.
type noteTracker struct {
	activeNotes map[key]struct{}
}

func newNoteTracker() *noteTracker {
	return &noteTracker{
		activeNotes: map[key]struct{}{},
	}
}

func (t *noteTracker) Playing() bool {
	return len(t.activeNotes) > 0
}

func (t *noteTracker) Handle(port int, msg midi.Message) {
	var ch, note, velocity uint8
	if msg.GetNoteStart(&ch, &note, &velocity) {
		t.activeNotes[key{port, ch, note}] = struct{}{}
		return
	}
	if msg.GetNoteEnd(&ch, &note) {
		delete(t.activeNotes, key{port, ch, note})
	}
}

// Sounding returns the sounding notes in a stable order.
func (t *noteTracker) Sounding() []key {
	keys := make([]key, 0, len(t.activeNotes))
	for k := range t.activeNotes {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

func (t *noteTracker) Clear() {
	clear(t.activeNotes)
}
