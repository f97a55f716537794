package output

import (
	"fmt"
	"io"

	"gitlab.com/gomidi/midi/v2"

	"github.com/divVerent/midisequencer/internal/sequencer"
)

var metaNames = map[byte]string{
	0x00: "sequence number",
	0x01: "text",
	0x02: "copyright",
	0x03: "track name",
	0x04: "instrument",
	0x05: "lyric",
	0x06: "marker",
	0x07: "cue point",
	0x20: "channel prefix",
	0x21: "port",
	0x2F: "end of track",
	0x51: "tempo",
	0x54: "SMPTE offset",
	0x58: "time signature",
	0x59: "key signature",
	0x7F: "sequencer specific",
}

// DescribeMeta returns a human readable form of a meta event.
func DescribeMeta(typ byte, data []byte) string {
	name, found := metaNames[typ]
	if !found {
		name = fmt.Sprintf("meta 0x%02X", typ)
	}
	switch {
	case typ >= 0x01 && typ <= 0x0F:
		return fmt.Sprintf("%s %q", name, data)
	case typ == 0x51 && len(data) == 3:
		tempo := int(data[0])<<16 | int(data[1])<<8 | int(data[2])
		if tempo == 0 {
			return fmt.Sprintf("%s 0 us", name)
		}
		return fmt.Sprintf("%s %d us (%.2f bpm)", name, tempo, 60000000.0/float64(tempo))
	case len(data) == 0:
		return name
	default:
		return fmt.Sprintf("%s % X", name, data)
	}
}

// Describe returns a human readable form of an event and its data, as
// returned by ForEachEvent.
func Describe(ev sequencer.Event, data []byte) string {
	prefix := fmt.Sprintf("%10.4f track %d port %d:", ev.Time, ev.Track, ev.Port)
	switch ev.Payload.Kind {
	case sequencer.KindSysEx:
		return fmt.Sprintf("%s sysex % X", prefix, data)
	case sequencer.KindMeta:
		return fmt.Sprintf("%s %s", prefix, DescribeMeta(data[0], data[1:]))
	default:
		return fmt.Sprintf("%s %v", prefix, midi.Message(data))
	}
}

// Dump writes one line per dispatched event.
type Dump struct {
	w io.Writer
}

var _ sequencer.Sink = (*Dump)(nil)

func NewDump(w io.Writer) *Dump {
	return &Dump{w: w}
}

func (d *Dump) Reset() {
	fmt.Fprintln(d.w, "reset")
}

func (d *Dump) ShortMessage(port int, msg midi.Message) {
	fmt.Fprintf(d.w, "port %d: %v\n", port, msg)
}

func (d *Dump) SysExMessage(port int, data []byte) {
	fmt.Fprintf(d.w, "port %d: sysex % X\n", port, data)
}

func (d *Dump) MetaEvent(typ byte, data []byte) {
	fmt.Fprintln(d.w, DescribeMeta(typ, data))
}
