package output

import (
	"errors"
	"log"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/divVerent/midisequencer/internal/sequencer"
)

// Controllers sent to every channel on reset.
const (
	ccAllSoundOff         = 120
	ccResetAllControllers = 121
	ccAllNotesOff         = 123
	numChannels           = 16
)

// Port sends events to MIDI output ports.
//
// MIDI port i of the sequence goes to the i-th output; ports without an
// output of their own go to the first one.
type Port struct {
	outs    []drivers.Out
	tracker *noteTracker
}

var _ sequencer.Sink = (*Port)(nil)

// NewPort returns a sink writing to the given, already opened, outputs.
func NewPort(outs ...drivers.Out) (*Port, error) {
	if len(outs) == 0 {
		return nil, errors.New("no output port")
	}
	return &Port{
		outs:    outs,
		tracker: newNoteTracker(),
	}, nil
}

func (p *Port) out(port int) drivers.Out {
	if port >= 0 && port < len(p.outs) {
		return p.outs[port]
	}
	return p.outs[0]
}

func (p *Port) send(out drivers.Out, msg midi.Message) {
	err := out.Send(msg)
	if err != nil {
		log.Printf("Failed to send %v to %v: %v.", msg, out, err)
	}
}

// Playing returns whether any note is sounding.
func (p *Port) Playing() bool {
	return p.tracker.Playing()
}

// Reset turns off all sounding notes, then silences and resets all channels.
func (p *Port) Reset() {
	for _, k := range p.tracker.Sounding() {
		p.send(p.out(k.port), midi.NoteOff(k.ch, k.note))
	}
	p.tracker.Clear()
	for _, out := range p.outs {
		for ch := uint8(0); ch < numChannels; ch++ {
			p.send(out, midi.ControlChange(ch, ccAllSoundOff, 0))
			p.send(out, midi.ControlChange(ch, ccAllNotesOff, 0))
			p.send(out, midi.ControlChange(ch, ccResetAllControllers, 0))
		}
	}
}

func (p *Port) ShortMessage(port int, msg midi.Message) {
	p.tracker.Handle(port, msg)
	p.send(p.out(port), msg)
}

func (p *Port) SysExMessage(port int, data []byte) {
	p.send(p.out(port), data)
}

// MetaEvent does nothing; meta events are not sent to MIDI ports.
func (p *Port) MetaEvent(typ byte, data []byte) {
}

// Close closes all outputs.
func (p *Port) Close() error {
	var errs []error
	for _, out := range p.outs {
		if !out.IsOpen() {
			continue
		}
		errs = append(errs, out.Close())
	}
	return errors.Join(errs...)
}
