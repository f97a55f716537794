package sequencer

import (
	"errors"
	"fmt"
	"io"

	"github.com/divVerent/midisequencer/internal/source"
)

const (
	headerLength = 6

	statusSysEx    = 0xF0
	statusSysExEnd = 0xF7
	statusMeta     = 0xFF

	metaCopyright   = 0x02
	metaTitle       = 0x03
	metaLyric       = 0x05
	metaPort        = 0x21
	metaEndOfTrack  = 0x2F
	metaTempo       = 0x51
	metaSMPTEOffset = 0x54

	// maxVLQBytes is the longest variable-length quantity a MIDI file may contain.
	maxVLQBytes = 4

	// maxPayloadPrealloc caps the buffer allocated up front for a sysex or meta payload.
	maxPayloadPrealloc = 4096
)

var (
	headerMagic = [4]byte{'M', 'T', 'h', 'd'}
	trackMagic  = [4]byte{'M', 'T', 'r', 'k'}
)

// timeDivision is the division field of the file header.
type timeDivision uint16

func (d timeDivision) smpte() bool {
	return d&0x8000 != 0
}

// framesPerSecond decodes the negative SMPTE format byte.
func (d timeDivision) framesPerSecond() float64 {
	fps := -int8(d >> 8)
	if fps == 29 {
		return 29.97
	}
	return float64(fps)
}

func (d timeDivision) ticksPerFrame() int {
	return int(d & 0xFF)
}

func (d timeDivision) ticksPerQuarterNote() int {
	return int(d)
}

func (d timeDivision) valid() bool {
	if d.smpte() {
		return d.framesPerSecond() > 0 && d.ticksPerFrame() > 0
	}
	return d.ticksPerQuarterNote() > 0
}

// smpteRates maps the rate code in the top bits of the SMPTE offset hour byte.
var smpteRates = [...]float64{24, 25, 29.97, 30}

// decode parses a complete MIDI file and returns its timeline with times in seconds.
func decode(src source.ByteSource) ([]Event, [][]byte, error) {
	var magic [4]byte
	for i := range magic {
		b, err := src.Next()
		if err != nil {
			// Too short to be a MIDI file.
			return nil, nil, fmt.Errorf("reading header magic: %w", ErrUnsupportedFormat)
		}
		magic[i] = b
	}
	if magic != headerMagic {
		return nil, nil, fmt.Errorf("header magic %q: %w", magic[:], ErrUnsupportedFormat)
	}

	length, err := readUint(src, 4)
	if err != nil {
		return nil, nil, fmt.Errorf("reading header length: %w", err)
	}
	if length != headerLength {
		return nil, nil, fmt.Errorf("header length %d: %w", length, ErrMalformedHeader)
	}
	format, err := readUint(src, 2)
	if err != nil {
		return nil, nil, fmt.Errorf("reading format: %w", err)
	}
	if format != 0 && format != 1 {
		return nil, nil, fmt.Errorf("format type %d: %w", format, ErrMalformedHeader)
	}
	numTracks, err := readUint(src, 2)
	if err != nil {
		return nil, nil, fmt.Errorf("reading track count: %w", err)
	}
	div, err := readUint(src, 2)
	if err != nil {
		return nil, nil, fmt.Errorf("reading division: %w", err)
	}
	division := timeDivision(div)
	if !division.valid() {
		return nil, nil, fmt.Errorf("division 0x%04X: %w", div, ErrMalformedHeader)
	}

	var long [][]byte
	tracks := make([][]Event, 0, numTracks)
	for track := 0; track < int(numTracks); track++ {
		events, err := decodeTrack(src, track, division, &long)
		if err != nil {
			return nil, nil, fmt.Errorf("track %d: %w", track, err)
		}
		tracks = append(tracks, events)
	}

	timeline := mergeTracks(tracks)
	if !division.smpte() {
		applyTempoMap(timeline, long, division.ticksPerQuarterNote())
	}
	return timeline, long, nil
}

// readUint reads a big-endian unsigned integer of n bytes.
func readUint(src source.ByteSource, n int) (uint32, error) {
	var v uint32
	for i := 0; i < n; i++ {
		b, err := src.Next()
		if err != nil {
			return 0, eofToTruncated(err)
		}
		v = v<<8 | uint32(b)
	}
	return v, nil
}

func eofToTruncated(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrTruncatedInput
	}
	return err
}

// trackReader reads the bytes of one track chunk and refuses to read past it.
type trackReader struct {
	src       source.ByteSource
	remaining uint32
}

func (r *trackReader) next() (byte, error) {
	if r.remaining == 0 {
		return 0, fmt.Errorf("read past end of track chunk: %w", ErrTruncatedInput)
	}
	b, err := r.src.Next()
	if err != nil {
		return 0, eofToTruncated(err)
	}
	r.remaining--
	return b, nil
}

// data reads a data byte of a channel message.
func (r *trackReader) data() (byte, error) {
	b, err := r.next()
	if err != nil {
		return 0, err
	}
	if b&0x80 != 0 {
		return 0, fmt.Errorf("status byte 0x%02X in place of data byte: %w", b, ErrMalformedEvent)
	}
	return b, nil
}

// vlq reads a variable-length quantity.
func (r *trackReader) vlq() (uint32, error) {
	var v uint32
	for i := 0; i < maxVLQBytes; i++ {
		b, err := r.next()
		if err != nil {
			return 0, err
		}
		v = v<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, fmt.Errorf("variable-length quantity longer than %d bytes: %w", maxVLQBytes, ErrMalformedEvent)
}

// payload reads n bytes, returned after the given prefix byte.
func (r *trackReader) payload(prefix byte, n uint32) ([]byte, error) {
	if n > r.remaining {
		return nil, fmt.Errorf("payload of %d bytes exceeds the %d left in the track: %w", n, r.remaining, ErrTruncatedInput)
	}
	// The declared track length is untrusted too, so memory only grows with
	// the bytes actually read.
	buf := make([]byte, 1, min(n+1, maxPayloadPrealloc))
	buf[0] = prefix
	for i := uint32(0); i < n; i++ {
		b, err := r.next()
		if err != nil {
			return nil, err
		}
		buf = append(buf, b)
	}
	return buf, nil
}

func (r *trackReader) skip(n uint32) error {
	if n > r.remaining {
		return fmt.Errorf("skipping %d bytes exceeds the %d left in the track: %w", n, r.remaining, ErrTruncatedInput)
	}
	for i := uint32(0); i < n; i++ {
		if _, err := r.next(); err != nil {
			return err
		}
	}
	return nil
}

// decodeTrack decodes one track chunk. Sysex and meta payloads are appended to long.
// Event times are absolute ticks, or seconds for SMPTE timed files.
func decodeTrack(src source.ByteSource, track int, division timeDivision, long *[][]byte) ([]Event, error) {
	var magic [4]byte
	for i := range magic {
		b, err := src.Next()
		if err != nil {
			return nil, fmt.Errorf("reading track magic: %w", eofToTruncated(err))
		}
		magic[i] = b
	}
	if magic != trackMagic {
		return nil, fmt.Errorf("track magic %q: %w", magic[:], ErrMalformedHeader)
	}
	length, err := readUint(src, 4)
	if err != nil {
		return nil, fmt.Errorf("reading track length: %w", err)
	}
	r := &trackReader{src: src, remaining: length}

	var (
		events        []Event
		tick          uint64
		runningStatus byte
		port          int
		offset        float64
	)
	timeAt := func(tick uint64) float64 {
		if division.smpte() {
			return float64(tick)/(float64(division.ticksPerFrame())*division.framesPerSecond()) + offset
		}
		return float64(tick)
	}

	for r.remaining > 0 {
		delta, err := r.vlq()
		if err != nil {
			return nil, fmt.Errorf("event %d: reading delta time: %w", len(events), err)
		}
		tick += uint64(delta)
		ev := Event{
			Time:  timeAt(tick),
			Port:  port,
			Track: track,
		}
		status, err := r.next()
		if err != nil {
			return nil, fmt.Errorf("event %d: reading status: %w", len(events), err)
		}
		switch status {
		case statusSysEx:
			n, err := r.vlq()
			if err != nil {
				return nil, fmt.Errorf("event %d: reading sysex length: %w", len(events), err)
			}
			data, err := r.payload(statusSysEx, n)
			if err != nil {
				return nil, fmt.Errorf("event %d: reading sysex: %w", len(events), err)
			}
			if data[len(data)-1] != statusSysExEnd {
				return nil, fmt.Errorf("event %d: missing sysex terminator: %w", len(events), ErrMalformedEvent)
			}
			ev.Payload = Payload{Kind: KindSysEx, Index: len(*long)}
			*long = append(*long, data)
			events = append(events, ev)
		case statusSysExEnd:
			// Escaped and continued sysex messages are not supported and are
			// dropped after consuming their bytes.
			n, err := r.vlq()
			if err != nil {
				return nil, fmt.Errorf("event %d: reading escaped sysex length: %w", len(events), err)
			}
			if err := r.skip(n); err != nil {
				return nil, fmt.Errorf("event %d: skipping escaped sysex: %w", len(events), err)
			}
		case statusMeta:
			typ, err := r.next()
			if err != nil {
				return nil, fmt.Errorf("event %d: reading meta type: %w", len(events), err)
			}
			n, err := r.vlq()
			if err != nil {
				return nil, fmt.Errorf("event %d: reading meta length: %w", len(events), err)
			}
			data, err := r.payload(typ, n)
			if err != nil {
				return nil, fmt.Errorf("event %d: reading meta 0x%02X: %w", len(events), typ, err)
			}
			ev.Payload = Payload{Kind: KindMeta, Index: len(*long)}
			*long = append(*long, data)
			events = append(events, ev)
			switch typ {
			case metaPort:
				if n == 1 {
					port = int(data[1])
				}
			case metaEndOfTrack:
				// Whatever follows is padding.
				if err := r.skip(r.remaining); err != nil {
					return nil, fmt.Errorf("skipping track padding: %w", err)
				}
				return events, nil
			case metaSMPTEOffset:
				if n != 5 {
					return nil, fmt.Errorf("event %d: SMPTE offset of length %d: %w", len(events)-1, n, ErrMalformedEvent)
				}
				if tick == 0 && division.smpte() {
					offset, err = smpteOffset(data[1:])
					if err != nil {
						return nil, fmt.Errorf("event %d: %w", len(events)-1, err)
					}
				}
			}
		default:
			var msg [3]byte
			i := 1
			if status&0x80 != 0 {
				runningStatus = status
			} else if runningStatus == 0 {
				return nil, fmt.Errorf("event %d: running status without a previous status byte: %w", len(events), ErrMalformedEvent)
			}
			n := dataLength(runningStatus)
			if n == 0 {
				return nil, fmt.Errorf("event %d: status 0x%02X: %w", len(events), runningStatus, ErrMalformedEvent)
			}
			msg[0] = runningStatus
			if status&0x80 == 0 {
				// Running status: the byte just read is the first data byte.
				msg[1] = status
				i = 2
			}
			for ; i <= n; i++ {
				msg[i], err = r.data()
				if err != nil {
					return nil, fmt.Errorf("event %d: reading data: %w", len(events), err)
				}
			}
			ev.Payload = Payload{Kind: KindShort, Msg: msg, Len: uint8(n + 1)}
			events = append(events, ev)
		}
	}
	// The chunk ended without an end of track event.
	return events, nil
}

// dataLength returns the number of data bytes following a channel message
// status, or 0 if status is not a channel message.
func dataLength(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 1
	case 0x80, 0x90, 0xA0, 0xB0, 0xE0:
		return 2
	default:
		return 0
	}
}

// smpteOffset decodes the hour, minute, second, frame and subframe of an
// SMPTE offset meta event into seconds.
func smpteOffset(data []byte) (float64, error) {
	hour, minute, sec, frame, subframe := data[0], data[1], data[2], data[3], data[4]
	rate := int(hour >> 5)
	if rate >= len(smpteRates) {
		return 0, fmt.Errorf("SMPTE rate code %d: %w", rate, ErrUnsupportedFrameRate)
	}
	fps := smpteRates[rate]
	return float64(hour&0x1F)*3600 + float64(minute)*60 + float64(sec) + (float64(frame)+float64(subframe)/100)/fps, nil
}
