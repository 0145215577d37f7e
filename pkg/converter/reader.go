package converter

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Chunk and message constants of the Standard MIDI File format
const (
	headerChunkID = "MThd"
	trackChunkID  = "MTrk"

	statusMeta     = 0xFF
	statusSysEx    = 0xF0
	statusSysExEsc = 0xF7

	metaTrackName  = 0x03
	metaLyric      = 0x05
	metaMarker     = 0x06
	metaEndOfTrack = 0x2F
	metaTempo      = 0x51
	metaTimeSig    = 0x58
	metaKeySig     = 0x59

	maxVLQBytes = 4
)

// ErrDecode is the sentinel wrapped by every DecodeError
var ErrDecode = errors.New("malformed MIDI data")

// DecodeError reports malformed SMF structure at a byte offset
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed MIDI data at byte %d: %s", e.Offset, e.Reason)
}

// Unwrap allows errors.Is(err, ErrDecode)
func (e *DecodeError) Unwrap() error {
	return ErrDecode
}

// smfHeader is the content of the MThd chunk
type smfHeader struct {
	Format     uint16
	TrackCount uint16
	Division   uint16
}

// byteReader walks a byte slice, remembering the absolute offset of its
// first byte so errors point into the original file.
type byteReader struct {
	data []byte
	pos  int
	base int
}

func (r *byteReader) offset() int {
	return r.base + r.pos
}

func (r *byteReader) remaining() int {
	return len(r.data) - r.pos
}

func (r *byteReader) fail(format string, args ...any) error {
	return &DecodeError{Offset: r.offset(), Reason: fmt.Sprintf(format, args...)}
}

func (r *byteReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, r.fail("unexpected end of data")
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *byteReader) peekByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, r.fail("unexpected end of data")
	}
	return r.data[r.pos], nil
}

func (r *byteReader) readN(n int) ([]byte, error) {
	if n < 0 || n > r.remaining() {
		return nil, r.fail("need %d bytes, have %d", n, r.remaining())
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *byteReader) readUint16() (uint16, error) {
	b, err := r.readN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *byteReader) readUint32() (uint32, error) {
	b, err := r.readN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// readVLQ reads a variable-length quantity of at most four bytes
func (r *byteReader) readVLQ() (uint32, error) {
	start := r.offset()
	var v uint32
	for i := 0; i < maxVLQBytes; i++ {
		b, err := r.readByte()
		if err != nil {
			return 0, &DecodeError{Offset: start, Reason: "truncated variable-length quantity"}
		}
		v = v<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, &DecodeError{Offset: start, Reason: "variable-length quantity longer than 4 bytes"}
}

// readChunk returns the chunk id and a reader over its body
func (r *byteReader) readChunk() (string, *byteReader, error) {
	start := r.offset()
	id, err := r.readN(4)
	if err != nil {
		return "", nil, &DecodeError{Offset: start, Reason: "truncated chunk header"}
	}
	length, err := r.readUint32()
	if err != nil {
		return "", nil, &DecodeError{Offset: start, Reason: "truncated chunk header"}
	}
	if int64(length) > int64(r.remaining()) {
		return "", nil, &DecodeError{
			Offset: start,
			Reason: fmt.Sprintf("chunk %q declares %d bytes, only %d remain", string(id), length, r.remaining()),
		}
	}
	body := &byteReader{data: r.data[r.pos : r.pos+int(length)], base: r.offset()}
	r.pos += int(length)
	return string(id), body, nil
}

// readHeader consumes the MThd chunk
func (r *byteReader) readHeader() (smfHeader, error) {
	var h smfHeader
	id, body, err := r.readChunk()
	if err != nil {
		return h, err
	}
	if id != headerChunkID {
		return h, &DecodeError{Offset: 0, Reason: fmt.Sprintf("expected %q header, got %q", headerChunkID, id)}
	}
	if body.remaining() < 6 {
		return h, body.fail("header chunk too short: %d bytes", body.remaining())
	}
	if h.Format, err = body.readUint16(); err != nil {
		return h, err
	}
	if h.TrackCount, err = body.readUint16(); err != nil {
		return h, err
	}
	if h.Division, err = body.readUint16(); err != nil {
		return h, err
	}
	if h.Format > 2 {
		return h, &DecodeError{Offset: 8, Reason: fmt.Sprintf("unknown SMF format %d", h.Format)}
	}
	if h.Division&0x8000 != 0 {
		return h, &DecodeError{Offset: 12, Reason: "SMPTE time division is not supported"}
	}
	if h.Division == 0 {
		return h, &DecodeError{Offset: 12, Reason: "ticks per quarter must be positive"}
	}
	return h, nil
}

// eventKind enumerates the messages the decoder acts on
type eventKind int

const (
	kindNoteOff eventKind = iota
	kindNoteOn
	kindPolyPressure
	kindControlChange
	kindProgramChange
	kindChannelPressure
	kindPitchBend
	kindMeta
	kindSysEx
	kindSystem
)

// rawEvent is one decoded track event with its payload left unvalidated
type rawEvent struct {
	kind    eventKind
	tick    int64
	offset  int
	channel uint8
	data1   uint8
	data2   uint8
	meta    uint8
	payload []byte
}

// eventReader iterates the events of one MTrk chunk, tracking running status
type eventReader struct {
	r       *byteReader
	tick    int64
	running byte
}

func newEventReader(body *byteReader) *eventReader {
	return &eventReader{r: body}
}

// next returns the following event, or ok=false once the chunk is exhausted
func (er *eventReader) next() (ev rawEvent, ok bool, err error) {
	r := er.r
	if r.remaining() == 0 {
		return ev, false, nil
	}
	delta, err := r.readVLQ()
	if err != nil {
		return ev, false, err
	}
	er.tick += int64(delta)
	if er.tick > int64(^uint32(0)>>1) {
		return ev, false, r.fail("tick %d overflows 32-bit time", er.tick)
	}
	ev.tick = er.tick
	ev.offset = r.offset()

	b, err := r.peekByte()
	if err != nil {
		return ev, false, err
	}
	status := b
	if b&0x80 != 0 {
		r.pos++
	} else {
		if er.running == 0 {
			return ev, false, r.fail("data byte 0x%02X without running status", b)
		}
		status = er.running
	}

	switch {
	case status == statusMeta:
		er.running = 0
		typ, err := r.readByte()
		if err != nil {
			return ev, false, err
		}
		n, err := r.readVLQ()
		if err != nil {
			return ev, false, err
		}
		payload, err := r.readN(int(n))
		if err != nil {
			return ev, false, err
		}
		ev.kind, ev.meta, ev.payload = kindMeta, typ, payload
	case status == statusSysEx || status == statusSysExEsc:
		er.running = 0
		n, err := r.readVLQ()
		if err != nil {
			return ev, false, err
		}
		payload, err := r.readN(int(n))
		if err != nil {
			return ev, false, err
		}
		ev.kind, ev.payload = kindSysEx, payload
	case status >= 0xF0:
		// system common and real-time bytes do not belong in files; skip
		// their fixed-size payloads
		er.running = 0
		ev.kind = kindSystem
		switch status {
		case 0xF1, 0xF3:
			_, err = r.readN(1)
		case 0xF2:
			_, err = r.readN(2)
		}
		if err != nil {
			return ev, false, err
		}
	default:
		er.running = status
		ev.channel = status & 0x0F
		ev.kind = channelKind(status)
		if ev.data1, err = r.readByte(); err != nil {
			return ev, false, err
		}
		if ev.kind != kindProgramChange && ev.kind != kindChannelPressure {
			if ev.data2, err = r.readByte(); err != nil {
				return ev, false, err
			}
		}
	}
	return ev, true, nil
}

func channelKind(status byte) eventKind {
	switch status & 0xF0 {
	case 0x80:
		return kindNoteOff
	case 0x90:
		return kindNoteOn
	case 0xA0:
		return kindPolyPressure
	case 0xB0:
		return kindControlChange
	case 0xC0:
		return kindProgramChange
	case 0xD0:
		return kindChannelPressure
	default:
		return kindPitchBend
	}
}
