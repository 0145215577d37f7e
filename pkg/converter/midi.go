package converter

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"math/bits"
	"os"
	"slices"

	"github.com/james-see/midiscore/pkg/score"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// DrumChannel is the MIDI channel reserved for percussion
const DrumChannel = 9

// melodicChannels are picked for non-drum tracks by the count of tracks
// already emitted, drums included
var melodicChannels = [15]uint8{0, 1, 2, 3, 4, 5, 6, 7, 8, 10, 11, 12, 13, 14, 15}

// ParseOptions controls MIDI decoding
type ParseOptions struct {
	// Sanitize clamps out-of-range payload values instead of failing
	Sanitize bool
	// TextEncoding selects how meta text bytes are decoded
	TextEncoding string
}

// MIDIConverter handles MIDI file parsing and generation
type MIDIConverter struct {
	opts ParseOptions
}

// NewMIDIConverter creates a new MIDI converter
func NewMIDIConverter(opts ParseOptions) *MIDIConverter {
	return &MIDIConverter{opts: opts}
}

// ParseMIDIFile reads a MIDI file into a tick score
func (m *MIDIConverter) ParseMIDIFile(filename string) (*score.Score[score.Tick], error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return m.ParseMIDI(data)
}

// ParseMIDI decodes SMF bytes into a tick score
func (m *MIDIConverter) ParseMIDI(data []byte) (*score.Score[score.Tick], error) {
	return ParseMIDIWithOptions(data, m.opts)
}

// GenerateMIDI encodes a tick score as SMF bytes
func (m *MIDIConverter) GenerateMIDI(s *score.Score[score.Tick]) ([]byte, error) {
	return DumpMIDI(s)
}

// WriteMIDIFile writes a tick score to a MIDI file
func (m *MIDIConverter) WriteMIDIFile(s *score.Score[score.Tick], filename string) error {
	data, err := m.GenerateMIDI(s)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// ParseMIDI decodes SMF bytes in strict mode
func ParseMIDI(data []byte) (*score.Score[score.Tick], error) {
	return ParseMIDIWithOptions(data, ParseOptions{})
}

// ParseMIDIWithOptions decodes SMF bytes into a tick score
func ParseMIDIWithOptions(data []byte, opts ParseOptions) (*score.Score[score.Tick], error) {
	text, err := newTextDecoder(opts.TextEncoding)
	if err != nil {
		return nil, err
	}
	r := &byteReader{data: data}
	header, err := r.readHeader()
	if err != nil {
		return nil, err
	}
	s := score.New[score.Tick](int32(header.Division))

	// trailing bytes too short to hold a chunk header are ignored
	for r.remaining() >= 8 {
		id, body, err := r.readChunk()
		if err != nil {
			return nil, err
		}
		if id != trackChunkID {
			continue
		}
		d := newChunkDecoder(s, opts, text)
		if err := d.decode(body); err != nil {
			return nil, err
		}
	}

	score.SortByTime(s.TimeSignatures, func(e score.TimeSignature[score.Tick]) score.Tick { return e.Time })
	score.SortByTime(s.KeySignatures, func(e score.KeySignature[score.Tick]) score.Tick { return e.Time })
	score.SortByTime(s.Tempos, func(e score.Tempo[score.Tick]) score.Tick { return e.Time })
	score.SortByTime(s.Lyrics, func(e score.TextMeta[score.Tick]) score.Tick { return e.Time })
	score.SortByTime(s.Markers, func(e score.TextMeta[score.Tick]) score.Tick { return e.Time })
	return s, nil
}

type trackKey struct {
	channel uint8
	program uint8
}

type pendingNote struct {
	time     score.Tick
	velocity uint8
}

// chunkDecoder holds the per-chunk state: channel programs, pending note-on
// queues, open pedals and the tracks materialised so far
type chunkDecoder struct {
	s    *score.Score[score.Tick]
	opts ParseOptions
	text *textDecoder

	program   [16]uint8
	pending   map[uint16][]pendingNote
	pedalOpen [16]bool
	pedalFrom [16]score.Tick

	tracks           map[trackKey]*score.Track[score.Tick]
	stragglers       [16]*score.Track[score.Tick]
	stragglerProgram [16]uint8
	name             string
}

func newChunkDecoder(s *score.Score[score.Tick], opts ParseOptions, text *textDecoder) *chunkDecoder {
	return &chunkDecoder{
		s:       s,
		opts:    opts,
		text:    text,
		pending: make(map[uint16][]pendingNote),
		tracks:  make(map[trackKey]*score.Track[score.Tick]),
	}
}

func (d *chunkDecoder) decode(body *byteReader) error {
	events := newEventReader(body)
	for {
		ev, ok, err := events.next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if ev.kind == kindMeta && ev.meta == metaEndOfTrack {
			break
		}
		if err := d.handle(ev); err != nil {
			return err
		}
	}
	d.finish()
	return nil
}

// checkData validates a 7-bit payload byte
func (d *chunkDecoder) checkData(field string, v uint8, ev rawEvent) (uint8, error) {
	if v <= 127 {
		return v, nil
	}
	if d.opts.Sanitize {
		return 127, nil
	}
	return 0, fmt.Errorf("event at byte %d: %w", ev.offset,
		&score.RangeError{Field: field, Value: int(v), Min: 0, Max: 127})
}

// checkInt validates a wider payload value against [lo, hi]
func (d *chunkDecoder) checkInt(field string, v, lo, hi int, ev rawEvent) (int, error) {
	if v >= lo && v <= hi {
		return v, nil
	}
	if d.opts.Sanitize {
		return min(max(v, lo), hi), nil
	}
	return 0, fmt.Errorf("event at byte %d: %w", ev.offset,
		&score.RangeError{Field: field, Value: v, Min: lo, Max: hi})
}

func (d *chunkDecoder) handle(ev rawEvent) error {
	now := score.Tick(ev.tick)
	ch := ev.channel
	switch ev.kind {
	case kindNoteOn, kindNoteOff:
		pitch, err := d.checkData("pitch", ev.data1, ev)
		if err != nil {
			return err
		}
		velocity, err := d.checkData("velocity", ev.data2, ev)
		if err != nil {
			return err
		}
		key := uint16(ch)<<7 | uint16(pitch)
		if ev.kind == kindNoteOn && velocity > 0 {
			d.pending[key] = append(d.pending[key], pendingNote{time: now, velocity: velocity})
			return nil
		}
		queue := d.pending[key]
		if len(queue) == 0 || queue[0].time > now {
			// note-off without a matching note-on
			return nil
		}
		on := queue[0]
		d.pending[key] = queue[1:]
		t := d.route(ch, true)
		t.Notes = append(t.Notes, score.Note[score.Tick]{
			Time:     on.time,
			Duration: now - on.time,
			Pitch:    pitch,
			Velocity: on.velocity,
		})
	case kindControlChange:
		number, err := d.checkData("controller number", ev.data1, ev)
		if err != nil {
			return err
		}
		value, err := d.checkData("controller value", ev.data2, ev)
		if err != nil {
			return err
		}
		t := d.route(ch, false)
		t.Controls = append(t.Controls, score.ControlChange[score.Tick]{Time: now, Number: number, Value: value})
		if number == 64 {
			switch {
			case value >= 64 && !d.pedalOpen[ch]:
				d.pedalOpen[ch], d.pedalFrom[ch] = true, now
			case value < 64 && d.pedalOpen[ch]:
				d.pedalOpen[ch] = false
				t.Pedals = append(t.Pedals, score.Pedal[score.Tick]{Time: d.pedalFrom[ch], Duration: now - d.pedalFrom[ch]})
			}
		}
	case kindProgramChange:
		program, err := d.checkData("program", ev.data1, ev)
		if err != nil {
			return err
		}
		d.program[ch] = program
	case kindPitchBend:
		lsb, err := d.checkData("pitch bend", ev.data1, ev)
		if err != nil {
			return err
		}
		msb, err := d.checkData("pitch bend", ev.data2, ev)
		if err != nil {
			return err
		}
		value := (int(msb)<<7 | int(lsb)) - 8192
		t := d.route(ch, false)
		t.PitchBends = append(t.PitchBends, score.PitchBend[score.Tick]{Time: now, Value: int16(value)})
	case kindMeta:
		return d.handleMeta(ev, now)
	case kindPolyPressure, kindChannelPressure, kindSysEx, kindSystem:
		// not part of the score model
	}
	return nil
}

func (d *chunkDecoder) handleMeta(ev rawEvent, now score.Tick) error {
	p := ev.payload
	short := func(need int) error {
		return &DecodeError{Offset: ev.offset, Reason: fmt.Sprintf("meta 0x%02X needs %d bytes, has %d", ev.meta, need, len(p))}
	}
	switch ev.meta {
	case metaTrackName:
		d.name = d.text.decode(p)
	case metaLyric:
		d.s.Lyrics = append(d.s.Lyrics, score.TextMeta[score.Tick]{Time: now, Text: d.text.decode(p)})
	case metaMarker:
		d.s.Markers = append(d.s.Markers, score.TextMeta[score.Tick]{Time: now, Text: d.text.decode(p)})
	case metaTempo:
		if len(p) < 3 {
			return short(3)
		}
		mspq, err := d.checkInt("tempo mspq", int(p[0])<<16|int(p[1])<<8|int(p[2]), 1, 0xFFFFFF, ev)
		if err != nil {
			return err
		}
		d.s.Tempos = append(d.s.Tempos, score.Tempo[score.Tick]{Time: now, MSPQ: int32(mspq)})
	case metaTimeSig:
		if len(p) < 2 {
			return short(2)
		}
		power, err := d.checkInt("time signature denominator exponent", int(p[1]), 0, 7, ev)
		if err != nil {
			return err
		}
		d.s.TimeSignatures = append(d.s.TimeSignatures, score.TimeSignature[score.Tick]{
			Time:        now,
			Numerator:   p[0],
			Denominator: uint8(1) << power,
		})
	case metaKeySig:
		if len(p) < 2 {
			return short(2)
		}
		key, err := d.checkInt("key", int(int8(p[0])), -7, 7, ev)
		if err != nil {
			return err
		}
		tonality, err := d.checkInt("tonality", int(p[1]), 0, 1, ev)
		if err != nil {
			return err
		}
		d.s.KeySignatures = append(d.s.KeySignatures, score.KeySignature[score.Tick]{
			Time:     now,
			Key:      int8(key),
			Tonality: uint8(tonality),
		})
	}
	return nil
}

// route returns the track for the channel's current program. Without create,
// a channel that has no such track yet collects events in its straggler; the
// first track created on the channel takes the straggler's events over.
func (d *chunkDecoder) route(ch uint8, create bool) *score.Track[score.Tick] {
	key := trackKey{channel: ch, program: d.program[ch]}
	if t, ok := d.tracks[key]; ok {
		return t
	}
	if !create {
		if d.stragglers[ch] == nil {
			d.stragglers[ch] = &score.Track[score.Tick]{}
			d.stragglerProgram[ch] = d.program[ch]
		}
		return d.stragglers[ch]
	}
	t := &score.Track[score.Tick]{Program: key.program, IsDrum: ch == DrumChannel}
	if s := d.stragglers[ch]; s != nil {
		t.Controls, t.PitchBends, t.Pedals = s.Controls, s.PitchBends, s.Pedals
		d.stragglers[ch] = nil
	}
	d.tracks[key] = t
	return t
}

func (d *chunkDecoder) finish() {
	for ch, s := range d.stragglers {
		if s == nil || s.Empty() {
			continue
		}
		key := trackKey{channel: uint8(ch), program: d.stragglerProgram[ch]}
		if t, ok := d.tracks[key]; ok {
			t.Controls = append(t.Controls, s.Controls...)
			t.PitchBends = append(t.PitchBends, s.PitchBends...)
			t.Pedals = append(t.Pedals, s.Pedals...)
			score.SortByTime(t.Controls, func(e score.ControlChange[score.Tick]) score.Tick { return e.Time })
			score.SortByTime(t.PitchBends, func(e score.PitchBend[score.Tick]) score.Tick { return e.Time })
			continue
		}
		s.Program, s.IsDrum = key.program, ch == DrumChannel
		d.tracks[key] = s
	}

	keys := make([]trackKey, 0, len(d.tracks))
	for k, t := range d.tracks {
		if !t.Empty() {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b trackKey) int {
		if c := cmp.Compare(a.channel, b.channel); c != 0 {
			return c
		}
		return cmp.Compare(a.program, b.program)
	})
	for _, k := range keys {
		t := d.tracks[k]
		t.Name = d.name
		score.SortNotes(t.Notes)
		score.SortPedals(t.Pedals)
		d.s.Tracks = append(d.s.Tracks, t)
	}
}

// timedMessage is a message placed at an absolute tick
type timedMessage struct {
	tick uint32
	msg  []byte
}

// chunkWriter collects messages at absolute times and turns them into a
// delta-timed smf.Track
type chunkWriter struct {
	events []timedMessage
}

func (w *chunkWriter) add(t score.Tick, msg []byte) error {
	if t < 0 {
		return &score.RangeError{Field: "time", Value: int(t), Min: 0, Max: math.MaxInt32}
	}
	w.events = append(w.events, timedMessage{tick: uint32(t), msg: msg})
	return nil
}

func (w *chunkWriter) track() smf.Track {
	slices.SortStableFunc(w.events, func(a, b timedMessage) int {
		return cmp.Compare(a.tick, b.tick)
	})
	var track smf.Track
	var last uint32
	for _, e := range w.events {
		track.Add(e.tick-last, e.msg)
		last = e.tick
	}
	track.Close(0)
	return track
}

// DumpMIDI encodes a tick score as a format 1 Standard MIDI File
func DumpMIDI(s *score.Score[score.Tick]) ([]byte, error) {
	if s.TicksPerQuarter < 1 || s.TicksPerQuarter > 0x7FFF {
		return nil, &score.RangeError{Field: "ticks per quarter", Value: int(s.TicksPerQuarter), Min: 1, Max: 0x7FFF}
	}
	file := smf.New()
	file.TimeFormat = smf.MetricTicks(uint16(s.TicksPerQuarter))
	chunks := 0

	conductor, err := conductorChunk(s)
	if err != nil {
		return nil, err
	}
	if len(conductor.events) > 0 {
		if err := file.Add(conductor.track()); err != nil {
			return nil, fmt.Errorf("failed to add conductor track: %w", err)
		}
		chunks++
	}

	emitted := 0
	for i, t := range s.Tracks {
		channel := uint8(DrumChannel)
		if !t.IsDrum {
			channel = melodicChannels[emitted%len(melodicChannels)]
		}
		w, err := trackChunk(t, channel)
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
		if w == nil {
			continue
		}
		if err := file.Add(w.track()); err != nil {
			return nil, fmt.Errorf("failed to add track %d: %w", i, err)
		}
		chunks++
		emitted++
	}

	if chunks == 0 {
		var empty smf.Track
		empty.Close(0)
		if err := file.Add(empty); err != nil {
			return nil, fmt.Errorf("failed to add track: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

// DumpMIDIAny converts a score of any unit to ticks and encodes it
func DumpMIDIAny[T score.Time](s *score.Score[T]) ([]byte, error) {
	ticks, err := Convert[score.Tick](s, 0)
	if err != nil {
		return nil, err
	}
	return DumpMIDI(ticks)
}

func conductorChunk(s *score.Score[score.Tick]) (*chunkWriter, error) {
	w := &chunkWriter{}
	for _, ts := range s.TimeSignatures {
		if !ts.Valid() {
			return nil, &score.RangeError{Field: "time signature denominator", Value: int(ts.Denominator), Min: 1, Max: 128}
		}
		power := uint8(bits.TrailingZeros8(ts.Denominator))
		msg := smf.Message([]byte{0xFF, metaTimeSig, 0x04, ts.Numerator, power, 0x18, 0x08})
		if err := w.add(ts.Time, msg); err != nil {
			return nil, err
		}
	}
	for _, ks := range s.KeySignatures {
		if err := score.CheckRange("key", int(ks.Key), -7, 7); err != nil {
			return nil, err
		}
		if err := score.CheckRange("tonality", int(ks.Tonality), 0, 1); err != nil {
			return nil, err
		}
		msg := smf.Message([]byte{0xFF, metaKeySig, 0x02, byte(ks.Key), ks.Tonality})
		if err := w.add(ks.Time, msg); err != nil {
			return nil, err
		}
	}
	for _, tempo := range s.Tempos {
		if err := score.CheckRange("tempo mspq", int(tempo.MSPQ), 1, 0xFFFFFF); err != nil {
			return nil, err
		}
		mspq := uint32(tempo.MSPQ)
		msg := smf.Message([]byte{0xFF, metaTempo, 0x03, byte(mspq >> 16), byte(mspq >> 8), byte(mspq)})
		if err := w.add(tempo.Time, msg); err != nil {
			return nil, err
		}
	}
	for _, l := range s.Lyrics {
		if err := w.add(l.Time, smf.MetaLyric(l.Text)); err != nil {
			return nil, err
		}
	}
	for _, m := range s.Markers {
		if err := w.add(m.Time, smf.MetaMarker(m.Text)); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// trackChunk builds the chunk for one track, or nil when the track would
// carry no events
func trackChunk(t *score.Track[score.Tick], channel uint8) (*chunkWriter, error) {
	if err := score.CheckRange("program", int(t.Program), 0, 127); err != nil {
		return nil, err
	}
	w := &chunkWriter{}
	if t.Name != "" {
		if err := w.add(0, smf.MetaTrackSequenceName(t.Name)); err != nil {
			return nil, err
		}
	}
	if err := w.add(0, midi.ProgramChange(channel, t.Program)); err != nil {
		return nil, err
	}
	header := len(w.events)

	for _, c := range t.Controls {
		if err := score.CheckRange("controller number", int(c.Number), 0, 127); err != nil {
			return nil, err
		}
		if err := score.CheckRange("controller value", int(c.Value), 0, 127); err != nil {
			return nil, err
		}
		if err := w.add(c.Time, midi.ControlChange(channel, c.Number, c.Value)); err != nil {
			return nil, err
		}
	}
	for _, b := range t.PitchBends {
		if err := score.CheckRange("pitch bend", int(b.Value), score.PitchBendMin, score.PitchBendMax); err != nil {
			return nil, err
		}
		if err := w.add(b.Time, midi.Pitchbend(channel, b.Value)); err != nil {
			return nil, err
		}
	}

	notes := slices.Clone(t.Notes)
	slices.SortStableFunc(notes, func(a, b score.Note[score.Tick]) int {
		if c := cmp.Compare(a.Time, b.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.Duration, b.Duration)
	})
	for _, n := range notes {
		if err := score.CheckRange("pitch", int(n.Pitch), 0, 127); err != nil {
			return nil, err
		}
		if err := score.CheckRange("velocity", int(n.Velocity), 0, 127); err != nil {
			return nil, err
		}
		if n.Duration < 0 {
			return nil, &score.RangeError{Field: "duration", Value: int(n.Duration), Min: 0, Max: math.MaxInt32}
		}
		if n.Velocity == 0 {
			continue
		}
		if err := w.add(n.Time, midi.NoteOn(channel, n.Pitch, n.Velocity)); err != nil {
			return nil, err
		}
		if err := w.add(n.End(), midi.NoteOffVelocity(channel, n.Pitch, n.Velocity)); err != nil {
			return nil, err
		}
	}
	for _, l := range t.Lyrics {
		if err := w.add(l.Time, smf.MetaLyric(l.Text)); err != nil {
			return nil, err
		}
	}

	if len(w.events) == header {
		return nil, nil
	}
	return w, nil
}
