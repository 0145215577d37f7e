package converter

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/james-see/midiscore/pkg/score"
)

// vlq encodes v as a variable-length quantity
func vlq(v uint32) []byte {
	out := []byte{byte(v & 0x7F)}
	for v >>= 7; v > 0; v >>= 7 {
		out = append([]byte{byte(v&0x7F) | 0x80}, out...)
	}
	return out
}

// ev builds one track event: delta time followed by raw message bytes
func ev(delta uint32, msg ...byte) []byte {
	return append(vlq(delta), msg...)
}

// trackBody joins events and appends an end-of-track meta event
func trackBody(events ...[]byte) []byte {
	var body []byte
	for _, e := range events {
		body = append(body, e...)
	}
	return append(body, 0x00, 0xFF, 0x2F, 0x00)
}

// smfBytes builds a format 1 file from track bodies
func smfBytes(tpq uint16, tracks ...[]byte) []byte {
	out := []byte("MThd")
	out = binary.BigEndian.AppendUint32(out, 6)
	out = binary.BigEndian.AppendUint16(out, 1)
	out = binary.BigEndian.AppendUint16(out, uint16(len(tracks)))
	out = binary.BigEndian.AppendUint16(out, tpq)
	for _, t := range tracks {
		out = append(out, "MTrk"...)
		out = binary.BigEndian.AppendUint32(out, uint32(len(t)))
		out = append(out, t...)
	}
	return out
}

func mustParse(t *testing.T, data []byte) *score.Score[score.Tick] {
	t.Helper()
	s, err := ParseMIDI(data)
	if err != nil {
		t.Fatalf("ParseMIDI() error = %v", err)
	}
	return s
}

func TestRoundTripSingleNote(t *testing.T) {
	in := score.New[score.Tick](480)
	in.Tempos = []score.Tempo[score.Tick]{{Time: 0, MSPQ: 500000}}
	in.Tracks = []*score.Track[score.Tick]{{
		Program: 0,
		Notes:   []score.Note[score.Tick]{{Time: 480, Duration: 480, Pitch: 60, Velocity: 80}},
	}}

	data, err := DumpMIDI(in)
	if err != nil {
		t.Fatalf("DumpMIDI() error = %v", err)
	}
	out := mustParse(t, data)

	if out.TicksPerQuarter != 480 {
		t.Errorf("TicksPerQuarter = %d, want 480", out.TicksPerQuarter)
	}
	if len(out.Tracks) != 1 {
		t.Fatalf("len(Tracks) = %d, want 1", len(out.Tracks))
	}
	tr := out.Tracks[0]
	if tr.IsDrum || tr.Program != 0 {
		t.Errorf("track IsDrum = %v, Program = %d, want false, 0", tr.IsDrum, tr.Program)
	}
	if !reflect.DeepEqual(tr.Notes, in.Tracks[0].Notes) {
		t.Errorf("Notes = %+v, want %+v", tr.Notes, in.Tracks[0].Notes)
	}
	want := []score.Tempo[score.Tick]{{Time: 0, MSPQ: 500000}}
	if !reflect.DeepEqual(out.Tempos, want) {
		t.Errorf("Tempos = %+v, want %+v", out.Tempos, want)
	}
}

func TestParseVelocityOutOfRange(t *testing.T) {
	data := smfBytes(480, trackBody(
		ev(0, 0x90, 60, 200),
		ev(480, 0x80, 60, 0),
	))

	_, err := ParseMIDI(data)
	if !errors.Is(err, score.ErrRange) {
		t.Fatalf("ParseMIDI() error = %v, want ErrRange", err)
	}
	var rangeErr *score.RangeError
	if !errors.As(err, &rangeErr) || rangeErr.Field != "velocity" || rangeErr.Value != 200 {
		t.Errorf("RangeError = %+v, want velocity 200", rangeErr)
	}

	s, err := ParseMIDIWithOptions(data, ParseOptions{Sanitize: true})
	if err != nil {
		t.Fatalf("sanitized ParseMIDIWithOptions() error = %v", err)
	}
	want := []score.Note[score.Tick]{{Time: 0, Duration: 480, Pitch: 60, Velocity: 127}}
	if len(s.Tracks) != 1 || !reflect.DeepEqual(s.Tracks[0].Notes, want) {
		t.Errorf("sanitized notes = %+v, want %+v", s.Tracks, want)
	}
}

func TestParseOutOfRangeFields(t *testing.T) {
	tests := []struct {
		name  string
		event []byte
		field string
	}{
		{"pitch", ev(0, 0x90, 0x90, 64), "pitch"},
		{"controller number", ev(0, 0xB0, 200, 1), "controller number"},
		{"controller value", ev(0, 0xB0, 7, 255), "controller value"},
		{"program", ev(0, 0xC0, 130), "program"},
		{"pitch bend", ev(0, 0xE0, 0x00, 0xC0), "pitch bend"},
		{"key", ev(0, 0xFF, 0x59, 0x02, 0x08, 0x00), "key"},
		{"tonality", ev(0, 0xFF, 0x59, 0x02, 0x00, 0x02), "tonality"},
		{"time signature", ev(0, 0xFF, 0x58, 0x04, 0x04, 0x09, 0x18, 0x08), "time signature denominator exponent"},
		{"tempo", ev(0, 0xFF, 0x51, 0x03, 0x00, 0x00, 0x00), "tempo mspq"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := smfBytes(480, trackBody(tt.event))
			_, err := ParseMIDI(data)
			var rangeErr *score.RangeError
			if !errors.As(err, &rangeErr) {
				t.Fatalf("ParseMIDI() error = %v, want RangeError", err)
			}
			if rangeErr.Field != tt.field {
				t.Errorf("RangeError.Field = %q, want %q", rangeErr.Field, tt.field)
			}
			if _, err := ParseMIDIWithOptions(data, ParseOptions{Sanitize: true}); err != nil {
				t.Errorf("sanitized parse error = %v", err)
			}
		})
	}
}

func TestParseSanitizeClampsMeta(t *testing.T) {
	data := smfBytes(480, trackBody(
		ev(0, 0xFF, 0x59, 0x02, 0x09, 0x00),
		ev(0, 0xFF, 0x58, 0x04, 0x03, 0x0A, 0x18, 0x08),
	))
	s, err := ParseMIDIWithOptions(data, ParseOptions{Sanitize: true})
	if err != nil {
		t.Fatalf("ParseMIDIWithOptions() error = %v", err)
	}
	if s.KeySignatures[0].Key != 7 {
		t.Errorf("Key = %d, want 7", s.KeySignatures[0].Key)
	}
	if s.TimeSignatures[0].Denominator != 128 {
		t.Errorf("Denominator = %d, want 128", s.TimeSignatures[0].Denominator)
	}
}

func TestParseRepeatedPitchPairsOldestFirst(t *testing.T) {
	data := smfBytes(480, trackBody(
		ev(0, 0x90, 60, 10),
		ev(100, 0x90, 60, 20),
		ev(100, 0x80, 60, 0),
		ev(100, 0x80, 60, 0),
	))
	s := mustParse(t, data)
	want := []score.Note[score.Tick]{
		{Time: 0, Duration: 200, Pitch: 60, Velocity: 10},
		{Time: 100, Duration: 200, Pitch: 60, Velocity: 20},
	}
	if !reflect.DeepEqual(s.Tracks[0].Notes, want) {
		t.Errorf("Notes = %+v, want %+v", s.Tracks[0].Notes, want)
	}
}

func TestParseUnmatchedNoteOffIsDropped(t *testing.T) {
	data := smfBytes(480, trackBody(
		ev(0, 0x80, 64, 0),
		ev(0, 0x90, 60, 90),
		ev(240, 0x90, 60, 0), // note-on velocity 0 releases
		ev(0, 0x80, 60, 0),
		ev(0, 0x90, 62, 90), // never released
	))
	s := mustParse(t, data)
	want := []score.Note[score.Tick]{{Time: 0, Duration: 240, Pitch: 60, Velocity: 90}}
	if len(s.Tracks) != 1 || !reflect.DeepEqual(s.Tracks[0].Notes, want) {
		t.Errorf("Tracks = %+v, want one track with %+v", s.Tracks, want)
	}
}

func TestParseRunningStatus(t *testing.T) {
	data := smfBytes(96, trackBody(
		ev(0, 0x91, 60, 100),
		ev(0, 64, 100),
		ev(96, 60, 0),
		ev(0, 64, 0),
	))
	s := mustParse(t, data)
	want := []score.Note[score.Tick]{
		{Time: 0, Duration: 96, Pitch: 60, Velocity: 100},
		{Time: 0, Duration: 96, Pitch: 64, Velocity: 100},
	}
	if !reflect.DeepEqual(s.Tracks[0].Notes, want) {
		t.Errorf("Notes = %+v, want %+v", s.Tracks[0].Notes, want)
	}
}

func TestParsePedals(t *testing.T) {
	data := smfBytes(480, trackBody(
		ev(0, 0x90, 60, 80),
		ev(0, 0xB0, 64, 127),
		ev(50, 0xB0, 64, 100),
		ev(150, 0xB0, 64, 0),
		ev(0, 0xB0, 64, 10),
		ev(0, 0x80, 60, 0),
	))
	s := mustParse(t, data)
	tr := s.Tracks[0]
	if len(tr.Controls) != 4 {
		t.Errorf("len(Controls) = %d, want 4", len(tr.Controls))
	}
	want := []score.Pedal[score.Tick]{{Time: 0, Duration: 200}}
	if !reflect.DeepEqual(tr.Pedals, want) {
		t.Errorf("Pedals = %+v, want %+v", tr.Pedals, want)
	}
}

func TestParseStragglerAbsorbedByFirstTrack(t *testing.T) {
	data := smfBytes(480, trackBody(
		ev(0, 0xB1, 7, 100),
		ev(0, 0xE1, 0x00, 0x60),
		ev(10, 0xC1, 33),
		ev(0, 0x91, 40, 90),
		ev(100, 0x81, 40, 0),
	))
	s := mustParse(t, data)
	if len(s.Tracks) != 1 {
		t.Fatalf("len(Tracks) = %d, want 1", len(s.Tracks))
	}
	tr := s.Tracks[0]
	if tr.Program != 33 {
		t.Errorf("Program = %d, want 33", tr.Program)
	}
	if len(tr.Controls) != 1 || len(tr.PitchBends) != 1 {
		t.Errorf("Controls = %+v, PitchBends = %+v, want one each", tr.Controls, tr.PitchBends)
	}
	if tr.PitchBends[0].Value != 0x60<<7-8192 {
		t.Errorf("PitchBend = %d, want %d", tr.PitchBends[0].Value, 0x60<<7-8192)
	}
}

func TestParseControllerOnlyTrackIsKept(t *testing.T) {
	data := smfBytes(480, trackBody(
		ev(0, 0xFF, 0x03, 0x03, 'p', 'a', 'd'),
		ev(0, 0xC2, 5),
		ev(0, 0xB2, 10, 64),
	))
	s := mustParse(t, data)
	if len(s.Tracks) != 1 {
		t.Fatalf("len(Tracks) = %d, want 1", len(s.Tracks))
	}
	tr := s.Tracks[0]
	if tr.Name != "pad" || tr.Program != 5 || len(tr.Controls) != 1 {
		t.Errorf("track = %+v, want name pad, program 5, one control", tr)
	}
}

func TestParseProgramRoutingAndDrums(t *testing.T) {
	data := smfBytes(480, trackBody(
		ev(0, 0xFF, 0x03, 0x05, 'm', 'i', 'x', 'e', 'd'),
		ev(0, 0x99, 36, 100),
		ev(0, 0x90, 60, 100),
		ev(10, 0x89, 36, 0),
		ev(0, 0x80, 60, 0),
		ev(0, 0xC0, 5),
		ev(0, 0x90, 62, 100),
		ev(10, 0x80, 62, 0),
	))
	s := mustParse(t, data)
	if len(s.Tracks) != 3 {
		t.Fatalf("len(Tracks) = %d, want 3", len(s.Tracks))
	}
	wants := []struct {
		program uint8
		drum    bool
		pitch   uint8
	}{
		{0, false, 60},
		{5, false, 62},
		{0, true, 36},
	}
	for i, w := range wants {
		tr := s.Tracks[i]
		if tr.Program != w.program || tr.IsDrum != w.drum || tr.Name != "mixed" {
			t.Errorf("track %d = program %d drum %v name %q, want %d %v mixed", i, tr.Program, tr.IsDrum, tr.Name, w.program, w.drum)
		}
		if len(tr.Notes) != 1 || tr.Notes[0].Pitch != w.pitch {
			t.Errorf("track %d notes = %+v, want pitch %d", i, tr.Notes, w.pitch)
		}
	}
}

func TestParseGlobalMeta(t *testing.T) {
	conductor := trackBody(
		ev(0, 0xFF, 0x58, 0x04, 0x06, 0x03, 0x18, 0x08),
		ev(0, 0xFF, 0x59, 0x02, 0xFD, 0x01),
		ev(0, 0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20),
		ev(960, 0xFF, 0x06, 0x02, 'B', '1'),
	)
	second := trackBody(
		ev(480, 0xFF, 0x51, 0x03, 0x03, 0xD0, 0x90),
		ev(0, 0xFF, 0x05, 0x02, 'l', 'a'),
		ev(0, 0xF0, 0x03, 0x7E, 0x7F, 0xF7),
	)
	s := mustParse(t, smfBytes(480, conductor, second))

	if want := []score.TimeSignature[score.Tick]{{Time: 0, Numerator: 6, Denominator: 8}}; !reflect.DeepEqual(s.TimeSignatures, want) {
		t.Errorf("TimeSignatures = %+v, want %+v", s.TimeSignatures, want)
	}
	if want := []score.KeySignature[score.Tick]{{Time: 0, Key: -3, Tonality: 1}}; !reflect.DeepEqual(s.KeySignatures, want) {
		t.Errorf("KeySignatures = %+v, want %+v", s.KeySignatures, want)
	}
	wantTempos := []score.Tempo[score.Tick]{{Time: 0, MSPQ: 500000}, {Time: 480, MSPQ: 250000}}
	if !reflect.DeepEqual(s.Tempos, wantTempos) {
		t.Errorf("Tempos = %+v, want %+v", s.Tempos, wantTempos)
	}
	if want := []score.TextMeta[score.Tick]{{Time: 480, Text: "la"}}; !reflect.DeepEqual(s.Lyrics, want) {
		t.Errorf("Lyrics = %+v, want %+v", s.Lyrics, want)
	}
	if want := []score.TextMeta[score.Tick]{{Time: 960, Text: "B1"}}; !reflect.DeepEqual(s.Markers, want) {
		t.Errorf("Markers = %+v, want %+v", s.Markers, want)
	}
	if len(s.Tracks) != 0 {
		t.Errorf("len(Tracks) = %d, want 0", len(s.Tracks))
	}
}

func TestParseTextEncodings(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
		raw      []byte
		want     string
	}{
		{"auto keeps utf-8", TextAuto, []byte("añ"), "añ"},
		{"auto falls back to windows-1252", TextAuto, []byte{'c', 'a', 'f', 0xE9}, "café"},
		{"shift-jis", TextShiftJIS, []byte{0x82, 0xA0}, "あ"},
		{"latin-1", TextLatin1, []byte{0xFC}, "ü"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := append([]byte{0xFF, 0x05}, vlq(uint32(len(tt.raw)))...)
			msg = append(msg, tt.raw...)
			data := smfBytes(480, trackBody(ev(0, msg...)))
			s, err := ParseMIDIWithOptions(data, ParseOptions{TextEncoding: tt.encoding})
			if err != nil {
				t.Fatalf("ParseMIDIWithOptions() error = %v", err)
			}
			if len(s.Lyrics) != 1 || s.Lyrics[0].Text != tt.want {
				t.Errorf("Lyrics = %+v, want %q", s.Lyrics, tt.want)
			}
		})
	}

	if _, err := ParseMIDIWithOptions(smfBytes(480), ParseOptions{TextEncoding: "ebcdic"}); err == nil {
		t.Error("unknown text encoding should fail")
	}
}

func TestParseMalformed(t *testing.T) {
	valid := smfBytes(480, trackBody(ev(0, 0x90, 60, 100)))
	truncated := append([]byte(nil), valid[:len(valid)-3]...)

	smpte := smfBytes(480)
	smpte[12], smpte[13] = 0xE7, 0x28

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte("MThX"), valid[4:]...)},
		{"short header", []byte("MThd\x00\x00\x00\x02\x00\x01")},
		{"truncated chunk", truncated},
		{"vlq too long", smfBytes(480, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x7F, 0x90, 60, 100})},
		{"no running status", smfBytes(480, trackBody(ev(0, 60, 100)))},
		{"smpte division", smpte},
		{"zero division", smfBytes(0)},
		{"short tempo", smfBytes(480, trackBody(ev(0, 0xFF, 0x51, 0x01, 0x07)))},
		{"truncated message", smfBytes(480, []byte{0x00, 0x90, 60})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMIDI(tt.data)
			if !errors.Is(err, ErrDecode) {
				t.Errorf("ParseMIDI() error = %v, want ErrDecode", err)
			}
		})
	}
}

func TestParseSkipsUnknownChunks(t *testing.T) {
	data := smfBytes(480, trackBody(ev(0, 0x90, 60, 100), ev(10, 0x80, 60, 0)))
	data = append(data, "XFIH"...)
	data = binary.BigEndian.AppendUint32(data, 2)
	data = append(data, 0xAB, 0xCD, 0x00)
	s := mustParse(t, data)
	if s.NoteCount() != 1 {
		t.Errorf("NoteCount() = %d, want 1", s.NoteCount())
	}
}

// chunkChannels returns, per track chunk, the channel of its first channel message
func chunkChannels(t *testing.T, data []byte) []int {
	t.Helper()
	r := &byteReader{data: data}
	if _, err := r.readHeader(); err != nil {
		t.Fatalf("readHeader() error = %v", err)
	}
	var channels []int
	for r.remaining() >= 8 {
		_, body, err := r.readChunk()
		if err != nil {
			t.Fatalf("readChunk() error = %v", err)
		}
		channel := -1
		events := newEventReader(body)
		for {
			e, ok, err := events.next()
			if err != nil {
				t.Fatalf("next() error = %v", err)
			}
			if !ok {
				break
			}
			if e.kind < kindMeta {
				channel = int(e.channel)
				break
			}
		}
		channels = append(channels, channel)
	}
	return channels
}

func TestDumpChannelAssignment(t *testing.T) {
	s := score.New[score.Tick](480)
	note := []score.Note[score.Tick]{{Time: 0, Duration: 10, Pitch: 60, Velocity: 90}}
	s.Tracks = append(s.Tracks, &score.Track[score.Tick]{Notes: note})
	s.Tracks = append(s.Tracks, &score.Track[score.Tick]{IsDrum: true, Notes: note})
	s.Tracks = append(s.Tracks, &score.Track[score.Tick]{}) // empty, omitted
	for i := 0; i < 16; i++ {
		s.Tracks = append(s.Tracks, &score.Track[score.Tick]{Program: uint8(i), Notes: note})
	}

	data, err := DumpMIDI(s)
	if err != nil {
		t.Fatalf("DumpMIDI() error = %v", err)
	}
	got := chunkChannels(t, data)
	want := []int{0, 9, 2, 3, 4, 5, 6, 7, 8, 10, 11, 12, 13, 14, 15, 0, 1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("channels = %v, want %v", got, want)
	}

	out := mustParse(t, data)
	if len(out.Tracks) != 18 {
		t.Fatalf("len(Tracks) = %d, want 18", len(out.Tracks))
	}
	for i, tr := range out.Tracks {
		if tr.IsDrum != (i == 1) {
			t.Errorf("track %d IsDrum = %v", i, tr.IsDrum)
		}
	}
}

func TestDumpChannelCountsDrumTracks(t *testing.T) {
	s := score.New[score.Tick](480)
	note := []score.Note[score.Tick]{{Time: 0, Duration: 10, Pitch: 38, Velocity: 90}}
	s.Tracks = []*score.Track[score.Tick]{
		{IsDrum: true, Notes: note},
		{Program: 1, Notes: note},
	}
	data, err := DumpMIDI(s)
	if err != nil {
		t.Fatalf("DumpMIDI() error = %v", err)
	}
	if got, want := chunkChannels(t, data), []int{9, 1}; !reflect.DeepEqual(got, want) {
		t.Errorf("channels = %v, want %v", got, want)
	}
}

func TestDumpOmitsEmptyAndPedalOnlyTracks(t *testing.T) {
	s := score.New[score.Tick](480)
	s.Tracks = []*score.Track[score.Tick]{
		{Name: "pedal only", Pedals: []score.Pedal[score.Tick]{{Time: 0, Duration: 100}}},
		{Name: "silent", Notes: []score.Note[score.Tick]{{Time: 0, Duration: 100, Pitch: 60, Velocity: 0}}},
	}
	data, err := DumpMIDI(s)
	if err != nil {
		t.Fatalf("DumpMIDI() error = %v", err)
	}
	out := mustParse(t, data)
	if !out.Empty() {
		t.Errorf("parsed score should be empty, got %+v", out.Summary())
	}
	if got := chunkChannels(t, data); len(got) != 1 {
		t.Errorf("chunks = %d, want 1 placeholder chunk", len(got))
	}
}

func TestDumpRejectsInvalidScores(t *testing.T) {
	note := func(n score.Note[score.Tick]) *score.Score[score.Tick] {
		s := score.New[score.Tick](480)
		s.Tracks = []*score.Track[score.Tick]{{Notes: []score.Note[score.Tick]{n}}}
		return s
	}
	tests := []struct {
		name string
		s    *score.Score[score.Tick]
	}{
		{"pitch", note(score.Note[score.Tick]{Pitch: 128, Velocity: 1, Duration: 1})},
		{"velocity", note(score.Note[score.Tick]{Pitch: 1, Velocity: 200, Duration: 1})},
		{"negative time", note(score.Note[score.Tick]{Time: -5, Pitch: 1, Velocity: 1, Duration: 1})},
		{"negative duration", note(score.Note[score.Tick]{Time: 5, Pitch: 1, Velocity: 1, Duration: -1})},
		{"tpq", score.New[score.Tick](0)},
		{"tempo", &score.Score[score.Tick]{TicksPerQuarter: 480, Tempos: []score.Tempo[score.Tick]{{MSPQ: 0}}}},
		{"time signature", &score.Score[score.Tick]{TicksPerQuarter: 480, TimeSignatures: []score.TimeSignature[score.Tick]{{Numerator: 3, Denominator: 3}}}},
		{"key", &score.Score[score.Tick]{TicksPerQuarter: 480, KeySignatures: []score.KeySignature[score.Tick]{{Key: 9}}}},
		{"pitch bend", &score.Score[score.Tick]{TicksPerQuarter: 480, Tracks: []*score.Track[score.Tick]{{PitchBends: []score.PitchBend[score.Tick]{{Value: 9000}}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DumpMIDI(tt.s); !errors.Is(err, score.ErrRange) {
				t.Errorf("DumpMIDI() error = %v, want ErrRange", err)
			}
		})
	}
}

func TestDumpTrackLyricsBecomeGlobal(t *testing.T) {
	s := score.New[score.Tick](480)
	s.Tracks = []*score.Track[score.Tick]{{
		Notes:  []score.Note[score.Tick]{{Time: 0, Duration: 10, Pitch: 60, Velocity: 90}},
		Lyrics: []score.TextMeta[score.Tick]{{Time: 0, Text: "hey"}},
	}}
	data, err := DumpMIDI(s)
	if err != nil {
		t.Fatalf("DumpMIDI() error = %v", err)
	}
	out := mustParse(t, data)
	if len(out.Lyrics) != 1 || out.Lyrics[0].Text != "hey" {
		t.Errorf("Lyrics = %+v, want one lyric hey", out.Lyrics)
	}
}

func TestMIDIConverterFiles(t *testing.T) {
	conv := NewMIDIConverter(ParseOptions{})
	s := score.New[score.Tick](240)
	s.Tracks = []*score.Track[score.Tick]{{Name: "lead", Program: 81, Notes: []score.Note[score.Tick]{{Time: 0, Duration: 240, Pitch: 72, Velocity: 64}}}}

	path := t.TempDir() + "/lead.mid"
	if err := conv.WriteMIDIFile(s, path); err != nil {
		t.Fatalf("WriteMIDIFile() error = %v", err)
	}
	got, err := conv.ParseMIDIFile(path)
	if err != nil {
		t.Fatalf("ParseMIDIFile() error = %v", err)
	}
	if !reflect.DeepEqual(got.Tracks, s.Tracks) {
		t.Errorf("Tracks = %+v, want %+v", got.Tracks, s.Tracks)
	}
}
