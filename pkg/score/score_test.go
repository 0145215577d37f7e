package score

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseUnit(t *testing.T) {
	tests := []struct {
		name    string
		want    Unit
		wantErr bool
	}{
		{"tick", UnitTick, false},
		{"Ticks", UnitTick, false},
		{"quarter", UnitQuarter, false},
		{"beat", UnitQuarter, false},
		{" second ", UnitSecond, false},
		{"s", UnitSecond, false},
		{"bar", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseUnit(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUnit(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Errorf("ParseUnit(%q) error = %v, want ErrInvalidArgument", tt.name, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseUnit(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestUnitOf(t *testing.T) {
	if UnitOf[Tick]() != UnitTick || UnitOf[Quarter]() != UnitQuarter || UnitOf[Second]() != UnitSecond {
		t.Error("UnitOf returned the wrong unit")
	}
	if UnitSecond.String() != "second" {
		t.Errorf("UnitSecond.String() = %q, want second", UnitSecond.String())
	}
}

func TestNoteTransposeAndVelocity(t *testing.T) {
	n := Note[Tick]{Time: 10, Duration: 20, Pitch: 120, Velocity: 100}
	if n.End() != 30 {
		t.Errorf("End() = %d, want 30", n.End())
	}

	up, err := n.Transpose(7)
	if err != nil || up.Pitch != 127 {
		t.Errorf("Transpose(7) = %+v, %v, want pitch 127", up, err)
	}
	_, err = n.Transpose(8)
	var rangeErr *RangeError
	if !errors.As(err, &rangeErr) || rangeErr.Field != "pitch" || rangeErr.Value != 128 {
		t.Errorf("Transpose(8) error = %v, want pitch RangeError", err)
	}
	if !errors.Is(err, ErrRange) {
		t.Errorf("Transpose(8) error does not wrap ErrRange")
	}

	if _, err := n.ShiftVelocity(-101); !errors.Is(err, ErrRange) {
		t.Errorf("ShiftVelocity(-101) error = %v, want ErrRange", err)
	}
	quiet, err := n.ShiftVelocity(-100)
	if err != nil || !quiet.Empty() {
		t.Errorf("ShiftVelocity(-100) = %+v, %v, want an empty note", quiet, err)
	}
}

func TestNoteEmpty(t *testing.T) {
	tests := []struct {
		name string
		note Note[Quarter]
		want bool
	}{
		{"audible", Note[Quarter]{Duration: 0.5, Velocity: 1}, false},
		{"zero duration", Note[Quarter]{Duration: 0, Velocity: 80}, true},
		{"negative duration", Note[Quarter]{Duration: -1, Velocity: 80}, true},
		{"silent", Note[Quarter]{Duration: 1, Velocity: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.note.Empty(); got != tt.want {
				t.Errorf("Empty() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeySignature(t *testing.T) {
	tests := []struct {
		key      int8
		tonality uint8
		degree   int
		name     string
	}{
		{0, 0, 0, "C major"},
		{0, 1, 12, "A minor"},
		{2, 0, 10, "D major"},
		{2, 1, 22, "B minor"},
		{-3, 0, 9, "Eb major"},
		{-3, 1, 21, "C minor"},
		{7, 0, 11, "C# major"},
		{-7, 0, 1, "B major"},
	}
	for _, tt := range tests {
		ks := KeySignature[Tick]{Key: tt.key, Tonality: tt.tonality}
		if got := ks.Degree(); got != tt.degree {
			t.Errorf("KeySignature{%d, %d}.Degree() = %d, want %d", tt.key, tt.tonality, got, tt.degree)
		}
		if got := ks.String(); got != tt.name {
			t.Errorf("KeySignature{%d, %d}.String() = %q, want %q", tt.key, tt.tonality, got, tt.name)
		}
	}
}

func TestTempo(t *testing.T) {
	tempo, err := NewTempoQPM[Second](1.5, 120)
	if err != nil {
		t.Fatalf("NewTempoQPM() error = %v", err)
	}
	if tempo.MSPQ != 500000 || tempo.Time != 1.5 {
		t.Errorf("NewTempoQPM() = %+v, want mspq 500000 at 1.5", tempo)
	}
	if qpm := (Tempo[Tick]{MSPQ: 250000}).QPM(); qpm != 240 {
		t.Errorf("QPM() = %v, want 240", qpm)
	}
	if _, err := NewTempoQPM[Tick](0, 0); !errors.Is(err, ErrRange) {
		t.Errorf("NewTempoQPM(0) error = %v, want ErrRange", err)
	}
}

func TestTimeSignatureValid(t *testing.T) {
	tests := []struct {
		num, den uint8
		want     bool
	}{
		{4, 4, true},
		{6, 8, true},
		{5, 1, true},
		{3, 3, false},
		{3, 0, false},
		{0, 4, false},
	}
	for _, tt := range tests {
		ts := TimeSignature[Tick]{Numerator: tt.num, Denominator: tt.den}
		if got := ts.Valid(); got != tt.want {
			t.Errorf("TimeSignature{%d/%d}.Valid() = %v, want %v", tt.num, tt.den, got, tt.want)
		}
	}
}

func sample() *Score[Tick] {
	s := New[Tick](480)
	s.Tempos = []Tempo[Tick]{{Time: 960, MSPQ: 400000}, {Time: 0, MSPQ: 500000}}
	s.TimeSignatures = []TimeSignature[Tick]{{Time: 0, Numerator: 4, Denominator: 4}}
	s.Markers = []TextMeta[Tick]{{Time: 1000, Text: "bridge"}}
	s.Tracks = []*Track[Tick]{
		{
			Name:    "lead",
			Program: 80,
			Notes: []Note[Tick]{
				{Time: 480, Duration: 240, Pitch: 64, Velocity: 90},
				{Time: 0, Duration: 480, Pitch: 67, Velocity: 90},
				{Time: 0, Duration: 240, Pitch: 60, Velocity: 90},
			},
			Controls: []ControlChange[Tick]{{Time: 100, Number: 1, Value: 10}},
			Pedals:   []Pedal[Tick]{{Time: 500, Duration: 1000}},
		},
		{
			Name:   "drums",
			IsDrum: true,
			Notes:  []Note[Tick]{{Time: 240, Duration: 10, Pitch: 36, Velocity: 120}},
		},
		{Name: "empty"},
	}
	return s
}

func TestScoreSummaryAndBounds(t *testing.T) {
	s := sample()
	want := Summary{Tracks: 3, Notes: 4, Controls: 1, Pedals: 1, Tempos: 2, TimeSignatures: 1, Markers: 1}
	if got := s.Summary(); got != want {
		t.Errorf("Summary() = %+v, want %+v", got, want)
	}
	if s.NoteCount() != 4 {
		t.Errorf("NoteCount() = %d, want 4", s.NoteCount())
	}
	if s.StartTime() != 0 || s.EndTime() != 1500 {
		t.Errorf("StartTime(), EndTime() = %d, %d, want 0, 1500", s.StartTime(), s.EndTime())
	}
	if s.Empty() || !New[Tick](480).Empty() {
		t.Error("Empty() misreports")
	}
	if !s.Tracks[2].Empty() {
		t.Error("track without events should be empty")
	}
}

func TestScoreSort(t *testing.T) {
	s := sample().Sort()
	wantNotes := []Note[Tick]{
		{Time: 0, Duration: 240, Pitch: 60, Velocity: 90},
		{Time: 0, Duration: 480, Pitch: 67, Velocity: 90},
		{Time: 480, Duration: 240, Pitch: 64, Velocity: 90},
	}
	if !reflect.DeepEqual(s.Tracks[0].Notes, wantNotes) {
		t.Errorf("Notes = %+v, want %+v", s.Tracks[0].Notes, wantNotes)
	}
	if s.Tempos[0].Time != 0 || s.Tempos[1].Time != 960 {
		t.Errorf("Tempos = %+v, want sorted by time", s.Tempos)
	}
}

func TestScoreCopyIsDeep(t *testing.T) {
	s := sample()
	c := s.Copy()
	c.Tracks[0].Notes[0].Pitch = 1
	c.Tempos[0].MSPQ = 1
	c.Tracks[0].Name = "changed"
	if s.Tracks[0].Notes[0].Pitch == 1 || s.Tempos[0].MSPQ == 1 || s.Tracks[0].Name == "changed" {
		t.Error("Copy() shares state with the original")
	}
	if !reflect.DeepEqual(sample(), s) {
		t.Error("original was modified")
	}
}

func TestScoreShiftTime(t *testing.T) {
	s := sample()
	shifted := s.ShiftTime(100)
	if got := shifted.Tracks[0].Notes[0].Time; got != 580 {
		t.Errorf("note time = %d, want 580", got)
	}
	if got := shifted.Tempos[1].Time; got != 100 {
		t.Errorf("tempo time = %d, want 100", got)
	}
	if got := shifted.Markers[0].Time; got != 1100 {
		t.Errorf("marker time = %d, want 1100", got)
	}
	if s.Tracks[0].Notes[0].Time != 480 {
		t.Error("ShiftTime() modified its input")
	}
}

func TestScoreShiftPitchSkipsDrums(t *testing.T) {
	s := sample()
	out, err := s.ShiftPitch(12)
	if err != nil {
		t.Fatalf("ShiftPitch() error = %v", err)
	}
	if out.Tracks[0].Notes[0].Pitch != 76 {
		t.Errorf("lead pitch = %d, want 76", out.Tracks[0].Notes[0].Pitch)
	}
	if out.Tracks[1].Notes[0].Pitch != 36 {
		t.Errorf("drum pitch = %d, want 36", out.Tracks[1].Notes[0].Pitch)
	}
	if _, err := s.ShiftPitch(61); !errors.Is(err, ErrRange) {
		t.Errorf("ShiftPitch(61) error = %v, want ErrRange", err)
	}
}

func TestScoreShiftVelocity(t *testing.T) {
	out, err := sample().ShiftVelocity(-10)
	if err != nil {
		t.Fatalf("ShiftVelocity() error = %v", err)
	}
	if out.Tracks[1].Notes[0].Velocity != 110 {
		t.Errorf("velocity = %d, want 110", out.Tracks[1].Notes[0].Velocity)
	}
	if _, err := sample().ShiftVelocity(10); !errors.Is(err, ErrRange) {
		t.Errorf("ShiftVelocity(10) error = %v, want ErrRange", err)
	}
}

func TestScoreClip(t *testing.T) {
	s := sample()

	loose := s.Clip(400, 1200, false)
	if n := loose.Tracks[0].Notes; len(n) != 1 || n[0].Pitch != 64 {
		t.Errorf("clipped notes = %+v, want only pitch 64", n)
	}
	if p := loose.Tracks[0].Pedals; len(p) != 1 {
		t.Errorf("clipped pedals = %+v, want the pedal starting at 500", p)
	}
	if len(loose.Tracks[1].Notes) != 0 {
		t.Errorf("drum notes = %+v, want none", loose.Tracks[1].Notes)
	}
	wantTempos := []Tempo[Tick]{{Time: 400, MSPQ: 500000}, {Time: 960, MSPQ: 400000}}
	if !reflect.DeepEqual(loose.Tempos, wantTempos) {
		t.Errorf("Tempos = %+v, want %+v", loose.Tempos, wantTempos)
	}
	wantTS := []TimeSignature[Tick]{{Time: 400, Numerator: 4, Denominator: 4}}
	if !reflect.DeepEqual(loose.TimeSignatures, wantTS) {
		t.Errorf("TimeSignatures = %+v, want %+v", loose.TimeSignatures, wantTS)
	}
	if len(loose.Markers) != 1 {
		t.Errorf("Markers = %+v, want bridge", loose.Markers)
	}

	strict := s.Clip(400, 1200, true)
	if len(strict.Tracks[0].Pedals) != 0 {
		t.Errorf("pedal ending past the window survived: %+v", strict.Tracks[0].Pedals)
	}
	if len(strict.Tracks[0].Notes) != 1 {
		t.Errorf("notes = %+v, want pitch 64 only", strict.Tracks[0].Notes)
	}
}

func TestTrackShiftPitchIncludesDrums(t *testing.T) {
	tr := &Track[Tick]{IsDrum: true, Notes: []Note[Tick]{{Pitch: 36, Velocity: 1, Duration: 1}}}
	out, err := tr.ShiftPitch(1)
	if err != nil {
		t.Fatalf("ShiftPitch() error = %v", err)
	}
	if out.Notes[0].Pitch != 37 || tr.Notes[0].Pitch != 36 {
		t.Errorf("ShiftPitch() = %d, original %d", out.Notes[0].Pitch, tr.Notes[0].Pitch)
	}
}

func TestCheckRange(t *testing.T) {
	if err := CheckRange("x", 5, 0, 5); err != nil {
		t.Errorf("CheckRange(5) error = %v", err)
	}
	err := CheckRange("x", 6, 0, 5)
	if err == nil || err.Error() != "x 6 out of range [0, 5]" {
		t.Errorf("CheckRange(6) error = %v", err)
	}
}
