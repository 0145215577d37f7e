// Package score provides the in-memory model of a symbolic music score
package score

import (
	"fmt"
	"math"
	"strings"
)

// Tick is an integer time unit, a fixed fraction of a quarter note
type Tick int32

// Quarter is a time unit measured in quarter-note beats
type Quarter float32

// Second is a time unit measured in wall-clock seconds
type Second float32

// Time is the set of time units a Score can be expressed in
type Time interface {
	Tick | Quarter | Second
}

// Unit identifies a time unit at runtime
type Unit int

const (
	UnitTick Unit = iota
	UnitQuarter
	UnitSecond
)

// String returns the lowercase unit name
func (u Unit) String() string {
	switch u {
	case UnitTick:
		return "tick"
	case UnitQuarter:
		return "quarter"
	case UnitSecond:
		return "second"
	default:
		return fmt.Sprintf("unit(%d)", int(u))
	}
}

// ParseUnit parses a unit name such as "tick", "quarter" or "second"
func ParseUnit(name string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "tick", "ticks":
		return UnitTick, nil
	case "quarter", "quarters", "beat", "beats":
		return UnitQuarter, nil
	case "second", "seconds", "sec", "s":
		return UnitSecond, nil
	}
	return 0, &InvalidArgumentError{Reason: fmt.Sprintf("unknown time unit %q", name)}
}

// UnitOf returns the Unit of the type parameter
func UnitOf[T Time]() Unit {
	var zero T
	switch any(zero).(type) {
	case Tick:
		return UnitTick
	case Quarter:
		return UnitQuarter
	default:
		return UnitSecond
	}
}

// DefaultMSPQ is the tempo assumed when a score carries none (120 qpm)
const DefaultMSPQ int32 = 500000

// Note is a single pitched note
type Note[T Time] struct {
	Time     T     `json:"time"`
	Duration T     `json:"duration"`
	Pitch    uint8 `json:"pitch"`
	Velocity uint8 `json:"velocity"`
}

// End returns the time at which the note is released
func (n Note[T]) End() T {
	return n.Time + n.Duration
}

// Empty reports whether the note has no audible extent
func (n Note[T]) Empty() bool {
	return n.Duration <= 0 || n.Velocity == 0
}

// Transpose returns the note shifted by the given number of semitones
func (n Note[T]) Transpose(semitones int) (Note[T], error) {
	p := int(n.Pitch) + semitones
	if p < 0 || p > 127 {
		return n, &RangeError{Field: "pitch", Value: p, Min: 0, Max: 127}
	}
	n.Pitch = uint8(p)
	return n, nil
}

// ShiftVelocity returns the note with its velocity changed by delta
func (n Note[T]) ShiftVelocity(delta int) (Note[T], error) {
	v := int(n.Velocity) + delta
	if v < 0 || v > 127 {
		return n, &RangeError{Field: "velocity", Value: v, Min: 0, Max: 127}
	}
	n.Velocity = uint8(v)
	return n, nil
}

// Pedal is a sustain pedal span derived from controller 64
type Pedal[T Time] struct {
	Time     T `json:"time"`
	Duration T `json:"duration"`
}

// End returns the time at which the pedal is released
func (p Pedal[T]) End() T {
	return p.Time + p.Duration
}

// ControlChange is a raw controller message
type ControlChange[T Time] struct {
	Time   T     `json:"time"`
	Number uint8 `json:"number"`
	Value  uint8 `json:"value"`
}

// PitchBend carries a signed 14-bit bend value in [-8192, 8191]
type PitchBend[T Time] struct {
	Time  T     `json:"time"`
	Value int16 `json:"value"`
}

// Pitch bend bounds
const (
	PitchBendMin = -8192
	PitchBendMax = 8191
)

// TimeSignature is a meter change
type TimeSignature[T Time] struct {
	Time        T     `json:"time"`
	Numerator   uint8 `json:"numerator"`
	Denominator uint8 `json:"denominator"`
}

// Valid reports whether the denominator is a non-zero power of two
func (ts TimeSignature[T]) Valid() bool {
	return ts.Numerator > 0 && ts.Denominator > 0 && ts.Denominator&(ts.Denominator-1) == 0
}

// KeySignature is a key change; Key counts sharps (positive) or flats
// (negative) and Tonality is 0 for major, 1 for minor
type KeySignature[T Time] struct {
	Time     T     `json:"time"`
	Key      int8  `json:"key"`
	Tonality uint8 `json:"tonality"`
}

// Degree returns the pitch class of the tonic, offset by 12 for minor keys
func (ks KeySignature[T]) Degree() int {
	d := (int(ks.Key) * 5) % 12
	if d < 0 {
		d += 12
	}
	return d + int(ks.Tonality)*12
}

var (
	majorNames = [12]string{"C", "G", "D", "A", "E", "B", "F#", "C#", "Ab", "Eb", "Bb", "F"}
	minorNames = [12]string{"A", "E", "B", "F#", "C#", "G#", "D#", "A#", "F", "C", "G", "D"}
)

// String returns a readable key name such as "Eb major"
func (ks KeySignature[T]) String() string {
	idx := ((int(ks.Key) % 12) + 12) % 12
	if ks.Tonality == 1 {
		return minorNames[idx] + " minor"
	}
	return majorNames[idx] + " major"
}

// Tempo stores tempo as microseconds per quarter note
type Tempo[T Time] struct {
	Time T     `json:"time"`
	MSPQ int32 `json:"mspq"`
}

// QPM returns quarter notes per minute
func (t Tempo[T]) QPM() float64 {
	if t.MSPQ <= 0 {
		return 0
	}
	return 60000000.0 / float64(t.MSPQ)
}

// NewTempoQPM builds a tempo from quarter notes per minute
func NewTempoQPM[T Time](time T, qpm float64) (Tempo[T], error) {
	if qpm <= 0 || math.IsNaN(qpm) || math.IsInf(qpm, 0) {
		return Tempo[T]{}, &RangeError{Field: "qpm", Value: int(qpm), Min: 1, Max: math.MaxInt32}
	}
	return Tempo[T]{Time: time, MSPQ: int32(math.Round(60000000.0 / qpm))}, nil
}

// TextMeta is a timestamped text event such as a lyric or marker
type TextMeta[T Time] struct {
	Time T      `json:"time"`
	Text string `json:"text"`
}

// Track holds the events of one instrument
type Track[T Time] struct {
	Name       string             `json:"name"`
	Program    uint8              `json:"program"`
	IsDrum     bool               `json:"is_drum"`
	Notes      []Note[T]          `json:"notes"`
	Controls   []ControlChange[T] `json:"controls"`
	PitchBends []PitchBend[T]     `json:"pitch_bends"`
	Pedals     []Pedal[T]         `json:"pedals"`
	Lyrics     []TextMeta[T]      `json:"lyrics"`
}

// Score is a complete piece: tracks plus the global event collections
type Score[T Time] struct {
	TicksPerQuarter int32              `json:"ticks_per_quarter"`
	Tracks          []*Track[T]        `json:"tracks"`
	TimeSignatures  []TimeSignature[T] `json:"time_signatures"`
	KeySignatures   []KeySignature[T]  `json:"key_signatures"`
	Tempos          []Tempo[T]         `json:"tempos"`
	Lyrics          []TextMeta[T]      `json:"lyrics"`
	Markers         []TextMeta[T]      `json:"markers"`
}

// New creates an empty score
func New[T Time](ticksPerQuarter int32) *Score[T] {
	return &Score[T]{TicksPerQuarter: ticksPerQuarter}
}
