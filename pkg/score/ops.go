package score

import (
	"cmp"
	"slices"
)

// SortNotes orders notes by (time, pitch, duration), keeping equal notes stable
func SortNotes[T Time](notes []Note[T]) {
	slices.SortStableFunc(notes, func(a, b Note[T]) int {
		if c := cmp.Compare(a.Time, b.Time); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Pitch, b.Pitch); c != 0 {
			return c
		}
		return cmp.Compare(a.Duration, b.Duration)
	})
}

// SortPedals orders pedals by (time, duration)
func SortPedals[T Time](pedals []Pedal[T]) {
	slices.SortStableFunc(pedals, func(a, b Pedal[T]) int {
		if c := cmp.Compare(a.Time, b.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.Duration, b.Duration)
	})
}

// SortByTime stable-sorts any event slice by the time returned from key
func SortByTime[E any, T Time](events []E, key func(E) T) {
	slices.SortStableFunc(events, func(a, b E) int {
		return cmp.Compare(key(a), key(b))
	})
}

// Time accessors used with SortByTime and friends.
func controlTime[T Time](e ControlChange[T]) T { return e.Time }
func bendTime[T Time](e PitchBend[T]) T        { return e.Time }
func textTime[T Time](e TextMeta[T]) T         { return e.Time }
func tempoTime[T Time](e Tempo[T]) T           { return e.Time }
func timeSigTime[T Time](e TimeSignature[T]) T { return e.Time }
func keySigTime[T Time](e KeySignature[T]) T   { return e.Time }

// Empty reports whether the track holds no events at all
func (t *Track[T]) Empty() bool {
	return len(t.Notes) == 0 && len(t.Controls) == 0 && len(t.PitchBends) == 0 &&
		len(t.Pedals) == 0 && len(t.Lyrics) == 0
}

// NoteCount returns the number of notes
func (t *Track[T]) NoteCount() int {
	return len(t.Notes)
}

// StartTime returns the earliest event time, or zero for an empty track
func (t *Track[T]) StartTime() T {
	var lo T
	first := true
	see := func(v T) {
		if first || v < lo {
			lo = v
			first = false
		}
	}
	for _, n := range t.Notes {
		see(n.Time)
	}
	for _, c := range t.Controls {
		see(c.Time)
	}
	for _, b := range t.PitchBends {
		see(b.Time)
	}
	for _, p := range t.Pedals {
		see(p.Time)
	}
	for _, l := range t.Lyrics {
		see(l.Time)
	}
	return lo
}

// EndTime returns the latest event end, or zero for an empty track
func (t *Track[T]) EndTime() T {
	var hi T
	first := true
	see := func(v T) {
		if first || v > hi {
			hi = v
			first = false
		}
	}
	for _, n := range t.Notes {
		see(n.End())
	}
	for _, c := range t.Controls {
		see(c.Time)
	}
	for _, b := range t.PitchBends {
		see(b.Time)
	}
	for _, p := range t.Pedals {
		see(p.End())
	}
	for _, l := range t.Lyrics {
		see(l.Time)
	}
	return hi
}

// Sort orders every collection of the track in place and returns it
func (t *Track[T]) Sort() *Track[T] {
	SortNotes(t.Notes)
	SortPedals(t.Pedals)
	SortByTime(t.Controls, controlTime[T])
	SortByTime(t.PitchBends, bendTime[T])
	SortByTime(t.Lyrics, textTime[T])
	return t
}

// Copy returns a deep copy of the track
func (t *Track[T]) Copy() *Track[T] {
	return &Track[T]{
		Name:       t.Name,
		Program:    t.Program,
		IsDrum:     t.IsDrum,
		Notes:      slices.Clone(t.Notes),
		Controls:   slices.Clone(t.Controls),
		PitchBends: slices.Clone(t.PitchBends),
		Pedals:     slices.Clone(t.Pedals),
		Lyrics:     slices.Clone(t.Lyrics),
	}
}

// ShiftTime returns a copy with every event moved by offset
func (t *Track[T]) ShiftTime(offset T) *Track[T] {
	out := t.Copy()
	for i := range out.Notes {
		out.Notes[i].Time += offset
	}
	for i := range out.Controls {
		out.Controls[i].Time += offset
	}
	for i := range out.PitchBends {
		out.PitchBends[i].Time += offset
	}
	for i := range out.Pedals {
		out.Pedals[i].Time += offset
	}
	for i := range out.Lyrics {
		out.Lyrics[i].Time += offset
	}
	return out
}

// ShiftPitch returns a copy with every note transposed, drum tracks included
func (t *Track[T]) ShiftPitch(semitones int) (*Track[T], error) {
	out := t.Copy()
	for i, n := range out.Notes {
		shifted, err := n.Transpose(semitones)
		if err != nil {
			return nil, err
		}
		out.Notes[i] = shifted
	}
	return out, nil
}

// ShiftVelocity returns a copy with every note velocity changed by delta
func (t *Track[T]) ShiftVelocity(delta int) (*Track[T], error) {
	out := t.Copy()
	for i, n := range out.Notes {
		shifted, err := n.ShiftVelocity(delta)
		if err != nil {
			return nil, err
		}
		out.Notes[i] = shifted
	}
	return out, nil
}

func inWindow[T Time](v, start, end T) bool {
	return v >= start && v < end
}

// Clip returns a copy holding only events that start in [start, end).
// With clipEnd set, notes and pedals must also end at or before end.
func (t *Track[T]) Clip(start, end T, clipEnd bool) *Track[T] {
	out := &Track[T]{Name: t.Name, Program: t.Program, IsDrum: t.IsDrum}
	for _, n := range t.Notes {
		if inWindow(n.Time, start, end) && (!clipEnd || n.End() <= end) {
			out.Notes = append(out.Notes, n)
		}
	}
	for _, p := range t.Pedals {
		if inWindow(p.Time, start, end) && (!clipEnd || p.End() <= end) {
			out.Pedals = append(out.Pedals, p)
		}
	}
	out.Controls = clipEvents(t.Controls, start, end, controlTime[T])
	out.PitchBends = clipEvents(t.PitchBends, start, end, bendTime[T])
	out.Lyrics = clipEvents(t.Lyrics, start, end, textTime[T])
	return out
}

func clipEvents[E any, T Time](events []E, start, end T, key func(E) T) []E {
	var out []E
	for _, e := range events {
		if inWindow(key(e), start, end) {
			out = append(out, e)
		}
	}
	return out
}
