package score

import "slices"

// Summary holds event counts for a score
type Summary struct {
	Tracks         int `json:"tracks"`
	Notes          int `json:"notes"`
	Controls       int `json:"controls"`
	PitchBends     int `json:"pitch_bends"`
	Pedals         int `json:"pedals"`
	Tempos         int `json:"tempos"`
	TimeSignatures int `json:"time_signatures"`
	KeySignatures  int `json:"key_signatures"`
	Lyrics         int `json:"lyrics"`
	Markers        int `json:"markers"`
}

// Summary counts the events in the score
func (s *Score[T]) Summary() Summary {
	sum := Summary{
		Tracks:         len(s.Tracks),
		Tempos:         len(s.Tempos),
		TimeSignatures: len(s.TimeSignatures),
		KeySignatures:  len(s.KeySignatures),
		Lyrics:         len(s.Lyrics),
		Markers:        len(s.Markers),
	}
	for _, t := range s.Tracks {
		sum.Notes += len(t.Notes)
		sum.Controls += len(t.Controls)
		sum.PitchBends += len(t.PitchBends)
		sum.Pedals += len(t.Pedals)
		sum.Lyrics += len(t.Lyrics)
	}
	return sum
}

// Empty reports whether the score has no tracks with events and no global events
func (s *Score[T]) Empty() bool {
	for _, t := range s.Tracks {
		if !t.Empty() {
			return false
		}
	}
	return len(s.TimeSignatures) == 0 && len(s.KeySignatures) == 0 && len(s.Tempos) == 0 &&
		len(s.Lyrics) == 0 && len(s.Markers) == 0
}

// NoteCount returns the number of notes across all tracks
func (s *Score[T]) NoteCount() int {
	n := 0
	for _, t := range s.Tracks {
		n += len(t.Notes)
	}
	return n
}

// StartTime returns the earliest track event time
func (s *Score[T]) StartTime() T {
	var lo T
	first := true
	for _, t := range s.Tracks {
		if t.Empty() {
			continue
		}
		if v := t.StartTime(); first || v < lo {
			lo = v
			first = false
		}
	}
	return lo
}

// EndTime returns the latest track event end
func (s *Score[T]) EndTime() T {
	var hi T
	first := true
	for _, t := range s.Tracks {
		if t.Empty() {
			continue
		}
		if v := t.EndTime(); first || v > hi {
			hi = v
			first = false
		}
	}
	return hi
}

// Sort orders every track and global collection in place and returns the score
func (s *Score[T]) Sort() *Score[T] {
	for _, t := range s.Tracks {
		t.Sort()
	}
	SortByTime(s.TimeSignatures, timeSigTime[T])
	SortByTime(s.KeySignatures, keySigTime[T])
	SortByTime(s.Tempos, tempoTime[T])
	SortByTime(s.Lyrics, textTime[T])
	SortByTime(s.Markers, textTime[T])
	return s
}

// Copy returns a deep copy of the score
func (s *Score[T]) Copy() *Score[T] {
	out := &Score[T]{
		TicksPerQuarter: s.TicksPerQuarter,
		TimeSignatures:  slices.Clone(s.TimeSignatures),
		KeySignatures:   slices.Clone(s.KeySignatures),
		Tempos:          slices.Clone(s.Tempos),
		Lyrics:          slices.Clone(s.Lyrics),
		Markers:         slices.Clone(s.Markers),
	}
	if s.Tracks != nil {
		out.Tracks = make([]*Track[T], len(s.Tracks))
		for i, t := range s.Tracks {
			out.Tracks[i] = t.Copy()
		}
	}
	return out
}

// ShiftTime returns a copy with every event, global ones included, moved by offset
func (s *Score[T]) ShiftTime(offset T) *Score[T] {
	out := s.Copy()
	for i, t := range out.Tracks {
		out.Tracks[i] = t.ShiftTime(offset)
	}
	for i := range out.TimeSignatures {
		out.TimeSignatures[i].Time += offset
	}
	for i := range out.KeySignatures {
		out.KeySignatures[i].Time += offset
	}
	for i := range out.Tempos {
		out.Tempos[i].Time += offset
	}
	for i := range out.Lyrics {
		out.Lyrics[i].Time += offset
	}
	for i := range out.Markers {
		out.Markers[i].Time += offset
	}
	return out
}

// ShiftPitch returns a copy with every non-drum note transposed
func (s *Score[T]) ShiftPitch(semitones int) (*Score[T], error) {
	out := s.Copy()
	for i, t := range out.Tracks {
		if t.IsDrum {
			continue
		}
		shifted, err := t.ShiftPitch(semitones)
		if err != nil {
			return nil, err
		}
		out.Tracks[i] = shifted
	}
	return out, nil
}

// ShiftVelocity returns a copy with every note velocity changed by delta
func (s *Score[T]) ShiftVelocity(delta int) (*Score[T], error) {
	out := s.Copy()
	for i, t := range out.Tracks {
		shifted, err := t.ShiftVelocity(delta)
		if err != nil {
			return nil, err
		}
		out.Tracks[i] = shifted
	}
	return out, nil
}

// Clip returns a copy restricted to events starting in [start, end).
// The tempo, time and key signature in effect at start are carried to start
// so the clipped score keeps its timeline.
func (s *Score[T]) Clip(start, end T, clipEnd bool) *Score[T] {
	out := &Score[T]{TicksPerQuarter: s.TicksPerQuarter}
	for _, t := range s.Tracks {
		out.Tracks = append(out.Tracks, t.Clip(start, end, clipEnd))
	}
	out.Tempos = clipCarry(s.Tempos, start, end, tempoTime[T], func(e *Tempo[T], v T) { e.Time = v })
	out.TimeSignatures = clipCarry(s.TimeSignatures, start, end, timeSigTime[T], func(e *TimeSignature[T], v T) { e.Time = v })
	out.KeySignatures = clipCarry(s.KeySignatures, start, end, keySigTime[T], func(e *KeySignature[T], v T) { e.Time = v })
	out.Lyrics = clipEvents(s.Lyrics, start, end, textTime[T])
	out.Markers = clipEvents(s.Markers, start, end, textTime[T])
	return out
}

// clipCarry keeps events in [start, end) and, when none sits exactly on
// start, moves the last earlier event to start.
func clipCarry[E any, T Time](events []E, start, end T, key func(E) T, set func(*E, T)) []E {
	var (
		carry    E
		hasCarry bool
		out      []E
	)
	for _, e := range events {
		switch v := key(e); {
		case v < start:
			if !hasCarry || v >= key(carry) {
				carry, hasCarry = e, true
			}
		case v < end:
			out = append(out, e)
		}
	}
	if hasCarry && (len(out) == 0 || key(out[0]) > start) {
		set(&carry, start)
		out = append([]E{carry}, out...)
	}
	return out
}
