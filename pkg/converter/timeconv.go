package converter

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/james-see/midiscore/pkg/score"
)

// segments maps times between two units piecewise-linearly. Segment i
// starts at srcStart[i] in the source unit and dstStart[i] in the
// destination unit, and scales deltas by factor[i]. The last entry is a
// sentinel at +Inf carrying the final rate.
type segments struct {
	srcStart []float64
	dstStart []float64
	factor   []float64
	integer  bool
	cursor   int
}

// at maps a source time. The cursor makes chronological input cheap; any
// other order falls back to a binary search.
func (s *segments) at(t float64) float64 {
	i := s.cursor
	if !(s.srcStart[i] <= t && t < s.srcStart[i+1]) {
		i = sort.Search(len(s.srcStart), func(k int) bool { return s.srcStart[k] > t }) - 1
		if i < 0 {
			i = 0
		}
		if i > len(s.srcStart)-2 {
			i = len(s.srcStart) - 2
		}
		s.cursor = i
	}
	return s.dstStart[i] + s.scale(s.factor[i]*(t-s.srcStart[i]))
}

func (s *segments) scale(v float64) float64 {
	if s.integer {
		return math.Round(v)
	}
	return v
}

// linearSegments is a single segment scaling by factor
func linearSegments(factor float64, integer bool) *segments {
	return &segments{
		srcStart: []float64{0, math.Inf(1)},
		dstStart: []float64{0, math.Inf(1)},
		factor:   []float64{factor, factor},
		integer:  integer,
	}
}

// tempoSegments builds the segment table from a score's tempo timeline.
// rate converts one tempo's mspq into a source-to-destination factor.
func tempoSegments[T score.Time](tempos []score.Tempo[T], rate func(mspq int32) float64, integer bool) (*segments, error) {
	sorted := slices.Clone(tempos)
	score.SortByTime(sorted, func(e score.Tempo[T]) T { return e.Time })
	for _, t := range sorted {
		if t.MSPQ <= 0 {
			return nil, &score.RangeError{Field: "tempo mspq", Value: int(t.MSPQ), Min: 1, Max: math.MaxInt32}
		}
	}
	if len(sorted) == 0 {
		sorted = append(sorted, score.Tempo[T]{MSPQ: score.DefaultMSPQ})
	} else if sorted[0].Time > 0 {
		sorted = append([]score.Tempo[T]{{MSPQ: sorted[0].MSPQ}}, sorted...)
	}

	seg := &segments{integer: integer}
	dst := 0.0
	for i, t := range sorted {
		src := float64(t.Time)
		if i > 0 {
			prev := len(seg.srcStart) - 1
			dst += seg.scale(seg.factor[prev] * (src - seg.srcStart[prev]))
		}
		seg.srcStart = append(seg.srcStart, src)
		seg.dstStart = append(seg.dstStart, dst)
		seg.factor = append(seg.factor, rate(t.MSPQ))
	}
	last := len(seg.factor) - 1
	seg.srcStart = append(seg.srcStart, math.Inf(1))
	seg.dstStart = append(seg.dstStart, math.Inf(1))
	seg.factor = append(seg.factor, seg.factor[last])
	return seg, nil
}

// newSegments picks the mapping for a From -> To conversion
func newSegments[To, From score.Time](s *score.Score[From]) (*segments, error) {
	from, to := score.UnitOf[From](), score.UnitOf[To]()
	integer := to == score.UnitTick
	tpq := float64(s.TicksPerQuarter)
	if tpq <= 0 && (from == score.UnitTick || to == score.UnitTick) {
		return nil, &score.InvalidArgumentError{Reason: fmt.Sprintf("ticks per quarter must be positive, got %d", s.TicksPerQuarter)}
	}

	switch {
	case from == to:
		return linearSegments(1, integer), nil
	case from == score.UnitTick && to == score.UnitQuarter:
		return linearSegments(1/tpq, integer), nil
	case from == score.UnitQuarter && to == score.UnitTick:
		return linearSegments(tpq, integer), nil
	case from == score.UnitTick && to == score.UnitSecond:
		return tempoSegments(s.Tempos, func(mspq int32) float64 { return float64(mspq) / 1e6 / tpq }, integer)
	case from == score.UnitSecond && to == score.UnitTick:
		return tempoSegments(s.Tempos, func(mspq int32) float64 { return tpq * 1e6 / float64(mspq) }, integer)
	case from == score.UnitQuarter && to == score.UnitSecond:
		return tempoSegments(s.Tempos, func(mspq int32) float64 { return float64(mspq) / 1e6 }, integer)
	default: // second -> quarter
		return tempoSegments(s.Tempos, func(mspq int32) float64 { return 1e6 / float64(mspq) }, integer)
	}
}

// mapper converts individual timestamps and spans
type mapper[To, From score.Time] struct {
	seg    *segments
	minDur To
}

func (m *mapper[To, From]) point(t From) To {
	return To(m.seg.at(float64(t)))
}

func (m *mapper[To, From]) span(t, d From) (To, To) {
	start := m.point(t)
	end := m.point(t + d)
	return start, max(m.minDur, end-start)
}

// Convert maps a score into another time unit using its own tempo timeline.
// Durations are converted through their end times and floored at minDur.
func Convert[To, From score.Time](s *score.Score[From], minDur To) (*score.Score[To], error) {
	seg, err := newSegments[To](s)
	if err != nil {
		return nil, err
	}
	m := &mapper[To, From]{seg: seg, minDur: minDur}

	out := &score.Score[To]{TicksPerQuarter: s.TicksPerQuarter}
	if s.Tracks != nil {
		out.Tracks = make([]*score.Track[To], 0, len(s.Tracks))
	}
	for _, t := range s.Tracks {
		out.Tracks = append(out.Tracks, convertTrack(t, m))
	}
	out.TimeSignatures = convertEach(s.TimeSignatures, func(e score.TimeSignature[From]) score.TimeSignature[To] {
		return score.TimeSignature[To]{Time: m.point(e.Time), Numerator: e.Numerator, Denominator: e.Denominator}
	})
	out.KeySignatures = convertEach(s.KeySignatures, func(e score.KeySignature[From]) score.KeySignature[To] {
		return score.KeySignature[To]{Time: m.point(e.Time), Key: e.Key, Tonality: e.Tonality}
	})
	out.Tempos = convertEach(s.Tempos, func(e score.Tempo[From]) score.Tempo[To] {
		return score.Tempo[To]{Time: m.point(e.Time), MSPQ: e.MSPQ}
	})
	out.Lyrics = convertEach(s.Lyrics, textConverter(m))
	out.Markers = convertEach(s.Markers, textConverter(m))
	return out, nil
}

func convertTrack[To, From score.Time](t *score.Track[From], m *mapper[To, From]) *score.Track[To] {
	return &score.Track[To]{
		Name:    t.Name,
		Program: t.Program,
		IsDrum:  t.IsDrum,
		Notes: convertEach(t.Notes, func(n score.Note[From]) score.Note[To] {
			start, dur := m.span(n.Time, n.Duration)
			return score.Note[To]{Time: start, Duration: dur, Pitch: n.Pitch, Velocity: n.Velocity}
		}),
		Controls: convertEach(t.Controls, func(c score.ControlChange[From]) score.ControlChange[To] {
			return score.ControlChange[To]{Time: m.point(c.Time), Number: c.Number, Value: c.Value}
		}),
		PitchBends: convertEach(t.PitchBends, func(b score.PitchBend[From]) score.PitchBend[To] {
			return score.PitchBend[To]{Time: m.point(b.Time), Value: b.Value}
		}),
		Pedals: convertEach(t.Pedals, func(p score.Pedal[From]) score.Pedal[To] {
			start, dur := m.span(p.Time, p.Duration)
			return score.Pedal[To]{Time: start, Duration: dur}
		}),
		Lyrics: convertEach(t.Lyrics, textConverter(m)),
	}
}

func textConverter[To, From score.Time](m *mapper[To, From]) func(score.TextMeta[From]) score.TextMeta[To] {
	return func(e score.TextMeta[From]) score.TextMeta[To] {
		return score.TextMeta[To]{Time: m.point(e.Time), Text: e.Text}
	}
}

// convertEach maps a slice, keeping nil as nil
func convertEach[E, F any](in []E, f func(E) F) []F {
	if in == nil {
		return nil
	}
	out := make([]F, len(in))
	for i, e := range in {
		out[i] = f(e)
	}
	return out
}

// Resample converts a score to ticks at a new resolution. Each timestamp and
// duration is rescaled and rounded on its own; durations are floored at minDur.
func Resample[From score.Time](s *score.Score[From], tpq int32, minDur score.Tick) (*score.Score[score.Tick], error) {
	if tpq <= 0 {
		return nil, &score.InvalidArgumentError{Reason: fmt.Sprintf("ticks per quarter must be positive, got %d", tpq)}
	}
	ticks, err := Convert[score.Tick](s, 0)
	if err != nil {
		return nil, err
	}
	factor := float64(tpq) / float64(ticks.TicksPerQuarter)
	at := func(t score.Tick) score.Tick {
		return score.Tick(math.Round(float64(t) * factor))
	}
	dur := func(d score.Tick) score.Tick {
		return max(minDur, at(d))
	}

	out := &score.Score[score.Tick]{TicksPerQuarter: tpq}
	if ticks.Tracks != nil {
		out.Tracks = make([]*score.Track[score.Tick], 0, len(ticks.Tracks))
	}
	for _, t := range ticks.Tracks {
		out.Tracks = append(out.Tracks, &score.Track[score.Tick]{
			Name:    t.Name,
			Program: t.Program,
			IsDrum:  t.IsDrum,
			Notes: convertEach(t.Notes, func(n score.Note[score.Tick]) score.Note[score.Tick] {
				n.Time, n.Duration = at(n.Time), dur(n.Duration)
				return n
			}),
			Controls: convertEach(t.Controls, func(c score.ControlChange[score.Tick]) score.ControlChange[score.Tick] {
				c.Time = at(c.Time)
				return c
			}),
			PitchBends: convertEach(t.PitchBends, func(b score.PitchBend[score.Tick]) score.PitchBend[score.Tick] {
				b.Time = at(b.Time)
				return b
			}),
			Pedals: convertEach(t.Pedals, func(p score.Pedal[score.Tick]) score.Pedal[score.Tick] {
				p.Time, p.Duration = at(p.Time), dur(p.Duration)
				return p
			}),
			Lyrics: convertEach(t.Lyrics, func(l score.TextMeta[score.Tick]) score.TextMeta[score.Tick] {
				l.Time = at(l.Time)
				return l
			}),
		})
	}
	out.TimeSignatures = convertEach(ticks.TimeSignatures, func(e score.TimeSignature[score.Tick]) score.TimeSignature[score.Tick] {
		e.Time = at(e.Time)
		return e
	})
	out.KeySignatures = convertEach(ticks.KeySignatures, func(e score.KeySignature[score.Tick]) score.KeySignature[score.Tick] {
		e.Time = at(e.Time)
		return e
	})
	out.Tempos = convertEach(ticks.Tempos, func(e score.Tempo[score.Tick]) score.Tempo[score.Tick] {
		e.Time = at(e.Time)
		return e
	})
	text := func(e score.TextMeta[score.Tick]) score.TextMeta[score.Tick] {
		e.Time = at(e.Time)
		return e
	}
	out.Lyrics = convertEach(ticks.Lyrics, text)
	out.Markers = convertEach(ticks.Markers, text)
	return out, nil
}
