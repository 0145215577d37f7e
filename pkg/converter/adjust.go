package converter

import (
	"fmt"
	"math"
	"sort"

	"github.com/james-see/midiscore/pkg/score"
)

// controlPoints interpolates between parallel (original, updated) times
type controlPoints struct {
	from    []float64
	to      []float64
	integer bool
}

func newControlPoints[T score.Time](original, updated []T) (*controlPoints, error) {
	if len(original) != len(updated) {
		return nil, &score.InvalidArgumentError{Reason: fmt.Sprintf("control point arrays differ in length: %d vs %d", len(original), len(updated))}
	}
	if len(original) < 2 {
		return nil, &score.InvalidArgumentError{Reason: fmt.Sprintf("need at least 2 control points, got %d", len(original))}
	}
	cp := &controlPoints{
		from:    make([]float64, len(original)),
		to:      make([]float64, len(updated)),
		integer: score.UnitOf[T]() == score.UnitTick,
	}
	for i := range original {
		cp.from[i], cp.to[i] = float64(original[i]), float64(updated[i])
		if i == 0 {
			continue
		}
		if cp.from[i] <= cp.from[i-1] {
			return nil, &score.InvalidArgumentError{Reason: fmt.Sprintf("original times must be strictly ascending (index %d)", i)}
		}
		if cp.to[i] < cp.to[i-1] {
			return nil, &score.InvalidArgumentError{Reason: fmt.Sprintf("new times must be ascending (index %d)", i)}
		}
	}
	return cp, nil
}

func (cp *controlPoints) contains(t float64) bool {
	return t >= cp.from[0] && t <= cp.from[len(cp.from)-1]
}

// at interpolates t, clamping it to the control range first
func (cp *controlPoints) at(t float64) float64 {
	last := len(cp.from) - 1
	t = min(max(t, cp.from[0]), cp.from[last])
	i := sort.SearchFloat64s(cp.from, t)
	if i > last {
		i = last
	}
	if cp.from[i] == t {
		return cp.round(cp.to[i])
	}
	lo, hi := i-1, i
	ratio := (t - cp.from[lo]) / (cp.from[hi] - cp.from[lo])
	return cp.round(cp.to[lo] + ratio*(cp.to[hi]-cp.to[lo]))
}

func (cp *controlPoints) round(v float64) float64 {
	if cp.integer {
		return math.Round(v)
	}
	return v
}

// AdjustTime remaps every timestamp by piecewise-linear interpolation between
// the (original[i], updated[i]) control points. Events starting outside
// [original[0], original[n-1]] are dropped; end times past the range are
// clamped to it.
func AdjustTime[T score.Time](s *score.Score[T], original, updated []T) (*score.Score[T], error) {
	cp, err := newControlPoints(original, updated)
	if err != nil {
		return nil, err
	}
	point := func(t T) T { return T(cp.at(float64(t))) }
	span := func(t, d T) (T, T) {
		start := point(t)
		return start, max(0, point(t+d)-start)
	}
	keep := func(t T) bool { return cp.contains(float64(t)) }

	out := &score.Score[T]{TicksPerQuarter: s.TicksPerQuarter}
	for _, t := range s.Tracks {
		nt := &score.Track[T]{Name: t.Name, Program: t.Program, IsDrum: t.IsDrum}
		for _, n := range t.Notes {
			if keep(n.Time) {
				n.Time, n.Duration = span(n.Time, n.Duration)
				nt.Notes = append(nt.Notes, n)
			}
		}
		for _, p := range t.Pedals {
			if keep(p.Time) {
				p.Time, p.Duration = span(p.Time, p.Duration)
				nt.Pedals = append(nt.Pedals, p)
			}
		}
		for _, c := range t.Controls {
			if keep(c.Time) {
				c.Time = point(c.Time)
				nt.Controls = append(nt.Controls, c)
			}
		}
		for _, b := range t.PitchBends {
			if keep(b.Time) {
				b.Time = point(b.Time)
				nt.PitchBends = append(nt.PitchBends, b)
			}
		}
		nt.Lyrics = adjustText(t.Lyrics, keep, point)
		out.Tracks = append(out.Tracks, nt)
	}
	for _, e := range s.TimeSignatures {
		if keep(e.Time) {
			e.Time = point(e.Time)
			out.TimeSignatures = append(out.TimeSignatures, e)
		}
	}
	for _, e := range s.KeySignatures {
		if keep(e.Time) {
			e.Time = point(e.Time)
			out.KeySignatures = append(out.KeySignatures, e)
		}
	}
	for _, e := range s.Tempos {
		if keep(e.Time) {
			e.Time = point(e.Time)
			out.Tempos = append(out.Tempos, e)
		}
	}
	out.Lyrics = adjustText(s.Lyrics, keep, point)
	out.Markers = adjustText(s.Markers, keep, point)
	return out, nil
}

func adjustText[T score.Time](events []score.TextMeta[T], keep func(T) bool, point func(T) T) []score.TextMeta[T] {
	var out []score.TextMeta[T]
	for _, e := range events {
		if keep(e.Time) {
			e.Time = point(e.Time)
			out = append(out, e)
		}
	}
	return out
}
