// Package pianoroll rasterises the notes of a score into a pitch-by-time grid
// and renders that grid as a PNG image
package pianoroll

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/james-see/midiscore/pkg/score"
	"golang.org/x/image/font/gofont/goregular"
)

// Pitches is the number of MIDI pitches a roll covers
const Pitches = 128

// MaxColumns bounds the width of a roll; 128 rows of this many cells is 32 MiB
const MaxColumns = 1 << 18

// Mode selects which part of a note marks the grid
type Mode string

const (
	// ModeOnset marks only the column a note starts in
	ModeOnset Mode = "onset"
	// ModeFrame marks every column the note sounds in
	ModeFrame Mode = "frame"
	// ModeOffset marks only the column a note ends in
	ModeOffset Mode = "offset"
)

// ParseMode converts a mode name
func ParseMode(name string) (Mode, error) {
	switch m := Mode(name); m {
	case ModeOnset, ModeFrame, ModeOffset:
		return m, nil
	case "":
		return ModeFrame, nil
	}
	return "", &score.InvalidArgumentError{Reason: fmt.Sprintf("unknown pianoroll mode %q", name)}
}

// Options configures rasterisation
type Options struct {
	// Resolution is the number of ticks per column; 0 uses a sixteenth note
	Resolution score.Tick
	Mode       Mode
	// Velocity stores note velocities instead of 1 in marked cells
	Velocity bool
	// SkipDrums leaves percussion tracks out
	SkipDrums bool
}

// Roll is a pitch-by-column grid. Cells hold 0 for silence and either 1 or
// the loudest velocity that marked them.
type Roll struct {
	Mode       Mode
	Resolution score.Tick
	Columns    int
	Cells      [Pitches][]uint8
}

// New rasterises a tick score
func New(s *score.Score[score.Tick], opts Options) (*Roll, error) {
	mode, err := ParseMode(string(opts.Mode))
	if err != nil {
		return nil, err
	}
	res := opts.Resolution
	if res == 0 {
		res = max(1, score.Tick(s.TicksPerQuarter/4))
	}
	if res < 0 {
		return nil, &score.RangeError{Field: "pianoroll resolution", Value: int(res), Min: 1, Max: int(^uint32(0) >> 1)}
	}

	r := &Roll{Mode: mode, Resolution: res}
	end := s.EndTime()
	if end > 0 {
		r.Columns = int(end/res) + 1
	}
	if r.Columns > MaxColumns {
		return nil, &score.RangeError{Field: "pianoroll columns", Value: r.Columns, Min: 0, Max: MaxColumns}
	}
	for p := range r.Cells {
		r.Cells[p] = make([]uint8, r.Columns)
	}

	for _, t := range s.Tracks {
		if opts.SkipDrums && t.IsDrum {
			continue
		}
		for _, n := range t.Notes {
			if n.Velocity == 0 || n.Time < 0 {
				continue
			}
			v := uint8(1)
			if opts.Velocity {
				v = n.Velocity
			}
			r.mark(n, v)
		}
	}
	return r, nil
}

func (r *Roll) mark(n score.Note[score.Tick], v uint8) {
	if r.Columns == 0 || n.Pitch >= Pitches {
		return
	}
	row := r.Cells[n.Pitch]
	start := min(int(n.Time/r.Resolution), r.Columns-1)
	stop := min(int(n.End()/r.Resolution), r.Columns-1)
	switch r.Mode {
	case ModeOnset:
		row[start] = max(row[start], v)
	case ModeOffset:
		row[stop] = max(row[stop], v)
	default:
		// a note shorter than one column still occupies its onset column
		stop = max(stop, start+1)
		for c := start; c < stop && c < r.Columns; c++ {
			row[c] = max(row[c], v)
		}
	}
}

// At returns the cell value for pitch at column, or 0 outside the grid
func (r *Roll) At(pitch uint8, column int) uint8 {
	if pitch >= Pitches || column < 0 || column >= r.Columns {
		return 0
	}
	return r.Cells[pitch][column]
}

// PitchRange returns the lowest and highest marked pitches; ok is false for
// an empty roll
func (r *Roll) PitchRange() (lo, hi uint8, ok bool) {
	for p := 0; p < Pitches; p++ {
		for _, v := range r.Cells[p] {
			if v == 0 {
				continue
			}
			if !ok {
				lo, ok = uint8(p), true
			}
			hi = uint8(p)
			break
		}
	}
	return lo, hi, ok
}

func (r *Roll) draw(width, height int) (*gg.Context, error) {
	if width <= 0 || height <= 0 {
		return nil, &score.InvalidArgumentError{Reason: fmt.Sprintf("image size must be positive, got %dx%d", width, height)}
	}
	w, h := float64(width), float64(height)
	dc := gg.NewContext(width, height)
	dc.SetRGB(0.17, 0.17, 0.17)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	rowH := h / Pitches
	for octave := 0; octave < Pitches/12; octave++ {
		y := h - float64(octave*12)*rowH
		dc.SetRGBA(1, 1, 1, 0.15)
		dc.SetLineWidth(0.5)
		dc.DrawLine(0, y, w, y)
		dc.Stroke()
	}

	if r.Columns > 0 {
		colW := w / float64(r.Columns)
		for p := 0; p < Pitches; p++ {
			y := h - float64(p+1)*rowH
			for c, v := range r.Cells[p] {
				if v == 0 {
					continue
				}
				shade := 0.35 + 0.65*float64(v)/127
				if v == 1 {
					shade = 1
				}
				dc.SetRGB(0.2*shade, 0.7*shade, 1*shade)
				dc.DrawRectangle(float64(c)*colW, y, colW, rowH)
				dc.Fill()
			}
		}
	}

	if err := drawOctaveLabels(dc, w, h, rowH); err != nil {
		return nil, err
	}
	return dc, nil
}

func drawOctaveLabels(dc *gg.Context, w, h, rowH float64) error {
	size := rowH * 8
	if size < 6 {
		return nil
	}
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("failed to load label font: %w", err)
	}
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: min(size, 14)}))
	dc.SetRGBA(1, 1, 1, 0.5)
	for octave := 0; octave < Pitches/12; octave++ {
		y := h - float64(octave*12)*rowH - 2
		dc.DrawString(fmt.Sprintf("C%d", octave-1), 2, y)
	}
	return nil
}

// Image renders the roll at the given size, low pitches at the bottom
func (r *Roll) Image(width, height int) (image.Image, error) {
	dc, err := r.draw(width, height)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// SavePNG renders the roll and writes it to path
func (r *Roll) SavePNG(path string, width, height int) error {
	dc, err := r.draw(width, height)
	if err != nil {
		return err
	}
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save piano roll: %w", err)
	}
	return nil
}
