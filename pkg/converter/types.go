// Package converter decodes and encodes Standard MIDI Files and maps scores
// between tick, quarter and second time units
package converter

import "github.com/james-see/midiscore/pkg/score"

// Options configures a Converter
type Options struct {
	Parse ParseOptions
	// TicksPerQuarter is the resolution of MIDI output; 0 keeps the source's
	TicksPerQuarter int32
	// Unit is the time unit of JSON output
	Unit score.Unit
	// MinDuration floors note and pedal durations, in the output unit
	MinDuration float64
}

// ConversionResult holds the result of a conversion
type ConversionResult struct {
	Data    []byte
	Format  Format
	Summary score.Summary
}

// Converter handles format conversions
type Converter struct {
	opts Options
}

// New creates a new Converter with the given options
func New(opts Options) *Converter {
	return &Converter{opts: opts}
}

// GetOptions returns the current options
func (c *Converter) GetOptions() Options {
	return c.opts
}

// SetOptions replaces the options used for conversion
func (c *Converter) SetOptions(opts Options) {
	c.opts = opts
}
