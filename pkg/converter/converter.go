package converter

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/midiscore/pkg/logger"
	"github.com/james-see/midiscore/pkg/score"
)

// Format represents a file format
type Format string

const (
	FormatMIDI    Format = "midi"
	FormatJSON    Format = "json"
	FormatUnknown Format = "unknown"
)

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mid", ".midi", ".smf":
		return FormatMIDI
	case ".json":
		return FormatJSON
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) >= 4 && string(data[:4]) == headerChunkID {
		return FormatMIDI
	}
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatUnknown
}

// ConvertFile converts a file from one format to another
func (c *Converter) ConvertFile(inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	inputFormat := DetectFormat(inputPath)
	if inputFormat == FormatUnknown {
		inputFormat = DetectFormatFromContent(data)
	}
	outputFormat := DetectFormat(outputPath)
	if outputFormat == FormatUnknown {
		return errors.New("cannot determine output format from filename")
	}

	result, err := c.Convert(data, inputFormat, outputFormat)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	if err := os.WriteFile(outputPath, result.Data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	logger.GetLogger().Info("converted file",
		"input", inputPath, "output", outputPath,
		"tracks", result.Summary.Tracks, "notes", result.Summary.Notes)
	return nil
}

// Convert converts data between formats
func (c *Converter) Convert(data []byte, from, to Format) (*ConversionResult, error) {
	var (
		s   *score.Score[score.Tick]
		err error
	)
	switch from {
	case FormatMIDI:
		s, err = ParseMIDIWithOptions(data, c.opts.Parse)
	case FormatJSON:
		s, err = DecodeJSON(data)
	default:
		return nil, fmt.Errorf("unsupported input format: %s", from)
	}
	if err != nil {
		return nil, err
	}
	logger.GetLogger().Debug("decoded score", "format", from, "tpq", s.TicksPerQuarter, "tracks", len(s.Tracks))

	result := &ConversionResult{Format: to}
	switch to {
	case FormatMIDI:
		if c.opts.TicksPerQuarter > 0 && c.opts.TicksPerQuarter != s.TicksPerQuarter {
			s, err = Resample(s, c.opts.TicksPerQuarter, score.Tick(math.Round(c.opts.MinDuration)))
			if err != nil {
				return nil, err
			}
		}
		result.Data, err = DumpMIDI(s)
	case FormatJSON:
		result.Data, err = EncodeJSONAs(s, c.opts.Unit, c.opts.MinDuration)
	default:
		return nil, fmt.Errorf("unsupported conversion: %s to %s", from, to)
	}
	if err != nil {
		return nil, err
	}
	result.Summary = s.Summary()
	return result, nil
}

// MIDIToMIDI re-encodes MIDI data, resampling when a resolution is configured
func (c *Converter) MIDIToMIDI(midiData []byte) ([]byte, error) {
	result, err := c.Convert(midiData, FormatMIDI, FormatMIDI)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// MIDIToJSON converts MIDI data to a JSON score in the configured unit
func (c *Converter) MIDIToJSON(midiData []byte) ([]byte, error) {
	result, err := c.Convert(midiData, FormatMIDI, FormatJSON)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// JSONToMIDI converts a JSON score to MIDI data
func (c *Converter) JSONToMIDI(jsonData []byte) ([]byte, error) {
	result, err := c.Convert(jsonData, FormatJSON, FormatMIDI)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// GetSupportedConversions returns a list of supported conversion paths
func GetSupportedConversions() []string {
	return []string{
		"midi -> midi",
		"midi -> json",
		"json -> midi",
		"json -> json",
	}
}
