// Package main is the entry point for the midiscore CLI
package main

import (
	"fmt"
	"os"

	"github.com/james-see/midiscore/pkg/config"
	"github.com/james-see/midiscore/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath   string
	outputFile   string
	sanitize     bool
	textEncoding string
	logLevel     string
	ticksPerQtr  int32
	unitName     string
	minDuration  float64
	serverPort   int
	soundFont    string
	sampleRate   int
	rollMode     string
	rollWidth    int
	rollHeight   int
	rollRes      int
	adjustFrom   []float64
	adjustTo     []float64
	transpose    int
	velocity     int
	shiftTicks   int
	clipStart    int
	clipEnd      int
	clipNoteEnds bool

	cfg *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "midiscore",
	Short: "Read, edit and write Standard MIDI Files as scores",
	Long: `midiscore loads Standard MIDI Files into a score of tracks, notes,
pedals, controllers and tempo/meter/key events, converts it between tick,
quarter and second time units, and writes it back out as MIDI or JSON.

Examples:
  midiscore info song.mid
  midiscore convert song.mid -o song.json --unit second
  midiscore resample song.mid --tpq 960 -o song.960.mid
  midiscore adjust song.mid --from 0,30 --to 0,28.5 -o aligned.mid
  midiscore pianoroll song.mid -o song.png
  midiscore render song.mid --soundfont piano.sf2 -o song.wav
  midiscore tui
  midiscore serve --port 8080`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Config file (default ~/.config/midiscore/config.json)")
	pf.BoolVar(&sanitize, "sanitize", false, "Clamp out-of-range values instead of failing")
	pf.StringVar(&textEncoding, "encoding", "auto", "Text encoding of meta events (auto, utf-8, shift-jis, windows-1252, latin-1)")
	pf.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.Int32Var(&ticksPerQtr, "tpq", 480, "Ticks per quarter for resampling")
	pf.StringVar(&unitName, "unit", "tick", "Time unit of JSON output (tick, quarter, second)")
	pf.Float64Var(&minDuration, "min-dur", 0, "Minimum note and pedal duration in the output unit")

	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (required)")
	_ = convertCmd.MarkFlagRequired("output")

	resampleCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")

	adjustCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")
	adjustCmd.Flags().Float64SliceVar(&adjustFrom, "from", nil, "Original control points in seconds")
	adjustCmd.Flags().Float64SliceVar(&adjustTo, "to", nil, "Adjusted control points in seconds")
	_ = adjustCmd.MarkFlagRequired("from")
	_ = adjustCmd.MarkFlagRequired("to")

	editCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")
	editCmd.Flags().IntVar(&transpose, "transpose", 0, "Semitones to shift non-drum notes by")
	editCmd.Flags().IntVar(&velocity, "velocity", 0, "Amount to add to every note velocity")
	editCmd.Flags().IntVar(&shiftTicks, "shift", 0, "Ticks to shift every event by")
	editCmd.Flags().IntVar(&clipStart, "clip-start", 0, "Start of the clip window in ticks")
	editCmd.Flags().IntVar(&clipEnd, "clip-end", -1, "End of the clip window in ticks, -1 for no clipping")
	editCmd.Flags().BoolVar(&clipNoteEnds, "clip-note-ends", false, "Drop notes that end after the clip window")

	pianorollCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .png file path")
	pianorollCmd.Flags().StringVar(&rollMode, "mode", "frame", "Roll mode (onset, frame, offset)")
	pianorollCmd.Flags().IntVar(&rollWidth, "width", 0, "Image width in pixels")
	pianorollCmd.Flags().IntVar(&rollHeight, "height", 0, "Image height in pixels")
	pianorollCmd.Flags().IntVar(&rollRes, "resolution", 0, "Ticks per column, 0 for a sixteenth note")

	renderCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .wav file path")
	renderCmd.Flags().StringVar(&soundFont, "soundfont", "", "SoundFont (.sf2) to render with")
	renderCmd.Flags().IntVar(&sampleRate, "sample-rate", 0, "Sample rate in Hz")

	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(resampleCmd)
	rootCmd.AddCommand(adjustCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(pianorollCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads the config file and lets explicitly set flags override it
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("sanitize") {
		cfg.Sanitize = sanitize
	}
	if flags.Changed("encoding") {
		cfg.TextEncoding = textEncoding
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("tpq") {
		cfg.TicksPerQuarter = ticksPerQtr
	}
	if flags.Changed("unit") {
		cfg.Unit = unitName
	}
	if flags.Changed("min-dur") {
		cfg.MinDuration = minDuration
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return logger.InitLogger(cfg.LogLevel)
}
