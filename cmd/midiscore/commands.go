package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/midiscore/pkg/api"
	"github.com/james-see/midiscore/pkg/converter"
	"github.com/james-see/midiscore/pkg/pianoroll"
	"github.com/james-see/midiscore/pkg/score"
	"github.com/james-see/midiscore/pkg/synth"
	"github.com/james-see/midiscore/pkg/tui"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <input.mid>",
	Short: "Show tracks, event counts and length of a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Convert between MIDI and JSON",
	Long:  `Detects the input format from its extension or content and converts to the format named by the output extension.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var resampleCmd = &cobra.Command{
	Use:   "resample <input.mid>",
	Short: "Re-encode a MIDI file at a new ticks-per-quarter resolution",
	Args:  cobra.ExactArgs(1),
	RunE:  runResample,
}

var adjustCmd = &cobra.Command{
	Use:   "adjust <input.mid>",
	Short: "Warp event times through piecewise-linear control points",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdjust,
}

var editCmd = &cobra.Command{
	Use:   "edit <input.mid>",
	Short: "Transpose, shift, re-velocity or clip a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runEdit,
}

var pianorollCmd = &cobra.Command{
	Use:   "pianoroll <input.mid>",
	Short: "Render the notes of a MIDI file to a PNG piano roll",
	Args:  cobra.ExactArgs(1),
	RunE:  runPianoroll,
}

var renderCmd = &cobra.Command{
	Use:   "render <input.mid>",
	Short: "Synthesize a MIDI file to WAV with a SoundFont",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func getOutputPath(input, defaultExt string) string {
	if outputFile != "" {
		return outputFile
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + defaultExt
}

func readScore(path string) (*score.Score[score.Tick], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return converter.ParseMIDIWithOptions(data, cfg.ParseOptions())
}

func writeScore(s *score.Score[score.Tick], path string) error {
	data, err := converter.DumpMIDI(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func runInfo(cmd *cobra.Command, args []string) error {
	s, err := readScore(args[0])
	if err != nil {
		return err
	}
	fmt.Println(args[0])
	for _, line := range tui.Describe(s) {
		fmt.Println(line)
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	conv := converter.New(cfg.ConverterOptions())

	fmt.Printf("Converting %s -> %s\n", input, outputFile)
	if err := conv.ConvertFile(input, outputFile); err != nil {
		return err
	}
	fmt.Println("Conversion complete!")
	return nil
}

func runResample(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := getOutputPath(input, fmt.Sprintf(".%d.mid", cfg.TicksPerQuarter))

	s, err := readScore(input)
	if err != nil {
		return err
	}
	out, err := converter.Resample(s, cfg.TicksPerQuarter, score.Tick(cfg.MinDuration))
	if err != nil {
		return err
	}
	if err := writeScore(out, output); err != nil {
		return err
	}

	fmt.Printf("Resampled %s (%d tpq) -> %s (%d tpq)\n", input, s.TicksPerQuarter, output, out.TicksPerQuarter)
	return nil
}

func runAdjust(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := getOutputPath(input, ".adjusted.mid")

	s, err := readScore(input)
	if err != nil {
		return err
	}
	secs, err := converter.Convert[score.Second](s, 0)
	if err != nil {
		return err
	}
	adjusted, err := converter.AdjustTime(secs, toSeconds(adjustFrom), toSeconds(adjustTo))
	if err != nil {
		return err
	}
	out, err := converter.Convert[score.Tick](adjusted, 0)
	if err != nil {
		return err
	}
	if err := writeScore(out, output); err != nil {
		return err
	}

	fmt.Printf("Adjusted %s -> %s\n", input, output)
	return nil
}

func toSeconds(values []float64) []score.Second {
	out := make([]score.Second, len(values))
	for i, v := range values {
		out[i] = score.Second(v)
	}
	return out
}

func runEdit(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := getOutputPath(input, ".edited.mid")

	s, err := readScore(input)
	if err != nil {
		return err
	}
	if transpose != 0 {
		if s, err = s.ShiftPitch(transpose); err != nil {
			return err
		}
	}
	if velocity != 0 {
		if s, err = s.ShiftVelocity(velocity); err != nil {
			return err
		}
	}
	if shiftTicks != 0 {
		s = s.ShiftTime(score.Tick(shiftTicks))
	}
	if clipEnd >= 0 {
		s = s.Clip(score.Tick(clipStart), score.Tick(clipEnd), clipNoteEnds)
	}
	if err := writeScore(s, output); err != nil {
		return err
	}

	fmt.Printf("Edited %s -> %s\n", input, output)
	return nil
}

func runPianoroll(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := getOutputPath(input, ".png")

	s, err := readScore(input)
	if err != nil {
		return err
	}
	res := rollRes
	if !cmd.Flags().Changed("resolution") {
		res = cfg.Pianoroll.Resolution
	}
	roll, err := pianoroll.New(s, pianoroll.Options{
		Resolution: score.Tick(res),
		Mode:       pianoroll.Mode(rollMode),
		Velocity:   true,
	})
	if err != nil {
		return err
	}
	width, height := rollWidth, rollHeight
	if width <= 0 {
		width = cfg.Pianoroll.Width
	}
	if height <= 0 {
		height = cfg.Pianoroll.Height
	}
	if err := roll.SavePNG(output, width, height); err != nil {
		return err
	}

	fmt.Printf("Rendered %d columns from %s -> %s\n", roll.Columns, input, output)
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := getOutputPath(input, ".wav")
	if soundFont != "" {
		cfg.SoundFont = soundFont
	}
	if sampleRate > 0 {
		cfg.SampleRate = sampleRate
	}
	if cfg.SoundFont == "" {
		return fmt.Errorf("no SoundFont given: use --soundfont or set soundFont in the config")
	}

	s, err := readScore(input)
	if err != nil {
		return err
	}
	sf, err := os.Open(cfg.SoundFont)
	if err != nil {
		return err
	}
	defer func() { _ = sf.Close() }()

	audio, err := synth.Render(s, sf, synth.Options{SampleRate: int32(cfg.SampleRate)})
	if err != nil {
		return err
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	if err := audio.WriteWAV(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Printf("Rendered %s -> %s (%s)\n", input, output, audio.Duration())
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(cfg)
}

func runServe(cmd *cobra.Command, args []string) error {
	if serverPort > 0 {
		cfg.Server.Port = serverPort
	}
	fmt.Printf("Starting API server on port %d...\n", cfg.Server.Port)
	return api.StartServer(cfg)
}
