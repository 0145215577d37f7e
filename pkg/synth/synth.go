// Package synth renders scores to audio with a SoundFont synthesizer
package synth

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/james-see/midiscore/pkg/converter"
	"github.com/james-see/midiscore/pkg/logger"
	"github.com/james-see/midiscore/pkg/score"
	"github.com/sinshu/go-meltysynth/meltysynth"
)

// Sample rate bounds accepted by the synthesizer
const (
	MinSampleRate = 16000
	MaxSampleRate = 192000
)

// DefaultTail is rendered after the last event so releases can ring out
const DefaultTail = time.Second

// Options configures rendering
type Options struct {
	SampleRate int32
	// Tail is extra time rendered after the end of the score; 0 uses DefaultTail
	Tail time.Duration
}

// Audio is rendered stereo PCM
type Audio struct {
	SampleRate int32
	Left       []float32
	Right      []float32
}

// Duration returns the length of the audio
func (a *Audio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(a.Left)) * time.Second / time.Duration(a.SampleRate)
}

// Render plays a score of any time unit through the SoundFont read from sf
func Render[T score.Time](s *score.Score[T], sf io.Reader, opts Options) (*Audio, error) {
	if opts.SampleRate < MinSampleRate || opts.SampleRate > MaxSampleRate {
		return nil, &score.RangeError{Field: "sample rate", Value: int(opts.SampleRate), Min: MinSampleRate, Max: MaxSampleRate}
	}
	if sf == nil {
		return nil, &score.InvalidArgumentError{Reason: "no SoundFont given"}
	}
	tail := opts.Tail
	if tail <= 0 {
		tail = DefaultTail
	}

	data, err := converter.DumpMIDIAny(s)
	if err != nil {
		return nil, err
	}
	soundFont, err := meltysynth.NewSoundFont(sf)
	if err != nil {
		return nil, fmt.Errorf("failed to load SoundFont: %w", err)
	}
	midiFile, err := meltysynth.NewMidiFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to load MIDI data: %w", err)
	}

	settings := meltysynth.NewSynthesizerSettings(opts.SampleRate)
	synthesizer, err := meltysynth.NewSynthesizer(soundFont, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}
	sequencer := meltysynth.NewMidiFileSequencer(synthesizer)
	sequencer.Play(midiFile, false)

	length := midiFile.GetLength() + tail
	samples := int(length.Seconds() * float64(opts.SampleRate))
	audio := &Audio{
		SampleRate: opts.SampleRate,
		Left:       make([]float32, samples),
		Right:      make([]float32, samples),
	}
	sequencer.Render(audio.Left, audio.Right)

	logger.GetLogger().Debug("rendered audio", "samples", samples, "duration", audio.Duration())
	return audio, nil
}

// WriteWAV writes the audio as 16-bit stereo PCM
func (a *Audio) WriteWAV(w io.Writer) error {
	return WriteWAV(w, a.Left, a.Right, a.SampleRate)
}

// WriteWAV writes interleaved 16-bit stereo PCM in a RIFF/WAVE container.
// Samples are clipped to [-1, 1].
func WriteWAV(w io.Writer, left, right []float32, sampleRate int32) error {
	if len(left) != len(right) {
		return &score.InvalidArgumentError{Reason: fmt.Sprintf("channel lengths differ: %d vs %d", len(left), len(right))}
	}
	if sampleRate <= 0 {
		return &score.RangeError{Field: "sample rate", Value: int(sampleRate), Min: 1, Max: math.MaxInt32}
	}
	const (
		channels      = 2
		bitsPerSample = 16
		blockAlign    = channels * bitsPerSample / 8
	)
	dataSize := uint32(len(left) * blockAlign)
	if uint64(len(left))*blockAlign > math.MaxUint32-36 {
		return errors.New("audio too long for a WAV file")
	}

	var header bytes.Buffer
	header.WriteString("RIFF")
	_ = binary.Write(&header, binary.LittleEndian, 36+dataSize)
	header.WriteString("WAVEfmt ")
	for _, v := range []any{
		uint32(16), uint16(1), uint16(channels), uint32(sampleRate),
		uint32(sampleRate) * blockAlign, uint16(blockAlign), uint16(bitsPerSample),
	} {
		_ = binary.Write(&header, binary.LittleEndian, v)
	}
	header.WriteString("data")
	_ = binary.Write(&header, binary.LittleEndian, dataSize)
	if _, err := w.Write(header.Bytes()); err != nil {
		return fmt.Errorf("failed to write WAV header: %w", err)
	}

	pcm := make([]byte, 0, dataSize)
	for i := range left {
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(toPCM16(left[i])))
		pcm = binary.LittleEndian.AppendUint16(pcm, uint16(toPCM16(right[i])))
	}
	if _, err := w.Write(pcm); err != nil {
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	return nil
}

func toPCM16(v float32) int16 {
	v = min(max(v, -1), 1)
	return int16(math.Round(float64(v) * math.MaxInt16))
}
