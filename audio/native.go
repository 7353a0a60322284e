package audio

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	formatWAV  = "WAV"
	formatAIFF = "AIFF"

	wavFormatPCM = 1

	nativeProberName = "native"
)

var errUnsupportedContainer = errors.New("not a WAV or AIFF file")

// NativeProber reads WAV and AIFF headers in-process. Sample data is never decoded.
type NativeProber struct{}

func (NativeProber) Name() string { return nativeProberName }

// Probe reads the header of path.
func (p NativeProber) Probe(ctx context.Context, path string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	info, err := probeWAV(path)
	if errors.Is(err, errUnsupportedContainer) {
		info, err = probeAIFF(path)
	}
	if err != nil {
		return Info{}, err
	}
	info.Path = path
	info.Prober = p.Name()
	return info, nil
}

func probeWAV(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return Info{}, errUnsupportedContainer
	}
	// The RIFF size covers every chunk; only the data chunk holds frames.
	if err := d.FwdToPCM(); err != nil {
		return Info{}, fmt.Errorf("find wav data chunk: %w", err)
	}
	frameSize := int(d.NumChans) * int(d.BitDepth) / 8
	if frameSize <= 0 {
		return Info{}, fmt.Errorf("invalid wav frame size: %d channels, %d bits", d.NumChans, d.BitDepth)
	}
	rate := int(d.SampleRate)
	frames := int64(d.PCMSize / frameSize)
	encoding := "PCM"
	if d.WavAudioFormat != wavFormatPCM {
		encoding = fmt.Sprintf("format 0x%04x", d.WavAudioFormat)
	}
	return Info{
		Duration:   seconds(frames, rate),
		SampleRate: rate,
		Channels:   int(d.NumChans),
		Format:     formatWAV,
		Frames:     frames,
		BitDepth:   int(d.BitDepth),
		Encoding:   encoding,
	}, nil
}

func probeAIFF(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	d := aiff.NewDecoder(f)
	if !d.IsValidFile() {
		return Info{}, errUnsupportedContainer
	}
	frames := int64(d.NumSampleFrames)
	return Info{
		Duration:   seconds(frames, d.SampleRate),
		SampleRate: d.SampleRate,
		Channels:   int(d.NumChans),
		Format:     formatAIFF,
		Frames:     frames,
		BitDepth:   int(d.BitDepth),
		Encoding:   "PCM",
	}, nil
}

// peakAmplitude decodes the whole file and returns max |sample| scaled to [0, 1]. It is only
// reached when a caller asks for the peak.
func peakAmplitude(path, format string) (float64, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	var (
		buf      *audio.IntBuffer
		bitDepth int
	)
	switch format {
	case formatWAV:
		d := wav.NewDecoder(f)
		buf, err = d.FullPCMBuffer()
		if d.WavAudioFormat != wavFormatPCM {
			return 0, false
		}
		bitDepth = int(d.BitDepth)
	case formatAIFF:
		d := aiff.NewDecoder(f)
		buf, err = d.FullPCMBuffer()
		bitDepth = int(d.BitDepth)
	default:
		return 0, false
	}
	if err != nil || buf == nil || bitDepth < 16 {
		return 0, false
	}

	full := float64(int64(1) << (bitDepth - 1))
	peak := 0
	for _, v := range buf.Data {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return float64(peak) / full, true
}
