package audio

import (
	"context"
)

// Info describes a sound file.
type Info struct {
	Path       string  `json:"filepath"`
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Format     string  `json:"format"`
	Frames     int64   `json:"frames"`
	BitDepth   int     `json:"bit_depth,omitempty"`
	Encoding   string  `json:"encoding,omitempty"`
	// PeakAmplitude is set only when requested and the samples could be decoded.
	PeakAmplitude *float64 `json:"peak_amplitude,omitempty"`
	Prober        string   `json:"prober"`
}

// Prober reads sound properties from a file.
type Prober interface {
	Name() string
	Probe(ctx context.Context, path string) (Info, error)
}

func seconds(frames int64, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(frames) / float64(sampleRate)
}
