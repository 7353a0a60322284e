package audio

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// SoxProber reads properties by running "sox --i" on the file.
type SoxProber struct {
	// Path is the sox executable; empty means "sox" on PATH.
	Path string
}

func (SoxProber) Name() string { return "sox" }

// Probe runs sox --i and parses its report.
func (p SoxProber) Probe(ctx context.Context, path string) (Info, error) {
	bin := p.Path
	if bin == "" {
		bin = "sox"
	}
	// #nosec G204 -- the sox path comes from configuration and the file is passed as one argument.
	cmd := exec.CommandContext(ctx, bin, "--i", path)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return Info{}, fmt.Errorf("sox --i %s: %s", path, msg)
	}

	info, err := ParseSoxInfo(stdout.String())
	if err != nil {
		return Info{}, err
	}
	info.Path = path
	info.Prober = p.Name()
	if info.Format == "" {
		info.Format = strings.ToUpper(strings.TrimPrefix(filepath.Ext(path), "."))
	}
	return info, nil
}

// ParseSoxInfo parses the "Key : value" report printed by sox --i.
func ParseSoxInfo(report string) (Info, error) {
	var info Info
	scanner := bufio.NewScanner(strings.NewReader(report))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "Channels":
			info.Channels, _ = strconv.Atoi(value)
		case "Sample Rate":
			info.SampleRate, _ = strconv.Atoi(value)
		case "Precision":
			info.BitDepth, _ = strconv.Atoi(strings.TrimSuffix(value, "-bit"))
		case "Duration":
			info.Frames = durationSamples(value)
		case "Sample Encoding":
			info.Encoding = value
		}
	}
	if err := scanner.Err(); err != nil {
		return Info{}, fmt.Errorf("read sox report: %w", err)
	}
	if info.SampleRate <= 0 || info.Channels <= 0 {
		return Info{}, fmt.Errorf("sox report has no sample rate or channel count")
	}
	info.Duration = seconds(info.Frames, info.SampleRate)
	return info, nil
}

// durationSamples extracts N from "00:00:01.00 = 44100 samples = 75 CDDA sectors".
func durationSamples(value string) int64 {
	parts := strings.Split(value, "=")
	if len(parts) < 2 {
		return 0
	}
	fields := strings.Fields(parts[1])
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
