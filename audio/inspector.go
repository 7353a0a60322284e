package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/petal-labs/cdpmcp/tool"
)

// InspectorConfig configures an Inspector.
type InspectorConfig struct {
	// BaseDir resolves relative paths, normally the tool work dir.
	BaseDir string
	// SoxPath enables the SoX fallback prober when set.
	SoxPath string
	Logger  *slog.Logger
}

// Inspector tries each prober in order and returns the first success.
type Inspector struct {
	baseDir string
	probers []Prober
	logger  *slog.Logger
}

// NewInspector builds an inspector with the native prober and, when configured, SoX.
func NewInspector(cfg InspectorConfig, extra ...Prober) *Inspector {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	probers := []Prober{NativeProber{}}
	if strings.TrimSpace(cfg.SoxPath) != "" {
		probers = append(probers, SoxProber{Path: cfg.SoxPath})
	}
	probers = append(probers, extra...)
	return &Inspector{baseDir: cfg.BaseDir, probers: probers, logger: logger}
}

// Options selects measurements beyond the header.
type Options struct {
	// Peak decodes every sample of a WAV or AIFF file to report its peak amplitude.
	Peak bool
}

// Inspect reports the properties of the sound file at path. Only header metadata is read
// unless opts asks for more.
func (i *Inspector) Inspect(ctx context.Context, path string, opts Options) (Info, error) {
	if strings.TrimSpace(path) == "" {
		return Info{}, tool.NewToolError(tool.ToolErrorCodeInvalidRequest, "file path is required", tool.ErrInvalidRequest)
	}
	target := path
	if !filepath.IsAbs(target) && i.baseDir != "" {
		target = filepath.Join(i.baseDir, target)
	}

	stat, err := os.Stat(target)
	if err != nil {
		return Info{}, notReadable(target, err)
	}
	if stat.IsDir() {
		return Info{}, notReadable(target, fmt.Errorf("%s is a directory", target))
	}

	var errs []error
	for _, prober := range i.probers {
		info, err := prober.Probe(ctx, target)
		if err == nil {
			if opts.Peak {
				i.measurePeak(&info)
			}
			return info, nil
		}
		i.logger.Debug("prober failed", "prober", prober.Name(), "path", target, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", prober.Name(), err))
	}
	if len(errs) == 0 {
		return Info{}, notReadable(target, errors.New("no prober configured"))
	}
	return Info{}, notReadable(target, errors.Join(errs...))
}

// measurePeak fills PeakAmplitude for natively readable files. A file whose samples cannot be
// decoded keeps its header Info without a peak.
func (i *Inspector) measurePeak(info *Info) {
	if info.Prober != nativeProberName {
		i.logger.Debug("peak amplitude unavailable", "prober", info.Prober, "path", info.Path)
		return
	}
	if peak, ok := peakAmplitude(info.Path, info.Format); ok {
		info.PeakAmplitude = &peak
	}
}

func notReadable(path string, cause error) error {
	err := tool.NewToolError(tool.ToolErrorCodeFileNotReadable, "cannot read sound file "+path+": "+cause.Error(), cause)
	err.Details = map[string]any{"filepath": path}
	return err
}
