package tool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultWindowSize is the pvoc analysis window used when none is given.
const DefaultWindowSize = 2048

const spectralExt = ".ana"

// SpectralResult reports a spectral preparation. Execution is nil when nothing was run.
type SpectralResult struct {
	Status    string     `json:"status"`
	Message   string     `json:"message,omitempty"`
	AnaFile   string     `json:"ana_file"`
	Execution *Execution `json:"execution,omitempty"`
}

const (
	SpectralStatusExecuted = "executed"
	SpectralStatusSkipped  = "skipped"
)

// SpectralCommand builds the pvoc analysis command for input/output and window size. The
// window size is forwarded as given; pvoc reports sizes it cannot use.
func SpectralCommand(inputFile, outputFile string, windowSize int) Command {
	return NewCommand("pvoc", "anal", "1", inputFile, outputFile, "-c"+strconv.Itoa(windowSize))
}

// PrepareSpectral runs a pvoc analysis of inputFile into outputFile. Input that already
// carries the analysis extension is returned as-is without spawning anything. The
// execution's exit status is passed through untouched.
func PrepareSpectral(ctx context.Context, executor *Executor, inputFile, outputFile string, windowSize int) (SpectralResult, error) {
	if strings.HasSuffix(strings.ToLower(inputFile), spectralExt) {
		return SpectralResult{
			Status:  SpectralStatusSkipped,
			Message: "Input is already a spectral file",
			AnaFile: inputFile,
		}, nil
	}
	if strings.TrimSpace(outputFile) == "" {
		return SpectralResult{}, NewToolError(ToolErrorCodeInvalidRequest, "output file is required", ErrInvalidRequest)
	}
	// Children run in the executor's work dir, so relative inputs are checked there.
	probe := inputFile
	if !filepath.IsAbs(probe) && executor != nil && executor.WorkDir() != "" {
		probe = filepath.Join(executor.WorkDir(), probe)
	}
	if _, err := os.Stat(probe); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return SpectralResult{}, withToolErrorDetails(
				NewToolError(ToolErrorCodeInvalidRequest, "input file not found: "+inputFile, err),
				map[string]any{"input_file": inputFile},
			)
		}
	}

	execution, err := executor.Execute(ctx, SpectralCommand(inputFile, outputFile, windowSize))
	if err != nil {
		return SpectralResult{}, err
	}
	return SpectralResult{
		Status:    SpectralStatusExecuted,
		AnaFile:   outputFile,
		Execution: &execution,
	}, nil
}
