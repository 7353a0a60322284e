package tool

import (
	"context"
	"errors"
	"strings"
)

const noSubProgram = "none"

// Usage is the help text a tool prints when invoked without arguments.
type Usage struct {
	Program    string `json:"program"`
	SubProgram string `json:"subprogram"`
	Text       string `json:"usage_text"`
	ExitCode   int    `json:"exit_code"`

	// Presentation hints. They never alter Text.
	HasUsage bool   `json:"has_usage,omitempty"`
	HasModes bool   `json:"has_modes,omitempty"`
	HasFlags bool   `json:"has_flags,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Usage runs program (and subProgram, when given) with no further arguments and returns
// stdout, or stderr when stdout is empty, verbatim.
func (e *Executor) Usage(ctx context.Context, program, subProgram string) (Usage, error) {
	tokens := []string{program}
	if subProgram != "" {
		tokens = append(tokens, subProgram)
	}

	if e != nil && e.usageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.usageTimeout)
		defer cancel()
	}

	execution, err := e.run(ctx, operationUsage, NewCommand(tokens...))
	if err != nil {
		return Usage{}, err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Usage{}, withToolErrorDetails(
			NewToolError(ToolErrorCodeTimeout, "usage query timed out; program may be waiting for input", ctx.Err()),
			map[string]any{"tool": program},
		)
	}

	text := execution.Stdout
	if text == "" {
		text = execution.Stderr
	}
	usage := Usage{
		Program:    program,
		SubProgram: subProgram,
		Text:       text,
		ExitCode:   execution.ExitCode,
	}
	if usage.SubProgram == "" {
		usage.SubProgram = noSubProgram
	}
	annotateUsage(&usage)
	return usage, nil
}

func annotateUsage(usage *Usage) {
	text := usage.Text
	if text == "" {
		return
	}
	usage.HasUsage = strings.Contains(text, "USAGE:") || strings.Contains(text, "Usage:")
	usage.HasModes = strings.Contains(text, "MODES:") || strings.Contains(text, "Modes:")
	usage.HasFlags = strings.Contains(text, "-") || strings.Contains(text, "FLAGS:") || strings.Contains(text, "Options:")

	double := strings.ToLower(usage.Program + " " + usage.Program)
	if strings.Contains(strings.ToLower(text), double) {
		usage.Note = "This program uses double syntax: " + usage.Program + " " + usage.Program
	}
}
