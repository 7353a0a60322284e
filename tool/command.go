package tool

import (
	"slices"
	"strings"
)

// Command is an ordered, immutable sequence of tokens: a tool name followed by the
// arguments exactly as the external tool expects them.
type Command struct {
	tokens []string
}

// NewCommand copies tokens into a Command. An empty Command is representable; it is
// rejected when executed.
func NewCommand(tokens ...string) Command {
	return Command{tokens: slices.Clone(tokens)}
}

// Tool returns the first token, or "" for an empty command.
func (c Command) Tool() string {
	if len(c.tokens) == 0 {
		return ""
	}
	return c.tokens[0]
}

// Args returns a copy of every token after the first.
func (c Command) Args() []string {
	if len(c.tokens) < 2 {
		return []string{}
	}
	return slices.Clone(c.tokens[1:])
}

// Tokens returns a copy of the full token sequence.
func (c Command) Tokens() []string {
	return slices.Clone(c.tokens)
}

func (c Command) Len() int {
	return len(c.tokens)
}

func (c Command) Empty() bool {
	return len(c.tokens) == 0
}

// String joins tokens with spaces for logs. It is not a shell-safe rendering.
func (c Command) String() string {
	return strings.Join(c.tokens, " ")
}

// Result is what the child process produced. It is never inspected or rewritten.
type Result struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Execution wraps a Result with invocation metadata.
type Execution struct {
	ID         string   `json:"id"`
	Command    []string `json:"command"`
	Argv       []string `json:"argv"`
	DurationMS int64    `json:"duration_ms"`
	Result
}
