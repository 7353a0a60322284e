package tool

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// EmulationAuto wraps tools with "arch -x86_64" on Apple Silicon hosts only.
	EmulationAuto = "auto"
	// EmulationOff never wraps.
	EmulationOff = "off"
)

// Resolver maps a command's first token to an executable path under Root and decides
// the emulation prefix placed in front of it.
type Resolver struct {
	Root   string
	Prefix []string
}

// NewResolver builds a resolver for root with the prefix derived from emulation
// ("auto", "off", or a whitespace-separated custom prefix).
func NewResolver(root, emulation string) Resolver {
	return Resolver{
		Root:   strings.TrimSpace(root),
		Prefix: EmulationPrefix(emulation, runtime.GOOS, runtime.GOARCH),
	}
}

// EmulationPrefix returns the argv prefix for the given mode on goos/goarch.
func EmulationPrefix(mode, goos, goarch string) []string {
	clean := strings.TrimSpace(mode)
	switch strings.ToLower(clean) {
	case "", EmulationAuto:
		if goos == "darwin" && goarch == "arm64" {
			return []string{"arch", "-x86_64"}
		}
		return nil
	case EmulationOff:
		return nil
	default:
		return strings.Fields(clean)
	}
}

// Resolve returns the absolute path of name under the root. The name is used only as a
// filesystem key: it is not validated beyond staying inside the root.
func (r Resolver) Resolve(name string) (string, error) {
	if r.Root == "" {
		return "", notFound(name, "tool root is not configured", nil)
	}
	if name == "" {
		return "", notFound(name, "empty tool name", nil)
	}

	root, err := filepath.Abs(r.Root)
	if err != nil {
		return "", notFound(name, "resolve tool root", err)
	}
	candidate := filepath.Join(root, name)
	rel, err := filepath.Rel(root, candidate)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", notFound(name, "name escapes tool root", err)
	}

	path, err := statProgram(candidate)
	if err != nil && runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(candidate), ".exe") {
		path, err = statProgram(candidate + ".exe")
	}
	if err != nil {
		return "", notFound(name, fmt.Sprintf("program %q not found at %s", name, candidate), err)
	}
	return path, nil
}

// Argv builds the full process argument vector for a resolved path.
func (r Resolver) Argv(path string, args []string) []string {
	argv := make([]string, 0, len(r.Prefix)+1+len(args))
	argv = append(argv, r.Prefix...)
	argv = append(argv, path)
	argv = append(argv, args...)
	return argv
}

func statProgram(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", errors.New("is a directory")
	}
	return path, nil
}

func notFound(name, message string, cause error) *ToolError {
	return withToolErrorDetails(
		NewToolError(ToolErrorCodeExecutableNotFound, message, cause),
		map[string]any{"tool": name},
	)
}
