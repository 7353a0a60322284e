package tool

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const paramFilePreviewRunes = 200

// ParamFile is the receipt for a written parameter file.
type ParamFile struct {
	Path    string `json:"filepath"`
	Lines   int    `json:"lines"`
	Size    int    `json:"size"`
	Preview string `json:"preview"`
}

// ParamFileWriter writes parameter files. Relative paths land in BaseDir.
type ParamFileWriter struct {
	BaseDir string
}

// Write stores content at path exactly as given, replacing any existing file. The content
// is not checked against any format; the external tools define what is valid.
func (w ParamFileWriter) Write(path, content string) (ParamFile, error) {
	if strings.TrimSpace(path) == "" {
		return ParamFile{}, NewToolError(ToolErrorCodeInvalidRequest, "parameter file path is required", ErrInvalidRequest)
	}

	target := path
	if !filepath.IsAbs(target) && w.BaseDir != "" {
		target = filepath.Join(w.BaseDir, target)
	}

	// #nosec G306 -- parameter files are read by external tools running as the same user.
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return ParamFile{}, withToolErrorDetails(
			NewToolError(ToolErrorCodeWriteError, "write parameter file: "+err.Error(), err),
			map[string]any{"filepath": target},
		)
	}

	return ParamFile{
		Path:    target,
		Lines:   len(strings.Split(strings.TrimSpace(content), "\n")),
		Size:    len(content),
		Preview: preview(content),
	}, nil
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= paramFilePreviewRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:paramFilePreviewRunes]) + "..."
}
