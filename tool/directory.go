package tool

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// OtherCategory collects installed programs the directory does not name.
const OtherCategory = "Other"

const (
	CatalogSourceScan   = "scan"
	CatalogSourceStatic = "static"
)

// Category is one labeled group of known tool names.
type Category struct {
	Name  string   `json:"name" yaml:"name" toml:"name"`
	Tools []string `json:"tools" yaml:"tools" toml:"tools"`
}

// Directory is the static category table. It is reference data only.
type Directory []Category

var defaultDirectory = Directory{
	{Name: "Spectral Processing", Tools: []string{
		"blur", "clean", "combine", "cross", "focus", "formants",
		"gate", "get", "hilite", "morph", "pitch", "spec", "strange", "stretch",
	}},
	{Name: "Time Domain", Tools: []string{
		"modify", "distort", "envel", "extend", "filter", "grain", "sfedit", "zigzag",
	}},
	{Name: "Synthesis", Tools: []string{"synth", "texture", "fracture"}},
	{Name: "Analysis and Utility", Tools: []string{"pvoc", "sndinfo", "housekeep", "submix", "mchshred"}},
}

// DefaultDirectory returns a copy of the built-in category table.
func DefaultDirectory() Directory {
	return defaultDirectory.Clone()
}

// Clone returns a deep copy.
func (d Directory) Clone() Directory {
	out := make(Directory, 0, len(d))
	for _, category := range d {
		out = append(out, Category{Name: category.Name, Tools: slices.Clone(category.Tools)})
	}
	return out
}

// CategoryOf returns the first category listing name.
func (d Directory) CategoryOf(name string) (string, bool) {
	for _, category := range d {
		if slices.Contains(category.Tools, name) {
			return category.Name, true
		}
	}
	return "", false
}

// Map renders the directory as label -> tools.
func (d Directory) Map() map[string][]string {
	out := make(map[string][]string, len(d))
	for _, category := range d {
		out[category.Name] = slices.Clone(category.Tools)
	}
	return out
}

// Listing is a categorized tool listing.
type Listing struct {
	Source     string              `json:"source"`
	Categories map[string][]string `json:"categories"`
	Warning    string              `json:"warning,omitempty"`
}

// Catalog lists tools against a directory, preferring what is installed under Root.
type Catalog struct {
	Root      string
	Directory Directory
	Logger    *slog.Logger
}

// List returns the installed programs grouped by category, or the static directory when
// the tool root cannot be read.
func (c Catalog) List() Listing {
	listing, err := c.Scan()
	if err == nil {
		return listing
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("tool root scan failed; returning static directory", "root", c.Root, "error", err)
	return Listing{
		Source:     CatalogSourceStatic,
		Categories: c.directory().Map(),
		Warning:    err.Error(),
	}
}

// Scan reads Root for executable programs and groups them. Hidden files and .txt files are
// skipped. Names the directory does not know go to OtherCategory; empty categories are dropped.
func (c Catalog) Scan() (Listing, error) {
	root := strings.TrimSpace(c.Root)
	if root == "" {
		return Listing{}, fmt.Errorf("tool root is not configured")
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return Listing{}, fmt.Errorf("read tool root %s: %w", root, err)
	}

	var programs []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".txt") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() || !isExecutable(info) {
			continue
		}
		programs = append(programs, name)
	}
	slices.Sort(programs)

	directory := c.directory()
	categories := make(map[string][]string)
	for _, program := range programs {
		category, ok := directory.CategoryOf(program)
		if !ok {
			category = OtherCategory
		}
		categories[category] = append(categories[category], program)
	}
	return Listing{Source: CatalogSourceScan, Categories: categories}, nil
}

func (c Catalog) directory() Directory {
	if len(c.Directory) == 0 {
		return defaultDirectory
	}
	return c.Directory
}
