// Package config loads cdpmcp settings from defaults, an optional YAML or TOML file, and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/petal-labs/cdpmcp/tool"
)

// EnvToolRoot names the CDP program directory.
const EnvToolRoot = "CDP_PATH"

const (
	projectConfigYAML = "cdpmcp.yaml"
	projectConfigTOML = "cdpmcp.toml"
	homeConfigDir     = ".cdpmcp"
	homeConfigName    = "config.yaml"

	defaultWorkDirName  = "cdp_mcp"
	defaultUsageTimeout = "5s"
	defaultServiceName  = "cdpmcp"
)

// Config is the full cdpmcp configuration.
type Config struct {
	ToolRoot     string          `yaml:"tool_root" toml:"tool_root"`
	WorkDir      string          `yaml:"work_dir" toml:"work_dir"`
	Emulation    string          `yaml:"emulation" toml:"emulation"`
	UsageTimeout string          `yaml:"usage_timeout" toml:"usage_timeout"`
	SoxPath      string          `yaml:"sox_path" toml:"sox_path"`
	Categories   []tool.Category `yaml:"categories" toml:"categories"`
	History      HistoryConfig   `yaml:"history" toml:"history"`
	Telemetry    TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
	Log          LogConfig       `yaml:"log" toml:"log"`
}

// HistoryConfig enables the execution ledger when Path is set, or at ~/.cdpmcp/history.db
// when only Enabled is.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" toml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name" toml:"service_name"`
	Insecure     bool   `yaml:"insecure" toml:"insecure"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		WorkDir:      filepath.Join(os.TempDir(), defaultWorkDirName),
		Emulation:    tool.EmulationAuto,
		UsageTimeout: defaultUsageTimeout,
		Telemetry:    TelemetryConfig{ServiceName: defaultServiceName},
		Log:          LogConfig{Level: "info", Format: "text"},
	}
}

// Load discovers and reads the config file (if any) over the defaults, then applies the
// environment. It returns the path that was read, or "" when none was found.
func Load(explicitPath string) (Config, string, error) {
	cfg := Default()
	path, found, err := DiscoverPath(explicitPath)
	if err != nil {
		return Config{}, "", err
	}
	if found {
		cfg, err = LoadFile(path, cfg)
		if err != nil {
			return Config{}, "", err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, path, nil
}

// DiscoverPath resolves the config location with first-match semantics.
func DiscoverPath(explicitPath string) (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("resolve working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}
	return DiscoverPathFrom(explicitPath, cwd, homeDir)
}

// DiscoverPathFrom is a testable variant of DiscoverPath.
func DiscoverPathFrom(explicitPath, cwd, homeDir string) (string, bool, error) {
	candidates := make([]string, 0, 3)
	if clean := strings.TrimSpace(explicitPath); clean != "" {
		candidates = append(candidates, filepath.Clean(clean))
	} else {
		candidates = append(candidates, filepath.Join(cwd, projectConfigYAML), filepath.Join(cwd, projectConfigTOML))
		if homeDir != "" {
			candidates = append(candidates, filepath.Join(homeDir, homeConfigDir, homeConfigName))
		}
	}

	for i, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			if i == 0 && strings.TrimSpace(explicitPath) != "" {
				return "", false, fmt.Errorf("config file %q not found", candidate)
			}
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("checking config path %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

// LoadFile decodes path over base. The format follows the extension: .toml is TOML,
// anything else YAML. Relative paths in the file resolve against the file's directory.
func LoadFile(path string, base Config) (Config, error) {
	// #nosec G304 -- path resolved from explicit local config discovery.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}

	var fileCfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %q: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %q: %w", path, err)
		}
	}

	baseDir := filepath.Dir(path)
	fileCfg.ToolRoot = resolveConfigRelative(baseDir, expandEnvValue(fileCfg.ToolRoot))
	fileCfg.WorkDir = resolveConfigRelative(baseDir, expandEnvValue(fileCfg.WorkDir))
	fileCfg.SoxPath = expandEnvValue(fileCfg.SoxPath)
	fileCfg.History.Path = resolveConfigRelative(baseDir, expandEnvValue(fileCfg.History.Path))

	return merge(base, fileCfg), nil
}

// ApplyEnv applies environment overrides using lookup (normally os.LookupEnv).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		return
	}
	if value, ok := lookup(EnvToolRoot); ok && strings.TrimSpace(value) != "" {
		c.ToolRoot = strings.TrimSpace(value)
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if _, err := c.UsageTimeoutDuration(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}
	for i, category := range c.Categories {
		if strings.TrimSpace(category.Name) == "" {
			return fmt.Errorf("categories[%d]: name is required", i)
		}
	}
	return nil
}

// UsageTimeoutDuration parses usage_timeout. Zero disables the bound.
func (c Config) UsageTimeoutDuration() (time.Duration, error) {
	raw := strings.TrimSpace(c.UsageTimeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("usage_timeout %q: %w", c.UsageTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("usage_timeout %q must not be negative", c.UsageTimeout)
	}
	return d, nil
}

// Directory returns the configured category table, or the built-in one.
func (c Config) Directory() tool.Directory {
	if len(c.Categories) == 0 {
		return tool.DefaultDirectory()
	}
	return tool.Directory(c.Categories).Clone()
}

// HistoryPath returns the ledger location, or "" when recording is off.
func (c Config) HistoryPath() (string, error) {
	if path := strings.TrimSpace(c.History.Path); path != "" {
		return path, nil
	}
	if !c.History.Enabled {
		return "", nil
	}
	return tool.DefaultHistoryPath()
}

// EnsureWorkDir creates the work directory if needed.
func (c Config) EnsureWorkDir() error {
	if strings.TrimSpace(c.WorkDir) == "" {
		return nil
	}
	if err := os.MkdirAll(c.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create work dir %q: %w", c.WorkDir, err)
	}
	return nil
}

func merge(base, over Config) Config {
	out := base
	setString(&out.ToolRoot, over.ToolRoot)
	setString(&out.WorkDir, over.WorkDir)
	setString(&out.Emulation, over.Emulation)
	setString(&out.UsageTimeout, over.UsageTimeout)
	setString(&out.SoxPath, over.SoxPath)
	if len(over.Categories) > 0 {
		out.Categories = tool.Directory(over.Categories).Clone()
	}
	out.History.Enabled = out.History.Enabled || over.History.Enabled
	setString(&out.History.Path, over.History.Path)
	setString(&out.Telemetry.OTLPEndpoint, over.Telemetry.OTLPEndpoint)
	setString(&out.Telemetry.ServiceName, over.Telemetry.ServiceName)
	out.Telemetry.Insecure = out.Telemetry.Insecure || over.Telemetry.Insecure
	setString(&out.Log.Level, over.Log.Level)
	setString(&out.Log.Format, over.Log.Format)
	return out
}

func setString(dst *string, value string) {
	if clean := strings.TrimSpace(value); clean != "" {
		*dst = clean
	}
}

func expandEnvValue(value string) string {
	return os.ExpandEnv(value)
}

func resolveConfigRelative(baseDir, p string) string {
	if strings.TrimSpace(p) == "" {
		return ""
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	clean := filepath.Clean(p)
	if filepath.IsAbs(clean) {
		return clean
	}
	return filepath.Join(baseDir, clean)
}
