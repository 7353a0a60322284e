package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	otelapi "go.opentelemetry.io/otel"

	"github.com/petal-labs/cdpmcp/audio"
	"github.com/petal-labs/cdpmcp/config"
	cdpotel "github.com/petal-labs/cdpmcp/otel"
	"github.com/petal-labs/cdpmcp/tool"
)

const telemetryShutdownTimeout = 5 * time.Second

// adapter is the set of components every command works with.
type adapter struct {
	cfg       config.Config
	logger    *slog.Logger
	executor  *tool.Executor
	catalog   tool.Catalog
	params    tool.ParamFileWriter
	inspector *audio.Inspector
	history   *tool.SQLiteHistory
	telemetry *cdpotel.Telemetry
}

// loadAdapter resolves configuration (defaults < file < CDP_PATH < flags), builds the logger
// on stderr and wires observers.
func loadAdapter(cmd *cobra.Command) (*adapter, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Log, flagBool(cmd, "verbose"), flagBool(cmd, "quiet"))
	slog.SetDefault(logger)

	usageTimeout, _ := cfg.UsageTimeoutDuration()
	if err := cfg.EnsureWorkDir(); err != nil {
		return nil, exitError(exitRuntime, "%s", err)
	}
	if strings.TrimSpace(cfg.ToolRoot) == "" {
		logger.Warn("tool root is not set; use --tool-root, CDP_PATH or tool_root in the config file")
	}

	a := &adapter{
		cfg:    cfg,
		logger: logger,
		executor: tool.NewExecutor(tool.ExecutorConfig{
			Resolver:     tool.NewResolver(cfg.ToolRoot, cfg.Emulation),
			WorkDir:      cfg.WorkDir,
			UsageTimeout: usageTimeout,
			Logger:       logger,
		}),
		catalog:   tool.Catalog{Root: cfg.ToolRoot, Directory: cfg.Directory(), Logger: logger},
		params:    tool.ParamFileWriter{BaseDir: cfg.WorkDir},
		inspector: audio.NewInspector(audio.InspectorConfig{BaseDir: cfg.WorkDir, SoxPath: cfg.SoxPath, Logger: logger}),
	}
	if err := a.installObservers(cmd.Context()); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	explicit, _ := cmd.Flags().GetString("config")
	cfg, _, err := config.Load(explicit)
	if err != nil {
		return config.Config{}, exitError(exitValidation, "%s", err)
	}
	if root, _ := cmd.Flags().GetString("tool-root"); strings.TrimSpace(root) != "" {
		cfg.ToolRoot = strings.TrimSpace(root)
	}
	if workDir, _ := cmd.Flags().GetString("work-dir"); strings.TrimSpace(workDir) != "" {
		cfg.WorkDir = strings.TrimSpace(workDir)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, exitError(exitValidation, "invalid config: %s", err)
	}
	return cfg, nil
}

func (a *adapter) installObservers(ctx context.Context) error {
	var observers tool.MultiObserver

	if endpoint := a.cfg.Telemetry.OTLPEndpoint; endpoint != "" {
		telemetry, err := cdpotel.Setup(ctx, cdpotel.Config{
			Endpoint:    endpoint,
			ServiceName: a.cfg.Telemetry.ServiceName,
			Insecure:    a.cfg.Telemetry.Insecure,
		})
		if err != nil {
			return exitError(exitRuntime, "%s", err)
		}
		a.telemetry = telemetry
		observers = append(observers, telemetry.Observer)
	} else {
		observer, err := cdpotel.NewToolObserver(
			otelapi.GetMeterProvider().Meter("cdpmcp/tool"),
			otelapi.GetTracerProvider().Tracer("cdpmcp/tool"),
		)
		if err != nil {
			return exitError(exitRuntime, "creating tool observer: %s", err)
		}
		observers = append(observers, observer)
	}

	path, err := a.cfg.HistoryPath()
	if err != nil {
		return exitError(exitRuntime, "locating execution history: %s", err)
	}
	if path != "" {
		history, err := tool.NewSQLiteHistory(tool.SQLiteHistoryConfig{DSN: path, Logger: a.logger})
		if err != nil {
			return exitError(exitRuntime, "opening execution history: %s", err)
		}
		a.history = history
		observers = append(observers, history)
	}

	tool.SetObserver(observers)
	return nil
}

// Close detaches observers and releases the ledger and telemetry providers.
func (a *adapter) Close() {
	tool.SetObserver(nil)
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("closing execution history", "error", err)
		}
	}
	if a.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := a.telemetry.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			a.logger.Warn("shutting down telemetry", "error", err)
		}
	}
}

func newLogger(w io.Writer, cfg config.LogConfig, verbose, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func flagBool(cmd *cobra.Command, name string) bool {
	value, _ := cmd.Flags().GetBool(name)
	return value
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return exitError(exitRuntime, "encoding output: %s", err)
	}
	if _, err := fmt.Fprintln(w, string(data)); err != nil {
		return exitError(exitRuntime, "writing output: %s", err)
	}
	return nil
}
