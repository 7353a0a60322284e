package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/cdpmcp/audio"
	"github.com/petal-labs/cdpmcp/tool"
)

// NewListCmd creates the "list" subcommand.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed CDP programs by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadAdapter(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return printJSON(cmd.OutOrStdout(), a.catalog.List())
		},
	}
}

// NewUsageCmd creates the "usage" subcommand.
func NewUsageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage <program> [sub-program]",
		Short: "Show a program's own usage text",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadAdapter(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			sub := ""
			if len(args) == 2 {
				sub = args[1]
			}
			usage, err := a.executor.Usage(cmd.Context(), args[0], sub)
			if err != nil {
				return toolExit(err)
			}
			return printJSON(cmd.OutOrStdout(), usage)
		},
	}
}

// NewExecCmd creates the "exec" subcommand. Everything after the program name is passed
// through untouched, including tokens that look like flags.
func NewExecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <program> [args...]",
		Short: "Run a CDP program with literal arguments",
		Long: "Exec runs one CDP program and prints its stdout, stderr and exit code as JSON.\n" +
			"A non-zero exit from the program is reported, not treated as a failure of exec.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadAdapter(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			execution, err := a.executor.Execute(cmd.Context(), tool.NewCommand(args...))
			if err != nil {
				return toolExit(err)
			}
			return printJSON(cmd.OutOrStdout(), execution)
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

// NewDatafileCmd creates the "datafile" subcommand.
func NewDatafileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "datafile <path> <content|->",
		Short: "Write a parameter file for a CDP program",
		Long:  `Datafile writes content to path byte for byte. Pass "-" to read the content from stdin.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadAdapter(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			content := args[1]
			if content == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return exitError(exitRuntime, "reading stdin: %s", err)
				}
				content = string(data)
			}
			receipt, err := a.params.Write(args[0], content)
			if err != nil {
				return toolExit(err)
			}
			return printJSON(cmd.OutOrStdout(), receipt)
		},
	}
}

// NewSpectralCmd creates the "spectral" subcommand.
func NewSpectralCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spectral <input> <output>",
		Short: "Prepare a spectral analysis file with pvoc",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			window, _ := cmd.Flags().GetInt("window")
			a, err := loadAdapter(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := tool.PrepareSpectral(cmd.Context(), a.executor, args[0], args[1], window)
			if err != nil {
				return toolExit(err)
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().Int("window", tool.DefaultWindowSize, "Analysis window size, forwarded as -c<window>")
	return cmd
}

// NewInspectCmd creates the "inspect" subcommand.
func NewInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show basic properties of a sound file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadAdapter(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			peak, _ := cmd.Flags().GetBool("peak")
			info, err := a.inspector.Inspect(cmd.Context(), args[0], audio.Options{Peak: peak})
			if err != nil {
				return toolExit(err)
			}
			return printJSON(cmd.OutOrStdout(), info)
		},
	}
	cmd.Flags().Bool("peak", false, "Decode samples to report peak amplitude")
	return cmd
}

// NewHistoryCmd creates the "history" subcommand.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded executions",
		Long: "History lists executions recorded in the SQLite ledger, newest first.\n" +
			"Recording happens only when history.enabled or history.path is set in the config file.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			if limit <= 0 {
				return exitError(exitValidation, "--limit must be positive, got %d", limit)
			}
			a, err := loadAdapter(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			history := a.history
			if dsn, _ := cmd.Flags().GetString("db"); strings.TrimSpace(dsn) != "" {
				history, err = tool.NewSQLiteHistory(tool.SQLiteHistoryConfig{DSN: dsn, Logger: a.logger})
				if err != nil {
					return exitError(exitRuntime, "opening execution history: %s", err)
				}
				defer history.Close()
			}
			if history == nil {
				return exitError(exitValidation, "no execution history configured; set history.enabled or history.path, or pass --db")
			}

			records, err := history.List(cmd.Context(), limit)
			if err != nil {
				return exitError(exitRuntime, "listing execution history: %s", err)
			}
			return printJSON(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of records")
	cmd.Flags().String("db", "", "History database path (defaults to history.path from config)")
	return cmd
}
