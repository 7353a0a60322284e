package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the cdpmcp command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "cdpmcp",
		Short: "MCP adapter for CDP sound programs",
		Long: "cdpmcp exposes the Composers Desktop Project command-line programs to MCP clients.\n" +
			"Commands are executed exactly as given; output and exit codes are passed through.",
		// SilenceUsage prevents printing usage on every error
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to cdpmcp.yaml or cdpmcp.toml")
	flags.String("tool-root", "", "Directory holding the CDP programs (overrides CDP_PATH)")
	flags.String("work-dir", "", "Working directory for tool processes and relative paths")
	flags.Bool("verbose", false, "Enable verbose/debug logging")
	flags.Bool("quiet", false, "Suppress all log output except errors")

	root.Version = version
	root.SetVersionTemplate(fmt.Sprintf("cdpmcp version %s\n", version))

	root.AddCommand(NewServeCmd(version))
	root.AddCommand(NewListCmd())
	root.AddCommand(NewUsageCmd())
	root.AddCommand(NewExecCmd())
	root.AddCommand(NewDatafileCmd())
	root.AddCommand(NewSpectralCmd())
	root.AddCommand(NewInspectCmd())
	root.AddCommand(NewHistoryCmd())
	return root
}
