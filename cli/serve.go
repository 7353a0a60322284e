package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petal-labs/cdpmcp/mcpserver"
)

// NewServeCmd creates the "serve" subcommand, which speaks MCP over stdin/stdout.
func NewServeCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the CDP tools over MCP stdio",
		Long: "Serve reads JSON-RPC messages from stdin and writes responses to stdout.\n" +
			"Logs go to stderr so they never interleave with protocol traffic.",
		Args: cobra.NoArgs,
		RunE: runServe(version),
	}
}

func runServe(version string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := loadAdapter(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		srv := mcpserver.New(mcpserver.Config{
			Executor:   a.executor,
			Catalog:    a.catalog,
			ParamFiles: a.params,
			Inspector:  a.inspector,
			Version:    version,
			Logger:     a.logger,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a.logger.Info("serving MCP over stdio",
			"version", version,
			"tool_root", a.cfg.ToolRoot,
			"work_dir", a.cfg.WorkDir,
		)
		if err := srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil && ctx.Err() == nil {
			return exitError(exitRuntime, "serve: %s", err)
		}
		a.logger.Info("MCP session ended")
		return nil
	}
}
