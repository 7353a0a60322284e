// Package mcpserver exposes the command adapter to MCP clients over stdio.
package mcpserver

import (
	"context"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/petal-labs/cdpmcp/audio"
	"github.com/petal-labs/cdpmcp/tool"
)

const serverName = "cdpmcp"

const instructions = `Thin adapter over CDP command-line sound programs. Typical flow: list_tools, then
get_usage for the program you want, write_parameter_file when the usage asks for a data file, and
finally execute with the exact argument list. Nothing is interpreted: exit codes and tool output
are returned as-is.`

// Config wires the adapter components into the server.
type Config struct {
	Executor   *tool.Executor
	Catalog    tool.Catalog
	ParamFiles tool.ParamFileWriter
	Inspector  *audio.Inspector
	Version    string
	Logger     *slog.Logger
}

// Server is the cdpmcp MCP server.
type Server struct {
	mcp       *server.MCPServer
	executor  *tool.Executor
	catalog   tool.Catalog
	params    tool.ParamFileWriter
	inspector *audio.Inspector
	logger    *slog.Logger
}

// New builds the server and registers its tools and resources.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	inspector := cfg.Inspector
	if inspector == nil {
		inspector = audio.NewInspector(audio.InspectorConfig{Logger: logger})
	}

	s := &Server{
		mcp: server.NewMCPServer(serverName, version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithInstructions(instructions),
			server.WithRecovery(),
		),
		executor:  cfg.Executor,
		catalog:   cfg.Catalog,
		params:    cfg.ParamFiles,
		inspector: inspector,
		logger:    logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCP returns the underlying mcp-go server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve speaks MCP over in/out until in is exhausted or ctx is canceled.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	s.logger.Info("mcp server listening on stdio", "root", s.executor.Resolver().Root, "work_dir", s.executor.WorkDir())
	return stdio.Listen(ctx, in, out)
}
