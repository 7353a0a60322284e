package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/petal-labs/cdpmcp/audio"
	"github.com/petal-labs/cdpmcp/tool"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("list_tools",
		mcp.WithDescription("List the installed CDP programs grouped by category. Falls back to the built-in directory when the program directory cannot be read."),
	), s.handleListTools)

	s.mcp.AddTool(mcp.NewTool("get_usage",
		mcp.WithDescription("Run a CDP program with no arguments and return its usage text exactly as printed."),
		mcp.WithString("tool", mcp.Required(), mcp.Description("Program name, e.g. blur or modify")),
		mcp.WithString("sub_tool", mcp.Description("Optional sub-program, e.g. brassage for modify")),
	), s.handleGetUsage)

	s.mcp.AddTool(mcp.NewTool("execute",
		mcp.WithDescription("Execute a CDP command given as an array of strings. The first element is the program; the rest are passed as literal arguments. Non-zero exit codes are returned, not treated as failures."),
		mcp.WithArray("command", mcp.Required(),
			mcp.Description(`Complete command, e.g. ["blur", "blur", "in.ana", "out.ana", "50"]`),
			mcp.Items(map[string]any{"type": "string"}),
		),
	), s.handleExecute)

	s.mcp.AddTool(mcp.NewTool("write_parameter_file",
		mcp.WithDescription("Write a text data file (breakpoints, note lists, times) exactly as given. Relative paths land in the work directory."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Destination path")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Exact file content")),
	), s.handleWriteParameterFile)

	s.mcp.AddTool(mcp.NewTool("prepare_spectral",
		mcp.WithDescription("Run a phase vocoder analysis (pvoc anal 1) of a sound file into an .ana file. Input already ending in .ana is returned unchanged."),
		mcp.WithString("input_file", mcp.Required(), mcp.Description("Input sound file")),
		mcp.WithString("output_file", mcp.Required(), mcp.Description("Output analysis file (.ana)")),
		mcp.WithNumber("window_size", mcp.Description("Analysis window size, passed to pvoc as -c<window_size>"), mcp.DefaultNumber(tool.DefaultWindowSize)),
	), s.handlePrepareSpectral)

	s.mcp.AddTool(mcp.NewTool("inspect_sound",
		mcp.WithDescription("Report duration, sample rate, channel count and frame count of a sound file from its header."),
		mcp.WithString("filepath", mcp.Required(), mcp.Description("Path to the sound file")),
		mcp.WithBoolean("peak", mcp.Description("Also decode the samples to report peak amplitude (WAV and AIFF only)")),
	), s.handleInspectSound)
}

func (s *Server) handleListTools(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.catalog.List())
}

func (s *Server) handleGetUsage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := requiredString(request, "tool")
	if err != nil {
		return errorResult(err), nil
	}
	sub, err := optionalString(request, "sub_tool")
	if err != nil {
		return errorResult(err), nil
	}
	usage, err := s.executor.Usage(ctx, name, sub)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(usage)
}

func (s *Server) handleExecute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tokens, err := stringList(request, "command")
	if err != nil {
		return errorResult(err), nil
	}
	execution, err := s.executor.Execute(ctx, tool.NewCommand(tokens...))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(execution)
}

func (s *Server) handleWriteParameterFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := requiredString(request, "path")
	if err != nil {
		return errorResult(err), nil
	}
	content, err := requiredString(request, "content")
	if err != nil {
		return errorResult(err), nil
	}
	receipt, err := s.params.Write(path, content)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(receipt)
}

func (s *Server) handlePrepareSpectral(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := requiredString(request, "input_file")
	if err != nil {
		return errorResult(err), nil
	}
	output, err := requiredString(request, "output_file")
	if err != nil {
		return errorResult(err), nil
	}
	window, err := optionalInt(request, "window_size", tool.DefaultWindowSize)
	if err != nil {
		return errorResult(err), nil
	}
	result, err := tool.PrepareSpectral(ctx, s.executor, input, output, window)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result)
}

func (s *Server) handleInspectSound(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := requiredString(request, "filepath")
	if err != nil {
		return errorResult(err), nil
	}
	peak, err := optionalBool(request, "peak")
	if err != nil {
		return errorResult(err), nil
	}
	info, err := s.inspector.Inspect(ctx, path, audio.Options{Peak: peak})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(info)
}
