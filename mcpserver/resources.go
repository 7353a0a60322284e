package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	WorkflowURI   = "cdp://workflow"
	QuickstartURI = "cdp://quickstart"

	markdownMIME = "text/markdown"
)

const workflowGuide = "# CDP workflow\n\n" +
	"Every operation is a literal command. The server never parses usage text, never guesses\n" +
	"parameters and never judges whether a run worked.\n\n" +
	"## Steps\n\n" +
	"1. `list_tools` shows the installed programs by category.\n" +
	"2. `get_usage` with `tool` (and `sub_tool` for compound programs) returns the program's own\n" +
	"   usage text. Read it before building a command.\n" +
	"3. If the usage mentions a data or breakpoint file, create it with `write_parameter_file`.\n" +
	"4. `execute` runs the exact array you send, for example\n" +
	"   `[\"blur\", \"blur\", \"in.ana\", \"out.ana\", \"20\"]`.\n\n" +
	"## Reading results\n\n" +
	"- `exit_code`, `stdout` and `stderr` are the program's own. CDP programs sometimes exit\n" +
	"  non-zero after writing their output, so check for the output file with `inspect_sound`.\n" +
	"- Spectral programs need `.ana` input. Use `prepare_spectral` to analyse a sound first and\n" +
	"  `pvoc synth` through `execute` to resynthesise.\n" +
	"- Relative paths resolve against the server's work directory.\n\n" +
	"## Command shapes\n\n" +
	"- Simple: `[program, mode, infile, outfile, params...]`\n" +
	"- Compound: `[program, subprogram, mode, infile, outfile, params...]`\n" +
	"- Flags are separate elements, with values attached as the program expects (`-c2048`).\n"

const quickstartGuide = "# CDP quick start\n\n" +
	"## Speed change\n\n" +
	"```\nget_usage {\"tool\": \"modify\", \"sub_tool\": \"speed\"}\n" +
	"execute {\"command\": [\"modify\", \"speed\", \"1\", \"in.wav\", \"out.wav\", \"2.0\"]}\n```\n\n" +
	"## Spectral time stretch\n\n" +
	"```\nprepare_spectral {\"input_file\": \"in.wav\", \"output_file\": \"in.ana\"}\n" +
	"execute {\"command\": [\"stretch\", \"time\", \"1\", \"in.ana\", \"long.ana\", \"2.0\"]}\n" +
	"execute {\"command\": [\"pvoc\", \"synth\", \"long.ana\", \"long.wav\"]}\n```\n\n" +
	"## Brassage\n\n" +
	"```\nexecute {\"command\": [\"modify\", \"brassage\", \"4\", \"in.wav\", \"out.wav\", \"0.02\", \"-0.5\", \"-r200\"]}\n```\n\n" +
	"## Texture from a note file\n\n" +
	"```\nwrite_parameter_file {\"path\": \"notes.txt\", \"content\": \"60\\n0.0 1 60 100 0.5\"}\n" +
	"get_usage {\"tool\": \"texture\"}\n```\n"

func (s *Server) registerResources() {
	s.addGuide(WorkflowURI, "CDP workflow", "How to drive CDP programs through this server", workflowGuide)
	s.addGuide(QuickstartURI, "CDP quick start", "Example calls for common operations", quickstartGuide)
}

func (s *Server) addGuide(uri, name, description, text string) {
	resource := mcp.NewResource(uri, name,
		mcp.WithResourceDescription(description),
		mcp.WithMIMEType(markdownMIME),
	)
	s.mcp.AddResource(resource, func(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: uri, MIMEType: markdownMIME, Text: text},
		}, nil
	})
}
