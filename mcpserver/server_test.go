package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/petal-labs/cdpmcp/audio"
	"github.com/petal-labs/cdpmcp/tool"
)

const echoArgsScript = `for a in "$@"; do printf '%s\n' "$a"; done`

type fixture struct {
	client  *client.Client
	root    string
	workDir string
}

func writeStub(t *testing.T, root, name, body string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	if err := os.WriteFile(filepath.Join(root, name), []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", name, err)
	}
}

func newTestServer(t *testing.T) (*Server, string, string) {
	t.Helper()
	root := t.TempDir()
	workDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := New(Config{
		Executor: tool.NewExecutor(tool.ExecutorConfig{
			Resolver:     tool.Resolver{Root: root},
			WorkDir:      workDir,
			UsageTimeout: 5 * time.Second,
			Logger:       logger,
		}),
		Catalog:    tool.Catalog{Root: root, Logger: logger},
		ParamFiles: tool.ParamFileWriter{BaseDir: workDir},
		Inspector:  audio.NewInspector(audio.InspectorConfig{BaseDir: workDir, Logger: logger}),
		Version:    "test",
		Logger:     logger,
	})
	return srv, root, workDir
}

// startServer connects an initialized in-process client to a fresh server.
func startServer(t *testing.T) *fixture {
	t.Helper()
	srv, root, workDir := newTestServer(t)

	c, err := client.NewInProcessClient(srv.MCP())
	if err != nil {
		t.Fatalf("NewInProcessClient() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	initialize(t, c)
	return &fixture{client: c, root: root, workDir: workDir}
}

func initialize(t *testing.T, c *client.Client) *mcp.InitializeResult {
	t.Helper()
	ctx := testContext(t)
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: "cdpmcp-test", Version: "test"}
	res, err := c.Initialize(ctx, req)
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return res
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func (f *fixture) call(t *testing.T, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	return callTool(t, f.client, name, args)
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := c.CallTool(testContext(t), req)
	if err != nil {
		t.Fatalf("CallTool(%s) error = %v", name, err)
	}
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, content := range res.Content {
		text, ok := mcp.AsTextContent(content)
		if !ok {
			t.Fatalf("content type = %T, want text", content)
		}
		b.WriteString(text.Text)
	}
	return b.String()
}

func decodeOK(t *testing.T, res *mcp.CallToolResult, out any) {
	t.Helper()
	text := resultText(t, res)
	if res.IsError {
		t.Fatalf("tool result isError: %s", text)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("Unmarshal() error = %v (text %q)", err, text)
	}
}

func errorCode(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	text := resultText(t, res)
	if !res.IsError {
		t.Fatalf("tool result is not an error: %s", text)
	}
	var body errorBody
	if err := json.Unmarshal([]byte(text), &body); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return body.Code
}

func TestListsToolsAndResources(t *testing.T) {
	f := startServer(t)
	ctx := testContext(t)

	tools, err := f.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	var names []string
	for _, tl := range tools.Tools {
		names = append(names, tl.Name)
	}
	slices.Sort(names)
	want := []string{"execute", "get_usage", "inspect_sound", "list_tools", "prepare_spectral", "write_parameter_file"}
	if !slices.Equal(names, want) {
		t.Fatalf("tools = %q, want %q", names, want)
	}

	resources, err := f.client.ListResources(ctx, mcp.ListResourcesRequest{})
	if err != nil {
		t.Fatalf("ListResources() error = %v", err)
	}
	if len(resources.Resources) != 2 {
		t.Fatalf("resources = %+v, want 2", resources.Resources)
	}
	readReq := mcp.ReadResourceRequest{}
	readReq.Params.URI = WorkflowURI
	read, err := f.client.ReadResource(ctx, readReq)
	if err != nil {
		t.Fatalf("ReadResource() error = %v", err)
	}
	if len(read.Contents) != 1 {
		t.Fatalf("contents = %+v, want one", read.Contents)
	}
	text, ok := read.Contents[0].(mcp.TextResourceContents)
	if !ok || !strings.HasPrefix(text.Text, "# CDP workflow") || text.MIMEType != "text/markdown" {
		t.Fatalf("contents[0] = %#v", read.Contents[0])
	}
}

func TestExecutePassesArgumentsVerbatim(t *testing.T) {
	f := startServer(t)
	writeStub(t, f.root, "blur", echoArgsScript)

	args := []string{"blur", "in file.ana", "out.ana", "*", "-c2048"}
	res := f.call(t, "execute", map[string]any{"command": append([]string{"blur"}, args...)})

	var execution tool.Execution
	decodeOK(t, res, &execution)
	got := strings.Split(strings.TrimSuffix(execution.Stdout, "\n"), "\n")
	if !slices.Equal(got, args) {
		t.Fatalf("stub received %q, want %q", got, args)
	}
	if execution.ExitCode != 0 {
		t.Fatalf("exit_code = %d, want 0", execution.ExitCode)
	}
}

func TestExecuteNonZeroExitIsNotAnError(t *testing.T) {
	f := startServer(t)
	writeStub(t, f.root, "distort", "echo 'bad param' >&2\nexit 3")

	res := f.call(t, "execute", map[string]any{"command": []string{"distort", "multiply"}})
	var execution tool.Execution
	decodeOK(t, res, &execution)
	if execution.ExitCode != 3 || execution.Stderr != "bad param\n" {
		t.Fatalf("execution = %+v", execution)
	}
}

func TestExecuteErrors(t *testing.T) {
	f := startServer(t)
	tests := []struct {
		name string
		args map[string]any
		code string
	}{
		{name: "empty command", args: map[string]any{"command": []string{}}, code: tool.ToolErrorCodeInvalidRequest},
		{name: "missing command", args: map[string]any{}, code: tool.ToolErrorCodeInvalidRequest},
		{name: "non-string element", args: map[string]any{"command": []any{"blur", 3}}, code: tool.ToolErrorCodeInvalidRequest},
		{name: "unknown tool", args: map[string]any{"command": []string{"nonexistent_tool_xyz"}}, code: tool.ToolErrorCodeExecutableNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorCode(t, f.call(t, "execute", tt.args)); got != tt.code {
				t.Fatalf("code = %q, want %q", got, tt.code)
			}
		})
	}

	// The server keeps serving after tool errors.
	if _, err := f.client.ListTools(testContext(t), mcp.ListToolsRequest{}); err != nil {
		t.Fatalf("ListTools() after errors: %v", err)
	}
}

func TestGetUsage(t *testing.T) {
	f := startServer(t)
	writeStub(t, f.root, "toolX", "printf 'USAGE: toolX ...\\n'")

	var usage tool.Usage
	decodeOK(t, f.call(t, "get_usage", map[string]any{"tool": "toolX"}), &usage)
	if usage.Text != "USAGE: toolX ...\n" || usage.SubProgram != "none" {
		t.Fatalf("usage = %+v", usage)
	}

	if got := errorCode(t, f.call(t, "get_usage", map[string]any{})); got != tool.ToolErrorCodeInvalidRequest {
		t.Fatalf("missing tool code = %q", got)
	}
}

func TestWriteParameterFile(t *testing.T) {
	f := startServer(t)
	content := "5 5 5 5\n0.0 0.1"

	var receipt tool.ParamFile
	decodeOK(t, f.call(t, "write_parameter_file", map[string]any{"path": "tess.txt", "content": content}), &receipt)
	data, err := os.ReadFile(filepath.Join(f.workDir, "tess.txt"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != content || receipt.Lines != 2 {
		t.Fatalf("content = %q, receipt = %+v", data, receipt)
	}

	res := f.call(t, "write_parameter_file", map[string]any{"path": filepath.Join(f.workDir, "missing", "x.txt"), "content": "1"})
	if got := errorCode(t, res); got != tool.ToolErrorCodeWriteError {
		t.Fatalf("code = %q, want %q", got, tool.ToolErrorCodeWriteError)
	}
}

func TestPrepareSpectral(t *testing.T) {
	f := startServer(t)
	writeStub(t, f.root, "pvoc", echoArgsScript)
	if err := os.WriteFile(filepath.Join(f.workDir, "in.wav"), []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var skipped tool.SpectralResult
	decodeOK(t, f.call(t, "prepare_spectral", map[string]any{"input_file": "x.ana", "output_file": "y.ana"}), &skipped)
	if skipped.Status != tool.SpectralStatusSkipped || skipped.AnaFile != "x.ana" {
		t.Fatalf("skipped = %+v", skipped)
	}

	var ran tool.SpectralResult
	decodeOK(t, f.call(t, "prepare_spectral", map[string]any{"input_file": "in.wav", "output_file": "in.ana", "window_size": 512}), &ran)
	if ran.Execution == nil || !strings.Contains(ran.Execution.Stdout, "-c512") {
		t.Fatalf("ran = %+v", ran)
	}

	var odd tool.SpectralResult
	decodeOK(t, f.call(t, "prepare_spectral", map[string]any{"input_file": "in.wav", "output_file": "in.ana", "window_size": -3}), &odd)
	if odd.Execution == nil || !strings.Contains(odd.Execution.Stdout, "-c-3\n") {
		t.Fatalf("window size should be forwarded unchecked, got %+v", odd)
	}

	res := f.call(t, "prepare_spectral", map[string]any{"input_file": "in.wav", "output_file": "in.ana", "window_size": 1.5})
	if got := errorCode(t, res); got != tool.ToolErrorCodeInvalidRequest {
		t.Fatalf("code = %q, want %q", got, tool.ToolErrorCodeInvalidRequest)
	}
}

func writeTestWAV(t *testing.T, path string, sampleRate, frames int, peak int) {
	t.Helper()
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	defer out.Close()
	data := make([]int, frames)
	data[frames/2] = peak
	enc := wav.NewEncoder(out, sampleRate, 16, 1, 1)
	if err := enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestInspectSound(t *testing.T) {
	f := startServer(t)
	writeTestWAV(t, filepath.Join(f.workDir, "tone.wav"), 8000, 4001, 16384)

	var info audio.Info
	decodeOK(t, f.call(t, "inspect_sound", map[string]any{"filepath": "tone.wav"}), &info)
	if info.SampleRate != 8000 || info.Channels != 1 || info.Frames != 4001 {
		t.Fatalf("info = %+v, want 8000 Hz mono 4001 frames", info)
	}
	if info.Duration != 4001.0/8000.0 {
		t.Fatalf("duration = %v, want %v", info.Duration, 4001.0/8000.0)
	}
	if info.PeakAmplitude != nil {
		t.Fatalf("peak = %v, want none without a request", *info.PeakAmplitude)
	}

	var withPeak audio.Info
	decodeOK(t, f.call(t, "inspect_sound", map[string]any{"filepath": "tone.wav", "peak": true}), &withPeak)
	if withPeak.PeakAmplitude == nil || *withPeak.PeakAmplitude != 0.5 {
		t.Fatalf("peak = %v, want 0.5", withPeak.PeakAmplitude)
	}

	if got := errorCode(t, f.call(t, "inspect_sound", map[string]any{"filepath": "tone.wav", "peak": "yes"})); got != tool.ToolErrorCodeInvalidRequest {
		t.Fatalf("code = %q, want %q", got, tool.ToolErrorCodeInvalidRequest)
	}

	textPath := filepath.Join(f.workDir, "notes.txt")
	if err := os.WriteFile(textPath, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if got := errorCode(t, f.call(t, "inspect_sound", map[string]any{"filepath": textPath})); got != tool.ToolErrorCodeFileNotReadable {
		t.Fatalf("code = %q, want %q", got, tool.ToolErrorCodeFileNotReadable)
	}
}

func TestServeOverStdio(t *testing.T) {
	srv, root, _ := newTestServer(t)
	writeStub(t, root, "housekeep", "echo copied")

	toServerR, toServerW := io.Pipe()
	toClientR, toClientW := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := srv.Serve(context.Background(), toServerR, toClientW)
		_ = toClientW.Close()
		done <- err
	}()

	c := client.NewClient(transport.NewIO(toClientR, toServerW, io.NopCloser(strings.NewReader(""))))
	res := initialize(t, c)
	if res.ServerInfo.Name != serverName || res.ServerInfo.Version != "test" {
		t.Fatalf("server info = %+v", res.ServerInfo)
	}

	var execution tool.Execution
	decodeOK(t, callTool(t, c, "execute", map[string]any{"command": []string{"housekeep", "copy"}}), &execution)
	if execution.Stdout != "copied\n" {
		t.Fatalf("stdout = %q, want copied", execution.Stdout)
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after stdin closed")
	}
}

func TestListToolsScansRoot(t *testing.T) {
	f := startServer(t)
	writeStub(t, f.root, "modify", "exit 0")
	writeStub(t, f.root, "mystery", "exit 0")

	var listing tool.Listing
	decodeOK(t, f.call(t, "list_tools", nil), &listing)
	if listing.Source != tool.CatalogSourceScan {
		t.Fatalf("source = %q", listing.Source)
	}
	if !slices.Equal(listing.Categories["Time Domain"], []string{"modify"}) || !slices.Equal(listing.Categories[tool.OtherCategory], []string{"mystery"}) {
		t.Fatalf("categories = %v", listing.Categories)
	}
}

func TestErrorResultForPlainError(t *testing.T) {
	res := errorResult(io.ErrUnexpectedEOF)
	if !res.IsError || len(res.Content) != 1 {
		t.Fatalf("result = %+v, want one error content block", res)
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want mcp.TextContent", res.Content[0])
	}
	var body errorBody
	if err := json.Unmarshal([]byte(text.Text), &body); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if body.Code != errorCodeInternal || body.Message != io.ErrUnexpectedEOF.Error() {
		t.Fatalf("body = %+v", body)
	}
}
