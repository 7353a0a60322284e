package tool

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"

	"github.com/google/uuid"
)

// cancelWaitDelay bounds how long Wait keeps draining pipes held open by grandchildren
// after the context has killed the child.
const cancelWaitDelay = 5 * time.Second

const (
	operationExecute = "execute"
	operationUsage   = "usage"
)

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	Resolver Resolver
	// WorkDir is the child's working directory. Empty inherits the server's.
	WorkDir string
	// UsageTimeout bounds Usage queries only; Execute is never bounded.
	UsageTimeout time.Duration
	Logger       *slog.Logger
}

// Executor is the command adapter: one call, one child process, output returned verbatim.
type Executor struct {
	resolver     Resolver
	workDir      string
	usageTimeout time.Duration
	logger       *slog.Logger
	newID        func() string
}

// NewExecutor creates an executor from cfg.
func NewExecutor(cfg ExecutorConfig) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		resolver:     cfg.Resolver,
		workDir:      cfg.WorkDir,
		usageTimeout: cfg.UsageTimeout,
		logger:       logger,
		newID:        uuid.NewString,
	}
}

// WorkDir returns the directory children run in.
func (e *Executor) WorkDir() string {
	return e.workDir
}

// Resolver returns the resolver used to locate programs.
func (e *Executor) Resolver() Resolver {
	return e.resolver
}

// Execute resolves the command's tool, spawns it with the remaining tokens as literal
// arguments and returns whatever it wrote and exited with. A non-zero exit status is data.
func (e *Executor) Execute(ctx context.Context, command Command) (Execution, error) {
	return e.run(ctx, operationExecute, command)
}

func (e *Executor) run(ctx context.Context, operation string, command Command) (Execution, error) {
	if e == nil {
		return Execution{}, NewToolError(ToolErrorCodeInvalidRequest, "tool: executor is nil", ErrInvalidRequest)
	}

	observation := ExecuteObservation{
		ID:        e.newID(),
		Operation: operation,
		ToolName:  command.Tool(),
		StartedAt: time.Now().UTC(),
	}
	execution, err := e.spawn(ctx, command, &observation)
	if err != nil {
		observation.ErrorCode = ErrorCode(err)
		e.logger.Warn("tool invocation failed",
			"id", observation.ID,
			"tool", observation.ToolName,
			"code", observation.ErrorCode,
			"error", err,
		)
	}
	emitExecuteObservation(observation)
	return execution, err
}

func (e *Executor) spawn(ctx context.Context, command Command, observation *ExecuteObservation) (Execution, error) {
	if command.Empty() {
		return Execution{}, NewToolError(ToolErrorCodeInvalidRequest, "empty command", ErrInvalidRequest)
	}

	path, err := e.resolver.Resolve(command.Tool())
	if err != nil {
		return Execution{}, err
	}
	argv := e.resolver.Argv(path, command.Args())
	observation.Argv = argv

	e.logger.Debug("executing", "id", observation.ID, "argv", argv, "dir", e.workDir)

	if err := ctx.Err(); err != nil {
		return Execution{}, interrupted(err)
	}

	// #nosec G204 -- argv is the caller's command by contract; no shell is involved.
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = e.workDir
	cmd.WaitDelay = cancelWaitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Execution{}, interrupted(ctxErr)
		}
		return Execution{}, withToolErrorDetails(
			NewToolError(ToolErrorCodeSpawnFailure, "start "+argv[0]+": "+err.Error(), err),
			map[string]any{"argv": argv},
		)
	}
	observation.Spawned = true

	waitErr := cmd.Wait()
	duration := time.Since(start)

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) && cmd.ProcessState == nil {
		return Execution{}, NewToolError(ToolErrorCodeSpawnFailure, "wait "+argv[0]+": "+waitErr.Error(), waitErr)
	}

	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}
	observation.DurationMS = duration.Milliseconds()
	observation.ExitCode = result.ExitCode
	observation.StdoutBytes = stdout.Len()
	observation.StderrBytes = stderr.Len()

	return Execution{
		ID:         observation.ID,
		Command:    command.Tokens(),
		Argv:       argv,
		DurationMS: duration.Milliseconds(),
		Result:     result,
	}, nil
}

// interrupted reports a context that ended before the child could start. The operating
// system never saw the request, so this is not a spawn failure.
func interrupted(err error) *ToolError {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewToolError(ToolErrorCodeTimeout, "deadline passed before the program started", err)
	}
	return NewToolError(ToolErrorCodeCanceled, "request canceled before the program started", err)
}
