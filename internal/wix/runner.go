package wix

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pygpt-net/msibuild/internal/codes"
	"github.com/pygpt-net/msibuild/internal/config"
)

// Commander is the subset of exec.Cmd the runner needs. Tests swap in
// fakes through WithExecCommand.
type Commander interface {
	Run() error
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecCommand overrides how external processes are created.
func WithExecCommand(f func(ctx context.Context, name string, args ...string) Commander) Option {
	return func(r *Runner) {
		r.execCommand = f
	}
}

// Runner executes the pipeline steps in order, blocking on each
// external tool and stopping at the first failure.
type Runner struct {
	cfg    *config.Config
	logger log.Logger

	execCommand func(ctx context.Context, name string, args ...string) Commander
}

// NewRunner creates a runner for the given configuration.
func NewRunner(cfg *config.Config, logger log.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		logger: logger,
		execCommand: func(ctx context.Context, name string, args ...string) Commander {
			return exec.CommandContext(ctx, name, args...)
		},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// StepResult records one completed step for reporting.
type StepResult struct {
	Name     string
	Duration time.Duration
}

// Result describes a successful pipeline run.
type Result struct {
	// Artifact is the absolute path of the produced installer
	Artifact string

	// Steps holds per-step timings, in execution order
	Steps []StepResult

	// Duration is the wall time of the whole pipeline
	Duration time.Duration
}

// Run executes harvest, compile and link. The first failing step
// aborts the pipeline and its captured output travels up in the
// returned StepError. Intermediate files are left in the work
// directory for inspection.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.Preflight(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(WorkDir(r.cfg), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	start := time.Now()
	result := &Result{Artifact: ArtifactPath(r.cfg)}

	for _, step := range BuildSteps(r.cfg) {
		stepStart := time.Now()

		if err := r.runStep(ctx, step); err != nil {
			return nil, err
		}

		result.Steps = append(result.Steps, StepResult{
			Name:     step.Name,
			Duration: time.Since(stepStart),
		})
	}

	result.Duration = time.Since(start)

	return result, nil
}

// Preflight verifies the toolchain before anything runs. A missing or
// misconfigured WiX installation fails here, never mid-pipeline.
func (r *Runner) Preflight() error {
	for _, exe := range []string{HeatExe, CandleExe, LightExe} {
		tool := filepath.Join(r.cfg.WixDir, exe)

		if _, err := os.Stat(tool); err != nil {
			return fmt.Errorf("wix toolchain: %s not found in %s", exe, r.cfg.WixDir)
		}
	}

	return nil
}

// runStep checks the step's inputs, launches the tool and verifies the
// declared artifact afterwards.
func (r *Runner) runStep(ctx context.Context, step Step) error {
	for _, req := range step.Requires {
		if _, err := os.Stat(req); err != nil {
			return &StepError{
				Step:     step.Name,
				Tool:     step.Tool,
				ExitCode: 1,
				Err:      fmt.Errorf("missing input: %s", req),
			}
		}
	}

	c := r.execCommand(ctx, step.Tool, step.Args...)

	var stdout, stderr bytes.Buffer
	if cmd, ok := c.(*exec.Cmd); ok {
		cmd.Dir = step.Dir
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	level.Debug(r.logger).Log(
		"msg", "execing",
		"step", step.Name,
		"cmd", fmt.Sprintf("%s %s", step.Tool, strings.Join(step.Args, " ")),
	)

	err := c.Run()

	code := 0
	if err != nil {
		code = exitStatus(err)
	}

	if !codes.IsSuccess(code) {
		return &StepError{
			Step:     step.Name,
			Tool:     step.Tool,
			ExitCode: code,
			Stdout:   strings.TrimSpace(stdout.String()),
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}

	if out := strings.TrimSpace(stdout.String()); out != "" {
		level.Debug(r.logger).Log("msg", "tool output", "step", step.Name, "stdout", out)
	}

	if _, err := os.Stat(step.Artifact); err != nil {
		return &StepError{
			Step:     step.Name,
			Tool:     step.Tool,
			ExitCode: 1,
			Stdout:   strings.TrimSpace(stdout.String()),
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      fmt.Errorf("%w: %s", ErrMissingArtifact, step.Artifact),
		}
	}

	return nil
}

// ErrMissingArtifact marks a step that exited zero without leaving its
// declared artifact behind.
var ErrMissingArtifact = errors.New("artifact missing after successful exit")

// StepError carries the identity, exit status and captured output of a
// failed pipeline step.
type StepError struct {
	Step     string
	Tool     string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *StepError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "step %s: %s: %v", e.Step, filepath.Base(e.Tool), e.Err)

	if e.Stdout != "" {
		fmt.Fprintf(&b, "\nstdout: %s", e.Stdout)
	}

	if e.Stderr != "" {
		fmt.Fprintf(&b, "\nstderr: %s", e.Stderr)
	}

	if id, hint, ok := codes.Scan(e.Stdout + "\n" + e.Stderr); ok {
		fmt.Fprintf(&b, "\n%s: %s", id, hint)
	}

	return b.String()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// exitStatus extracts the tool's exit status from a Run error, or 1
// when the tool never produced one (failed to start, killed).
func exitStatus(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}

	return 1
}

// ExitCode maps a pipeline error to the process exit code: the failing
// tool's status when known, a generic 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var stepErr *StepError
	if errors.As(err, &stepErr) && stepErr.ExitCode > 0 {
		return stepErr.ExitCode
	}

	return 1
}
