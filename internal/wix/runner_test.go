package wix

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pygpt-net/msibuild/internal/config"
	"github.com/pygpt-net/msibuild/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPipeline creates a workspace with a harvestable source tree, an
// authoring file and a stub WiX toolchain.
func setupPipeline(t *testing.T) *config.Config {
	t.Helper()

	root := t.TempDir()
	cfg := &config.Config{
		Product:      "pygpt",
		Version:      "2.4.34",
		Manufacturer: "pygpt.net",
		UpgradeCode:  "8f1a3fd4-71f5-4db4-aae2-c54ab4f2b4f9",
		SourceDir:    filepath.Join(root, "dist", "Windows"),
		OutputDir:    filepath.Join(root, "dist"),
		WxsFile:      filepath.Join(root, "product.wxs"),
		WixDir:       filepath.Join(root, "wix"),
		Arch:         "x64",
		Extension:    "WixUIExtension",
	}

	require.NoError(t, os.MkdirAll(cfg.SourceDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.SourceDir, "pygpt.exe"), []byte("binary"), 0o644))
	require.NoError(t, os.WriteFile(cfg.WxsFile, []byte("<Wix/>"), 0o644))

	require.NoError(t, os.MkdirAll(cfg.WixDir, 0o755))
	for _, exe := range []string{HeatExe, CandleExe, LightExe} {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.WixDir, exe), []byte("stub"), 0o755))
	}

	return cfg
}

type fakeCommand struct {
	runFunc func() error
}

func (f *fakeCommand) Run() error {
	if f.runFunc != nil {
		return f.runFunc()
	}
	return nil
}

// fakeToolchain stands in for heat, candle and light. Every launch is
// recorded; unless told otherwise each tool succeeds and leaves the
// outputs the real one would.
type fakeToolchain struct {
	cfg      *config.Config
	invoked  []string
	failWith map[string]error
	noOutput map[string]bool
}

func (f *fakeToolchain) exec(ctx context.Context, name string, args ...string) Commander {
	base := filepath.Base(name)
	f.invoked = append(f.invoked, base)

	return &fakeCommand{runFunc: func() error {
		if err := f.failWith[base]; err != nil {
			return err
		}
		if f.noOutput[base] {
			return nil
		}
		return f.produce(base)
	}}
}

func (f *fakeToolchain) produce(base string) error {
	work := WorkDir(f.cfg)

	switch base {
	case HeatExe:
		return touch(filepath.Join(work, "Components.wxs"))
	case CandleExe:
		if err := touch(filepath.Join(work, "product.wixobj")); err != nil {
			return err
		}
		return touch(filepath.Join(work, "Components.wixobj"))
	case LightExe:
		return touch(ArtifactPath(f.cfg))
	}

	return nil
}

func touch(path string) error {
	return os.WriteFile(path, []byte("x"), 0o644)
}

func TestRunner_Run_Success(t *testing.T) {
	cfg := setupPipeline(t)
	tc := &fakeToolchain{cfg: cfg}

	runner := NewRunner(cfg, logging.NewNop(), WithExecCommand(tc.exec))
	result, err := runner.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{HeatExe, CandleExe, LightExe}, tc.invoked)
	assert.Equal(t, ArtifactPath(cfg), result.Artifact)
	assert.FileExists(t, result.Artifact)

	require.Len(t, result.Steps, 3)
	assert.Equal(t, "harvest", result.Steps[0].Name)
	assert.Equal(t, "compile", result.Steps[1].Name)
	assert.Equal(t, "link", result.Steps[2].Name)
}

func TestRunner_Run_StopsAtFirstFailure(t *testing.T) {
	cfg := setupPipeline(t)
	tc := &fakeToolchain{
		cfg:      cfg,
		failWith: map[string]error{CandleExe: errors.New("compile exploded")},
	}

	runner := NewRunner(cfg, logging.NewNop(), WithExecCommand(tc.exec))
	result, err := runner.Run(context.Background())

	require.Error(t, err)
	assert.Nil(t, result)

	// light must never have been launched
	assert.Equal(t, []string{HeatExe, CandleExe}, tc.invoked)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "compile", stepErr.Step)
}

func TestRunner_Run_MissingSourceDir(t *testing.T) {
	cfg := setupPipeline(t)
	require.NoError(t, os.RemoveAll(cfg.SourceDir))

	tc := &fakeToolchain{cfg: cfg}

	runner := NewRunner(cfg, logging.NewNop(), WithExecCommand(tc.exec))
	_, err := runner.Run(context.Background())

	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "harvest", stepErr.Step)
	assert.Contains(t, err.Error(), "missing input")

	// the tool was never launched against a missing tree
	assert.Empty(t, tc.invoked)
}

func TestRunner_Run_MissingToolchain(t *testing.T) {
	cfg := setupPipeline(t)
	require.NoError(t, os.Remove(filepath.Join(cfg.WixDir, LightExe)))

	tc := &fakeToolchain{cfg: cfg}

	runner := NewRunner(cfg, logging.NewNop(), WithExecCommand(tc.exec))
	_, err := runner.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "light.exe not found")
	assert.Empty(t, tc.invoked)
}

func TestRunner_Run_MissingArtifact(t *testing.T) {
	cfg := setupPipeline(t)
	tc := &fakeToolchain{
		cfg:      cfg,
		noOutput: map[string]bool{HeatExe: true},
	}

	runner := NewRunner(cfg, logging.NewNop(), WithExecCommand(tc.exec))
	_, err := runner.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingArtifact)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "harvest", stepErr.Step)

	// candle must never run against a missing harvest output
	assert.Equal(t, []string{HeatExe}, tc.invoked)
}

// fakeExitCommand launches the test binary itself so the runner sees a
// real process with a real exit status.
func fakeExitCommand(code int, stderr string) func(ctx context.Context, name string, args ...string) Commander {
	return func(ctx context.Context, name string, args ...string) Commander {
		cs := []string{"-test.run=TestHelperProcess", "--", strconv.Itoa(code), stderr}
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
		return cmd
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}

	if len(args) > 1 && args[1] != "" {
		fmt.Fprintln(os.Stderr, args[1])
	}

	code, _ := strconv.Atoi(args[0])
	os.Exit(code)
}

func TestRunner_Run_PropagatesExitStatus(t *testing.T) {
	cfg := setupPipeline(t)

	runner := NewRunner(cfg, logging.NewNop(),
		WithExecCommand(fakeExitCommand(3, "heat.exe : warning HEAT5150 : Could not harvest data")))
	_, err := runner.Run(context.Background())

	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "harvest", stepErr.Step)
	assert.Equal(t, 3, stepErr.ExitCode)
	assert.Contains(t, stepErr.Stderr, "HEAT5150")

	// the operator hint for the diagnostic is part of the message
	assert.Contains(t, err.Error(), "could not inspect a harvested file")

	assert.Equal(t, 3, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: 0,
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			expected: 1,
		},
		{
			name:     "step error carries the tool status",
			err:      &StepError{Step: "link", ExitCode: 107},
			expected: 107,
		},
		{
			name:     "wrapped step error",
			err:      fmt.Errorf("build failed: %w", &StepError{Step: "compile", ExitCode: 42}),
			expected: 42,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExitCode(tt.err))
		})
	}
}

func TestStepError_Error(t *testing.T) {
	err := &StepError{
		Step:     "link",
		Tool:     "/opt/wix/bin/light.exe",
		ExitCode: 1,
		Stderr:   "error LGHT0216 : An unexpected Win32 exception occurred",
		Err:      errors.New("exit status 1"),
	}

	msg := err.Error()
	assert.Contains(t, msg, "step link")
	assert.Contains(t, msg, "light.exe")
	assert.Contains(t, msg, "LGHT0216")
	assert.Contains(t, msg, "MSI validation could not run")
}
