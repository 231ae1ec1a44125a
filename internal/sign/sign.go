// Package sign wraps signtool.exe as an optional stage after linking.
// It follows the same rules as the pipeline steps: inputs are checked
// before launching, output is captured, and a failure aborts the build.
package sign

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// SignToolExe is the Windows SDK signing tool executable name.
const SignToolExe = "signtool.exe"

// Commander is the subset of exec.Cmd the signer needs.
type Commander interface {
	Run() error
}

// execCommand creates the signtool process. Tests replace it.
var execCommand = func(ctx context.Context, name string, args ...string) Commander {
	return exec.CommandContext(ctx, name, args...)
}

// Options select the certificate and timestamping behavior.
type Options struct {
	// ToolDir is the Windows SDK directory holding signtool.exe
	ToolDir string

	// Thumbprint selects the certificate (/sha1); empty lets signtool
	// pick the best certificate from the store (/a)
	Thumbprint string

	// TimestampURL is the RFC 3161 timestamp server (/tr); empty
	// skips timestamping
	TimestampURL string
}

// Command returns the signtool invocation for an artifact. The result
// is a pure function of its inputs.
func Command(opts Options, artifact string) (string, []string) {
	tool := filepath.Join(opts.ToolDir, SignToolExe)

	args := []string{"sign", "/fd", "SHA256"}

	if opts.Thumbprint != "" {
		args = append(args, "/sha1", opts.Thumbprint)
	} else {
		args = append(args, "/a")
	}

	if opts.TimestampURL != "" {
		args = append(args, "/tr", opts.TimestampURL, "/td", "SHA256")
	}

	args = append(args, artifact)

	return tool, args
}

// Run signs the artifact in place, blocking until signtool exits.
func Run(ctx context.Context, logger log.Logger, opts Options, artifact string) error {
	tool, args := Command(opts, artifact)

	if _, err := os.Stat(tool); err != nil {
		return fmt.Errorf("signtool.exe not found in %s", opts.ToolDir)
	}

	if _, err := os.Stat(artifact); err != nil {
		return fmt.Errorf("nothing to sign: %s", artifact)
	}

	c := execCommand(ctx, tool, args...)

	var stdout, stderr bytes.Buffer
	if cmd, ok := c.(*exec.Cmd); ok {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	level.Debug(logger).Log(
		"msg", "execing",
		"step", "sign",
		"cmd", fmt.Sprintf("%s %s", tool, strings.Join(args, " ")),
	)

	if err := c.Run(); err != nil {
		out := strings.TrimSpace(stdout.String() + "\n" + stderr.String())
		if out != "" {
			return fmt.Errorf("signing failed: %w\n%s", err, out)
		}
		return fmt.Errorf("signing failed: %w", err)
	}

	return nil
}
