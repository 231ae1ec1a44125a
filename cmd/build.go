package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pygpt-net/msibuild/internal/cache"
	"github.com/pygpt-net/msibuild/internal/config"
	"github.com/pygpt-net/msibuild/internal/logging"
	"github.com/pygpt-net/msibuild/internal/report"
	"github.com/pygpt-net/msibuild/internal/sign"
	"github.com/pygpt-net/msibuild/internal/ui"
	"github.com/pygpt-net/msibuild/internal/wix"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:          "build",
	Short:        "Build the MSI installer",
	Long:         `Run the WiX pipeline: harvest the source directory, compile the authoring, link the MSI.`,
	RunE:         runBuild,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

// pipelineRunner lets tests substitute the WiX pipeline.
type pipelineRunner interface {
	Run(ctx context.Context) (*wix.Result, error)
}

var newRunner = func(cfg *config.Config, logger log.Logger) pipelineRunner {
	return wix.NewRunner(cfg, logger)
}

var signArtifact = func(ctx context.Context, logger log.Logger, opts sign.Options, artifact string) error {
	return sign.Run(ctx, logger, opts, artifact)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForBuild(cmd)
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.Verbose)
	printer := ui.NewPrinter(os.Stdout, cfg.Silent)

	return build(cmd.Context(), cfg, logger, printer)
}

func build(ctx context.Context, cfg *config.Config, logger log.Logger, printer *ui.Printer) error {
	start := time.Now()
	artifact := wix.ArtifactPath(cfg)

	var (
		store *cache.Cache
		key   string
	)

	if !cfg.NoCache {
		store, key = openCache(cfg, logger)
		if store != nil {
			defer store.Close()
		}
	}

	if store != nil {
		entry, err := store.Get(key)
		if err != nil {
			level.Debug(logger).Log("msg", "cache lookup failed", "err", err)
		}

		if entry != nil && entry.Artifact == artifact {
			if err := store.Materialize(entry); err == nil {
				printer.UpToDate(artifact)
				writeReport(cfg, logger, entry, nil, true, time.Since(start))
				return nil
			}

			level.Debug(logger).Log("msg", "stale cache entry, rebuilding", "key", key)
		}
	}

	runner := newRunner(cfg, logger)
	result, err := runner.Run(ctx)
	if err != nil {
		var stepErr *wix.StepError
		if errors.As(err, &stepErr) {
			printer.Fail(stepErr.Step, stepErr.ExitCode)
		}

		return err
	}

	for _, step := range result.Steps {
		printer.Step(step.Name, step.Duration)
	}

	if cfg.Sign.Enabled {
		signStart := time.Now()
		opts := sign.Options{
			ToolDir:      cfg.SignToolDir,
			Thumbprint:   cfg.Sign.Thumbprint,
			TimestampURL: cfg.Sign.TimestampURL,
		}

		if err := signArtifact(ctx, logger, opts, result.Artifact); err != nil {
			printer.Fail("sign", wix.ExitCode(err))
			return err
		}

		result.Steps = append(result.Steps, wix.StepResult{Name: "sign", Duration: time.Since(signStart)})
		printer.Step("sign", time.Since(signStart))
	}

	// hash after signing so the recorded digest matches the shipped bytes
	sha, err := cache.HashFile(result.Artifact)
	if err != nil {
		return fmt.Errorf("failed to hash artifact: %w", err)
	}

	info, err := os.Stat(result.Artifact)
	if err != nil {
		return fmt.Errorf("failed to stat artifact: %w", err)
	}

	entry := &cache.Entry{
		Key:       key,
		Product:   cfg.Product,
		Version:   cfg.Version,
		Arch:      cfg.Arch,
		Artifact:  result.Artifact,
		SHA256:    sha,
		Size:      info.Size(),
		Duration:  time.Since(start),
		Timestamp: time.Now().UTC(),
	}

	if store != nil {
		if err := store.Put(entry); err != nil {
			level.Debug(logger).Log("msg", "failed to store cache entry", "err", err)
		}
	}

	writeReport(cfg, logger, entry, result.Steps, false, time.Since(start))
	printer.Summary(result.Artifact, info.Size(), time.Since(start))

	return nil
}

// openCache opens the build cache and computes the key for the current
// inputs. The cache is an accelerator: any failure here downgrades to
// an uncached build.
func openCache(cfg *config.Config, logger log.Logger) (*cache.Cache, string) {
	store, err := cache.New(cfg.CacheDir)
	if err != nil {
		level.Debug(logger).Log("msg", "cache unavailable", "err", err)
		return nil, ""
	}

	key, err := cache.Key(cfg)
	if err != nil {
		level.Debug(logger).Log("msg", "failed to compute cache key", "err", err)
		store.Close()
		return nil, ""
	}

	return store, key
}

func writeReport(cfg *config.Config, logger log.Logger, entry *cache.Entry, steps []wix.StepResult, cached bool, elapsed time.Duration) {
	rep := &report.Report{
		Product:   entry.Product,
		Version:   entry.Version,
		Arch:      entry.Arch,
		Artifact:  entry.Artifact,
		SHA256:    entry.SHA256,
		Size:      entry.Size,
		Cached:    cached,
		Signed:    cfg.Sign.Enabled,
		Duration:  elapsed.Round(time.Millisecond).String(),
		CreatedAt: time.Now().UTC(),
	}

	for _, s := range steps {
		rep.Steps = append(rep.Steps, report.Step{
			Name:     s.Name,
			Duration: s.Duration.Round(time.Millisecond).String(),
		})
	}

	if err := report.Write(report.Path(cfg.OutputDir), rep); err != nil {
		level.Debug(logger).Log("msg", "failed to write build report", "err", err)
	}
}
