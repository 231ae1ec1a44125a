package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/kit/log/level"
	"github.com/oklog/run"
	"github.com/pygpt-net/msibuild/internal/config"
	"github.com/pygpt-net/msibuild/internal/logging"
	"github.com/pygpt-net/msibuild/internal/ui"
	"github.com/pygpt-net/msibuild/internal/watcher"
	"github.com/pygpt-net/msibuild/internal/wix"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:          "watch",
	Short:        "Rebuild on source changes",
	Long:         `Watch the source directory and authoring file, rebuilding the MSI whenever they change. Failed builds are reported and watching continues.`,
	RunE:         runWatch,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForBuild(cmd)
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.Verbose)
	printer := ui.NewPrinter(os.Stdout, cfg.Silent)

	w, err := watcher.New(logger, watcher.DefaultQuietWindow, watcher.DefaultMaxDelay)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// our own outputs never retrigger builds
	w.Skip(wix.WorkDir(cfg))
	w.Skip(cfg.CacheDir)

	if err := w.Add(cfg.SourceDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", cfg.SourceDir, err)
	}

	if _, err := os.Stat(cfg.WxsFile); err == nil {
		if err := w.AddFile(cfg.WxsFile); err != nil {
			level.Debug(logger).Log("msg", "could not watch authoring file", "err", err)
		}
	}

	printer.Infof("watching %s", cfg.SourceDir)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var runGroup run.Group

	// listen for signals
	sig := make(chan os.Signal, 1)
	runGroup.Add(func() error {
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sig:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}, func(error) {
		signal.Stop(sig)
		cancel()
	})

	// pump filesystem events
	runGroup.Add(func() error {
		return w.Run(ctx)
	}, func(error) {
		cancel()
		_ = w.Close()
	})

	// rebuild on triggers
	runGroup.Add(func() error {
		if err := build(ctx, cfg, logger, printer); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case _, ok := <-w.Builds():
				if !ok {
					return nil
				}

				if err := build(ctx, cfg, logger, printer); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				}
			}
		}
	}, func(error) {
		cancel()
	})

	if err := runGroup.Run(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
