package cmd

import (
	"fmt"
	"os"

	"github.com/pygpt-net/msibuild/internal/config"
	"github.com/pygpt-net/msibuild/internal/ui"
	"github.com/pygpt-net/msibuild/internal/wix"
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:          "clean",
	Short:        "Remove intermediate build files",
	Long:         `Delete the WiX work directory. Built installers and the build cache are kept.`,
	RunE:         runClean,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForBuild(cmd)
	if err != nil {
		return err
	}

	printer := ui.NewPrinter(os.Stdout, cfg.Silent)

	workDir := wix.WorkDir(cfg)
	if err := os.RemoveAll(workDir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", workDir, err)
	}

	printer.Infof("removed %s", workDir)

	return nil
}
