package cmd

import (
	"fmt"
	"os"

	"github.com/pygpt-net/msibuild/internal/cache"
	"github.com/pygpt-net/msibuild/internal/config"
	"github.com/pygpt-net/msibuild/internal/ui"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:          "cache",
	Short:        "Build cache maintenance",
	SilenceUsage: true,
}

var cacheStatsCmd = &cobra.Command{
	Use:          "stats",
	Short:        "Show build cache statistics",
	RunE:         runCacheStats,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

var cacheClearCmd = &cobra.Command{
	Use:          "clear",
	Short:        "Remove all cached builds",
	RunE:         runCacheClear,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForBuild(cmd)
	if err != nil {
		return err
	}

	store, err := cache.New(cfg.CacheDir)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, size, err := store.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("entries: %d\n", entries)
	fmt.Printf("size: %s\n", ui.HumanSize(size))
	fmt.Printf("location: %s\n", cfg.CacheDir)

	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForBuild(cmd)
	if err != nil {
		return err
	}

	store, err := cache.New(cfg.CacheDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		return err
	}

	printer := ui.NewPrinter(os.Stdout, cfg.Silent)
	printer.Infof("cache cleared")

	return nil
}
