package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pygpt-net/msibuild/internal/config"
	"github.com/pygpt-net/msibuild/internal/version"
	"github.com/pygpt-net/msibuild/internal/wix"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:          "msibuild",
	Short:        "WiX MSI build pipeline",
	Long:         `Build a Windows MSI installer from a pre-built application directory using the WiX Toolset (heat, candle, light).`,
	RunE:         runBuild,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

// Execute runs the root command. Pipeline failures exit with the
// failing tool's exit code.
func Execute(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		os.Exit(wix.ExitCode(err))
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	rootCmd.PersistentFlags().String("product", "", "Product name")
	rootCmd.PersistentFlags().String("product-version", "", "Product version (semantic version)")
	rootCmd.PersistentFlags().String("manufacturer", "", "Manufacturer name")
	rootCmd.PersistentFlags().String("upgrade-code", "", "Upgrade code GUID identifying the product across versions")
	rootCmd.PersistentFlags().String("source-dir", "", "Directory holding the pre-built application files")
	rootCmd.PersistentFlags().StringP("output-dir", "o", "", "Directory for the MSI and intermediates")
	rootCmd.PersistentFlags().String("wxs", "", "Product authoring file")
	rootCmd.PersistentFlags().String("wix-dir", "", "WiX Toolset bin directory")
	rootCmd.PersistentFlags().String("signtool-dir", "", "Windows SDK directory holding signtool.exe")
	rootCmd.PersistentFlags().String("arch", "", "Target architecture (x86, x64, arm64)")
	rootCmd.PersistentFlags().String("extension", "", "WiX extension passed to light")
	rootCmd.PersistentFlags().BoolP("silent", "s", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable build cache")
	rootCmd.PersistentFlags().String("cache-dir", "", "Build cache directory")
	rootCmd.PersistentFlags().Bool("sign", false, "Sign the MSI with signtool after linking")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	viper.SetDefault("wix_dir", config.DefaultWixDir)
	viper.SetDefault("arch", config.DefaultArch)
	viper.SetDefault("silent", false)
	viper.SetDefault("verbose", false)
}
