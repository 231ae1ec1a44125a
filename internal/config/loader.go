package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Loader handles configuration loading from various sources
type Loader struct{}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadForBuild loads the layered configuration for build-style
// commands. Precedence, lowest to highest: defaults, global config,
// local config, environment, command flags.
func (l *Loader) LoadForBuild(cmd *cobra.Command) (*Config, error) {
	l.setupViperDefaults()
	l.loadGlobalConfig()
	l.loadLocalConfig()
	l.bindEnvironment()
	l.bindCommandFlags(cmd)

	return Load()
}

// setupViperDefaults sets up default values for viper
func (l *Loader) setupViperDefaults() {
	viper.SetDefault("product", DefaultProduct)
	viper.SetDefault("version", DefaultVersion)
	viper.SetDefault("manufacturer", DefaultManufacturer)
	viper.SetDefault("upgrade_code", DefaultUpgradeCode)
	viper.SetDefault("source_dir", DefaultSourceDir)
	viper.SetDefault("output_dir", DefaultOutputDir)
	viper.SetDefault("wxs_file", DefaultWxsFile)
	viper.SetDefault("wix_dir", DefaultWixDir)
	viper.SetDefault("signtool_dir", DefaultSignToolDir)
	viper.SetDefault("arch", DefaultArch)
	viper.SetDefault("extension", DefaultExtension)
	viper.SetDefault("silent", false)
	viper.SetDefault("verbose", false)
	viper.SetDefault("no_cache", false)
	viper.SetDefault("cache_dir", DefaultCacheDir)
	viper.SetDefault("sign.enabled", false)
	viper.SetDefault("sign.thumbprint", "")
	viper.SetDefault("sign.timestamp_url", DefaultTimestampURL)
}

// globalConfigDirs returns candidate global config directories in
// lookup order. APPDATA covers Windows; XDG_CONFIG_HOME and ~/.config
// cover everything else.
func globalConfigDirs() []string {
	var dirs []string

	if appdata := os.Getenv("APPDATA"); appdata != "" {
		dirs = append(dirs, filepath.Join(appdata, "msibuild"))
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "msibuild"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "msibuild"))
	}

	return dirs
}

// loadGlobalConfig loads the per-user configuration file
func (l *Loader) loadGlobalConfig() {
	for _, dir := range globalConfigDirs() {
		for _, ext := range []string{"yml", "yaml", "json", "toml"} {
			globalPath := filepath.Join(dir, "config."+ext)

			if _, err := os.Stat(globalPath); err == nil {
				viper.SetConfigFile(globalPath)

				if err := viper.ReadInConfig(); err == nil {
					return
				}
			}
		}
	}
}

// loadLocalConfig merges the project configuration found by walking up
// from the working directory. Local keys override global ones.
func (l *Loader) loadLocalConfig() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	localPath := FindLocalConfig(cwd)
	if localPath != "" {
		viper.SetConfigFile(localPath)
		_ = viper.MergeInConfig()
	}
}

// bindEnvironment makes MSIBUILD_* variables available, loading a
// project .env file first if one exists.
func (l *Loader) bindEnvironment() {
	_ = godotenv.Load()

	viper.SetEnvPrefix("MSIBUILD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// bindCommandFlags binds command flags to viper
func (l *Loader) bindCommandFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag("product", cmd.Flags().Lookup("product"))
	_ = viper.BindPFlag("version", cmd.Flags().Lookup("product-version"))
	_ = viper.BindPFlag("manufacturer", cmd.Flags().Lookup("manufacturer"))
	_ = viper.BindPFlag("upgrade_code", cmd.Flags().Lookup("upgrade-code"))
	_ = viper.BindPFlag("source_dir", cmd.Flags().Lookup("source-dir"))
	_ = viper.BindPFlag("output_dir", cmd.Flags().Lookup("output-dir"))
	_ = viper.BindPFlag("wxs_file", cmd.Flags().Lookup("wxs"))
	_ = viper.BindPFlag("wix_dir", cmd.Flags().Lookup("wix-dir"))
	_ = viper.BindPFlag("signtool_dir", cmd.Flags().Lookup("signtool-dir"))
	_ = viper.BindPFlag("arch", cmd.Flags().Lookup("arch"))
	_ = viper.BindPFlag("extension", cmd.Flags().Lookup("extension"))
	_ = viper.BindPFlag("silent", cmd.Flags().Lookup("silent"))
	_ = viper.BindPFlag("verbose", cmd.Flags().Lookup("verbose"))
	_ = viper.BindPFlag("no_cache", cmd.Flags().Lookup("no-cache"))
	_ = viper.BindPFlag("cache_dir", cmd.Flags().Lookup("cache-dir"))
	_ = viper.BindPFlag("sign.enabled", cmd.Flags().Lookup("sign"))
}
