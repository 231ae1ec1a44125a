package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/google/uuid"
	"github.com/pygpt-net/msibuild/internal/utils"
	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultProduct      = "pygpt"
	DefaultVersion      = "2.4.34"
	DefaultManufacturer = "pygpt.net"
	DefaultUpgradeCode  = "8f1a3fd4-71f5-4db4-aae2-c54ab4f2b4f9"
	DefaultSourceDir    = "dist/Windows"
	DefaultOutputDir    = "dist"
	DefaultWxsFile      = "product.wxs"
	DefaultWixDir       = "C:/Program Files (x86)/WiX Toolset v3.11/bin"
	DefaultSignToolDir  = "C:/Program Files (x86)/Windows Kits/10/bin/x64"
	DefaultArch         = "x64"
	DefaultExtension    = "WixUIExtension"
	DefaultCacheDir     = ".msibuild-cache"
	DefaultTimestampURL = "http://timestamp.digicert.com"
)

// Sign holds the Authenticode signing options. Signing is off by
// default; the tool directory is still resolved so a later --sign run
// fails on configuration, not mid-pipeline.
type Sign struct {
	// Sign the linked installer with signtool
	Enabled bool

	// Certificate thumbprint passed as /sha1; empty lets signtool
	// pick the best certificate from the store
	Thumbprint string

	// RFC 3161 timestamp server passed as /tr
	TimestampURL string
}

// Holds the configuration options for msibuild
type Config struct {
	// Product name embedded in the installer and its filename
	Product string

	// Product version (semantic version)
	Version string

	// Manufacturer recorded in the MSI property table
	Manufacturer string

	// Upgrade code UUID identifying the product line across versions
	UpgradeCode string

	// Directory tree to harvest into the installer
	SourceDir string

	// Directory receiving the final installer and the work directory
	OutputDir string

	// Static WiX authoring source
	WxsFile string

	// WiX Toolset bin directory holding heat, candle and light
	WixDir string

	// Windows SDK directory holding signtool
	SignToolDir string

	// Target architecture for the WiX compiler
	Arch string

	// WiX extension passed to the linker
	Extension string

	// Suppress per-step console output
	Silent bool

	// Enable verbose output
	Verbose bool

	// Disable the build cache
	NoCache bool

	// Build cache directory
	CacheDir string

	// Authenticode signing options
	Sign Sign
}

func Load() (*Config, error) {
	cfg := &Config{
		Product:      viper.GetString("product"),
		Version:      viper.GetString("version"),
		Manufacturer: viper.GetString("manufacturer"),
		UpgradeCode:  viper.GetString("upgrade_code"),
		SourceDir:    viper.GetString("source_dir"),
		OutputDir:    viper.GetString("output_dir"),
		WxsFile:      viper.GetString("wxs_file"),
		WixDir:       viper.GetString("wix_dir"),
		SignToolDir:  viper.GetString("signtool_dir"),
		Arch:         viper.GetString("arch"),
		Extension:    viper.GetString("extension"),
		Silent:       viper.GetBool("silent"),
		Verbose:      viper.GetBool("verbose"),
		NoCache:      viper.GetBool("no_cache"),
		CacheDir:     viper.GetString("cache_dir"),
		Sign: Sign{
			Enabled:      viper.GetBool("sign.enabled"),
			Thumbprint:   viper.GetString("sign.thumbprint"),
			TimestampURL: viper.GetString("sign.timestamp_url"),
		},
	}

	// Apply defaults if not set
	cfg.applyDefaults()

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Product == "" {
		c.Product = DefaultProduct
	}

	if c.Version == "" {
		c.Version = DefaultVersion
	}

	if c.Manufacturer == "" {
		c.Manufacturer = DefaultManufacturer
	}

	if c.UpgradeCode == "" {
		c.UpgradeCode = DefaultUpgradeCode
	}

	if c.SourceDir == "" {
		c.SourceDir = DefaultSourceDir
	}

	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}

	if c.WxsFile == "" {
		c.WxsFile = DefaultWxsFile
	}

	if c.WixDir == "" {
		c.WixDir = DefaultWixDir
	}

	if c.SignToolDir == "" {
		c.SignToolDir = DefaultSignToolDir
	}

	if c.Extension == "" {
		c.Extension = DefaultExtension
	}

	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}

	if c.Sign.TimestampURL == "" {
		c.Sign.TimestampURL = DefaultTimestampURL
	}
}

func (c *Config) Validate() error {
	if c.Product == "" {
		return fmt.Errorf("product name must not be empty")
	}

	// The product name lands in the installer filename
	if strings.ContainsAny(c.Product, `/\`) {
		return fmt.Errorf("invalid product name: %s", c.Product)
	}

	if _, err := semver.NewVersion(c.Version); err != nil {
		return fmt.Errorf("invalid product version %q: %v", c.Version, err)
	}

	if _, err := uuid.Parse(c.UpgradeCode); err != nil {
		return fmt.Errorf("invalid upgrade code %q: %v", c.UpgradeCode, err)
	}

	// Validate architecture
	arch := utils.NormalizeArch(c.Arch)
	if arch == "" {
		return fmt.Errorf("unsupported architecture: %s", c.Arch)
	}
	c.Arch = arch

	// Resolve paths so the pipeline is independent of the working
	// directory the tools run in
	for _, p := range []*string{
		&c.SourceDir,
		&c.OutputDir,
		&c.WxsFile,
		&c.WixDir,
		&c.SignToolDir,
		&c.CacheDir,
	} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("invalid path %q: %v", *p, err)
		}

		*p = abs
	}

	return nil
}
