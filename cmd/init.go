package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pygpt-net/msibuild/internal/config"
	"github.com/pygpt-net/msibuild/internal/ui"
	"github.com/pygpt-net/msibuild/internal/wxs"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:          "init",
	Short:        "Scaffold a product authoring file and local config",
	Long:         `Write a starter product.wxs and .msibuild.yml into the current directory.`,
	RunE:         runInit,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite existing files")
}

const configTemplate = `# msibuild project configuration
product: %s
version: %s
manufacturer: %s
upgrade_code: %s
source_dir: %s
output_dir: %s
arch: %s

# sign:
#   enabled: true
#   thumbprint: ""
`

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().LoadForBuild(cmd)
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to resolve working directory: %w", err)
	}

	printer := ui.NewPrinter(os.Stdout, cfg.Silent)

	return scaffold(cfg, cwd, force, printer)
}

// scaffold writes the authoring file and a starter local config. A
// project that never set an upgrade code gets a freshly minted one;
// reusing the built-in default across products would make unrelated
// installers upgrade each other.
func scaffold(cfg *config.Config, dir string, force bool, printer *ui.Printer) error {
	scaffoldCfg := *cfg
	if scaffoldCfg.UpgradeCode == config.DefaultUpgradeCode {
		scaffoldCfg.UpgradeCode = uuid.NewString()
	}

	authoring, err := wxs.Render(&scaffoldCfg)
	if err != nil {
		return err
	}

	if err := writeScaffoldFile(cfg.WxsFile, authoring, force); err != nil {
		return err
	}
	printer.Infof("wrote %s", relPath(dir, cfg.WxsFile))

	local := filepath.Join(dir, ".msibuild.yml")
	starter := fmt.Sprintf(configTemplate,
		scaffoldCfg.Product,
		scaffoldCfg.Version,
		scaffoldCfg.Manufacturer,
		scaffoldCfg.UpgradeCode,
		relPath(dir, scaffoldCfg.SourceDir),
		relPath(dir, scaffoldCfg.OutputDir),
		scaffoldCfg.Arch,
	)

	if err := writeScaffoldFile(local, []byte(starter), force); err != nil {
		return err
	}
	printer.Infof("wrote %s", relPath(dir, local))

	return nil
}

func writeScaffoldFile(path string, content []byte, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	return os.WriteFile(path, content, 0o644)
}

// relPath renders p relative to dir when it sits underneath it; paths
// escaping the directory stay absolute.
func relPath(dir, p string) string {
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}

	return filepath.ToSlash(rel)
}
