// Package wix drives the WiX Toolset pipeline that turns a built
// application directory into an MSI installer.
//
// The pipeline is three external tools run strictly in order:
//
//	heat.exe    harvests the source directory into Components.wxs
//	candle.exe  compiles the authoring sources into .wixobj objects
//	light.exe   links the objects into the final .msi
//
// Each step's declared artifact is an input of the next, so a step
// runs only after the previous one exited zero and left its artifact
// behind. There are no retries: the tools are deterministic, and a
// failed step only succeeds after its inputs change.
package wix

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pygpt-net/msibuild/internal/config"
)

// WiX Toolset executable names
const (
	HeatExe   = "heat.exe"
	CandleExe = "candle.exe"
	LightExe  = "light.exe"
)

// ComponentGroup is the identifier heat assigns to the harvested
// components. The authoring file references it from its main feature.
const ComponentGroup = "AppComponents"

// componentsWxs is the harvest output filename inside the work
// directory, and componentsObj the object candle compiles it to.
const (
	componentsWxs = "Components.wxs"
	componentsObj = "Components.wixobj"
)

// Step is one pipeline stage: a single external tool invocation.
type Step struct {
	// Name identifies the step in errors and logs
	Name string

	// Tool is the absolute path of the executable
	Tool string

	// Args is the ordered argument list
	Args []string

	// Dir is the working directory the tool runs in
	Dir string

	// Requires are inputs that must exist before the tool is launched
	Requires []string

	// Artifact is the output the step must leave behind
	Artifact string
}

// WorkDir returns the intermediate artifact directory. It is a stable
// location under the output directory rather than a temp dir, so the
// leftovers of a failed run stay around for inspection.
func WorkDir(cfg *config.Config) string {
	return filepath.Join(cfg.OutputDir, "wix")
}

// ArtifactPath returns the final installer path. The filename embeds
// the configured product name and version.
func ArtifactPath(cfg *config.Config) string {
	return filepath.Join(cfg.OutputDir, fmt.Sprintf("%s-%s.msi", cfg.Product, cfg.Version))
}

// BuildSteps constructs the harvest, compile and link steps for a
// configuration. The result is a pure function of cfg: identical
// configurations produce identical command lines.
func BuildSteps(cfg *config.Config) []Step {
	work := WorkDir(cfg)
	harvestOut := filepath.Join(work, componentsWxs)
	mainObj := filepath.Join(work, wixobjName(cfg.WxsFile))
	msi := ArtifactPath(cfg)

	harvest := Step{
		Name: "harvest",
		Tool: filepath.Join(cfg.WixDir, HeatExe),
		Args: []string{
			"dir", cfg.SourceDir,
			"-nologo",
			"-gg",
			"-g1",
			"-srd",
			"-sfrag",
			"-ke",
			"-cg", ComponentGroup,
			"-template", "fragment",
			"-dr", "INSTALLDIR",
			"-var", "var.SourceDir",
			"-out", componentsWxs,
		},
		Dir:      work,
		Requires: []string{cfg.SourceDir},
		Artifact: harvestOut,
	}

	compile := Step{
		Name: "compile",
		Tool: filepath.Join(cfg.WixDir, CandleExe),
		Args: []string{
			"-nologo",
			"-arch", cfg.Arch,
			"-dSourceDir=" + cfg.SourceDir,
			"-dProductName=" + cfg.Product,
			"-dProductVersion=" + cfg.Version,
			"-dManufacturer=" + cfg.Manufacturer,
			"-dUpgradeCode=" + cfg.UpgradeCode,
			cfg.WxsFile,
			componentsWxs,
		},
		Dir:      work,
		Requires: []string{cfg.WxsFile, harvestOut},
		Artifact: mainObj,
	}

	link := Step{
		Name: "link",
		Tool: filepath.Join(cfg.WixDir, LightExe),
		Args: []string{
			"-nologo",
			"-dcl:high",
			"-ext", cfg.Extension,
			"-dSourceDir=" + cfg.SourceDir,
			wixobjName(cfg.WxsFile),
			componentsObj,
			"-out", msi,
		},
		Dir:      work,
		Requires: []string{mainObj, filepath.Join(work, componentsObj)},
		Artifact: msi,
	}

	return []Step{harvest, compile, link}
}

// wixobjName maps an authoring source to the object filename candle
// emits for it.
func wixobjName(wxs string) string {
	base := filepath.Base(wxs)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".wixobj"
}
