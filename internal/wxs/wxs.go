// Package wxs renders the static WiX authoring file that the harvested
// component fragment plugs into. Product identity stays in
// preprocessor variables ($(var.*)), so candle re-parameterizes every
// build from configuration; only structural choices are fixed when the
// file is scaffolded.
package wxs

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"github.com/pygpt-net/msibuild/internal/config"
	"github.com/pygpt-net/msibuild/internal/wix"
)

var productTemplate = template.Must(template.New("product.wxs").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<Wix xmlns="http://schemas.microsoft.com/wix/2006/wi">
  <Product Id="*"
           Name="$(var.ProductName)"
           Language="1033"
           Version="$(var.ProductVersion)"
           Manufacturer="$(var.Manufacturer)"
           UpgradeCode="$(var.UpgradeCode)">

    <Package Description="$(var.ProductName) installer"
             Compressed="yes"
             InstallerVersion="500"
             InstallScope="perMachine" />

    <MajorUpgrade DowngradeErrorMessage="A newer version of [ProductName] is already installed." />
    <MediaTemplate EmbedCab="yes" />

    <Directory Id="TARGETDIR" Name="SourceDir">
      <Directory Id="{{.ProgramFilesId}}">
        <Directory Id="INSTALLDIR" Name="{{.InstallName}}" />
      </Directory>
      <Directory Id="ProgramMenuFolder">
        <Directory Id="ApplicationProgramsFolder" Name="{{.InstallName}}" />
      </Directory>
    </Directory>

    <DirectoryRef Id="ApplicationProgramsFolder">
      <Component Id="ApplicationShortcut" Guid="{{.ShortcutGuid}}">
        <Shortcut Id="ApplicationStartMenuShortcut"
                  Name="$(var.ProductName)"
                  Target="[INSTALLDIR]{{.ExeName}}"
                  WorkingDirectory="INSTALLDIR" />
        <RemoveFolder Id="CleanUpShortcut" Directory="ApplicationProgramsFolder" On="uninstall" />
        <RegistryValue Root="HKCU"
                       Key="Software\$(var.Manufacturer)\$(var.ProductName)"
                       Name="installed" Type="integer" Value="1" KeyPath="yes" />
      </Component>
    </DirectoryRef>

    <Feature Id="MainFeature" Title="$(var.ProductName)" Level="1">
      <ComponentGroupRef Id="{{.ComponentGroup}}" />
      <ComponentRef Id="ApplicationShortcut" />
    </Feature>

    <Property Id="WIXUI_INSTALLDIR" Value="INSTALLDIR" />
    <UIRef Id="WixUI_InstallDir" />
  </Product>
</Wix>
`))

type templateData struct {
	ProgramFilesId string
	InstallName    string
	ExeName        string
	ShortcutGuid   string
	ComponentGroup string
}

// Render produces the authoring file for a configuration. The output
// is deterministic: the shortcut component GUID is derived from the
// upgrade code, so re-running init on the same product line yields an
// identical file.
func Render(cfg *config.Config) ([]byte, error) {
	upgrade, err := uuid.Parse(cfg.UpgradeCode)
	if err != nil {
		return nil, fmt.Errorf("invalid upgrade code: %v", err)
	}

	data := templateData{
		ProgramFilesId: programFilesId(cfg.Arch),
		InstallName:    cfg.Product,
		ExeName:        cfg.Product + ".exe",
		ShortcutGuid:   strings.ToUpper(uuid.NewMD5(upgrade, []byte("start-menu-shortcut")).String()),
		ComponentGroup: wix.ComponentGroup,
	}

	var buf bytes.Buffer
	if err := productTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render authoring template: %w", err)
	}

	return buf.Bytes(), nil
}

// programFilesId picks the Program Files directory for the target
// architecture.
func programFilesId(arch string) string {
	if arch == "x86" {
		return "ProgramFilesFolder"
	}

	return "ProgramFiles64Folder"
}
