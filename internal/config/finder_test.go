package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindLocalConfig(t *testing.T) {
	// Create a temporary directory structure
	tempDir := t.TempDir()
	subDir := filepath.Join(tempDir, "subdir")
	err := os.Mkdir(subDir, 0o755)
	assert.NoError(t, err)

	// Create config files
	configYML := filepath.Join(subDir, ".msibuild.yml")
	err = os.WriteFile(configYML, []byte("version: \"3.0.0\""), 0o644)
	assert.NoError(t, err)

	// Test finding in subdir
	result := FindLocalConfig(subDir)
	assert.Equal(t, configYML, result)

	// Test finding in parent
	result = FindLocalConfig(filepath.Join(subDir, "deep"))
	assert.Equal(t, configYML, result)

	// Test not found
	result = FindLocalConfig(tempDir)
	assert.Equal(t, "", result)
}

func TestFindLocalConfig_ExtensionOrder(t *testing.T) {
	tempDir := t.TempDir()

	// yml wins over yaml when both exist
	yml := filepath.Join(tempDir, ".msibuild.yml")
	yaml := filepath.Join(tempDir, ".msibuild.yaml")
	assert.NoError(t, os.WriteFile(yml, []byte("product: a"), 0o644))
	assert.NoError(t, os.WriteFile(yaml, []byte("product: b"), 0o644))

	result := FindLocalConfig(tempDir)
	assert.Equal(t, yml, result)
}
