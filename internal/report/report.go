// Package report writes the build summary placed next to the produced
// installer, for humans and CI scrapers alike.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Filename is the report name inside the output directory.
const Filename = "build-report.yaml"

// Step is one pipeline stage in the report.
type Step struct {
	Name     string `yaml:"name"`
	Duration string `yaml:"duration"`
}

// Report summarizes one build.
type Report struct {
	Product   string    `yaml:"product"`
	Version   string    `yaml:"version"`
	Arch      string    `yaml:"arch"`
	Artifact  string    `yaml:"artifact"`
	SHA256    string    `yaml:"sha256"`
	Size      int64     `yaml:"size"`
	Cached    bool      `yaml:"cached"`
	Signed    bool      `yaml:"signed,omitempty"`
	Duration  string    `yaml:"duration"`
	Steps     []Step    `yaml:"steps,omitempty"`
	CreatedAt time.Time `yaml:"created_at"`
}

// Path returns the report location for an output directory.
func Path(outputDir string) string {
	return filepath.Join(outputDir, Filename)
}

// Write encodes the report to path with stable two-space indenting.
func Write(path string, r *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)

	if err := enc.Encode(r); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if err := enc.Close(); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// Read loads a report from path.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &r, nil
}
