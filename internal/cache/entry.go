package cache

import "time"

// Entry represents a cached build result
type Entry struct {
	// Key is the unique identifier for this cache entry.
	// Computed from: source tree + authoring file content + the
	// identity fields of the configuration
	Key string `json:"key"`

	// Product and Version identify the installer that was produced
	Product string `json:"product"`
	Version string `json:"version"`

	// Arch is the architecture the installer was compiled for
	Arch string `json:"arch"`

	// Artifact is the absolute path the installer was written to
	Artifact string `json:"artifact"`

	// SHA256 of the installer, checked when restoring from cache
	SHA256 string `json:"sha256"`

	// Size of the installer in bytes
	Size int64 `json:"size"`

	// Duration of the pipeline run that produced the installer
	Duration time.Duration `json:"duration"`

	// Timestamp when this entry was created
	Timestamp time.Time `json:"timestamp"`
}
