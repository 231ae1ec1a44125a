package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// storeArtifact copies a produced installer into the cache.
func (c *Cache) storeArtifact(entry *Entry) error {
	return copyFile(entry.Artifact, c.artifactPath(entry))
}

// Restore copies the cached installer back to its recorded location
// and verifies it against the stored SHA256.
func (c *Cache) Restore(entry *Entry) error {
	if err := copyFile(c.artifactPath(entry), entry.Artifact); err != nil {
		return fmt.Errorf("failed to restore %s: %w", filepath.Base(entry.Artifact), err)
	}

	return c.verify(entry)
}

// Materialize makes sure the installer recorded in an entry exists and
// matches its stored SHA256, restoring it from the cache copy when the
// original is gone. A mismatch means the entry is stale and the caller
// should rebuild.
func (c *Cache) Materialize(entry *Entry) error {
	if _, err := os.Stat(entry.Artifact); err == nil {
		if err := c.verify(entry); err == nil {
			return nil
		}
	}

	return c.Restore(entry)
}

// verify checks the installer at its recorded location against the
// entry's SHA256.
func (c *Cache) verify(entry *Entry) error {
	sum, err := HashFile(entry.Artifact)
	if err != nil {
		return err
	}

	if sum != entry.SHA256 {
		return fmt.Errorf("artifact %s failed integrity check", filepath.Base(entry.Artifact))
	}

	return nil
}

// artifactPath returns where the installer copy for an entry lives.
func (c *Cache) artifactPath(entry *Entry) string {
	return filepath.Join(c.root, "artifacts", entry.Key, filepath.Base(entry.Artifact))
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}

	defer srcFile.Close()

	// Create parent directory if needed
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}

	// Preserve file permissions
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	return os.Chmod(dst, srcInfo.Mode())
}
