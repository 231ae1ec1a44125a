package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/pygpt-net/msibuild/internal/config"
)

// Key fingerprints a build: the harvested source tree, the authoring
// file content and every configuration field that changes the produced
// installer. Identical inputs yield identical keys.
func Key(cfg *config.Config) (string, error) {
	h := xxhash.New()

	tree, err := HashTree(cfg.SourceDir)
	if err != nil {
		return "", fmt.Errorf("failed to hash source tree: %w", err)
	}

	if err := binary.Write(h, binary.LittleEndian, tree); err != nil {
		return "", err
	}

	wxs, err := hashFileContent(cfg.WxsFile)
	if err != nil {
		return "", fmt.Errorf("failed to hash authoring file: %w", err)
	}

	if err := binary.Write(h, binary.LittleEndian, wxs); err != nil {
		return "", err
	}

	for _, field := range []string{
		cfg.Product,
		cfg.Version,
		cfg.Manufacturer,
		cfg.UpgradeCode,
		cfg.Arch,
		cfg.Extension,
		strconv.FormatBool(cfg.Sign.Enabled),
		cfg.Sign.Thumbprint,
	} {
		_, _ = h.WriteString(field)
		_, _ = h.Write([]byte{0})
	}

	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// HashTree computes a deterministic fingerprint of every regular file
// under root: relative path, size and content hash, combined in sorted
// path order. File contents are hashed concurrently; modification
// times are deliberately not part of the fingerprint, so re-extracting
// identical inputs still hits the cache.
func HashTree(root string) (uint64, error) {
	type fileEntry struct {
		rel  string
		size int64
		sum  uint64
	}

	var files []fileEntry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, fileEntry{rel: filepath.ToSlash(rel), size: info.Size()})
		return nil
	})
	if err != nil {
		return 0, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].rel < files[j].rel
	})

	g := new(errgroup.Group)
	g.SetLimit(runtime.NumCPU())

	for i := range files {
		i := i // per-iteration copy; the go directive predates Go 1.22 loop scoping
		g.Go(func() error {
			sum, err := hashFileContent(filepath.Join(root, filepath.FromSlash(files[i].rel)))
			if err != nil {
				return err
			}

			files[i].sum = sum
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	h := xxhash.New()
	for _, f := range files {
		_, _ = h.WriteString(f.rel)
		_, _ = h.Write([]byte{0})
		_ = binary.Write(h, binary.LittleEndian, f.size)
		_ = binary.Write(h, binary.LittleEndian, f.sum)
	}

	return h.Sum64(), nil
}

// hashFileContent computes the xxhash of a single file's content.
func hashFileContent(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return 0, err
	}

	return h.Sum64(), nil
}

// HashFile creates a SHA256 hash of a file's content, used for
// installer integrity checks.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
