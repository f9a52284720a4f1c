// Package layout decides where editions and their scratch files live on disk:
// <root>/<name>/<yyyymmdd>/<name>_<yyyymmdd>.pdf, scratch pages under temp/.
package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-epaper-harvester/internal/domain"
)

const tempDirName = "temp"

// Resolver maps (platform display name, day) to paths under a root directory.
type Resolver struct {
	root string
}

// NewResolver returns a Resolver rooted at root (made absolute).
func NewResolver(root string) (*Resolver, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("output root is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve output root: %w", err)
	}
	return &Resolver{root: abs}, nil
}

// Root returns the absolute output root.
func (r *Resolver) Root() string {
	return r.root
}

func (r *Resolver) dayDir(name string, day time.Time) string {
	return filepath.Join(r.root, safeName(name), day.Format(domain.CompactDateLayout))
}

// Path is the artifact path for name and day. It touches nothing on disk.
func (r *Resolver) Path(name string, day time.Time) string {
	n := safeName(name)
	return filepath.Join(r.dayDir(name, day), n+"_"+day.Format(domain.CompactDateLayout)+".pdf")
}

// OutputPath returns the artifact path, creating its directory.
func (r *Resolver) OutputPath(name string, day time.Time) (string, error) {
	if err := os.MkdirAll(r.dayDir(name, day), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	return r.Path(name, day), nil
}

// TempDir returns the scratch directory for one edition, creating it.
func (r *Resolver) TempDir(name string, day time.Time) (string, error) {
	dir := filepath.Join(r.dayDir(name, day), tempDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create temp directory: %w", err)
	}
	return dir, nil
}

// CleanupTempDir removes the scratch directory. A missing directory is not an error.
func (r *Resolver) CleanupTempDir(name string, day time.Time) error {
	dir := filepath.Join(r.dayDir(name, day), tempDirName)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove temp directory: %w", err)
	}
	return nil
}

// Exists reports whether the artifact for name and day is already on disk.
func (r *Resolver) Exists(name string, day time.Time) bool {
	info, err := os.Stat(r.Path(name, day))
	return err == nil && info.Mode().IsRegular()
}

// FileSize returns the size of path, or 0 when it cannot be read.
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return 0
	}
	return info.Size()
}

// FormatSize renders a byte count as "12.34 MB".
func FormatSize(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.2f TB", size)
}

func safeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}
