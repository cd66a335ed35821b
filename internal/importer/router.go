package importer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Category is the destination folder of a processed file.
type Category string

const (
	Archive Category = "archive"
	Anomaly Category = "anomalie"
)

// StampLayout prefixes routed file names.
const StampLayout = "20060102_150405"

// Route moves path into the category folder next to it, prefixed with now.
// A name already taken in that second gets a numeric suffix after the stamp.
// It returns the new path.
func Route(path string, c Category, now time.Time) (string, error) {
	dir := filepath.Join(filepath.Dir(path), string(c))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s dir: %w", c, err)
	}

	name := filepath.Base(path)
	stamp := now.Format(StampLayout)
	dst := filepath.Join(dir, stamp+"_"+name)
	for n := 1; ; n++ {
		_, err := os.Lstat(dst)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", dst, err)
		}
		dst = filepath.Join(dir, fmt.Sprintf("%s_%d_%s", stamp, n, name))
	}

	if err := os.Rename(path, dst); err != nil {
		return "", fmt.Errorf("moving %s to %s: %w", name, c, err)
	}
	return dst, nil
}
