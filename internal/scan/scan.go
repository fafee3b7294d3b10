// Package scan discovers the image files a batch will convert.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// IsImage reports whether the file name carries a convertible image
// extension. The check is case-insensitive.
func IsImage(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

// Images lists the names of the image files directly inside dir, in
// name order. Subdirectories are not descended into. Callers join the
// names with whatever directory they are working against.
func Images(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
