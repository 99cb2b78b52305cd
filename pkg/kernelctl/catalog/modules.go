package catalog

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
)

// DefaultModulesDir is where installed kernels place their module trees,
// one directory per kernel release.
const DefaultModulesDir = "/usr/lib/modules"

// ModulesSizes walks the modules root and returns the on-disk size of each
// kernel release tree, keyed by release name. A missing root yields an
// empty map, not an error.
func ModulesSizes(root string) (map[string]int64, error) {
	releases, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int64{}, nil
		}
		return nil, err
	}

	sizes := make(map[string]int64, len(releases))
	for _, rel := range releases {
		if !rel.IsDir() {
			continue
		}
		size, err := treeSize(filepath.Join(root, rel.Name()))
		if err != nil {
			continue
		}
		sizes[rel.Name()] = size
	}
	return sizes, nil
}

// treeSize sums regular file sizes under dir using a parallel walk.
func treeSize(dir string) (int64, error) {
	var total atomic.Int64

	conf := fastwalk.Config{
		Follow: false,
	}
	err := fastwalk.Walk(&conf, dir, func(_ string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip unreadable entries and keep walking
		}
		if d.IsDir() {
			return nil
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return nil //nolint:nilerr // Skip entries we cannot stat
		}
		if info.Mode().IsRegular() {
			total.Add(info.Size())
		}
		return nil
	})
	return total.Load(), err
}
