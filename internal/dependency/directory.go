package dependency

import (
	"context"
	"os"

	"github.com/shirou/gopsutil/v3/disk"
)

// DirectoryAvailable reports available when a path exists, is a directory,
// and its backing volume is mounted and reporting usage — the common-case
// dependency the filewatch source waits on.
type DirectoryAvailable struct {
	noopCloser
	name string
	path string
}

func NewDirectoryAvailable(name, path string) *DirectoryAvailable {
	return &DirectoryAvailable{name: name, path: path}
}

func (d *DirectoryAvailable) Name() string { return d.name }

func (d *DirectoryAvailable) IsDependencyAvailable(ctx context.Context) (bool, error) {
	info, err := os.Stat(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if !info.IsDir() {
		return false, nil
	}
	if _, err := disk.UsageWithContext(ctx, d.path); err != nil {
		return false, nil
	}
	return true, nil
}
