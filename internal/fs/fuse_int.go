//go:build linux || darwin

package fs

import (
	"github.com/davmount/internal/core/logger"
	"github.com/davmount/internal/fs/platform/linux"
	"github.com/davmount/internal/vfs"
)

func New(v *vfs.FileSystem, log logger.FullLogger) FS {
	return linux.New(v, log)
}
