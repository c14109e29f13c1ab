//go:build windows

package fs

import (
	"github.com/davmount/internal/core/logger"
	"github.com/davmount/internal/vfs"
)

func New(v *vfs.FileSystem, log logger.FullLogger) FS {
	return NewHost(v, log)
}
