//go:build linux || darwin

package casters

import (
	"os"
	"time"

	"bazil.org/fuse"
)

// AttrCast fills a bazil attribute from adapter file info.
func AttrCast(f os.FileInfo, inode uint64) *fuse.Attr {
	mtime := f.ModTime()
	if mtime.IsZero() {
		mtime = time.Now()
	}
	attr := &fuse.Attr{
		Valid:  time.Second,
		Inode:  inode,
		Mode:   f.Mode(),
		Size:   uint64(f.Size()),
		Uid:    uint32(os.Getuid()),
		Gid:    uint32(os.Getgid()),
		Atime:  mtime,
		Mtime:  mtime,
		Ctime:  mtime,
		Crtime: mtime,
	}

	if f.IsDir() {
		attr.Mode |= os.ModeDir | os.FileMode(0o755)
		attr.Nlink = 2
		attr.Size = 0
	} else {
		attr.Mode |= os.FileMode(0o644)
		attr.Nlink = 1
		attr.Blocks = (attr.Size + 511) / 512
	}

	return attr
}
