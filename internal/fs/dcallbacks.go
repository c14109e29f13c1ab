package fs

import (
	"github.com/davmount/internal/core/casters"
	"github.com/davmount/internal/fs/common"
	"github.com/winfsp/cgofuse/fuse"
)

func (fs *FuseFS) Opendir(p string) (int, uint64) {
	norm := casters.NormalizePath(p)
	fs.logger.Logf("[Opendir] path=%s", norm)

	d, err := fs.vfs.OpenDir(fs.ctx(), norm)
	if err != nil {
		errc := common.Errno(err)
		fs.logger.Errorf("[Opendir] path=%s: %v; returning %d", norm, err, errc)
		return -errc, noHandle
	}
	return 0, fs.addDir(d)
}

func (fs *FuseFS) Releasedir(p string, fh uint64) int {
	fs.logger.Logf("[Releasedir] path=%s fh=%d", p, fh)
	if d, ok := fs.dirs.LoadAndDelete(fh); ok {
		_ = d.(interface{ Close() error }).Close()
	}
	return 0
}

// Readdir lists with stats so the host can skip a Getattr per entry.
func (fs *FuseFS) Readdir(p string, fill func(string, *fuse.Stat_t, int64) bool, off int64, fh uint64) int {
	norm := casters.NormalizePath(p)
	fs.logger.Logf("[Readdir] path=%s offset=%d fh=%d", norm, off, fh)

	items, err := fs.vfs.ReadDir(fs.ctx(), norm)
	if err != nil {
		errc := common.Errno(err)
		fs.logger.Errorf("[Readdir] path=%s: %v; returning %d", norm, err, errc)
		return -errc
	}

	fill(".", nil, 0)
	fill("..", nil, 0)

	uid, gid := fs.owner()
	for i, file := range items {
		stat := casters.StatCast(file, uid, gid)
		fs.logger.Logf("[ReaddirEntry] idx=%d name=%s dir=%v size=%d", i, file.Name(), file.IsDir(), file.Size())
		if !fill(file.Name(), stat, 0) {
			break
		}
	}
	return 0
}

func (fs *FuseFS) Mkdir(p string, mode uint32) int {
	norm := casters.NormalizePath(p)
	fs.logger.Logf("[Mkdir] path=%s mode=%#o", norm, mode)

	if err := fs.vfs.Mkdir(fs.ctx(), norm, false); err != nil {
		errc := common.Errno(err)
		fs.logger.Errorf("[Mkdir] mkdir error for path=%s error=%v returning %d", norm, err, errc)
		return -errc
	}
	return 0
}

func (fs *FuseFS) Rmdir(p string) int {
	norm := casters.NormalizePath(p)
	fs.logger.Logf("[Rmdir] path=%s", norm)

	if err := fs.vfs.Rmdir(fs.ctx(), norm); err != nil {
		errc := common.Errno(err)
		fs.logger.Errorf("[Rmdir] rmdir error for path=%s error=%v returning %d", norm, err, errc)
		return -errc
	}
	return 0
}
