package fs

import (
	"os"

	"github.com/davmount/internal/core/casters"
	"github.com/davmount/internal/core/flags"
	"github.com/davmount/internal/fs/common"
	fuselib "github.com/winfsp/cgofuse/fuse"
)

const DEFAULT_BLOCK_SIZE = 4096

func (fs *FuseFS) Getattr(p string, stat *fuselib.Stat_t, fh uint64) int {
	norm := casters.NormalizePath(p)
	uid, gid := fs.owner()

	if norm == "/" {
		*stat = *casters.DirStat(uid, gid)
		return 0
	}

	if f, ok := fs.GetHandle(fh); fh != noHandle && ok && f.Flags().WriteAllowed() {
		fi, err := f.Stat()
		if err == nil {
			*stat = *casters.StatCast(fi, uid, gid)
			fs.logger.Logf("[Getattr] found handle path=%s fh=%d size=%d", norm, fh, stat.Size)
			return 0
		}
	}

	fi, err := fs.vfs.Stat(fs.ctx(), norm)
	if err != nil {
		// a created file only reaches the server when its handle flushes
		if f, ok := fs.handleByPath(norm); ok {
			if hfi, herr := f.Stat(); herr == nil {
				*stat = *casters.StatCast(hfi, uid, gid)
				return 0
			}
		}
		errc := common.Errno(err)
		if errc != common.ENOENT {
			fs.logger.Errorf("[Getattr] stat error for %s: %v; returning %d", norm, err, errc)
		}
		return -errc
	}

	*stat = *casters.StatCast(fi, uid, gid)
	stat.Ino = common.Inode(norm)
	fs.logger.Logf("[Getattr] path=%s mode=%#o size=%d", norm, stat.Mode, stat.Size)
	return 0
}

func (fs *FuseFS) Open(p string, oflags int) (int, uint64) {
	norm := casters.NormalizePath(p)
	flag := flags.OpenFlag(uint32(oflags))

	f, err := fs.vfs.OpenFile(fs.ctx(), norm, flag)
	if err != nil {
		errc := common.Errno(err)
		fs.logger.Errorf("[Open] path=%s flags=%s: %v; returning %d", norm, flag, err, errc)
		return -errc, noHandle
	}

	handle := fs.addHandle(f)
	fs.logger.Logf("[Open] path=%s flags=%s handle=%d", norm, flag, handle)
	return 0, handle
}

func (fs *FuseFS) Create(p string, oflags int, mode uint32) (int, uint64) {
	norm := casters.NormalizePath(p)
	flag := flags.OpenFlag(uint32(oflags) | uint32(os.O_CREATE))
	if !flag.WriteAllowed() {
		flag |= flags.OpenFlag(os.O_WRONLY)
	}

	f, err := fs.vfs.OpenFile(fs.ctx(), norm, flag)
	if err != nil {
		errc := common.Errno(err)
		fs.logger.Errorf("[Create] path=%s flags=%s: %v; returning %d", norm, flag, err, errc)
		return -errc, noHandle
	}
	// make the file visible right away
	if err := f.Flush(fs.ctx()); err != nil {
		_ = f.Close()
		errc := common.Errno(err)
		fs.logger.Errorf("[Create] remote create failed path=%s: %v; returning %d", norm, err, errc)
		return -errc, noHandle
	}

	handle := fs.addHandle(f)
	fs.logger.Logf("[Create] returning handle=%d path=%s flags=%s mode=%#o", handle, norm, flag, mode)
	return 0, handle
}

func (fs *FuseFS) Read(p string, buffer []byte, offset int64, fh uint64) int {
	f, ok := fs.GetHandle(fh)
	if !ok {
		fs.logger.Errorf("[Read] invalid file handle=%d for path=%s returning EBADF", fh, p)
		return -common.EBADF
	}
	if !f.Flags().ReadAllowed() {
		fs.logger.Errorf("[Read] access denied for %s, flag state: %s returning EBADF", p, f.Flags())
		return -common.EBADF
	}

	n, _ := f.ReadAt(buffer, offset)
	return n
}

func (fs *FuseFS) Write(p string, buffer []byte, offset int64, fh uint64) int {
	f, ok := fs.GetHandle(fh)
	if !ok {
		fs.logger.Errorf("[Write] invalid file handle=%d for path=%s returning EBADF", fh, p)
		return -common.EBADF
	}

	n, err := f.WriteAt(buffer, offset)
	if err != nil {
		errc := common.Errno(err)
		fs.logger.Errorf("[Write] path=%s offset=%d: %v; returning %d", p, offset, err, errc)
		return -errc
	}
	return n
}

func (fs *FuseFS) Truncate(p string, size int64, fh uint64) int {
	norm := casters.NormalizePath(p)
	fs.logger.Logf("[Truncate] path=%s fh=%d size=%d", norm, fh, size)

	f, ok := fs.GetHandle(fh)
	if fh == noHandle || !ok {
		// an open writer would overwrite a path level truncate on release
		f, ok = fs.handleByPath(norm)
	}
	if ok {
		if err := f.Truncate(size); err != nil {
			errc := common.Errno(err)
			fs.logger.Errorf("[Truncate] handle=%d: %v; returning %d", fh, err, errc)
			return -errc
		}
		return 0
	}

	if err := fs.vfs.Truncate(fs.ctx(), norm, size); err != nil {
		errc := common.Errno(err)
		fs.logger.Errorf("[Truncate] path=%s size=%d: %v; returning %d", norm, size, err, errc)
		return -errc
	}
	return 0
}

func (fs *FuseFS) Flush(p string, fh uint64) int {
	f, ok := fs.GetHandle(fh)
	if !ok {
		fs.logger.Errorf("[Flush] invalid file handle=%d for path=%s", fh, p)
		return 0
	}
	if err := f.Flush(fs.ctx()); err != nil {
		errc := common.Errno(err)
		fs.logger.Errorf("[Flush] path=%s: %v; returning %d", p, err, errc)
		return -errc
	}
	return 0
}

func (fs *FuseFS) Fsync(p string, datasync bool, fh uint64) int {
	fs.logger.Logf("[Fsync] path=%s fh=%d datasync=%v", p, fh, datasync)
	return fs.Flush(p, fh)
}

// Release uploads what is left and drops the handle.
func (fs *FuseFS) Release(p string, fh uint64) int {
	fs.logger.Logf("[Release] path=%s handle=%d", p, fh)
	f, ok := fs.GetHandle(fh)
	if !ok {
		return 0
	}
	defer fs.ReleaseHandle(fh)

	if err := f.CloseContext(fs.ctx()); err != nil {
		errc := common.Errno(err)
		fs.logger.Errorf("[Release] path=%s: %v; returning %d", p, err, errc)
		return -errc
	}
	return 0
}

func (fs *FuseFS) Unlink(p string) int {
	norm := casters.NormalizePath(p)
	if err := fs.vfs.Unlink(fs.ctx(), norm); err != nil {
		errc := common.Errno(err)
		fs.logger.Errorf("[Unlink] remove error for path=%s: %v returning %d", norm, err, errc)
		return -errc
	}
	return 0
}

func (fs *FuseFS) Rename(oldPath string, newPath string) int {
	from, to := casters.NormalizePath(oldPath), casters.NormalizePath(newPath)
	fs.logger.Logf("[Rename] from=%s to=%s", from, to)

	if err := fs.vfs.Rename(fs.ctx(), from, to); err != nil {
		errc := common.Errno(err)
		fs.logger.Errorf("[Rename] rename error from %s to %s: %v returning %d", from, to, err, errc)
		return -errc
	}
	return 0
}

func (fs *FuseFS) Access(p string, mask uint32) int {
	norm := casters.NormalizePath(p)
	if norm == "/" {
		return 0
	}
	if _, err := fs.vfs.Stat(fs.ctx(), norm); err != nil {
		if _, ok := fs.handleByPath(norm); ok {
			return 0
		}
		return -common.Errno(err)
	}
	return 0
}

func (fs *FuseFS) Utimens(p string, times []fuselib.Timespec) int {
	// WebDAV has no settable modification time
	return 0
}

func (fs *FuseFS) Statfs(p string, stat *fuselib.Statfs_t) int {
	stat.Bsize = DEFAULT_BLOCK_SIZE
	stat.Frsize = DEFAULT_BLOCK_SIZE
	stat.Blocks = 1024 * 1024 // 1M blocks
	stat.Bfree = 512 * 1024   // 50% free
	stat.Bavail = 512 * 1024  // 50% free
	stat.Files = 1024 * 1024
	stat.Ffree = 512 * 1024
	stat.Favail = 512 * 1024
	stat.Namemax = 255
	return 0
}
