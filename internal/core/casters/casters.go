package casters

import (
	"os"
	"path"
	"strings"
	"time"

	"github.com/winfsp/cgofuse/fuse"
)

const blockSize = 4096

// NormalizePath turns a path handed over by a FUSE host into the slash
// separated absolute form the adapter accepts.
func NormalizePath(p string) string {
	s := strings.ReplaceAll(p, "\\", "/")
	return path.Clean("/" + s)
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// DirStat describes a collection known to exist without asking the server,
// such as the mount root.
func DirStat(uid, gid uint32) *fuse.Stat_t {
	now := fuse.Now()
	return &fuse.Stat_t{
		Mode:     fuse.S_IFDIR | 0o755,
		Nlink:    2,
		Uid:      uid,
		Gid:      gid,
		Atim:     now,
		Mtim:     now,
		Ctim:     now,
		Birthtim: now,
		Blksize:  blockSize,
	}
}

// StatCast fills a cgofuse stat from adapter file info.
func StatCast(f os.FileInfo, uid, gid uint32) *fuse.Stat_t {
	stat := &fuse.Stat_t{}
	perm := uint32(f.Mode().Perm())

	if f.IsDir() {
		stat.Mode = fuse.S_IFDIR | perm
		stat.Nlink = 2
		stat.Size = 0
	} else {
		stat.Mode = fuse.S_IFREG | perm
		stat.Nlink = 1
		stat.Size = f.Size()
		stat.Blocks = (f.Size() + 511) / 512
	}

	mtime := f.ModTime()
	if mtime.IsZero() {
		mtime = time.Now()
	}
	stat.Uid = uid
	stat.Gid = gid
	stat.Mtim = fuse.NewTimespec(mtime)
	stat.Atim = fuse.NewTimespec(mtime)
	stat.Ctim = fuse.NewTimespec(mtime)
	stat.Birthtim = fuse.NewTimespec(mtime)
	stat.Blksize = blockSize

	if hidden(f.Name()) {
		stat.Flags = fuse.UF_HIDDEN
	}

	return stat
}
