package fs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/davmount/internal/core/logger"
	"github.com/davmount/internal/vfs"
	fuselib "github.com/winfsp/cgofuse/fuse"
)

// noHandle is what cgofuse passes when an operation has no open handle.
const noHandle = ^uint64(0)

// FuseFS serves the adapter through cgofuse.
type FuseFS struct {
	fuselib.FileSystemBase

	vfs    *vfs.FileSystem
	logger logger.FullLogger

	handles sync.Map // map[uint64]*vfs.File
	dirs    sync.Map // map[uint64]*vfs.Dir
	nextDir uint64

	// owner reports the uid and gid of the calling process
	owner func() (uint32, uint32)

	mu   sync.Mutex
	host *fuselib.FileSystemHost
}

func NewHost(v *vfs.FileSystem, l logger.FullLogger) *FuseFS {
	if l == nil {
		l = logger.Discard()
	}
	return &FuseFS{
		vfs:    v,
		logger: l,
		owner: func() (uint32, uint32) {
			uid, gid, _ := fuselib.Getcontext()
			return uid, gid
		},
	}
}

func (fs *FuseFS) ctx() context.Context { return context.Background() }

func (fs *FuseFS) Mount(mountpoint string, mflags []string) error {
	fs.mu.Lock()
	if fs.host != nil {
		fs.mu.Unlock()
		return errors.New("already mounted")
	}
	host := fuselib.NewFileSystemHost(fs)
	fs.host = host
	fs.mu.Unlock()

	fs.logger.Logf("Mounting at %s", mountpoint)
	opts := make([]string, 0, 2*len(mflags))
	for _, f := range mflags {
		opts = append(opts, "-o", f)
	}
	// blocks until the filesystem is unmounted
	if !host.Mount(mountpoint, opts) {
		fs.mu.Lock()
		fs.host = nil
		fs.mu.Unlock()
		return errors.New("failed to mount filesystem")
	}
	return nil
}

func (fs *FuseFS) Unmount() error {
	fs.mu.Lock()
	host := fs.host
	fs.host = nil
	fs.mu.Unlock()

	if host == nil {
		return nil
	}
	fs.logger.Log("Unmounting")
	if !host.Unmount() {
		return errors.New("failed to unmount filesystem")
	}
	return nil
}

func (fs *FuseFS) addHandle(f *vfs.File) uint64 {
	fh := f.Handle()
	fs.handles.Store(fh, f)
	return fh
}

func (fs *FuseFS) GetHandle(handle uint64) (*vfs.File, bool) {
	f, ok := fs.handles.Load(handle)
	if !ok {
		return nil, false
	}
	return f.(*vfs.File), true
}

// handleByPath finds an open write handle for a path that may not exist on
// the server yet.
func (fs *FuseFS) handleByPath(p string) (*vfs.File, bool) {
	var found *vfs.File
	fs.handles.Range(func(_, v any) bool {
		f := v.(*vfs.File)
		if f.Name() == p && f.Flags().WriteAllowed() {
			found = f
			return false
		}
		return true
	})
	return found, found != nil
}

func (fs *FuseFS) ReleaseHandle(handle uint64) {
	fs.handles.Delete(handle)
}

func (fs *FuseFS) addDir(d *vfs.Dir) uint64 {
	fh := atomic.AddUint64(&fs.nextDir, 1)
	fs.dirs.Store(fh, d)
	return fh
}
