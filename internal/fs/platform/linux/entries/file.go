//go:build linux || darwin

package entries

import (
	"context"
	"errors"
	"sync"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/davmount/internal/core/casters"
	"github.com/davmount/internal/core/flags"
	"github.com/davmount/internal/fs/common"
)

// File is a regular file node. It tracks the handles open on it so that
// attributes and truncation see unflushed writes.
type File struct {
	tree *Tree

	mu      sync.Mutex
	path    string
	handles map[*Handle]struct{}
}

func (f *File) getPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.path
}

func (f *File) setPath(p string) {
	f.mu.Lock()
	f.path = p
	f.mu.Unlock()
}

func (f *File) attach(vf vfsFile) *Handle {
	h := &Handle{node: f, file: vf}
	f.mu.Lock()
	f.handles[h] = struct{}{}
	f.mu.Unlock()
	return h
}

func (f *File) detach(h *Handle) {
	f.mu.Lock()
	delete(f.handles, h)
	f.mu.Unlock()
}

// writer returns one of the open write handles, if any.
func (f *File) writer() *Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h := range f.handles {
		if h.file.Flags().WriteAllowed() {
			return h
		}
	}
	return nil
}

func (f *File) writers() []*Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	var hs []*Handle
	for h := range f.handles {
		if h.file.Flags().WriteAllowed() {
			hs = append(hs, h)
		}
	}
	return hs
}

func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	p := f.getPath()
	if h := f.writer(); h != nil {
		if fi, err := h.file.Stat(); err == nil {
			*a = *casters.AttrCast(fi, common.Inode(p))
			return nil
		}
	}

	fi, err := f.tree.vfs.Stat(ctx, p)
	if err != nil {
		return errno(err)
	}
	*a = *casters.AttrCast(fi, common.Inode(p))
	return nil
}

func (f *File) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fs.Handle, error) {
	p := f.getPath()
	flag := flags.OpenFlag(uint32(req.Flags))

	vf, err := f.tree.vfs.OpenFile(ctx, p, flag)
	if err != nil {
		f.tree.logger.Errorf("[Open] path=%s flags=%s: %v", p, flag, err)
		return nil, errno(err)
	}
	f.tree.logger.Logf("[Open] path=%s flags=%s handle=%d", p, flag, vf.Handle())

	// the handle owns the content; skip the page cache
	resp.Flags |= fuse.OpenDirectIO
	return f.attach(vf), nil
}

func (f *File) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	if req.Valid.Size() {
		if err := f.truncate(ctx, int64(req.Size)); err != nil {
			return errno(err)
		}
	}
	return f.Attr(ctx, &resp.Attr)
}

func (f *File) truncate(ctx context.Context, size int64) error {
	if hs := f.writers(); len(hs) > 0 {
		var errs []error
		for _, h := range hs {
			errs = append(errs, h.file.Truncate(size))
		}
		return errors.Join(errs...)
	}
	return f.tree.vfs.Truncate(ctx, f.getPath(), size)
}

func (f *File) Fsync(ctx context.Context, req *fuse.FsyncRequest) error {
	var errs []error
	for _, h := range f.writers() {
		errs = append(errs, h.file.Flush(ctx))
	}
	return errno(errors.Join(errs...))
}
