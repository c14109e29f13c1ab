//go:build linux || darwin

package entries

import (
	"context"
	"os"
	"path"
	"sync"
	"syscall"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/davmount/internal/core/casters"
	"github.com/davmount/internal/core/flags"
	"github.com/davmount/internal/core/logger"
	"github.com/davmount/internal/fs/common"
	"github.com/davmount/internal/vfs"
)

// Tree keeps one node per file path so the kernel sees the same node, and
// its open handles, across lookups.
type Tree struct {
	vfs    *vfs.FileSystem
	logger logger.FullLogger

	mu    sync.Mutex
	files map[string]*File
}

func NewTree(v *vfs.FileSystem, l logger.FullLogger) *Tree {
	return &Tree{vfs: v, logger: l, files: make(map[string]*File)}
}

func (t *Tree) Root() *Dir { return &Dir{tree: t, path: "/"} }

func (t *Tree) file(p string) *File {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.files[p]; ok {
		return f
	}
	f := &File{tree: t, path: p, handles: make(map[*Handle]struct{})}
	t.files[p] = f
	return f
}

func (t *Tree) lookupOpen(p string) (*File, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.files[p]
	if !ok || f.writer() == nil {
		return nil, false
	}
	return f, true
}

func (t *Tree) forget(p string) {
	t.mu.Lock()
	delete(t.files, p)
	t.mu.Unlock()
}

func (t *Tree) move(from, to string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if f, ok := t.files[from]; ok {
		delete(t.files, from)
		f.setPath(to)
		t.files[to] = f
	}
}

func errno(err error) error {
	if err == nil {
		return nil
	}
	return fuse.Errno(syscall.Errno(common.Errno(err)))
}

// Dir is a collection node.
type Dir struct {
	tree *Tree
	path string
}

func (d *Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	if d.path == "/" {
		now := time.Now()
		*a = fuse.Attr{
			Inode: 1,
			Mode:  os.ModeDir | 0o755,
			Nlink: 2,
			Uid:   uint32(os.Getuid()),
			Gid:   uint32(os.Getgid()),
			Atime: now,
			Mtime: now,
			Ctime: now,
		}
		return nil
	}

	fi, err := d.tree.vfs.Stat(ctx, d.path)
	if err != nil {
		return errno(err)
	}
	*a = *casters.AttrCast(fi, common.Inode(d.path))
	return nil
}

func (d *Dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	child := path.Join(d.path, name)

	fi, err := d.tree.vfs.Stat(ctx, child)
	if err != nil {
		if f, ok := d.tree.lookupOpen(child); ok {
			return f, nil
		}
		return nil, errno(err)
	}
	if fi.IsDir() {
		return &Dir{tree: d.tree, path: child}, nil
	}
	return d.tree.file(child), nil
}

func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	d.tree.logger.Logf("[ReadDirAll] path=%s", d.path)

	infos, err := d.tree.vfs.ReadDir(ctx, d.path)
	if err != nil {
		d.tree.logger.Errorf("[ReadDirAll] path=%s: %v", d.path, err)
		return nil, errno(err)
	}
	dirents := make([]fuse.Dirent, 0, len(infos))
	for _, fi := range infos {
		t := fuse.DT_File
		if fi.IsDir() {
			t = fuse.DT_Dir
		}
		dirents = append(dirents, fuse.Dirent{
			Inode: common.Inode(path.Join(d.path, fi.Name())),
			Name:  fi.Name(),
			Type:  t,
		})
	}
	return dirents, nil
}

func (d *Dir) Mkdir(ctx context.Context, req *fuse.MkdirRequest) (fs.Node, error) {
	child := path.Join(d.path, req.Name)
	if err := d.tree.vfs.Mkdir(ctx, child, false); err != nil {
		d.tree.logger.Errorf("[Mkdir] path=%s: %v", child, err)
		return nil, errno(err)
	}
	return &Dir{tree: d.tree, path: child}, nil
}

// Create uploads the empty file at once so that it is visible to other
// clients while being written.
func (d *Dir) Create(ctx context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fs.Node, fs.Handle, error) {
	child := path.Join(d.path, req.Name)
	flag := flags.OpenFlag(uint32(req.Flags)) | flags.OpenFlag(os.O_CREATE)
	if !flag.WriteAllowed() {
		flag |= flags.OpenFlag(os.O_WRONLY)
	}

	vf, err := d.tree.vfs.OpenFile(ctx, child, flag)
	if err != nil {
		d.tree.logger.Errorf("[Create] path=%s flags=%s: %v", child, flag, err)
		return nil, nil, errno(err)
	}
	if err := vf.Flush(ctx); err != nil {
		_ = vf.Close()
		return nil, nil, errno(err)
	}

	node := d.tree.file(child)
	resp.Flags |= fuse.OpenDirectIO
	return node, node.attach(vf), nil
}

func (d *Dir) Remove(ctx context.Context, req *fuse.RemoveRequest) error {
	child := path.Join(d.path, req.Name)

	var err error
	if req.Dir {
		err = d.tree.vfs.Rmdir(ctx, child)
	} else {
		err = d.tree.vfs.Unlink(ctx, child)
	}
	if err != nil {
		d.tree.logger.Errorf("[Remove] path=%s: %v", child, err)
		return errno(err)
	}
	d.tree.forget(child)
	return nil
}

func (d *Dir) Rename(ctx context.Context, req *fuse.RenameRequest, newDir fs.Node) error {
	target, ok := newDir.(*Dir)
	if !ok {
		return fuse.Errno(syscall.ENOTDIR)
	}
	from := path.Join(d.path, req.OldName)
	to := path.Join(target.path, req.NewName)

	if err := d.tree.vfs.Rename(ctx, from, to); err != nil {
		d.tree.logger.Errorf("[Rename] from=%s to=%s: %v", from, to, err)
		return errno(err)
	}
	d.tree.move(from, to)
	return nil
}
