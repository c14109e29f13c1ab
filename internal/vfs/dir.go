package vfs

import (
	"context"
	"errors"
	"os"
	"slices"

	"github.com/davmount/internal/core/failure"
	"github.com/davmount/internal/core/header"
	"github.com/davmount/internal/core/multistatus"
	"github.com/davmount/internal/core/webdav"
)

// Stat fetches the properties of name with a depth 0 PROPFIND.
func (fs *FileSystem) Stat(ctx context.Context, name string) (*FileInfo, error) {
	rel := clean(name)
	fs.log.Logf("[Stat] path=%s", rel)

	res, err := fs.client.Propfind(ctx, ref(rel, false), webdav.PropfindOptions{
		Depth:      header.DepthZero,
		Properties: statProps,
	})
	// partial propstat failures are normal here: servers answer 404 for
	// properties they do not keep
	if err == nil && res.Err != nil {
		err = res.Err
	}
	if err != nil {
		return nil, &os.PathError{Op: "stat", Path: name, Err: err}
	}
	if len(res.Value.Responses) == 0 {
		return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
	}
	r := res.Value.Responses[0]
	if err := memberErr(r); err != nil {
		return nil, &os.PathError{Op: "stat", Path: name, Err: err}
	}
	return newFileInfo(baseName(rel), r), nil
}

// memberErr reports a failed whole-resource status of a multistatus
// member. Propstat statuses are not considered.
func memberErr(r multistatus.Response) error {
	if r.Status == 0 || (r.Status >= 200 && r.Status < 300) {
		return nil
	}
	return failure.NewHTTPError(webdav.PROPFIND, r.Href(), r.Status, r.Reason, nil)
}

func (fs *FileSystem) IsDir(ctx context.Context, name string) (bool, error) {
	fi, err := fs.Stat(ctx, name)
	if err != nil {
		return false, err
	}
	return fi.IsDir(), nil
}

// ReadDir lists the members of a collection in server order. The
// collection itself is left out.
func (fs *FileSystem) ReadDir(ctx context.Context, name string) ([]os.FileInfo, error) {
	rel := clean(name)
	fs.log.Logf("[ReadDir] path=%s", rel)

	target := ref(rel, true)
	res, err := fs.client.Propfind(ctx, target, webdav.PropfindOptions{
		Depth:      header.DepthOne,
		Properties: statProps,
	})
	if err == nil && res.Err != nil {
		err = res.Err
	}
	if err != nil {
		return nil, &os.PathError{Op: "readdir", Path: name, Err: err}
	}

	self := ""
	if abs, err := fs.client.Resolve(target); err == nil {
		self = hrefPath(abs)
	}

	var infos []os.FileInfo
	sawSelf := false
	for _, r := range res.Value.Responses {
		p := hrefPath(r.Href())
		if !sawSelf && p == self {
			sawSelf = true
			if err := memberErr(r); err != nil {
				return nil, &os.PathError{Op: "readdir", Path: name, Err: err}
			}
			if !r.IsCollection() {
				return nil, &os.PathError{Op: "readdir", Path: name, Err: ErrNotDir}
			}
			continue
		}
		if err := memberErr(r); err != nil {
			fs.log.Errorf("[ReadDir] path=%s skipping href=%s error=%v", rel, r.Href(), err)
			continue
		}
		infos = append(infos, newFileInfo(baseName(p), r))
	}
	return infos, nil
}

// Dir is an open directory listing.
type Dir struct {
	names []string
	pos   int
}

// OpenDir lists name once; Read walks the snapshot.
func (fs *FileSystem) OpenDir(ctx context.Context, name string) (*Dir, error) {
	infos, err := fs.ReadDir(ctx, name)
	if err != nil {
		return nil, err
	}
	d := &Dir{}
	for _, fi := range infos {
		d.names = append(d.names, fi.Name())
	}
	return d, nil
}

// Read returns the next entry name, or false when the listing is exhausted.
func (d *Dir) Read() (string, bool) {
	if d.pos >= len(d.names) {
		return "", false
	}
	name := d.names[d.pos]
	d.pos++
	return name, true
}

func (d *Dir) Rewind() { d.pos = 0 }

func (d *Dir) Close() error {
	d.names = nil
	d.pos = 0
	return nil
}

// Unlink deletes a resource, presenting any token this adapter holds on it.
func (fs *FileSystem) Unlink(ctx context.Context, name string) error {
	rel := clean(name)
	fs.log.Logf("[Unlink] path=%s", rel)

	res, err := fs.client.Delete(ctx, ref(rel, false), webdav.DeleteOptions{
		LockTokens: fs.registry.Tokens(rel),
	})
	if err := outcome(res, err); err != nil {
		fs.log.Errorf("[Unlink] path=%s error=%v", rel, err)
		return &os.PathError{Op: "unlink", Path: name, Err: err}
	}
	fs.registry.Drop(rel)
	return nil
}

// Rename moves oldname over newname, replacing an existing destination.
func (fs *FileSystem) Rename(ctx context.Context, oldname, newname string) error {
	from, to := clean(oldname), clean(newname)
	fs.log.Logf("[Rename] from=%s to=%s", from, to)

	if from == "" || to == "" {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrPermission}
	}

	tokens := fs.registry.Tokens(from)
	for _, t := range fs.registry.Tokens(to) {
		if !slices.Contains(tokens, t) {
			tokens = append(tokens, t)
		}
	}
	res, err := fs.client.Move(ctx, ref(from, false), ref(to, false), webdav.CopyOptions{
		Recursive:  true,
		LockTokens: tokens,
	})
	if err := outcome(res, err); err != nil {
		fs.log.Errorf("[Rename] from=%s to=%s error=%v", from, to, err)
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: err}
	}
	fs.registry.Drop(from)

	// the server does not carry locks along with a moved resource; open
	// handles follow the new path and stop presenting their tokens
	fs.open.Range(func(_, v any) bool {
		if old, token := v.(*File).moved(from, to); token != "" {
			fs.releaseStale(ctx, old, token)
		}
		return true
	})
	return nil
}

// releaseStale unlocks token at a URI that no longer names the locked
// resource. Servers that dropped the lock with the move reject this, which
// is fine.
func (fs *FileSystem) releaseStale(ctx context.Context, rel, token string) {
	res, err := fs.client.ReleaseLock(ctx, ref(rel, false), token)
	if err := outcome(res, err); err != nil {
		fs.log.Logf("[Rename] stale lock path=%s token=%s: %v", rel, token, err)
	}
}

// Mkdir creates a single collection. Missing parents are not created.
func (fs *FileSystem) Mkdir(ctx context.Context, name string, recursive bool) error {
	rel := clean(name)
	fs.log.Logf("[Mkdir] path=%s recursive=%v", rel, recursive)

	if recursive {
		return &os.PathError{Op: "mkdir", Path: name, Err: ErrRecursiveMkdir}
	}
	res, err := fs.client.Mkcol(ctx, ref(rel, true))
	if err := outcome(res, err); err != nil {
		fs.log.Errorf("[Mkdir] path=%s error=%v", rel, err)
		return &os.PathError{Op: "mkdir", Path: name, Err: err}
	}
	return nil
}

// Rmdir deletes a collection and everything below it.
func (fs *FileSystem) Rmdir(ctx context.Context, name string) error {
	rel := clean(name)
	fs.log.Logf("[Rmdir] path=%s", rel)

	if rel == "" {
		return &os.PathError{Op: "rmdir", Path: name, Err: os.ErrPermission}
	}
	dir, err := fs.IsDir(ctx, rel)
	if err != nil {
		var pe *os.PathError
		if errors.As(err, &pe) {
			pe.Op, pe.Path = "rmdir", name
		}
		return err
	}
	if !dir {
		return &os.PathError{Op: "rmdir", Path: name, Err: ErrNotDir}
	}

	res, err := fs.client.Delete(ctx, ref(rel, true), webdav.DeleteOptions{
		LockTokens: fs.registry.Tokens(rel),
	})
	if err := outcome(res, err); err != nil {
		fs.log.Errorf("[Rmdir] path=%s error=%v", rel, err)
		return &os.PathError{Op: "rmdir", Path: name, Err: err}
	}
	fs.registry.Drop(rel)
	return nil
}
