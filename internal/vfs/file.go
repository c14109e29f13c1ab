package vfs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/davmount/internal/core/buffer"
	"github.com/davmount/internal/core/flags"
	"github.com/davmount/internal/core/header"
	"github.com/davmount/internal/core/lock"
	"github.com/davmount/internal/core/locking"
	"github.com/davmount/internal/core/webdav"
)

// File is an open remote file. Its whole content lives in memory: read
// handles fetch it at open, write handles upload it on Flush or Close.
type File struct {
	fs   *FileSystem
	name string
	rel  string
	flag flags.OpenFlag
	id   uint64

	mu      sync.Mutex
	buf     *buffer.FileBuffer
	off     int64
	synced  bool
	modTime time.Time
	held    *lock.Lock
	closed  bool
}

// Open opens name with a fopen style mode: r, rb and rt read, w, wb and wt
// truncate and write.
func (fs *FileSystem) Open(ctx context.Context, name, mode string) (*File, error) {
	fs.log.Logf("[Open] path=%s mode=%s", clean(name), mode)

	flag, err := flags.ParseMode(mode)
	if err != nil {
		fs.log.Errorf("[Open] path=%s mode=%q rejected", clean(name), mode)
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	return fs.OpenFile(ctx, name, flag)
}

// OpenFile opens name with os style flags. Read-write and append access
// are not supported.
func (fs *FileSystem) OpenFile(ctx context.Context, name string, flag flags.OpenFlag) (*File, error) {
	rel := clean(name)
	if !flag.Supported() {
		return nil, &os.PathError{Op: "open", Path: name, Err: ErrUnsupportedMode}
	}
	if rel == "" {
		return nil, &os.PathError{Op: "open", Path: name, Err: ErrIsDir}
	}

	f := &File{
		fs:      fs,
		name:    name,
		rel:     rel,
		flag:    flag,
		id:      fs.nextHandle.Add(1),
		modTime: time.Now(),
	}

	if flag.WriteAllowed() {
		if flag.Create() && flag.Exclusive() {
			if _, err := fs.Stat(ctx, rel); err == nil {
				return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrExist}
			}
		}
		if flag.Truncate() {
			f.buf = buffer.New(nil)
			fs.open.Store(f.id, f)
			return f, nil
		}
	}

	// read handles, and write handles that keep the old content, start
	// from the remote image
	res, err := fs.client.Get(ctx, ref(rel, false))
	err = outcome(res, err)
	switch {
	case err == nil:
		f.buf = buffer.New(res.Value)
		f.synced = true
		if lm := res.Header().Get("Last-Modified"); lm != "" {
			if t, perr := http.ParseTime(lm); perr == nil {
				f.modTime = t
			}
		}
	case flag.WriteAllowed() && flag.Create() && errors.Is(err, os.ErrNotExist):
		f.buf = buffer.New(nil)
	default:
		fs.log.Errorf("[Open] path=%s error=%v", rel, err)
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}
	fs.open.Store(f.id, f)
	return f, nil
}

func (f *File) Name() string { return f.name }

// Handle identifies the file among the adapter's open handles.
func (f *File) Handle() uint64 { return f.id }

func (f *File) Flags() flags.OpenFlag { return f.flag }

func (f *File) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, os.ErrClosed
	}
	if !f.flag.ReadAllowed() {
		return 0, io.EOF
	}
	n, err := f.buf.ReadAt(p, f.off)
	f.off += int64(n)
	if n > 0 && errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}

func (f *File) ReadAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, os.ErrClosed
	}
	if !f.flag.ReadAllowed() {
		return 0, io.EOF
	}
	return f.buf.ReadAt(p, off)
}

func (f *File) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, err := f.writeAt(p, f.off)
	f.off += int64(n)
	return n, err
}

func (f *File) WriteAt(p []byte, off int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeAt(p, off)
}

func (f *File) writeAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	if !f.flag.WriteAllowed() {
		return 0, &os.PathError{Op: "write", Path: f.name, Err: ErrNotWritable}
	}
	n, err := f.buf.WriteAt(p, off)
	if n > 0 {
		f.modTime = time.Now()
	}
	return n, err
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, os.ErrClosed
	}
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = f.off + offset
	case io.SeekEnd:
		abs = f.buf.Size() + offset
	default:
		return 0, &os.PathError{Op: "seek", Path: f.name, Err: os.ErrInvalid}
	}
	if abs < 0 {
		return 0, &os.PathError{Op: "seek", Path: f.name, Err: buffer.ErrNegativeOffset}
	}
	f.off = abs
	return abs, nil
}

// Truncate resizes the image of a write handle.
func (f *File) Truncate(size int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return os.ErrClosed
	}
	if !f.flag.WriteAllowed() {
		return &os.PathError{Op: "truncate", Path: f.name, Err: ErrNotWritable}
	}
	if err := f.buf.Truncate(size); err != nil {
		return &os.PathError{Op: "truncate", Path: f.name, Err: err}
	}
	f.modTime = time.Now()
	return nil
}

// Stat describes the open file from its buffer.
func (f *File) Stat() (os.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, os.ErrClosed
	}
	return &FileInfo{
		name:    baseName(f.rel),
		size:    f.buf.Size(),
		modTime: f.modTime,
	}, nil
}

// Flush uploads the image of a write handle if it changed since the last
// upload.
func (f *File) Flush(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return os.ErrClosed
	}
	return f.flush(ctx)
}

func (f *File) flush(ctx context.Context) error {
	if !f.flag.WriteAllowed() || (f.synced && !f.buf.Dirty()) {
		return nil
	}
	f.fs.log.Logf("[Flush] path=%s size=%d", f.rel, f.buf.Size())

	res, err := f.fs.client.Put(ctx, ref(f.rel, false), f.buf.Bytes(), webdav.PutOptions{
		LockTokens: f.fs.registry.Tokens(f.rel),
	})
	if err := outcome(res, err); err != nil {
		f.fs.log.Errorf("[Flush] path=%s error=%v", f.rel, err)
		return &os.PathError{Op: "write", Path: f.name, Err: err}
	}
	f.buf.MarkClean()
	f.synced = true
	return nil
}

// Close uploads a write handle's content with a single PUT and releases a
// held lock. The buffer and the token are dropped even when either step
// fails.
func (f *File) Close() error {
	return f.CloseContext(context.Background())
}

func (f *File) CloseContext(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return &os.PathError{Op: "close", Path: f.name, Err: os.ErrClosed}
	}
	f.fs.log.Logf("[Close] path=%s flags=%s", f.rel, f.flag)

	var errs []error
	if err := f.flush(ctx); err != nil {
		errs = append(errs, err)
	}
	if f.held != nil {
		if err := f.unlock(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	f.buf.Clear()
	f.closed = true
	f.fs.open.Delete(f.id)
	return errors.Join(errs...)
}

// moved follows a rename of from to to. A lock the handle held is
// forgotten since the server does not carry it along; its token is
// returned with the old path so the caller can release it there.
func (f *File) moved(from, to string) (old, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rel, ok := movedPath(f.rel, from, to)
	if !ok || f.closed {
		return "", ""
	}
	old = f.rel
	f.rel, f.name = rel, rel
	if f.held != nil {
		token = f.held.Token
		f.held = nil
	}
	return old, token
}

// Lock takes a WebDAV write lock on the file, or refreshes the one already
// held. A refresh keeps the token and cannot change the scope.
func (f *File) Lock(ctx context.Context, scope lock.Scope) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return os.ErrClosed
	}
	if scope == 0 {
		scope = lock.Exclusive
	}
	fs := f.fs

	if f.held != nil {
		if err := f.held.CheckScope(scope); err != nil {
			return &os.PathError{Op: "lock", Path: f.name, Err: err}
		}
		fs.log.Logf("[Lock] refresh path=%s token=%s", f.rel, f.held.Token)
		res, err := fs.client.RefreshLock(ctx, ref(f.rel, false), f.held.Token, fs.lockTimeouts...)
		if err := outcome(res, err); err != nil {
			fs.log.Errorf("[Lock] refresh path=%s error=%v", f.rel, err)
			return &os.PathError{Op: "lock", Path: f.name, Err: err}
		}
		f.held = res.Value
		return nil
	}

	if err := fs.registry.Check(f.rel, f.id, scope == lock.Exclusive); err != nil {
		return &os.PathError{Op: "lock", Path: f.name, Err: err}
	}
	fs.log.Logf("[Lock] create path=%s scope=%s", f.rel, scope)
	res, err := fs.client.CreateLock(ctx, ref(f.rel, false), webdav.LockOptions{
		Scope:    scope,
		Owner:    fs.lockOwner,
		Timeouts: fs.lockTimeouts,
		Depth:    header.DepthZero,
	})
	if err := outcome(res, err); err != nil {
		fs.log.Errorf("[Lock] create path=%s error=%v", f.rel, err)
		return &os.PathError{Op: "lock", Path: f.name, Err: err}
	}
	f.held = res.Value
	fs.registry.Add(locking.Held{
		Path:      f.rel,
		Token:     f.held.Token,
		Owner:     f.id,
		Exclusive: f.held.IsExclusive(),
	})
	return nil
}

// Unlock releases the held lock. Without one it does nothing.
func (f *File) Unlock(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.held == nil {
		return nil
	}
	return f.unlock(ctx)
}

func (f *File) unlock(ctx context.Context) error {
	token := f.held.Token
	f.held = nil
	_, _ = f.fs.registry.Remove(f.rel, f.id)

	f.fs.log.Logf("[Unlock] path=%s token=%s", f.rel, token)
	res, err := f.fs.client.ReleaseLock(ctx, ref(f.rel, false), token)
	if err := outcome(res, err); err != nil {
		f.fs.log.Errorf("[Unlock] path=%s error=%v", f.rel, err)
		return &os.PathError{Op: "unlock", Path: f.name, Err: err}
	}
	return nil
}

// Locked returns the lock this handle holds, if any.
func (f *File) Locked() (*lock.Lock, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.held, f.held != nil
}

// Truncate resizes name on the server without an open handle. A size of
// zero skips the download.
func (fs *FileSystem) Truncate(ctx context.Context, name string, size int64) error {
	fs.log.Logf("[Truncate] path=%s size=%d", clean(name), size)

	flag := flags.OpenFlag(os.O_WRONLY)
	if size == 0 {
		flag |= flags.OpenFlag(os.O_TRUNC)
	}
	f, err := fs.OpenFile(ctx, name, flag)
	if err != nil {
		return err
	}
	if err := f.Truncate(size); err != nil {
		_ = f.CloseContext(ctx)
		return err
	}
	return f.CloseContext(ctx)
}
