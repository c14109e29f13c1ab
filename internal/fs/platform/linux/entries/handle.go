//go:build linux || darwin

package entries

import (
	"context"
	"errors"
	"io"
	"os"
	"syscall"
	"time"

	"bazil.org/fuse"
	"github.com/avast/retry-go/v4"
	"github.com/davmount/internal/core/flags"
	"github.com/davmount/internal/core/helpers"
	"github.com/davmount/internal/core/lock"
	"github.com/davmount/internal/fs/common"
	"github.com/davmount/internal/vfs"
)

// lockPoll is how often a blocking flock retries a conflicting lock.
const lockPoll = 200 * time.Millisecond

type vfsFile interface {
	Handle() uint64
	Flags() flags.OpenFlag
	Stat() (os.FileInfo, error)
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Truncate(size int64) error
	Flush(ctx context.Context) error
	CloseContext(ctx context.Context) error
	Lock(ctx context.Context, scope lock.Scope) error
	Unlock(ctx context.Context) error
	Locked() (*lock.Lock, bool)
}

var _ vfsFile = (*vfs.File)(nil)

// Handle is an open file. flock requests on it become WebDAV locks.
type Handle struct {
	node *File
	file vfsFile
}

func (h *Handle) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	if !h.file.Flags().ReadAllowed() {
		return fuse.Errno(syscall.EBADF)
	}
	buf := make([]byte, req.Size)
	n, err := h.file.ReadAt(buf, req.Offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return errno(err)
	}
	resp.Data = buf[:n]
	return nil
}

func (h *Handle) Write(ctx context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	n, err := h.file.WriteAt(req.Data, req.Offset)
	if err != nil {
		return errno(err)
	}
	resp.Size = n
	return nil
}

func (h *Handle) Flush(ctx context.Context, req *fuse.FlushRequest) error {
	return errno(h.file.Flush(ctx))
}

func (h *Handle) Release(ctx context.Context, req *fuse.ReleaseRequest) error {
	defer h.node.detach(h)
	if err := h.file.CloseContext(ctx); err != nil {
		h.node.tree.logger.Errorf("[Release] path=%s: %v", h.node.getPath(), err)
		return errno(err)
	}
	return nil
}

func (h *Handle) lock(ctx context.Context, typ fuse.LockType) error {
	switch typ {
	case fuse.LockUnlock:
		return h.file.Unlock(ctx)
	case fuse.LockRead:
		return h.file.Lock(ctx, lock.Shared)
	default:
		return h.file.Lock(ctx, lock.Exclusive)
	}
}

func (h *Handle) Lock(ctx context.Context, req *fuse.LockRequest) error {
	h.node.tree.logger.Logf("[Lock] path=%s type=%v", h.node.getPath(), req.Lock.Type)
	if err := h.lock(ctx, req.Lock.Type); err != nil {
		return fuse.Errno(syscall.Errno(common.LockErrno(err)))
	}
	return nil
}

// LockWait retries until the lock is granted or the request is interrupted.
func (h *Handle) LockWait(ctx context.Context, req *fuse.LockWaitRequest) error {
	err := retry.Do(
		func() error { return h.lock(ctx, req.Lock.Type) },
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(lockPoll),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(helpers.IsLockedErr),
		retry.LastErrorOnly(true),
	)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fuse.Errno(syscall.EINTR)
	}
	return errno(err)
}

func (h *Handle) Unlock(ctx context.Context, req *fuse.UnlockRequest) error {
	return errno(h.file.Unlock(ctx))
}

// QueryLock reports no conflict: other holders are only known to the
// server.
func (h *Handle) QueryLock(ctx context.Context, req *fuse.QueryLockRequest, resp *fuse.QueryLockResponse) error {
	resp.Lock = fuse.FileLock{Type: fuse.LockUnlock}
	return nil
}
