// Package vfs maps file and directory operations onto the WebDAV engine.
// Paths are slash separated and relative to the engine's base URL; a
// leading slash is accepted and ignored.
package vfs

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/davmount/internal/core/failure"
	"github.com/davmount/internal/core/flags"
	"github.com/davmount/internal/core/locking"
	"github.com/davmount/internal/core/lock"
	"github.com/davmount/internal/core/logger"
	"github.com/davmount/internal/core/multistatus"
	"github.com/davmount/internal/core/timeout"
	"github.com/davmount/internal/core/webdav"
)

var (
	ErrUnsupportedMode = flags.ErrUnsupportedMode
	ErrNotWritable     = errors.New("file not opened for writing")
	ErrRecursiveMkdir  = errors.New("does not allow creating directories recursively")
	ErrNotDir          = errors.New("not a directory")
	ErrIsDir           = errors.New("is a directory")
)

// Client is the part of the engine the adapter drives. *webdav.Client
// implements it.
type Client interface {
	Resolve(uri string) (string, error)
	Get(ctx context.Context, uri string) (*webdav.Result[[]byte], error)
	Put(ctx context.Context, uri string, data []byte, opts webdav.PutOptions) (*webdav.Result[bool], error)
	Delete(ctx context.Context, uri string, opts webdav.DeleteOptions) (*webdav.Result[bool], error)
	Mkcol(ctx context.Context, uri string) (*webdav.Result[bool], error)
	Move(ctx context.Context, src, dst string, opts webdav.CopyOptions) (*webdav.Result[bool], error)
	Propfind(ctx context.Context, uri string, opts webdav.PropfindOptions) (*webdav.Result[*multistatus.MultiStatus], error)
	CreateLock(ctx context.Context, uri string, opts webdav.LockOptions) (*webdav.Result[*lock.Lock], error)
	RefreshLock(ctx context.Context, uri, token string, timeouts ...timeout.Value) (*webdav.Result[*lock.Lock], error)
	ReleaseLock(ctx context.Context, uri, token string) (*webdav.Result[bool], error)
}

var _ Client = (*webdav.Client)(nil)

type FileSystem struct {
	client   Client
	log      logger.FullLogger
	registry *locking.Registry

	lockOwner    string
	lockTimeouts []timeout.Value

	nextHandle atomic.Uint64
	open       sync.Map // handle id -> *File
}

type Option func(*FileSystem)

func WithLogger(l logger.FullLogger) Option {
	return func(fs *FileSystem) {
		if l != nil {
			fs.log = l
		}
	}
}

// WithLockTimeout sets the Timeout values requested by Lock. Without it
// the server picks.
func WithLockTimeout(values ...timeout.Value) Option {
	return func(fs *FileSystem) {
		fs.lockTimeouts = values
	}
}

func WithLockOwner(owner string) Option {
	return func(fs *FileSystem) {
		fs.lockOwner = owner
	}
}

func New(client Client, opts ...Option) *FileSystem {
	fs := &FileSystem{
		client:   client,
		log:      logger.Discard(),
		registry: locking.NewRegistry(),
	}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// Registry exposes the lock tokens held by this adapter's handles.
func (fs *FileSystem) Registry() *locking.Registry { return fs.registry }

// clean turns any accepted spelling of a path into its base-relative form.
// The root is "".
func clean(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}

// movedPath rewrites p when it is from or lies below it.
func movedPath(p, from, to string) (string, bool) {
	switch {
	case p == from:
		return to, true
	case strings.HasPrefix(p, from+"/"):
		return to + p[len(from):], true
	}
	return "", false
}

// ref escapes a cleaned path into a URI reference. Collections get a
// trailing slash.
func ref(rel string, collection bool) string {
	if collection && rel != "" {
		rel += "/"
	}
	return (&url.URL{Path: rel}).String()
}

// outcome folds the transport error, the classified HTTP failure and any
// failed multistatus member into one error.
func outcome[T any](res *webdav.Result[T], err error) error {
	if err != nil {
		return err
	}
	if res == nil {
		return failure.ErrProtocol
	}
	if res.Err != nil {
		return res.Err
	}
	if ms := res.MultiStatus; ms != nil && !ms.OK() {
		for _, r := range ms.Failed() {
			status, reason := r.Status, r.Reason
			if status == 0 {
				for _, ps := range r.Propstat {
					if ps.Status < 200 || ps.Status >= 300 {
						status, reason = ps.Status, ps.Reason
						break
					}
				}
			}
			return failure.NewHTTPError(res.Request.Method, r.Href(), status, reason, res.Request.Body)
		}
	}
	return nil
}
