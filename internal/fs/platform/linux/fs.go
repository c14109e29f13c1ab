//go:build linux || darwin

package linux

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	"github.com/davmount/internal/core/logger"
	"github.com/davmount/internal/fs/platform/linux/entries"
	"github.com/davmount/internal/vfs"
)

type FuseFS struct {
	tree   *entries.Tree
	logger logger.FullLogger

	// runtime mount state:
	mu         sync.Mutex
	mountpoint string
	conn       *fuse.Conn
	serveErr   error
	mounted    bool
}

func New(v *vfs.FileSystem, l logger.FullLogger) *FuseFS {
	if l == nil {
		l = logger.Discard()
	}
	return &FuseFS{
		tree:   entries.NewTree(v, l),
		logger: l,
	}
}

// mountOptions translates -o style flags. Unknown flags are logged and
// skipped.
func (fs *FuseFS) mountOptions(mflags []string) []fuse.MountOption {
	opts := []fuse.MountOption{
		fuse.FSName("davmount"),
		fuse.Subtype("davfs"),
		fuse.LockingFlock(),
	}
	for _, f := range mflags {
		switch f {
		case "ro":
			opts = append(opts, fuse.ReadOnly())
		case "allow_other":
			opts = append(opts, fuse.AllowOther())
		case "default_permissions":
			opts = append(opts, fuse.DefaultPermissions())
		default:
			fs.logger.Errorf("ignoring unknown mount flag %q", f)
		}
	}
	return opts
}

// Mount creates the FUSE mount and serves it until the process receives an
// interrupt, then unmounts.
func (fs *FuseFS) Mount(mountpoint string, mflags []string) error {
	fs.mu.Lock()
	if fs.mounted {
		fs.mu.Unlock()
		return fmt.Errorf("already mounted at %q", fs.mountpoint)
	}

	if _, err := os.Stat(mountpoint); err != nil {
		fs.mu.Unlock()
		return fmt.Errorf("cannot access mountpoint %q: %w", mountpoint, err)
	}

	fs.logger.Log("Mounting...")
	c, err := fuse.Mount(mountpoint, fs.mountOptions(mflags)...)
	if err != nil {
		fs.mu.Unlock()
		return fmt.Errorf("fuse mount failed: %w", err)
	}

	// store runtime state for Unmount before blocking
	fs.mountpoint = mountpoint
	fs.conn = c
	fs.mounted = true
	fs.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	done := make(chan struct{})
	go func() {
		err := fusefs.Serve(c, fs)
		fs.mu.Lock()
		fs.serveErr = err
		fs.mu.Unlock()
		close(done)
	}()

	fs.logger.Logf("Mounted Fuse on %s", mountpoint)
	select {
	case <-sigChan:
		fs.logger.Log("Interrupted, unmounting")
	case <-done:
	}
	return fs.Unmount()
}

// Unmount stops serving, unmounts the filesystem and releases resources.
// It is safe to call multiple times.
func (fs *FuseFS) Unmount() error {
	fs.mu.Lock()
	// capture state to operate on while unlocked for potentially blocking ops
	mounted := fs.mounted
	mp := fs.mountpoint
	conn := fs.conn
	serveErr := fs.serveErr

	fs.mounted = false
	fs.mountpoint = ""
	fs.conn = nil
	fs.serveErr = nil
	fs.mu.Unlock()

	if !mounted {
		return nil
	}

	if err := fuse.Unmount(mp); err != nil {
		// Unmount can fail when processes keep files open. Try a lazy unmount fallback,
		// and log the error so operator can take manual action (fuser/kill).
		fs.logger.Errorf("fuse.Unmount error: %v", err)
		if ex := exec.Command("fusermount3", "-uz", mp).Run(); ex != nil {
			fs.logger.Errorf("fusermount3 -uz failed: %v", ex)
		}
	}

	if conn != nil {
		_ = conn.Close()
	}

	if serveErr != nil {
		fs.logger.Errorf("fs.Serve returned error: %v", serveErr)
		return serveErr
	}

	fs.logger.Logf("Unmounted %s", mp)
	return nil
}

func (fs *FuseFS) Root() (fusefs.Node, error) {
	return fs.tree.Root(), nil
}
