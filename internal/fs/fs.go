// Package fs mounts the adapter as a local filesystem: bazil FUSE on Linux
// and macOS, cgofuse (WinFsp) on Windows.
package fs

type FS interface {
	Mount(mountpoint string, mflags []string) error
	Unmount() error
}
