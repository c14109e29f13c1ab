//go:build windows

package common

// Error codes
// Headers are incorrectly imported on Windows
// So i defined them here, WinFsp expects the Linux numbering
const (
	EPERM     = 1
	ENOENT    = 2
	EIO       = 5
	EBADF     = 9
	EAGAIN    = 11
	EACCES    = 13
	EEXIST    = 17
	ENOTDIR   = 20
	EISDIR    = 21
	EINVAL    = 22
	ENOSPC    = 28
	ENOSYS    = 38
	ENOTEMPTY = 39
)
