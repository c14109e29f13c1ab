//go:build !windows

package common

import "syscall"

const (
	EPERM     = int(syscall.EPERM)
	ENOENT    = int(syscall.ENOENT)
	EIO       = int(syscall.EIO)
	EBADF     = int(syscall.EBADF)
	EAGAIN    = int(syscall.EAGAIN)
	EACCES    = int(syscall.EACCES)
	EEXIST    = int(syscall.EEXIST)
	ENOTDIR   = int(syscall.ENOTDIR)
	EISDIR    = int(syscall.EISDIR)
	EINVAL    = int(syscall.EINVAL)
	ENOSPC    = int(syscall.ENOSPC)
	ENOSYS    = int(syscall.ENOSYS)
	ENOTEMPTY = int(syscall.ENOTEMPTY)
)
