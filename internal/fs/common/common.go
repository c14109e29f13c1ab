// Package common holds what the bazil and the cgofuse front ends share:
// error number mapping and inode numbering.
package common

import (
	"errors"
	"hash/crc32"
	"os"

	"github.com/davmount/internal/core/helpers"
	"github.com/davmount/internal/core/lock"
	"github.com/davmount/internal/vfs"
)

// Errno maps an adapter error to a positive error number. Unknown errors
// become EIO.
func Errno(err error) int {
	switch {
	case err == nil:
		return 0
	case helpers.IsNotExistErr(err), errors.Is(err, vfs.ErrRecursiveMkdir), helpers.IsConflictErr(err):
		return ENOENT
	case helpers.IsExistErr(err):
		return EEXIST
	case helpers.IsForbiddenErr(err), helpers.IsLockedErr(err):
		return EACCES
	case errors.Is(err, vfs.ErrNotDir):
		return ENOTDIR
	case errors.Is(err, vfs.ErrIsDir):
		return EISDIR
	case errors.Is(err, vfs.ErrNotWritable), errors.Is(err, os.ErrClosed):
		return EBADF
	case errors.Is(err, vfs.ErrUnsupportedMode), errors.Is(err, lock.ErrScopeChange), errors.Is(err, os.ErrInvalid):
		return EINVAL
	case helpers.IsInsufficientStorageErr(err):
		return ENOSPC
	}
	return EIO
}

// LockErrno is Errno for lock requests, where a conflict means "try again".
func LockErrno(err error) int {
	if helpers.IsLockedErr(err) {
		return EAGAIN
	}
	return Errno(err)
}

// Inode derives a stable inode number from a path.
func Inode(path string) uint64 {
	return uint64(crc32.ChecksumIEEE([]byte(path))) + 1
}
