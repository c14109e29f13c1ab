package helpers

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/davmount/internal/core/failure"
	"github.com/davmount/internal/core/locking"
)

// status returns the HTTP status behind err, or 0.
func status(err error) int {
	var he *failure.HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

func IsNotExistErr(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func IsForbiddenErr(err error) bool {
	return errors.Is(err, fs.ErrPermission)
}

func IsExistErr(err error) bool {
	return errors.Is(err, fs.ErrExist) || status(err) == http.StatusPreconditionFailed
}

// IsLockedErr reports a conflict with a lock held elsewhere, either on the
// server (423) or by another handle of this process.
func IsLockedErr(err error) bool {
	return errors.Is(err, locking.ErrWouldBlock) || status(err) == http.StatusLocked
}

// IsConflictErr reports a 409, which MKCOL and PUT use for a missing parent.
func IsConflictErr(err error) bool {
	return status(err) == http.StatusConflict
}

func IsInsufficientStorageErr(err error) bool {
	return status(err) == http.StatusInsufficientStorage
}

func IsTransportErr(err error) bool {
	return errors.Is(err, failure.ErrTransport)
}
