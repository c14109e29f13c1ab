package helpers

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/davmount/internal/core/failure"
	"github.com/davmount/internal/core/locking"
)

func httpErr(method string, status int) error {
	return &os.PathError{Op: "op", Path: "p", Err: failure.NewHTTPError(method, "http://h/p", status, "", nil)}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
		want bool
	}{
		{"404 not exist", httpErr("GET", 404), IsNotExistErr, true},
		{"410 not exist", httpErr("GET", 410), IsNotExistErr, true},
		{"500 not exist", httpErr("GET", 500), IsNotExistErr, false},
		{"403 forbidden", httpErr("PUT", 403), IsForbiddenErr, true},
		{"mkcol 405 exists", httpErr("MKCOL", 405), IsExistErr, true},
		{"move 412 exists", httpErr("MOVE", 412), IsExistErr, true},
		{"423 locked", httpErr("PUT", 423), IsLockedErr, true},
		{"would block", fmt.Errorf("lock: %w", locking.ErrWouldBlock), IsLockedErr, true},
		{"409 conflict", httpErr("MKCOL", 409), IsConflictErr, true},
		{"507 storage", httpErr("PUT", 507), IsInsufficientStorageErr, true},
		{"transport", &failure.TransportError{Err: errors.New("dial")}, IsTransportErr, true},
		{"nil", nil, IsNotExistErr, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred(tt.err); got != tt.want {
				t.Fatalf("got %v want %v for %v", got, tt.want, tt.err)
			}
		})
	}
}
