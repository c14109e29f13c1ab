package autochecks

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/davmount/internal/core/helpers"
	"github.com/davmount/internal/core/lock"
	"github.com/davmount/internal/vfs"
)

// CheckLocks takes, refreshes and releases a write lock, and writes through
// it while a second handle is refused.
func CheckLocks(ctx context.Context, v *vfs.FileSystem) error {
	const check = "Locks"
	name := path.Join(scratch, "locked.txt")

	if err := writeFile(ctx, v, name, []byte("v1")); err != nil {
		summarizeSub(check, "setup", err, 0)
		return err
	}

	f, err := v.Open(ctx, name, "w")
	if err != nil {
		return err
	}
	defer f.Close()

	if err := step(check, "lock", func() error {
		if err := f.Lock(ctx, lock.Exclusive); err != nil {
			return err
		}
		if l, ok := f.Locked(); !ok || l.Token == "" {
			return errors.New("no token after lock")
		}
		return nil
	}); err != nil {
		return err
	}

	if err := step(check, "conflict", func() error {
		other, err := v.Open(ctx, name, "r")
		if err != nil {
			return err
		}
		defer other.Close()
		if err := other.Lock(ctx, lock.Exclusive); !helpers.IsLockedErr(err) {
			return fmt.Errorf("second lock returned %v", err)
		}
		return nil
	}); err != nil {
		return err
	}

	if err := step(check, "refresh", func() error {
		before, _ := f.Locked()
		if err := f.Lock(ctx, lock.Exclusive); err != nil {
			return err
		}
		after, _ := f.Locked()
		if after.Token != before.Token {
			return fmt.Errorf("refresh changed token %s -> %s", before.Token, after.Token)
		}
		return nil
	}); err != nil {
		return err
	}

	return step(check, "write+unlock", func() error {
		if _, err := f.Write([]byte("v2")); err != nil {
			return err
		}
		if err := f.Flush(ctx); err != nil {
			return err
		}
		if err := f.Unlock(ctx); err != nil {
			return err
		}
		if _, ok := f.Locked(); ok {
			return errors.New("still locked after unlock")
		}
		return nil
	})
}
