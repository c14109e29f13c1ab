// Package autochecks exercises a live WebDAV share, either through the
// adapter directly or through a mounted filesystem.
package autochecks

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/davmount/internal/vfs"
)

// scratch is the collection every check works under.
const scratch = "davmount-checks"

func summarizeSub(check, step string, err error, took time.Duration) {
	status := "ok"
	if err != nil {
		status = "FAIL: " + err.Error()
	}
	fmt.Printf("    %-20s %-16s %-8s %s\n", check, step, took.Round(time.Millisecond), status)
}

// step runs fn and reports it under check.
func step(check, name string, fn func() error) error {
	s := time.Now()
	err := fn()
	summarizeSub(check, name, err, time.Since(s))
	return err
}

func writeFile(ctx context.Context, v *vfs.FileSystem, name string, data []byte) error {
	f, err := v.Open(ctx, name, "w")
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.CloseContext(ctx)
		return err
	}
	return f.CloseContext(ctx)
}

func readFile(ctx context.Context, v *vfs.FileSystem, name string) ([]byte, error) {
	f, err := v.Open(ctx, name, "rb")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Prepare creates the scratch collection, removing leftovers of an earlier
// run.
func Prepare(ctx context.Context, v *vfs.FileSystem) error {
	_ = v.Rmdir(ctx, scratch)
	return v.Mkdir(ctx, scratch, false)
}

func Cleanup(ctx context.Context, v *vfs.FileSystem) error {
	return v.Rmdir(ctx, scratch)
}
