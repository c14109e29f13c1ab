package autochecks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"

	"github.com/davmount/internal/vfs"
)

// CheckRoundTrip writes a file, reads it back and stats it.
func CheckRoundTrip(ctx context.Context, v *vfs.FileSystem) error {
	const check = "Round trip"
	name := path.Join(scratch, "roundtrip.txt")
	want := bytes.Repeat([]byte("davmount\n"), 1000)

	if err := step(check, "write", func() error { return writeFile(ctx, v, name, want) }); err != nil {
		return err
	}
	if err := step(check, "read", func() error {
		got, err := readFile(ctx, v, name)
		if err != nil {
			return err
		}
		if !bytes.Equal(got, want) {
			return fmt.Errorf("read %d bytes, wrote %d", len(got), len(want))
		}
		return nil
	}); err != nil {
		return err
	}
	if err := step(check, "stat", func() error {
		fi, err := v.Stat(ctx, name)
		if err != nil {
			return err
		}
		if fi.IsDir() || fi.Size() != int64(len(want)) {
			return fmt.Errorf("stat dir=%v size=%d", fi.IsDir(), fi.Size())
		}
		return nil
	}); err != nil {
		return err
	}
	return step(check, "unlink", func() error {
		if err := v.Unlink(ctx, name); err != nil {
			return err
		}
		if _, err := v.Stat(ctx, name); !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat after unlink: %v", err)
		}
		return nil
	})
}

// CheckListing creates a few members and lists the collection.
func CheckListing(ctx context.Context, v *vfs.FileSystem) error {
	const check = "Listing"
	dir := path.Join(scratch, "listing")

	if err := step(check, "populate", func() error {
		if err := v.Mkdir(ctx, dir, false); err != nil {
			return err
		}
		if err := v.Mkdir(ctx, path.Join(dir, "sub"), false); err != nil {
			return err
		}
		for _, n := range []string{"a.txt", "b.txt"} {
			if err := writeFile(ctx, v, path.Join(dir, n), []byte(n)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	return step(check, "readdir", func() error {
		infos, err := v.ReadDir(ctx, dir)
		if err != nil {
			return err
		}
		var names []string
		for _, fi := range infos {
			names = append(names, fi.Name())
		}
		slices.Sort(names)
		if want := []string{"a.txt", "b.txt", "sub"}; !slices.Equal(names, want) {
			return fmt.Errorf("listed %v, want %v", names, want)
		}
		return nil
	})
}

// CheckRename moves a file and a collection.
func CheckRename(ctx context.Context, v *vfs.FileSystem) error {
	const check = "Rename"
	from := path.Join(scratch, "before.txt")
	to := path.Join(scratch, "after.txt")

	if err := step(check, "file", func() error {
		if err := writeFile(ctx, v, from, []byte("moving")); err != nil {
			return err
		}
		if err := v.Rename(ctx, from, to); err != nil {
			return err
		}
		got, err := readFile(ctx, v, to)
		if err != nil {
			return err
		}
		if string(got) != "moving" {
			return fmt.Errorf("moved content %q", got)
		}
		if _, err := v.Stat(ctx, from); !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("source still present: %v", err)
		}
		return nil
	}); err != nil {
		return err
	}

	return step(check, "collection", func() error {
		src, dst := path.Join(scratch, "dir-before"), path.Join(scratch, "dir-after")
		if err := v.Mkdir(ctx, src, false); err != nil {
			return err
		}
		if err := writeFile(ctx, v, path.Join(src, "inner.txt"), []byte("x")); err != nil {
			return err
		}
		if err := v.Rename(ctx, src, dst); err != nil {
			return err
		}
		_, err := v.Stat(ctx, path.Join(dst, "inner.txt"))
		return err
	})
}

// CheckRecursiveMkdir makes sure missing parents are refused and not
// created.
func CheckRecursiveMkdir(ctx context.Context, v *vfs.FileSystem) error {
	const check = "Mkdir"
	deep := path.Join(scratch, "x", "y")

	if err := step(check, "recursive", func() error {
		if err := v.Mkdir(ctx, deep, true); !errors.Is(err, vfs.ErrRecursiveMkdir) {
			return fmt.Errorf("recursive mkdir returned %v", err)
		}
		if _, err := v.Stat(ctx, path.Join(scratch, "x")); !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("parent was created: %v", err)
		}
		return nil
	}); err != nil {
		return err
	}
	return step(check, "missing parent", func() error {
		if err := v.Mkdir(ctx, deep, false); err == nil {
			return errors.New("mkdir below a missing parent succeeded")
		}
		return nil
	})
}
