package autochecks

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CheckMount repeats the basic checks through a mounted filesystem.
func CheckMount(base string) error {
	const check = "Mount"
	dir := filepath.Join(base, scratch+"-mount")
	fpath := filepath.Join(dir, "tfile")

	_ = os.RemoveAll(dir)
	defer os.RemoveAll(dir)

	if err := step(check, "mkdir", func() error { return os.Mkdir(dir, 0o755) }); err != nil {
		return err
	}
	if err := step(check, "write+read", func() error {
		if err := os.WriteFile(fpath, []byte("0123456789"), 0o644); err != nil {
			return err
		}
		b, err := os.ReadFile(fpath)
		if err != nil {
			return err
		}
		if string(b) != "0123456789" {
			return fmt.Errorf("read back %q", b)
		}
		return nil
	}); err != nil {
		return err
	}
	if err := step(check, "truncate", func() error {
		// truncate smaller
		if err := os.Truncate(fpath, 4); err != nil {
			return err
		}
		b, err := os.ReadFile(fpath)
		if err != nil {
			return err
		}
		if len(b) != 4 {
			return fmt.Errorf("truncate down wrong size: %d", len(b))
		}
		// extend
		if err := os.Truncate(fpath, 10); err != nil {
			return err
		}
		fi, err := os.Stat(fpath)
		if err != nil {
			return err
		}
		if fi.Size() != 10 {
			return fmt.Errorf("truncate up wrong size: %d", fi.Size())
		}
		return nil
	}); err != nil {
		return err
	}
	if err := step(check, "rename", func() error {
		to := filepath.Join(dir, "renamed")
		if err := os.Rename(fpath, to); err != nil {
			return err
		}
		if _, err := os.Stat(fpath); !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("old name still present: %v", err)
		}
		return nil
	}); err != nil {
		return err
	}
	return step(check, "readdir", func() error {
		ents, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		if len(ents) != 1 || ents[0].Name() != "renamed" {
			return fmt.Errorf("unexpected entries %v", ents)
		}
		return nil
	})
}
