package casters

import (
	"io/fs"
	"testing"
	"time"

	"github.com/winfsp/cgofuse/fuse"
)

type info struct {
	name string
	size int64
	dir  bool
	mod  time.Time
}

func (i info) Name() string       { return i.name }
func (i info) Size() int64        { return i.size }
func (i info) ModTime() time.Time { return i.mod }
func (i info) IsDir() bool        { return i.dir }
func (i info) Sys() any           { return nil }
func (i info) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"":            "/",
		"/":           "/",
		"a/b":         "/a/b",
		"\\a\\b.txt":  "/a/b.txt",
		"/a/../b/":    "/b",
		"/with%20pct": "/with%20pct",
	}
	for in, want := range tests {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStatCast(t *testing.T) {
	mod := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	st := StatCast(info{name: ".hidden", size: 1000, mod: mod}, 10, 20)
	if st.Mode&fuse.S_IFMT != fuse.S_IFREG || st.Mode&0o777 != 0o644 {
		t.Fatalf("file mode = %#o", st.Mode)
	}
	if st.Size != 1000 || st.Blocks != 2 || st.Nlink != 1 || st.Uid != 10 || st.Gid != 20 {
		t.Fatalf("file stat = %+v", st)
	}
	if st.Flags != fuse.UF_HIDDEN {
		t.Fatalf("dot files are hidden, flags = %#x", st.Flags)
	}
	if st.Mtim.Time() != mod {
		t.Fatalf("mtime = %v", st.Mtim.Time())
	}

	dir := StatCast(info{name: "d", size: 4096, dir: true}, 0, 0)
	if dir.Mode&fuse.S_IFMT != fuse.S_IFDIR || dir.Size != 0 || dir.Nlink != 2 {
		t.Fatalf("dir stat = %+v", dir)
	}
	if DirStat(1, 1).Mode&fuse.S_IFMT != fuse.S_IFDIR {
		t.Fatalf("DirStat is not a directory")
	}
}
