package vfs

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/studio-b12/gowebdav"

	"github.com/davmount/internal/core/failure"
	"github.com/davmount/internal/core/flags"
	"github.com/davmount/internal/core/lock"
	"github.com/davmount/internal/core/timeout"
	"github.com/davmount/internal/core/webdav"
	"github.com/davmount/test/utils/memserver"
)

type env struct {
	fs      *FileSystem
	backend *memserver.MemBackend
	srv     *httptest.Server
	peer    *gowebdav.Client
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	srv, backend := memserver.NewTestServer()
	t.Cleanup(srv.Close)

	c, err := webdav.NewClient(srv.URL, webdav.WithTransport(srv.Client()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return &env{
		fs:      New(c, opts...),
		backend: backend,
		srv:     srv,
		peer:    gowebdav.NewClient(srv.URL, "", ""),
	}
}

func TestWriteCloseReadRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	f, err := e.fs.Open(ctx, "/notes.txt", "w")
	if err != nil {
		t.Fatalf("Open(w): %v", err)
	}
	if _, err := f.Write([]byte("hello ")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := f.Write([]byte("world")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n := len(e.backend.Requests(webdav.PUT)); n != 0 {
		t.Fatalf("PUT before close: %d", n)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := len(e.backend.Requests(webdav.PUT)); n != 1 {
		t.Fatalf("expected exactly one PUT, got %d", n)
	}

	// an independent client sees the bytes
	data, err := e.peer.Read("/notes.txt")
	if err != nil || string(data) != "hello world" {
		t.Fatalf("gowebdav Read = %q, %v", data, err)
	}

	r, err := e.fs.Open(ctx, "notes.txt", "rb")
	if err != nil {
		t.Fatalf("Open(rb): %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil || string(got) != "hello world" {
		t.Fatalf("ReadAll = %q, %v", got, err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close(r): %v", err)
	}
	if n := len(e.backend.Requests(webdav.PUT)); n != 1 {
		t.Fatalf("closing a read handle must not PUT, got %d PUTs", n)
	}
}

func TestReadFromPeerWrite(t *testing.T) {
	e := newEnv(t)
	if err := e.peer.Write("/peer.bin", []byte{1, 2, 3, 4}, 0o644); err != nil {
		t.Fatalf("gowebdav Write: %v", err)
	}

	f, err := e.fs.Open(context.Background(), "peer.bin", "r")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	buf := make([]byte, 2)
	if n, err := f.ReadAt(buf, 2); n != 2 || err != nil || !slices.Equal(buf, []byte{3, 4}) {
		t.Fatalf("ReadAt = %d %v %v", n, buf, err)
	}
	fi, err := f.Stat()
	if err != nil || fi.Size() != 4 || fi.Name() != "peer.bin" {
		t.Fatalf("Stat = %+v, %v", fi, err)
	}
}

func TestModeMismatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if err := e.backend.Set("a.txt", []byte("abc")); err != nil {
		t.Fatal(err)
	}

	r, err := e.fs.Open(ctx, "a.txt", "r")
	if err != nil {
		t.Fatalf("Open(r): %v", err)
	}
	n, err := r.Write([]byte("x"))
	if n != 0 || !errors.Is(err, ErrNotWritable) {
		t.Fatalf("Write on read handle = %d, %v", n, err)
	}
	r.Close()

	w, err := e.fs.Open(ctx, "b.txt", "w")
	if err != nil {
		t.Fatalf("Open(w): %v", err)
	}
	if n, err := w.Read(make([]byte, 4)); n != 0 || err != io.EOF {
		t.Fatalf("Read on write handle = %d, %v", n, err)
	}
	w.Close()
}

func TestUnsupportedModes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for _, mode := range []string{"r+", "w+", "a", "a+", "x", "c", "rw", "z"} {
		t.Run(mode, func(t *testing.T) {
			_, err := e.fs.Open(ctx, "a.txt", mode)
			var pe *os.PathError
			if !errors.As(err, &pe) || !errors.Is(err, ErrUnsupportedMode) {
				t.Fatalf("Open(%q) err = %v", mode, err)
			}
		})
	}
	_, err := e.fs.OpenFile(ctx, "a.txt", flags.OpenFlag(os.O_RDWR))
	if !errors.Is(err, ErrUnsupportedMode) {
		t.Fatalf("O_RDWR err = %v", err)
	}
	if n := len(e.backend.Requests()); n != 0 {
		t.Fatalf("rejected opens must not reach the server, got %d requests", n)
	}
}

func TestOpenMissing(t *testing.T) {
	e := newEnv(t)
	_, err := e.fs.Open(context.Background(), "nope.txt", "r")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v", err)
	}
	var he *failure.HTTPError
	if !errors.As(err, &he) || he.StatusCode != 404 {
		t.Fatalf("expected the HTTP failure to stay reachable, got %v", err)
	}
}

func TestOpenWriteKeepsContent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if err := e.backend.Set("keep.txt", []byte("0123456789")); err != nil {
		t.Fatal(err)
	}

	f, err := e.fs.OpenFile(ctx, "keep.txt", flags.OpenFlag(os.O_WRONLY))
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if _, err := f.WriteAt([]byte("ab"), 4); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	if data, _ := e.backend.Get("keep.txt"); string(data) != "0123ab6789" {
		t.Fatalf("content = %q", data)
	}
}

func TestSeek(t *testing.T) {
	e := newEnv(t)
	if err := e.backend.Set("s.txt", []byte("abcdef")); err != nil {
		t.Fatal(err)
	}
	f, err := e.fs.Open(context.Background(), "s.txt", "r")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if pos, err := f.Seek(-2, io.SeekEnd); err != nil || pos != 4 {
		t.Fatalf("Seek end = %d, %v", pos, err)
	}
	rest, _ := io.ReadAll(f)
	if string(rest) != "ef" {
		t.Fatalf("after seek read %q", rest)
	}
	if _, err := f.Seek(-10, io.SeekCurrent); err == nil {
		t.Fatalf("negative position must fail")
	}
}

func TestStatAndDirectories(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if err := e.fs.Mkdir(ctx, "docs", false); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if err := e.peer.Write("/docs/b.txt", []byte("bb"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := e.backend.Set("docs/a.txt", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := e.backend.Mkdir("docs/sub"); err != nil {
		t.Fatal(err)
	}

	fi, err := e.fs.Stat(ctx, "/docs/b.txt")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if fi.Name() != "b.txt" || fi.Size() != 2 || fi.IsDir() || fi.ModTime().IsZero() {
		t.Fatalf("Stat = %+v", fi)
	}
	if dir, err := e.fs.IsDir(ctx, "docs"); err != nil || !dir {
		t.Fatalf("IsDir(docs) = %v, %v", dir, err)
	}
	if _, err := e.fs.Stat(ctx, "docs/zzz"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Stat missing = %v", err)
	}

	d, err := e.fs.OpenDir(ctx, "docs")
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	var names []string
	for name, ok := d.Read(); ok; name, ok = d.Read() {
		names = append(names, name)
	}
	slices.Sort(names)
	if diff := cmp.Diff([]string{"a.txt", "b.txt", "sub"}, names); diff != "" {
		t.Fatalf("listing mismatch (-want +got):\n%s", diff)
	}
	d.Rewind()
	if _, ok := d.Read(); !ok {
		t.Fatalf("Rewind did not restart the listing")
	}
	d.Close()

	infos, err := e.fs.ReadDir(ctx, "/")
	if err != nil {
		t.Fatalf("ReadDir(/): %v", err)
	}
	if len(infos) != 1 || infos[0].Name() != "docs" || !infos[0].IsDir() {
		t.Fatalf("root listing = %+v", infos)
	}

	if _, err := e.fs.ReadDir(ctx, "docs/a.txt"); !errors.Is(err, ErrNotDir) {
		t.Fatalf("ReadDir(file) err = %v", err)
	}
}

// fixedPropfind answers every PROPFIND with body, whatever the target.
func fixedPropfind(t *testing.T, body string) *FileSystem {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != webdav.PROPFIND {
			http.Error(w, "unexpected", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	c, err := webdav.NewClient(srv.URL, webdav.WithTransport(srv.Client()))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return New(c)
}

func TestStatMemberStatus(t *testing.T) {
	ctx := context.Background()
	v := fixedPropfind(t, `<?xml version="1.0" encoding="utf-8"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/gone.txt</D:href>
    <D:status>HTTP/1.1 404 Not Found</D:status>
  </D:response>
</D:multistatus>`)

	fi, err := v.Stat(ctx, "gone.txt")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Stat = %+v, %v; want ErrNotExist", fi, err)
	}
	var he *failure.HTTPError
	if !errors.As(err, &he) || he.StatusCode != 404 {
		t.Fatalf("Stat error %v does not carry the member status", err)
	}
	if dir, err := v.IsDir(ctx, "gone.txt"); dir || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("IsDir = %v, %v", dir, err)
	}
}

func TestReadDirSkipsFailedMembers(t *testing.T) {
	ctx := context.Background()
	v := fixedPropfind(t, `<?xml version="1.0" encoding="utf-8"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/dir/</D:href>
    <D:propstat>
      <D:prop><D:resourcetype><D:collection/></D:resourcetype></D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
  <D:response>
    <D:href>/dir/open.txt</D:href>
    <D:propstat>
      <D:prop><D:getcontentlength>3</D:getcontentlength><D:resourcetype/></D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
  <D:response>
    <D:href>/dir/secret/</D:href>
    <D:status>HTTP/1.1 403 Forbidden</D:status>
  </D:response>
</D:multistatus>`)

	infos, err := v.ReadDir(ctx, "dir")
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	if diff := cmp.Diff([]string{"open.txt"}, names); diff != "" {
		t.Fatalf("listing mismatch (-want +got):\n%s", diff)
	}
	if infos[0].Size() != 3 {
		t.Fatalf("open.txt size = %d", infos[0].Size())
	}
}

func TestReadDirFailedSelf(t *testing.T) {
	v := fixedPropfind(t, `<?xml version="1.0" encoding="utf-8"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/dir/</D:href>
    <D:status>HTTP/1.1 403 Forbidden</D:status>
  </D:response>
</D:multistatus>`)

	if _, err := v.ReadDir(context.Background(), "dir"); !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("ReadDir err = %v, want ErrPermission", err)
	}
}

func TestMkdirRules(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	err := e.fs.Mkdir(ctx, "a/b/c", true)
	if !errors.Is(err, ErrRecursiveMkdir) {
		t.Fatalf("recursive err = %v", err)
	}
	if err.(*os.PathError).Err.Error() != "does not allow creating directories recursively" {
		t.Fatalf("message = %q", err.(*os.PathError).Err.Error())
	}
	if err := e.fs.Mkdir(ctx, "a/b", false); err == nil {
		t.Fatalf("nested Mkdir without parent must fail")
	}
	if err := e.fs.Mkdir(ctx, "a", false); err != nil {
		t.Fatal(err)
	}
	if err := e.fs.Mkdir(ctx, "a", false); !errors.Is(err, fs.ErrExist) {
		t.Fatalf("second Mkdir err = %v", err)
	}
	if err := e.fs.Rmdir(ctx, "a"); err != nil {
		t.Fatalf("Rmdir: %v", err)
	}
	if _, err := e.peer.Stat("/a"); !gowebdav.IsErrNotFound(err) {
		t.Fatalf("directory still present: %v", err)
	}
}

func TestRmdirOnFile(t *testing.T) {
	e := newEnv(t)
	if err := e.backend.Set("f.txt", nil); err != nil {
		t.Fatal(err)
	}
	if err := e.fs.Rmdir(context.Background(), "f.txt"); !errors.Is(err, ErrNotDir) {
		t.Fatalf("err = %v", err)
	}
}

func TestRenameAndUnlink(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if err := e.backend.Set("dir/old.txt", []byte("x")); err != nil {
		t.Fatal(err)
	}
	if err := e.backend.Set("dir/taken.txt", []byte("y")); err != nil {
		t.Fatal(err)
	}

	if err := e.fs.Rename(ctx, "dir/old.txt", "dir/taken.txt"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if data, ok := e.backend.Get("dir/taken.txt"); !ok || string(data) != "x" {
		t.Fatalf("rename target = %q", data)
	}
	if err := e.fs.Rename(ctx, "dir", "moved"); err != nil {
		t.Fatalf("Rename(dir): %v", err)
	}
	if _, ok := e.backend.Get("moved/taken.txt"); !ok {
		t.Fatalf("collection members were not moved")
	}

	if err := e.fs.Unlink(ctx, "moved/taken.txt"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if err := e.fs.Unlink(ctx, "moved/taken.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("second Unlink err = %v", err)
	}
}

func TestRenameOpenHandles(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if err := e.backend.Set("a.txt", []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if err := e.backend.Set("d/c.txt", []byte("c1")); err != nil {
		t.Fatal(err)
	}

	locked, err := e.fs.Open(ctx, "a.txt", "w")
	if err != nil {
		t.Fatal(err)
	}
	if err := locked.Lock(ctx, lock.Exclusive); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	held, _ := locked.Locked()
	if _, err := locked.Write([]byte("v2")); err != nil {
		t.Fatal(err)
	}
	plain, err := e.fs.Open(ctx, "d/c.txt", "w")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := plain.Write([]byte("c2")); err != nil {
		t.Fatal(err)
	}

	if err := e.fs.Rename(ctx, "a.txt", "b.txt"); err != nil {
		t.Fatalf("Rename(file): %v", err)
	}
	if err := e.fs.Rename(ctx, "d", "e"); err != nil {
		t.Fatalf("Rename(dir): %v", err)
	}
	if _, ok := locked.Locked(); ok {
		t.Fatalf("lock survived the move")
	}

	if err := locked.Close(); err != nil {
		t.Fatalf("Close(renamed locked): %v", err)
	}
	if err := plain.Close(); err != nil {
		t.Fatalf("Close(renamed plain): %v", err)
	}

	for key, want := range map[string]string{"b.txt": "v2", "e/c.txt": "c2"} {
		if data, ok := e.backend.Get(key); !ok || string(data) != want {
			t.Fatalf("%s = %q, %v; want %q", key, data, ok, want)
		}
	}
	for _, key := range []string{"a.txt", "d/c.txt"} {
		if _, ok := e.backend.Get(key); ok {
			t.Fatalf("%s was recreated at its old path", key)
		}
	}

	unlocks := e.backend.Requests(webdav.UNLOCK)
	if len(unlocks) != 1 || unlocks[0].Path != "/a.txt" || unlocks[0].Header.Get("Lock-Token") != "<"+held.Token+">" {
		t.Fatalf("UNLOCK requests = %+v", unlocks)
	}
	if len(e.fs.Registry().Tokens("")) != 0 {
		t.Fatalf("registry still holds tokens after the move")
	}
}

func TestLockRefreshUnlock(t *testing.T) {
	e := newEnv(t, WithLockOwner("tester"), WithLockTimeout(timeout.FromSeconds(300)))
	ctx := context.Background()
	if err := e.backend.Set("locked.txt", []byte("v1")); err != nil {
		t.Fatal(err)
	}

	f, err := e.fs.Open(ctx, "locked.txt", "w")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Lock(ctx, lock.Exclusive); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	held, ok := f.Locked()
	if !ok || held.Token == "" {
		t.Fatalf("no token after Lock")
	}
	token := held.Token

	if err := f.Lock(ctx, lock.Exclusive); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if again, _ := f.Locked(); again.Token != token {
		t.Fatalf("refresh changed token %q -> %q", token, again.Token)
	}
	if err := f.Lock(ctx, lock.Shared); !errors.Is(err, lock.ErrScopeChange) {
		t.Fatalf("scope change err = %v", err)
	}

	// another handle of this adapter is refused locally
	other, err := e.fs.Open(ctx, "locked.txt", "r")
	if err != nil {
		t.Fatal(err)
	}
	if err := other.Lock(ctx, lock.Exclusive); err == nil {
		t.Fatalf("second exclusive lock must fail")
	}
	other.Close()

	// a peer without the token is rejected by the server
	if err := e.peer.Write("/locked.txt", []byte("peer"), 0o644); err == nil {
		t.Fatalf("peer write to a locked file succeeded")
	}

	if _, err := f.Write([]byte("v2")); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	puts := e.backend.Requests(webdav.PUT)
	last := puts[len(puts)-1]
	if last.Header.Get("If") != "(<"+token+">)" {
		t.Fatalf("PUT If header = %q", last.Header.Get("If"))
	}
	unlocks := e.backend.Requests(webdav.UNLOCK)
	if len(unlocks) != 1 || unlocks[0].Header.Get("Lock-Token") != "<"+token+">" {
		t.Fatalf("UNLOCK requests = %+v", unlocks)
	}
	if data, _ := e.backend.Get("locked.txt"); string(data) != "v2" {
		t.Fatalf("content = %q", data)
	}
	if len(e.fs.Registry().Tokens("")) != 0 {
		t.Fatalf("registry still holds tokens after Close")
	}
}

func TestUnlinkLockedByHolder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if err := e.backend.Set("held.txt", []byte("x")); err != nil {
		t.Fatal(err)
	}

	f, err := e.fs.Open(ctx, "held.txt", "r")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Lock(ctx, lock.Exclusive); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	held, _ := f.Locked()

	if err := e.fs.Unlink(ctx, "held.txt"); err != nil {
		t.Fatalf("Unlink by holder: %v", err)
	}
	deletes := e.backend.Requests(webdav.DELETE)
	if got := deletes[len(deletes)-1].Header.Get("If"); got != "(<"+held.Token+">)" {
		t.Fatalf("DELETE If header = %q", got)
	}
	_ = f.Close()
}

func TestExplicitUnlock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if err := e.backend.Set("u.txt", []byte("x")); err != nil {
		t.Fatal(err)
	}
	f, err := e.fs.Open(ctx, "u.txt", "r")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := f.Unlock(ctx); err != nil {
		t.Fatalf("Unlock without lock: %v", err)
	}
	if err := f.Lock(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if err := f.Unlock(ctx); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if _, ok := f.Locked(); ok {
		t.Fatalf("token kept after Unlock")
	}
	if err := e.peer.Write("/u.txt", []byte("free"), 0o644); err != nil {
		t.Fatalf("write after unlock: %v", err)
	}
}

func TestTransportFailure(t *testing.T) {
	srv, _ := memserver.NewTestServer()
	c, err := webdav.NewClient(srv.URL, webdav.WithTransport(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	srv.Close()

	_, err = New(c).Stat(context.Background(), "x")
	if !errors.Is(err, failure.ErrTransport) {
		t.Fatalf("err = %v", err)
	}
}

func TestTruncateWithoutHandle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.backend.Set("/log.txt", []byte("0123456789"))

	if err := e.fs.Truncate(ctx, "/log.txt", 4); err != nil {
		t.Fatalf("Truncate(4): %v", err)
	}
	if got, _ := e.backend.Get("/log.txt"); string(got) != "0123" {
		t.Fatalf("after Truncate(4) = %q", got)
	}

	gets := len(e.backend.Requests(webdav.GET))
	if err := e.fs.Truncate(ctx, "log.txt", 0); err != nil {
		t.Fatalf("Truncate(0): %v", err)
	}
	if n := len(e.backend.Requests(webdav.GET)); n != gets {
		t.Fatalf("Truncate(0) downloaded the file")
	}
	if got, _ := e.backend.Get("/log.txt"); len(got) != 0 {
		t.Fatalf("after Truncate(0) = %q", got)
	}

	if err := e.fs.Truncate(ctx, "/missing.txt", 3); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Truncate(missing) = %v, want ErrNotExist", err)
	}
}
