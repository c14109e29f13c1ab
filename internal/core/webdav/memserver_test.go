package webdav

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"slices"
	"testing"

	"github.com/davmount/internal/core/failure"
	"github.com/davmount/internal/core/header"
	"github.com/davmount/internal/core/lock"
	"github.com/davmount/internal/core/timeout"
	"github.com/davmount/test/utils/memserver"
)

func newMemClient(t *testing.T, opts ...Option) (*Client, *memserver.MemBackend) {
	t.Helper()
	srv, backend := memserver.NewTestServer()
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, append([]Option{WithTransport(srv.Client())}, opts...)...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, backend
}

func TestMemMkcol(t *testing.T) {
	c, _ := newMemClient(t)
	ctx := context.Background()

	res, err := c.Mkcol(ctx, "docs")
	if err != nil || !res.Value || res.Status() != http.StatusCreated {
		t.Fatalf("first MKCOL = %v, %d, %v", res.Value, res.Status(), err)
	}

	res, err = c.Mkcol(ctx, "docs")
	if err != nil {
		t.Fatalf("second MKCOL: %v", err)
	}
	if res.Value || res.Status() != http.StatusMethodNotAllowed {
		t.Fatalf("second MKCOL = %v, %d", res.Value, res.Status())
	}
	if res.Err.Explain() != "The resource already exists" || !errors.Is(res.Err, fs.ErrExist) {
		t.Fatalf("err = %+v", res.Err)
	}

	res, _ = c.Mkcol(ctx, "missing/child")
	if res.Status() != http.StatusConflict {
		t.Fatalf("nested MKCOL status = %d", res.Status())
	}
	if res.Err.Explain() != "Cannot create a resource if all ancestors do not already exist" {
		t.Fatalf("description = %q", res.Err.Explain())
	}
}

func TestMemOptions(t *testing.T) {
	c, _ := newMemClient(t)

	res, err := c.ComplianceClasses(context.Background(), "")
	if err != nil {
		t.Fatalf("ComplianceClasses: %v", err)
	}
	if !slices.Contains(res.Value, "1") || !slices.Contains(res.Value, "2") {
		t.Fatalf("classes = %v", res.Value)
	}

	methods, err := c.SupportedMethods(context.Background(), "")
	if err != nil {
		t.Fatalf("SupportedMethods: %v", err)
	}
	if !slices.Contains(methods.Value, "PROPFIND") {
		t.Fatalf("methods = %v", methods.Value)
	}
}

func TestMemPutGetPropfind(t *testing.T) {
	c, backend := newMemClient(t)
	ctx := context.Background()

	if res, err := c.Mkcol(ctx, "dir"); err != nil || !res.Value {
		t.Fatalf("Mkcol: %v %v", res.Value, err)
	}
	if res, err := c.Put(ctx, "dir/a.txt", []byte("alpha"), PutOptions{ContentType: "text/plain"}); err != nil || !res.Value {
		t.Fatalf("Put: %v %v", res.Value, err)
	}
	if data, ok := backend.Get("dir/a.txt"); !ok || string(data) != "alpha" {
		t.Fatalf("server holds %q", data)
	}

	got, err := c.Get(ctx, "dir/a.txt")
	if err != nil || string(got.Value) != "alpha" {
		t.Fatalf("Get = %q, %v", got.Value, err)
	}

	exists, _ := c.Exists(ctx, "dir/nope.txt")
	if exists.Value {
		t.Fatalf("nope.txt should not exist")
	}

	list, err := c.Propfind(ctx, "dir/", PropfindOptions{
		Depth:      header.DepthOne,
		Properties: []string{"D:resourcetype", "D:getcontentlength"},
	})
	if err != nil {
		t.Fatalf("Propfind: %v", err)
	}
	if len(list.Value.Responses) != 2 {
		t.Fatalf("expected container and one child, got %d", len(list.Value.Responses))
	}
	var sawFile bool
	for _, r := range list.Value.Responses {
		if r.Href() == "/dir/a.txt" {
			sawFile = true
			if r.IsCollection() || r.ContentLength() != 5 {
				t.Errorf("a.txt: collection=%v length=%d", r.IsCollection(), r.ContentLength())
			}
		}
	}
	if !sawFile {
		t.Fatalf("listing misses /dir/a.txt")
	}
}

func TestMemCopyMove(t *testing.T) {
	c, backend := newMemClient(t)
	ctx := context.Background()
	if err := backend.Set("src.txt", []byte("payload")); err != nil {
		t.Fatal(err)
	}

	if res, err := c.Copy(ctx, "src.txt", "copy.txt", CopyOptions{}); err != nil || !res.Value {
		t.Fatalf("Copy: %v %v", res.Value, err)
	}
	if res, err := c.Move(ctx, "copy.txt", "moved.txt", CopyOptions{}); err != nil || !res.Value {
		t.Fatalf("Move: %v %v (%d)", res.Value, err, res.Status())
	}
	if data, ok := backend.Get("moved.txt"); !ok || string(data) != "payload" {
		t.Fatalf("moved.txt = %q", data)
	}

	res, _ := c.Copy(ctx, "src.txt", "moved.txt", CopyOptions{NoOverwrite: true})
	if res.Value || res.Status() != http.StatusPreconditionFailed {
		t.Fatalf("no-overwrite copy = %v, %d", res.Value, res.Status())
	}
}

func TestMemLockLifecycle(t *testing.T) {
	c, backend := newMemClient(t)
	ctx := context.Background()
	if err := backend.Set("doc.txt", []byte("v1")); err != nil {
		t.Fatal(err)
	}

	created, err := c.CreateLock(ctx, "doc.txt", LockOptions{
		Scope:    lock.Exclusive,
		Owner:    "http://example.org/~me",
		Timeouts: []timeout.Value{timeout.MustNew("4100000000")},
	})
	if err != nil {
		t.Fatalf("CreateLock: %v", err)
	}
	l := created.Value
	if l.Token == "" || !l.IsExclusive() || l.IsDeep() {
		t.Fatalf("lock = %+v", l)
	}
	if l.Timeout().String() != "4100000000" {
		t.Fatalf("timeout = %s", l.Timeout())
	}

	res, _ := c.Put(ctx, "doc.txt", []byte("v2"), PutOptions{})
	if res.Status() != http.StatusLocked {
		t.Fatalf("PUT without token = %d", res.Status())
	}
	if res, err := c.Put(ctx, "doc.txt", []byte("v2"), PutOptions{LockTokens: []string{l.Token}}); err != nil || !res.Value {
		t.Fatalf("PUT with token = %v, %v (%d)", res.Value, err, res.Status())
	}

	refreshed, err := c.RefreshLock(ctx, "doc.txt", l.Token, timeout.FromSeconds(60))
	if err != nil {
		t.Fatalf("RefreshLock: %v", err)
	}
	if refreshed.Value.Token != l.Token || refreshed.Value.Timeout().String() != "60" {
		t.Fatalf("refreshed = %+v", refreshed.Value)
	}

	if res, err := c.ReleaseLock(ctx, "doc.txt", l.Token); err != nil || !res.Value {
		t.Fatalf("ReleaseLock = %v, %v (%d)", res.Value, err, res.Status())
	}
	if res, _ := c.Delete(ctx, "doc.txt", DeleteOptions{}); !res.Value {
		t.Fatalf("DELETE after unlock = %d", res.Status())
	}

	unlocks := backend.Requests(UNLOCK)
	if len(unlocks) != 1 || unlocks[0].Header.Get("Lock-Token") != "<"+l.Token+">" {
		t.Fatalf("UNLOCK requests = %+v", unlocks)
	}
}

func TestMemThrowErrors(t *testing.T) {
	c, _ := newMemClient(t, WithThrowErrors(true))

	_, err := c.Get(context.Background(), "absent.txt")
	if !errors.Is(err, failure.ErrClientFailure) || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist client failure, got %v", err)
	}
}
