package memserver

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"strings"
	"sync"

	"golang.org/x/net/webdav"

	"github.com/davmount/internal/core/davlocks"
)

// Recorded is one request as the server received it.
type Recorded struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// in-memory RFC 4918 server used by tests. Every request is recorded
// before being served.
type MemBackend struct {
	mu   sync.Mutex
	fs   webdav.FileSystem
	ls   webdav.LockSystem
	reqs []Recorded
}

func NewMemBackend() *MemBackend {
	return &MemBackend{fs: webdav.NewMemFS(), ls: davlocks.NewMem()}
}

func (b *MemBackend) Reset() {
	b.mu.Lock()
	b.fs = webdav.NewMemFS()
	b.ls = davlocks.NewMem()
	b.reqs = nil
	b.mu.Unlock()
}

// Set stores val under key, creating missing parent collections.
func (b *MemBackend) Set(key string, val []byte) error {
	ctx := context.Background()
	name := "/" + strings.TrimPrefix(key, "/")

	b.mu.Lock()
	fs := b.fs
	b.mu.Unlock()

	dir := "/"
	for _, part := range strings.Split(strings.Trim(path.Dir(name), "/"), "/") {
		if part == "" {
			continue
		}
		dir = path.Join(dir, part)
		if err := fs.Mkdir(ctx, dir, 0o755); err != nil && !os.IsExist(err) {
			return err
		}
	}

	f, err := fs.OpenFile(ctx, name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(val); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (b *MemBackend) Get(key string) ([]byte, bool) {
	b.mu.Lock()
	fs := b.fs
	b.mu.Unlock()

	f, err := fs.OpenFile(context.Background(), "/"+strings.TrimPrefix(key, "/"), os.O_RDONLY, 0)
	if err != nil {
		return nil, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Mkdir creates one collection.
func (b *MemBackend) Mkdir(key string) error {
	b.mu.Lock()
	fs := b.fs
	b.mu.Unlock()
	return fs.Mkdir(context.Background(), "/"+strings.Trim(key, "/"), 0o755)
}

// Requests returns the recorded requests, optionally filtered by method.
func (b *MemBackend) Requests(methods ...string) []Recorded {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Recorded
	for _, r := range b.reqs {
		if len(methods) == 0 || contains(methods, r.Method) {
			out = append(out, r)
		}
	}
	return out
}

// Last returns the most recent request.
func (b *MemBackend) Last() (Recorded, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.reqs) == 0 {
		return Recorded{}, false
	}
	return b.reqs[len(b.reqs)-1], true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (b *MemBackend) handler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusInternalServerError)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	b.mu.Lock()
	b.reqs = append(b.reqs, Recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
	h := &webdav.Handler{FileSystem: b.fs, LockSystem: b.ls}
	b.mu.Unlock()

	h.ServeHTTP(w, r)
}

func NewTestServer() (*httptest.Server, *MemBackend) {
	b := NewMemBackend()
	s := httptest.NewServer(http.HandlerFunc(b.handler))
	return s, b
}
