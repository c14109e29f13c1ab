package locking

import (
	"errors"
	"slices"
	"strings"
	"sync"
)

var (
	ErrWouldBlock = errors.New("lock would block")
	ErrNotOwner   = errors.New("not lock owner")
)

// Held describes a WebDAV lock token held by one open handle.
type Held struct {
	Path      string
	Token     string
	Owner     uint64
	Exclusive bool
}

type lockList struct {
	locks []Held
}

// Registry tracks the lock tokens this process holds, keyed by
// base-relative path, so later requests can present them in If headers.
type Registry struct {
	mu    sync.Mutex
	table map[string]*lockList
}

func NewRegistry() *Registry {
	return &Registry{table: make(map[string]*lockList)}
}

// Check reports ErrWouldBlock if another owner already holds a lock on path
// that conflicts with the requested scope. Nothing is recorded.
func (r *Registry) Check(path string, owner uint64, exclusive bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.table[path]
	if !ok {
		return nil
	}
	for _, h := range l.locks {
		if h.Owner == owner {
			continue
		}
		// shared vs shared ok
		if h.Exclusive || exclusive {
			return ErrWouldBlock
		}
	}
	return nil
}

// Add records a token the server granted. An owner holds at most one
// token per path; a second Add replaces the first.
func (r *Registry) Add(h Held) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.table[h.Path]
	if !ok {
		l = &lockList{}
		r.table[h.Path] = l
	}
	l.locks = slices.DeleteFunc(l.locks, func(e Held) bool { return e.Owner == h.Owner })
	l.locks = append(l.locks, h)
}

// owned returns the token owner holds on path.
func (r *Registry) owned(path string, owner uint64) (Held, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.table[path]; ok {
		for _, h := range l.locks {
			if h.Owner == owner {
				return h, true
			}
		}
	}
	return Held{}, false
}

// Remove forgets the token owner holds on path and returns it.
func (r *Registry) Remove(path string, owner uint64) (Held, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.table[path]
	if !ok {
		return Held{}, ErrNotOwner
	}
	i := slices.IndexFunc(l.locks, func(e Held) bool { return e.Owner == owner })
	if i < 0 {
		return Held{}, ErrNotOwner
	}
	h := l.locks[i]
	l.locks = slices.Delete(l.locks, i, i+1)
	if len(l.locks) == 0 {
		delete(r.table, path)
	}
	return h, nil
}

// Drop forgets every token on path and below it. Used after the server
// discards locks, e.g. when the resource was moved or deleted.
func (r *Registry) Drop(path string) []Held {
	r.mu.Lock()
	defer r.mu.Unlock()

	var dropped []Held
	for key, l := range r.table {
		if within(key, path) {
			dropped = append(dropped, l.locks...)
			delete(r.table, key)
		}
	}
	return dropped
}

// Tokens lists the tokens held on path and on everything below it, in a
// stable order.
func (r *Registry) Tokens(path string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var keys []string
	for key := range r.table {
		if within(key, path) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	var tokens []string
	for _, key := range keys {
		for _, h := range r.table[key].locks {
			if !slices.Contains(tokens, h.Token) {
				tokens = append(tokens, h.Token)
			}
		}
	}
	return tokens
}

func within(key, path string) bool {
	path = strings.TrimSuffix(path, "/")
	key = strings.TrimSuffix(key, "/")
	if path == "" || key == path {
		return true
	}
	return strings.HasPrefix(key, path+"/")
}
