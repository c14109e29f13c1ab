package locking

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAddCheckRemove(t *testing.T) {
	r := NewRegistry()

	r.Add(Held{Path: "file", Token: "t1", Owner: 1, Exclusive: true})

	// another handle is blocked while owner 1 holds an exclusive lock
	if err := r.Check("file", 2, false); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("expected ErrWouldBlock, got %v", err)
	}
	// the owner itself is never blocked
	if err := r.Check("file", 1, true); err != nil {
		t.Fatalf("owner check: %v", err)
	}

	if _, err := r.Remove("file", 2); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner on release by non-owner, got %v", err)
	}

	h, err := r.Remove("file", 1)
	if err != nil || h.Token != "t1" {
		t.Fatalf("Remove = %+v, %v", h, err)
	}
	if err := r.Check("file", 2, true); err != nil {
		t.Fatalf("check after release: %v", err)
	}
	if _, ok := r.owned("file", 1); ok {
		t.Fatalf("token still owned after Remove")
	}
}

func TestSharedLocks(t *testing.T) {
	r := NewRegistry()
	r.Add(Held{Path: "doc", Token: "s1", Owner: 1})

	if err := r.Check("doc", 2, false); err != nil {
		t.Fatalf("shared vs shared: %v", err)
	}
	if err := r.Check("doc", 2, true); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("exclusive vs shared: %v", err)
	}
}

func TestAddReplacesOwnerToken(t *testing.T) {
	r := NewRegistry()
	r.Add(Held{Path: "doc", Token: "old", Owner: 7})
	r.Add(Held{Path: "doc", Token: "new", Owner: 7})

	if diff := cmp.Diff([]string{"new"}, r.Tokens("doc")); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestTokensAndDrop(t *testing.T) {
	r := NewRegistry()
	r.Add(Held{Path: "dir/b.txt", Token: "tb", Owner: 1})
	r.Add(Held{Path: "dir/a.txt", Token: "ta", Owner: 2})
	r.Add(Held{Path: "dirx/c.txt", Token: "tc", Owner: 3})

	if diff := cmp.Diff([]string{"ta", "tb"}, r.Tokens("dir")); diff != "" {
		t.Fatalf("Tokens(dir) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ta", "tb", "tc"}, r.Tokens("")); diff != "" {
		t.Fatalf("Tokens(root) mismatch (-want +got):\n%s", diff)
	}
	if got := r.Tokens("missing"); len(got) != 0 {
		t.Fatalf("Tokens(missing) = %v", got)
	}

	dropped := r.Drop("dir/")
	if len(dropped) != 2 {
		t.Fatalf("dropped = %+v", dropped)
	}
	if diff := cmp.Diff([]string{"tc"}, r.Tokens("")); diff != "" {
		t.Fatalf("after drop (-want +got):\n%s", diff)
	}
}
