package buffer

import (
	"errors"
	"io"
	"testing"
)

func TestFileBuffer_WriteAppendRead(t *testing.T) {
	var fb FileBuffer

	if _, err := fb.WriteAt([]byte("BASE"), 0); err != nil {
		t.Fatalf("WriteAt(BASE,0) failed: %v", err)
	}
	if _, err := fb.WriteAt([]byte("A"), 4); err != nil {
		t.Fatalf("WriteAt(A,4) failed: %v", err)
	}
	if string(fb.Bytes()) != "BASEA" {
		t.Fatalf("buffer content: want %q got %q", "BASEA", fb.Bytes())
	}
	if !fb.Dirty() {
		t.Fatalf("writes should mark the buffer dirty")
	}

	out := make([]byte, 5)
	n, err := fb.ReadAt(out, 0)
	if err != nil || n != 5 || string(out) != "BASEA" {
		t.Fatalf("ReadAt = %d %q %v", n, out, err)
	}
}

func TestFileBuffer_OverwriteWithin(t *testing.T) {
	fb := New([]byte("HELLO"))
	if fb.Dirty() {
		t.Fatalf("a fetched image starts clean")
	}
	if _, err := fb.WriteAt([]byte("i"), 1); err != nil {
		t.Fatalf("WriteAt overwrite failed: %v", err)
	}
	if string(fb.Bytes()) != "HiLLO" {
		t.Fatalf("overwrite result: want %q got %q", "HiLLO", fb.Bytes())
	}
}

func TestFileBuffer_SparseWrite(t *testing.T) {
	var fb FileBuffer

	if _, err := fb.WriteAt([]byte("B"), 2); err != nil {
		t.Fatalf("WriteAt(B,2) failed: %v", err)
	}
	got := fb.Bytes()
	if len(got) != 3 || got[0] != 0 || got[1] != 0 || got[2] != 'B' {
		t.Fatalf("sparse data: got %v", got)
	}
}

func TestFileBuffer_ReadAtEOF(t *testing.T) {
	fb := New([]byte("DATA"))

	p := make([]byte, 5)
	n, err := fb.ReadAt(p, 2)
	if n != 2 || !errors.Is(err, io.EOF) || string(p[:n]) != "TA" {
		t.Fatalf("short read = %d %q %v", n, p[:n], err)
	}
	if _, err := fb.ReadAt(p, 4); !errors.Is(err, io.EOF) {
		t.Fatalf("read at end: %v", err)
	}
	if _, err := fb.ReadAt(p, -1); !errors.Is(err, ErrNegativeOffset) {
		t.Fatalf("negative offset: %v", err)
	}
}

func TestFileBuffer_Truncate(t *testing.T) {
	fb := New([]byte("HELLO"))

	if err := fb.Truncate(2); err != nil {
		t.Fatal(err)
	}
	if string(fb.Bytes()) != "HE" || !fb.Dirty() {
		t.Fatalf("shrink: %q dirty=%v", fb.Bytes(), fb.Dirty())
	}
	if err := fb.Truncate(4); err != nil {
		t.Fatal(err)
	}
	if got := fb.Bytes(); len(got) != 4 || got[3] != 0 {
		t.Fatalf("grow: %v", got)
	}
	if err := fb.Truncate(-1); !errors.Is(err, ErrNegativeLength) {
		t.Fatalf("negative size: %v", err)
	}
}

func TestFileBuffer_ClearAndCopy(t *testing.T) {
	fb := New([]byte("DATA"))

	cp := fb.Bytes()
	cp[0] = 'X'
	if string(fb.Bytes()) != "DATA" {
		t.Fatalf("Bytes must return a copy")
	}

	fb.Clear()
	if fb.Size() != 0 || fb.Dirty() {
		t.Fatalf("after Clear size=%d dirty=%v", fb.Size(), fb.Dirty())
	}
	if len(fb.Bytes()) != 0 {
		t.Fatalf("after Clear expected empty image")
	}
}
