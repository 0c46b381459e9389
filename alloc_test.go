package malloc

import (
	"bytes"
	"math"
	"testing"

	"github.com/cznic/mathutil"
)

func TestMallocReturnsExactLengthAndCapacity(t *testing.T) {
	var a Allocator
	b, err := a.Malloc(100)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 100 || cap(b) != 100 {
		t.Fatalf("len=%d cap=%d, want 100, 100", len(b), cap(b))
	}
	a.Free(b)
}

func TestFreeAcceptsReslicedZeroLength(t *testing.T) {
	var a Allocator
	b, err := a.Malloc(64)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.selfCheck(); err != nil {
		t.Fatal(err)
	}
	a.Free(b[:0]) // capacity, not length, must identify the allocation
	if n := liveBlocks(&a); n != 0 {
		t.Fatalf("%d blocks still in use after freeing a reslice-to-zero allocation", n)
	}
}

func TestFreeNilSliceIsNoOp(t *testing.T) {
	var a Allocator
	a.Free(nil)
}

func TestCallocSlice(t *testing.T) {
	var a Allocator
	b, err := a.Calloc(10, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 40 {
		t.Fatalf("len = %d, want 40", len(b))
	}
	for i, c := range b {
		if c != 0 {
			t.Fatalf("byte %d not zeroed", i)
		}
	}
	a.Free(b)
}

func TestReallocSlicePreservesOverlap(t *testing.T) {
	var a Allocator
	b, err := a.Malloc(8)
	if err != nil {
		t.Fatal(err)
	}
	copy(b, []byte("12345678"))

	b, err = a.Realloc(b, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b[:8], []byte("12345678")) {
		t.Fatalf("Realloc lost the original contents: %q", b[:8])
	}
	a.Free(b)
}

func TestReallocSliceToZeroFrees(t *testing.T) {
	var a Allocator
	b, err := a.Malloc(16)
	if err != nil {
		t.Fatal(err)
	}
	b, err = a.Realloc(b, 0)
	if err != nil {
		t.Fatal(err)
	}
	if b != nil {
		t.Fatal("Realloc(b, 0) should return a nil slice")
	}
	if n := liveBlocks(&a); n != 0 {
		t.Fatalf("%d blocks still in use after Realloc to 0", n)
	}
}

func TestUsableSizeSlice(t *testing.T) {
	var a Allocator
	b, err := a.Malloc(10)
	if err != nil {
		t.Fatal(err)
	}
	if got := a.UsableSize(b); got < 10 {
		t.Fatalf("UsableSize = %d, want >= 10", got)
	}
	if got := a.UsableSize(nil); got != 0 {
		t.Fatalf("UsableSize(nil) = %d, want 0", got)
	}
	a.Free(b)
}

// stress mirrors the allocate/verify/free stress pattern: a
// deterministic PRNG drives a quota-bounded sequence of Mallocs, each
// filled with a recognizable pattern, then every allocation is replayed
// in the same order to check its contents survived untouched before
// being freed.
func stress(t *testing.T, quota, max int) {
	var a Allocator
	rem := quota
	var bufs [][]byte

	rng, err := mathutil.NewFC32(0, math.MaxInt32, true)
	if err != nil {
		t.Fatal(err)
	}
	rng.Seed(42)
	pos := rng.Pos()

	for rem > 0 {
		size := rng.Next()%max + 1
		rem -= size
		b, err := a.Malloc(size)
		if err != nil {
			t.Fatal(err)
		}
		bufs = append(bufs, b)
		for i := range b {
			b[i] = byte(rng.Next())
		}
	}

	rng.Seek(pos)
	for i, b := range bufs {
		if want := rng.Next()%max + 1; len(b) != want {
			t.Fatalf("alloc %d: len %d, want %d", i, len(b), want)
		}
		for j, got := range b {
			if want := byte(rng.Next()); got != want {
				t.Fatalf("alloc %d byte %d: got %#02x, want %#02x", i, j, got, want)
			}
		}
	}

	for _, b := range bufs {
		a.Free(b)
	}
	if n := liveBlocks(&a); n != 0 {
		t.Fatalf("%d blocks still in use after freeing every stress allocation", n)
	}
}

func TestStressSmall(t *testing.T) { stress(t, 1<<20, 2*osPageSize) }
func TestStressTiny(t *testing.T)  { stress(t, 1<<18, tinyMaxSize) }
