package malloc

import (
	"fmt"
	"os"
	"sync"
	"unsafe"
)

// Allocator allocates and frees memory from OS-mapped regions. Its zero
// value is ready for use. Constructing more than one gives independent
// heaps backed by independent region lists — useful in tests that must
// not interfere with each other or with the package-level default.
type Allocator struct {
	mu  sync.Mutex
	reg registry
}

// defaultAllocator backs the bare package-level functions, giving this
// package parity with the C API's implicit single process-wide heap.
var defaultAllocator Allocator

// UnsafeMalloc allocates size bytes and returns a pointer to them, or an
// error if the request exceeds MaxAllocSize or the OS refused a mapping.
// A size of 0 is normalized to 1. A negative size panics; every other
// failure returns (nil, err).
func (a *Allocator) UnsafeMalloc(size int) (r unsafe.Pointer, err error) {
	if trace {
		defer func() { fmt.Fprintf(os.Stderr, "Malloc(%#x) %p, %v\n", size, r, err) }()
	}

	if size < 0 {
		panic("invalid malloc size")
	}
	if size == 0 {
		size = 1
	}
	size = roundup(size, alignment)
	if err := checkAllocSize(size); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	class := classify(size)
	r, _, err = a.mallocLocked(class, size)
	return r, err
}

// mallocLocked performs the find-or-create-region, find-or-split-block
// sequence. Caller must hold a.mu.
func (a *Allocator) mallocLocked(class sizeClass, size int) (unsafe.Pointer, *block, error) {
	reg, b, err := a.reg.classifyAndFind(class, size)
	if err != nil {
		return nil, nil, err
	}

	if class != classLarge {
		old := b.size
		b = splitBlock(reg, b, size)
		if b.size == old {
			reg.free -= blockHeaderSize + old
		} else {
			reg.free -= blockHeaderSize + size
		}
		b.free = false
		reg.used++
	}

	return b.payload(), b, nil
}

// UnsafeFree deallocates memory acquired from UnsafeMalloc, UnsafeCalloc
// or UnsafeRealloc. A nil pointer is a no-op; a pointer not owned by
// this allocator, or already freed, is silently dropped: invalid
// arguments never panic and never abort the process.
func (a *Allocator) UnsafeFree(p unsafe.Pointer) {
	var err error
	if trace {
		defer func() { fmt.Fprintf(os.Stderr, "Free(%p) %v\n", p, err) }()
	}

	if p == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	err = a.freeLocked(p)
}

// freeLocked validates p, marks its block free, folds it into any free
// neighbors, and releases the owning region if a Large region just went
// empty. Caller must hold a.mu.
func (a *Allocator) freeLocked(p unsafe.Pointer) error {
	reg := a.reg.findRegion(p)
	if reg == nil {
		return errInvalidPointer
	}

	b := blockFromPayload(p)
	if !reg.contains(unsafe.Pointer(b)) || b.magic != magic || b.free {
		return errInvalidPointer
	}

	b.free = true
	reg.free += blockHeaderSize + b.size
	reg.used--
	coalesce(reg, b)

	if reg.class == classLarge && reg.used == 0 {
		return a.reg.releaseLarge(reg)
	}
	return nil
}

// UnsafeRealloc changes the size of the allocation at p to size bytes,
// preserving the overlap of the old and new extents. A nil p behaves as
// UnsafeMalloc(size); a size of 0 behaves as UnsafeFree(p) and returns
// nil. If the block can't be grown or shrunk in place, a fresh block is
// allocated, the overlap copied, and the old block freed; the original
// pointer is left untouched if that fresh allocation fails.
func (a *Allocator) UnsafeRealloc(p unsafe.Pointer, size int) (r unsafe.Pointer, err error) {
	if trace {
		defer func() { fmt.Fprintf(os.Stderr, "Realloc(%p, %#x) %p, %v\n", p, size, r, err) }()
	}

	switch {
	case p == nil:
		return a.UnsafeMalloc(size)
	case size == 0:
		a.UnsafeFree(p)
		return nil, nil
	}
	if err := checkAllocSize(size); err != nil {
		return nil, err
	}

	a.mu.Lock()

	reg := a.reg.findRegion(p)
	if reg == nil {
		a.mu.Unlock()
		return nil, errInvalidPointer
	}
	b := blockFromPayload(p)
	if !reg.contains(unsafe.Pointer(b)) || b.magic != magic || b.free {
		a.mu.Unlock()
		return nil, errInvalidPointer
	}

	needed := roundup(size, alignment)

	// Case 1: already big enough; shrink in place via split if the
	// surplus is worth carving off into its own free block, which is then
	// folded into a free forward neighbor if there is one.
	if b.size >= needed {
		old := b.size
		b = splitBlock(reg, b, needed)
		if b.size != old {
			reg.free += old - b.size
			coalesce(reg, b.next)
		}
		a.mu.Unlock()
		return b.payload(), nil
	}

	// Case 2: absorb a free forward neighbor if that's enough.
	if b.next != nil && b.next.free && b.size+blockHeaderSize+b.next.size >= needed {
		absorbed := b.next
		consumedFree := blockHeaderSize + absorbed.size
		b.size += consumedFree
		b.next = absorbed.next
		if b.next != nil {
			b.next.prev = b
		}
		if reg.last == absorbed {
			reg.last = b
		}
		reg.free -= consumedFree

		old := b.size
		b = splitBlock(reg, b, needed)
		if b.size != old {
			reg.free += old - b.size
		}
		a.mu.Unlock()
		return b.payload(), nil
	}

	// Case 3: move. Release the lock before recursing into
	// Malloc/Free so another thread may run in between; the old pointer
	// stays valid until UnsafeFree below runs.
	oldSize := b.size
	a.mu.Unlock()

	newPtr, err := a.UnsafeMalloc(size)
	if err != nil {
		return nil, err
	}
	n := oldSize
	if size < n {
		n = size
	}
	copyBytes(newPtr, p, n)
	a.UnsafeFree(p)
	return newPtr, nil
}

// UnsafeCalloc allocates memory for nmemb elements of size bytes each
// and zero-fills it. It fails with an error, rather than allocating a
// truncated region, if nmemb*size would overflow.
func (a *Allocator) UnsafeCalloc(nmemb, size int) (r unsafe.Pointer, err error) {
	if trace {
		defer func() { fmt.Fprintf(os.Stderr, "Calloc(%#x, %#x) %p, %v\n", nmemb, size, r, err) }()
	}

	total, err := mulSize(nmemb, size)
	if err != nil {
		return nil, err
	}

	r, err = a.UnsafeMalloc(total)
	if err != nil {
		return nil, err
	}

	zero(r, total)
	return r, nil
}

// UnsafeUsableSize reports the payload size of the live block at p. p
// must have been returned by UnsafeMalloc, UnsafeCalloc or
// UnsafeRealloc. It returns 0 for a nil pointer.
func (a *Allocator) UnsafeUsableSize(p unsafe.Pointer) int {
	if p == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	reg := a.reg.findRegion(p)
	if reg == nil {
		return 0
	}
	b := blockFromPayload(p)
	if !reg.contains(unsafe.Pointer(b)) || b.magic != magic {
		return 0
	}
	return b.size
}

// Package-level wrappers over defaultAllocator, giving parity with the
// implicit single process-wide C heap.

func UnsafeMalloc(size int) (unsafe.Pointer, error)           { return defaultAllocator.UnsafeMalloc(size) }
func UnsafeFree(p unsafe.Pointer)                             { defaultAllocator.UnsafeFree(p) }
func UnsafeRealloc(p unsafe.Pointer, size int) (unsafe.Pointer, error) {
	return defaultAllocator.UnsafeRealloc(p, size)
}
func UnsafeCalloc(nmemb, size int) (unsafe.Pointer, error) {
	return defaultAllocator.UnsafeCalloc(nmemb, size)
}
func UnsafeUsableSize(p unsafe.Pointer) int { return defaultAllocator.UnsafeUsableSize(p) }

// copyBytes and zero reach into raw mmap'd memory through an oversized
// array cast, picking the largest addressable array Go allows on 32- vs
// 64-bit platforms (intBits, defined in sizes.go).
func copyBytes(dst, src unsafe.Pointer, n int) {
	if n == 0 {
		return
	}
	if intBits > 32 {
		copy((*[1 << 49]byte)(dst)[:n:n], (*[1 << 49]byte)(src)[:n:n])
	} else {
		copy((*[1 << 31]byte)(dst)[:n:n], (*[1 << 31]byte)(src)[:n:n])
	}
}

func zero(p unsafe.Pointer, n int) {
	if n == 0 {
		return
	}
	if intBits > 32 {
		b := (*[1 << 49]byte)(p)[:n:n]
		for i := range b {
			b[i] = 0
		}
	} else {
		b := (*[1 << 31]byte)(p)[:n:n]
		for i := range b {
			b[i] = 0
		}
	}
}
