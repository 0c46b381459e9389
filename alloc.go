package malloc

import (
	"reflect"
	"unsafe"
)

// sliceFromPointer builds a []byte of length n backed by the memory at p,
// without copying. The returned slice is only valid until the
// corresponding Free/Realloc call; holding onto it past that point
// reads or writes freed memory.
func sliceFromPointer(p unsafe.Pointer, n int) []byte {
	if p == nil || n == 0 {
		return nil
	}
	var b []byte
	sh := (*reflect.SliceHeader)(unsafe.Pointer(&b))
	sh.Data = uintptr(p)
	sh.Len = n
	sh.Cap = n
	return b
}

// pointerFromSlice recovers the pointer a slice returned by Malloc,
// Calloc or Realloc was built from. Its capacity, not its length, is
// authoritative: a caller who reslices their allocation shorter (even to
// zero length) can still pass it to Free or Realloc and reach the
// original block. A slice of zero capacity, including nil, yields a nil
// pointer.
func pointerFromSlice(b []byte) unsafe.Pointer {
	sh := (*reflect.SliceHeader)(unsafe.Pointer(&b))
	if sh.Cap == 0 {
		return nil
	}
	return unsafe.Pointer(sh.Data)
}

// Malloc allocates size bytes and returns them as a slice with length
// and capacity equal to size. The returned slice aliases the
// allocation directly: it must be passed to Free or Realloc exactly as
// returned (reslicing it is fine; growing it past its capacity is not,
// since that would make Go allocate a new backing array elsewhere).
func (a *Allocator) Malloc(size int) ([]byte, error) {
	p, err := a.UnsafeMalloc(size)
	if err != nil {
		return nil, err
	}
	return sliceFromPointer(p, size), nil
}

// Calloc allocates memory for nmemb elements of size bytes each,
// zero-fills it, and returns it as a slice.
func (a *Allocator) Calloc(nmemb, size int) ([]byte, error) {
	total, err := mulSize(nmemb, size)
	if err != nil {
		return nil, err
	}
	p, err := a.UnsafeCalloc(nmemb, size)
	if err != nil {
		return nil, err
	}
	return sliceFromPointer(p, total), nil
}

// Free releases a slice returned by Malloc, Calloc or Realloc. A
// zero-capacity slice, including nil, is a no-op; a slice resliced to
// zero length but not zero capacity still frees its allocation.
func (a *Allocator) Free(b []byte) {
	a.UnsafeFree(pointerFromSlice(b))
}

// Realloc changes the size of the allocation backing b to size bytes,
// preserving the overlap of the old and new extents, and returns the
// (possibly relocated) result. If b is of zero capacity, this behaves as
// Malloc(size); if size is zero, this behaves as Free(b) and returns
// nil. After a successful call the old slice must not be used again,
// whether or not the backing memory moved.
func (a *Allocator) Realloc(b []byte, size int) ([]byte, error) {
	p, err := a.UnsafeRealloc(pointerFromSlice(b), size)
	if err != nil {
		return nil, err
	}
	return sliceFromPointer(p, size), nil
}

// UsableSize reports the payload size backing the allocation at b's
// first byte, which may exceed len(b) if the caller previously
// reslices it smaller. It is 0 for a nil or zero-capacity slice.
func (a *Allocator) UsableSize(b []byte) int {
	return a.UnsafeUsableSize(pointerFromSlice(b))
}

// Package-level wrappers over defaultAllocator.

func Malloc(size int) ([]byte, error)        { return defaultAllocator.Malloc(size) }
func Calloc(nmemb, size int) ([]byte, error) { return defaultAllocator.Calloc(nmemb, size) }
func Free(b []byte)                          { defaultAllocator.Free(b) }
func Realloc(b []byte, size int) ([]byte, error) {
	return defaultAllocator.Realloc(b, size)
}
func UsableSize(b []byte) int { return defaultAllocator.UsableSize(b) }
