package malloc

import "unsafe"

// block is the intrusive, doubly-linked header preceding every payload
// inside a region. Physical neighbors are list neighbors: walking next
// from a region's first block visits the region in increasing address
// order.
type block struct {
	prev, next *block
	size       int    // payload bytes, excluding this header
	magic      uint32 // must equal the magic constant for a live block
	free       bool
	offset     int // byte offset of this header from its region's start
}

// payload returns the user-visible pointer for b: its header address
// plus the fixed, alignment-rounded header size.
func (b *block) payload() unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(b)) + uintptr(blockHeaderSize))
}

// blockFromPayload recovers a block header from a user pointer by
// subtracting the fixed header size.
func blockFromPayload(p unsafe.Pointer) *block {
	return (*block)(unsafe.Pointer(uintptr(p) - uintptr(blockHeaderSize)))
}

// findFree performs a first-fit scan of r's block list for a free block
// whose payload is at least neededPayload bytes.
func findFree(r *region, neededPayload int) *block {
	for b := r.first; b != nil; b = b.next {
		if b.free && b.size >= neededPayload {
			return b
		}
	}
	return nil
}

// splitBlock splits b into a left block of exactly neededPayload bytes
// and a right, free remainder, provided the remainder can hold a header
// plus at least one alignment unit of payload. Otherwise b is left
// intact and the caller accepts the internal fragmentation. neededPayload
// must already be a multiple of alignment, or the remainder's payload
// (and every block split from it later) would start at a misaligned
// address. Returns the block actually carrying the requested size
// (always b itself; kept as a return value so callers can chain off the
// result without relying on aliasing).
func splitBlock(r *region, b *block, neededPayload int) *block {
	surplus := b.size - neededPayload
	if surplus < blockHeaderSize+alignment {
		return b
	}

	right := (*block)(unsafe.Pointer(uintptr(unsafe.Pointer(b)) + uintptr(blockHeaderSize+neededPayload)))
	right.size = surplus - blockHeaderSize
	right.magic = magic
	right.free = true
	right.offset = b.offset + blockHeaderSize + neededPayload
	right.next = b.next
	right.prev = b
	if right.next != nil {
		right.next.prev = right
	}

	b.next = right
	b.size = neededPayload
	if r.last == b {
		r.last = right
	}
	return b
}

// coalesce merges b, already marked free by the caller, with any free
// physical neighbors, restoring the invariant that no two adjacent
// blocks are both free. It is symmetric and idempotent: called with a
// block that has no free neighbor, it is a no-op and returns b
// unchanged.
func coalesce(r *region, b *block) *block {
	if b.next != nil && b.next.free {
		absorbed := b.next
		b.size += blockHeaderSize + absorbed.size
		b.next = absorbed.next
		if b.next != nil {
			b.next.prev = b
		}
		if r.last == absorbed {
			r.last = b
		}
	}

	if b.prev != nil && b.prev.free {
		prev := b.prev
		prev.size += blockHeaderSize + b.size
		prev.next = b.next
		if prev.next != nil {
			prev.next.prev = prev
		}
		if r.last == b {
			r.last = prev
		}
		b = prev
	}

	return b
}

// initBlock constructs a fresh block header at the given offset inside
// r, in-use or free as the free argument says, increments r's used-block
// count when it is in-use, and returns the new header. It is used when a
// region is created to hold exactly one allocation (Large regions,
// free=false) or a region's first free block is created at region setup
// time (free=true).
func initBlock(r *region, offset, payload int, free bool) *block {
	b := (*block)(unsafe.Pointer(uintptr(r.start) + uintptr(offset)))
	b.prev = nil
	b.next = nil
	b.size = payload
	b.magic = magic
	b.free = free
	b.offset = offset
	if !free {
		r.used++
	}
	return b
}
