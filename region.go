package malloc

import "unsafe"

// sizeClass is one of Tiny, Small or Large.
type sizeClass int

const (
	classTiny sizeClass = iota
	classSmall
	classLarge
)

// region is one contiguous, page-aligned mapping returned by the OS.
// Its header lives at the mapping's own start address; an
// address-ordered block list follows immediately after, starting at
// regionHeaderSize. The header struct is overlaid directly on the raw
// mapped memory via unsafe.Pointer rather than held separately, so a
// region's bookkeeping lives in the same mapping it describes.
type region struct {
	next      *region
	start     unsafe.Pointer // equals &region itself
	totalSize int
	class     sizeClass
	free      int // cached sum of free blocks' header+payload bytes
	used      int // cached count of in-use blocks
	first     *block
	last      *block // tail of the block list; kept for O(1) append bookkeeping
}

// contains reports whether p falls inside r's mapping.
func (r *region) contains(p unsafe.Pointer) bool {
	start := uintptr(r.start)
	return uintptr(p) >= start && uintptr(p) < start+uintptr(r.totalSize)
}

// classify returns the size class serving a requested byte count.
// Size-0 requests must already have been normalized to size 1 by the
// caller.
func classify(size int) sizeClass {
	switch {
	case size <= tinyMaxSize:
		return classTiny
	case size <= smallMaxSize:
		return classSmall
	default:
		return classLarge
	}
}

// zoneSize computes the total mapping size for a freshly created
// Tiny/Small region: enough for at least MinAllocPerZone allocations at
// the class's maximum size, plus the region header, floored at one page
// and rounded up to a whole number of pages.
func zoneSize(class sizeClass) int {
	maxSize := tinyMaxSize
	if class == classSmall {
		maxSize = smallMaxSize
	}
	raw := regionHeaderSize + MinAllocPerZone*needsBytes(maxSize)
	return roundup(maxInt(raw, osPageSize), osPageSize)
}

// largeZoneSize computes the total mapping size for a Large region
// holding exactly one block of neededPayload bytes.
func largeZoneSize(neededPayload int) int {
	raw := regionHeaderSize + blockHeaderSize + neededPayload
	return roundup(maxInt(raw, osPageSize), osPageSize)
}

// newRegion acquires totalSize bytes from the OS and initializes the
// region header. It installs no block: the caller sets up the single
// free block spanning the remainder (Tiny/Small) or the single in-use
// block (Large), together with the free counter.
func newRegion(class sizeClass, totalSize int) (*region, error) {
	b, err := osAcquire(totalSize)
	if err != nil {
		return nil, err
	}

	r := (*region)(b)
	r.next = nil
	r.start = b
	r.totalSize = totalSize
	r.class = class
	r.used = 0
	r.first = nil
	r.last = nil
	return r, nil
}

// registry is the global list of live regions. Every mutation of it, its
// regions, and their blocks happens under the owning Allocator's single
// mutex. Its zero value is ready for use.
type registry struct {
	regions *region
}

// classifyAndFind locates or creates a region able to serve a payload of
// neededPayload bytes in the given class. For Tiny/Small it first-fits
// across the existing regions of that class (checking each candidate's
// actual free list, not just its cached byte total, since a region
// whose aggregate free bytes are fragmented across several blocks may
// still be unable to serve the request); if none can, it creates a new
// region sized for at least MinAllocPerZone maximum-class allocations.
// For Large it always creates a dedicated region sized to the exact
// request. neededPayload must already be rounded up to alignment by the
// caller: every split traces its offsets from it, so an unaligned value
// here would misalign every block carved after it.
func (g *registry) classifyAndFind(class sizeClass, neededPayload int) (*region, *block, error) {
	if class == classLarge {
		r, err := newRegion(classLarge, largeZoneSize(neededPayload))
		if err != nil {
			return nil, nil, err
		}
		b := initBlock(r, regionHeaderSize, neededPayload, false)
		r.first, r.last = b, b
		r.free = 0
		g.regions = prepend(g.regions, r)
		return r, b, nil
	}

	needed := blockHeaderSize + neededPayload
	for r := g.regions; r != nil; r = r.next {
		if r.class != class || r.free < needed {
			continue
		}
		if b := findFree(r, neededPayload); b != nil {
			return r, b, nil
		}
	}

	r, err := newRegion(class, zoneSize(class))
	if err != nil {
		return nil, nil, err
	}
	freePayload := r.totalSize - regionHeaderSize - blockHeaderSize
	b := initBlock(r, regionHeaderSize, freePayload, true)
	r.first, r.last = b, b
	r.free = blockHeaderSize + freePayload
	g.regions = prepend(g.regions, r)
	return r, b, nil
}

// prepend links r onto the front of the list headed by head.
func prepend(head, r *region) *region {
	r.next = head
	return r
}

// findRegion locates the region containing p by linear scan, the first
// step of validating a pointer passed to free or realloc.
func (g *registry) findRegion(p unsafe.Pointer) *region {
	for r := g.regions; r != nil; r = r.next {
		if r.contains(p) {
			return r
		}
	}
	return nil
}

// releaseLarge unlinks r (a Large region whose last block was just
// freed) and returns its memory to the OS.
func (g *registry) releaseLarge(r *region) error {
	if g.regions == r {
		g.regions = r.next
	} else {
		for p := g.regions; p != nil; p = p.next {
			if p.next == r {
				p.next = r.next
				break
			}
		}
	}
	return osRelease(r.start, r.totalSize)
}
