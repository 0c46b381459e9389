package malloc

import "testing"

// newTestRegion creates a region just large enough to host one free
// block of the given payload size, the same shape classifyAndFind
// builds for a fresh Tiny/Small region.
func newTestRegion(t *testing.T, payload int) (*region, *block) {
	t.Helper()
	size := roundup(regionHeaderSize+blockHeaderSize+payload, osPageSize)
	r, err := newRegion(classSmall, size)
	if err != nil {
		t.Fatal(err)
	}
	freePayload := r.totalSize - regionHeaderSize - blockHeaderSize
	b := initBlock(r, regionHeaderSize, freePayload, true)
	r.first, r.last = b, b
	r.free = blockHeaderSize + freePayload
	return r, b
}

func TestFindFreeSkipsInUse(t *testing.T) {
	r, b := newTestRegion(t, 512)
	b.free = false
	if got := findFree(r, 64); got != nil {
		t.Fatalf("findFree returned %p on an all-in-use region", got)
	}

	b.free = true
	if got := findFree(r, 64); got != b {
		t.Fatalf("findFree missed the only free block")
	}
	if got := findFree(r, b.size+1); got != nil {
		t.Fatalf("findFree matched a block too small for the request")
	}
}

func TestSplitBlockCarvesRemainder(t *testing.T) {
	r, b := newTestRegion(t, 512)
	needed := 64
	old := b.size

	got := splitBlock(r, b, needed)
	if got != b {
		t.Fatalf("splitBlock returned %p, want original block %p", got, b)
	}
	if b.size != needed {
		t.Fatalf("b.size = %d, want %d", b.size, needed)
	}
	if b.next == nil || !b.next.free {
		t.Fatal("expected a free remainder block after b")
	}
	if r.last != b.next {
		t.Fatalf("r.last = %p, want remainder %p", r.last, b.next)
	}
	if got, want := b.next.size, old-needed-blockHeaderSize; got != want {
		t.Fatalf("remainder size = %d, want %d", got, want)
	}
}

func TestSplitBlockLeavesUndersizedSurplusAlone(t *testing.T) {
	r, b := newTestRegion(t, 64)
	needed := b.size - blockHeaderSize/2
	old := b.size

	splitBlock(r, b, needed)
	if b.size != old {
		t.Fatalf("b.size = %d, want unchanged %d (surplus too small to split)", b.size, old)
	}
	if b.next != nil {
		t.Fatal("expected no remainder block when surplus is too small")
	}
}

func TestCoalesceMergesForwardNeighbor(t *testing.T) {
	r, b := newTestRegion(t, 600)
	splitBlock(r, b, 64) // b(used) | remainder(free)
	remainder := b.next
	remainderSize := remainder.size

	b.free = true
	merged := coalesce(r, b)
	if merged != b {
		t.Fatalf("coalesce with only a forward free neighbor should return the same block, got %p want %p", merged, b)
	}
	if b.next != nil {
		t.Fatal("expected b to absorb its free forward neighbor")
	}
	if r.last != b {
		t.Fatalf("r.last = %p, want merged block %p", r.last, b)
	}
	if want := 64 + blockHeaderSize + remainderSize; b.size != want {
		t.Fatalf("merged size = %d, want %d", b.size, want)
	}
}

func TestCoalesceMergesBackwardNeighbor(t *testing.T) {
	r, b := newTestRegion(t, 600)
	splitBlock(r, b, 64) // b(used) | tail(free)
	tail := b.next

	b.free = true
	merged := coalesce(r, tail)
	if merged != b {
		t.Fatalf("coalesce did not merge backward into b: got %p, want %p", merged, b)
	}
	if b.next != nil {
		t.Fatal("expected the whole region to collapse into a single free block")
	}
	if r.last != b {
		t.Fatalf("r.last = %p, want %p", r.last, b)
	}
}

func TestCoalesceNoFreeNeighborIsNoOp(t *testing.T) {
	r, b := newTestRegion(t, 600)
	splitBlock(r, b, 64) // b | tail
	tail := b.next
	tail.free = false // b's only neighbor is in use
	if merged := coalesce(r, b); merged != b {
		t.Fatalf("coalesce with no free neighbor changed the block: got %p, want %p", merged, b)
	}
	if b.next != tail || b.size != 64 {
		t.Fatalf("coalesce with no free neighbor merged anyway: next %p size %d, want %p 64", b.next, b.size, tail)
	}
}

func TestBlockFromPayloadRoundTrip(t *testing.T) {
	_, b := newTestRegion(t, 128)
	if got := blockFromPayload(b.payload()); got != b {
		t.Fatalf("blockFromPayload(b.payload()) = %p, want %p", got, b)
	}
}
