package malloc

import (
	"errors"
	"math"
	"sync"
)

// errInvalidPointer marks a pointer given to free/realloc that is not
// within any known region, whose recovered header fails the magic-word
// check, or that is already marked free. UnsafeFree drops it silently;
// UnsafeRealloc (and so Realloc) returns it together with a nil result
// and leaves the heap unchanged.
var errInvalidPointer = errors.New("malloc: invalid or already-freed pointer")

// errTooLarge marks a request that cannot be represented once header and
// alignment overhead are added, or that exceeds MaxAllocSize.
var errTooLarge = errors.New("malloc: requested size too large")

// errOverflow marks a calloc nmemb*size multiplication that would
// overflow.
var errOverflow = errors.New("malloc: calloc size overflow")

const maxAllocFallback = 1 << 30 // 1GB, used when RLIMIT_DATA can't be read or is unlimited

var (
	maxAllocOnce sync.Once
	maxAllocSize int
)

// MaxAllocSize is the largest single request this allocator will serve,
// computed once as half of RLIMIT_DATA (the data-segment soft resource
// limit), or maxAllocFallback if that can't be queried, is zero or is
// unlimited.
func MaxAllocSize() int {
	maxAllocOnce.Do(func() {
		maxAllocSize = queryMaxAllocSize()
	})
	return maxAllocSize
}

// checkAllocSize validates a normalized (already non-zero) request size
// against overflow and the MaxAllocSize cap.
func checkAllocSize(size int) error {
	if size < 0 {
		return errTooLarge
	}
	if size > math.MaxInt-needsBytes(0) {
		return errTooLarge
	}
	if size > MaxAllocSize() {
		return errTooLarge
	}
	return nil
}

// mulSize computes nmemb*size, failing rather than truncating on
// overflow.
func mulSize(nmemb, size int) (int, error) {
	if nmemb < 0 || size < 0 {
		return 0, errOverflow
	}
	if nmemb == 0 || size == 0 {
		return 0, nil
	}
	if size > math.MaxInt/nmemb {
		return 0, errOverflow
	}
	return nmemb * size, nil
}
