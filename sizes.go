package malloc

import (
	"os"
	"unsafe"

	"github.com/cznic/mathutil"
)

const (
	// intBits is the width of Go's int on this platform, computed
	// branch-free, used to pick the largest array cast copyBytes/zero
	// can safely index through.
	intBits = 1 << (^uint(0)>>32&1 + ^uint(0)>>16&1 + ^uint(0)>>8&1 + 3)

	// alignment every user pointer must satisfy. Must be >= 16.
	alignment = 16

	// magic is written into every block header and checked on free/realloc.
	// It catches accidental corruption and non-owned pointers; it is not a
	// security feature, see DESIGN.md.
	magic = 0xDEADBEEF

	// tinyMaxSize and smallMaxSize are the size-class boundaries:
	// Tiny <= 128, Small in (128, 1024], Large above that.
	tinyMaxSize  = 128
	smallMaxSize = 1024

	// minAllocPerZoneDefault: a freshly created Tiny/Small region must
	// hold at least this many maximum-class allocations.
	minAllocPerZoneDefault = 100
)

// MinAllocPerZone is the number of maximum-class allocations a freshly
// created Tiny or Small region is sized to hold. Exposed as a variable
// so tests can shrink it to exercise multi-region behavior without
// allocating hundreds of blocks; production code should leave it at its
// default.
var MinAllocPerZone = minAllocPerZoneDefault

var (
	osPageSize = os.Getpagesize()

	// blockHeaderSize and regionHeaderSize are the alignment-rounded sizes
	// of the header structs; the allocator never depends on their layout
	// beyond this offset and the magic word's presence.
	blockHeaderSize  = roundup(int(unsafe.Sizeof(block{})), alignment)
	regionHeaderSize = roundup(int(unsafe.Sizeof(region{})), alignment)
)

// roundup returns the smallest multiple of m that is >= n. m must be a
// power of 2.
func roundup(n, m int) int { return (n + m - 1) &^ (m - 1) }

// needsBytes returns the total region bytes a single payload of size n
// consumes: its header plus its aligned payload.
func needsBytes(n int) int { return blockHeaderSize + roundup(n, alignment) }

// bitLen reports the position of the highest set bit of n; used by the
// fragmentation histogram in ShowAllocMemEx.
func bitLen(n int) int { return mathutil.BitLen(n) }

func maxInt(a, b int) int { return mathutil.Max(a, b) }
