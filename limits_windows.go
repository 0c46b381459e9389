//go:build windows

package malloc

// queryMaxAllocSize falls back to maxAllocFallback on Windows: there is
// no RLIMIT_DATA-equivalent process data-segment limit to query.
func queryMaxAllocSize() int { return maxAllocFallback }
