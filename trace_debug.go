//go:build malloc_debug

package malloc

// trace gates the per-operation stderr diagnostics in UnsafeMalloc,
// UnsafeFree, UnsafeRealloc and UnsafeCalloc. Building with -tags
// malloc_debug turns it on; a structured logging library is
// deliberately not used here since a logger allocating through this
// same package while reporting on it would deadlock on a.mu.
const trace = true
