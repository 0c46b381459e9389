// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package malloc implements a malloc/free/realloc/calloc replacement
// backed entirely by anonymous OS memory mappings.
//
// The package never calls back into the Go runtime's own heap: every
// byte it hands out comes from an mmap'd (or, on Windows,
// CreateFileMapping'd) region acquired directly from the operating
// system. Allocations are classified into one of three size classes —
// Tiny (<=128 bytes), Small (128-1024 bytes) and Large (>1024 bytes) —
// each served from its own kind of region. Tiny and Small regions hold
// many blocks behind a first-fit, split/coalesce free list; a Large
// region holds exactly one block and is unmapped the moment that block
// is freed.
//
// Two call surfaces share one engine: UnsafeMalloc/UnsafeFree/
// UnsafeRealloc/UnsafeCalloc operate on unsafe.Pointer the way the C
// functions of the same name do, while Malloc/Free/Realloc/Calloc wrap
// the same engine with []byte so callers who never need to leave safe
// Go don't have to. A package-level Allocator backs the bare functions;
// constructing your own &Allocator{} (its zero value is ready for use)
// gives an independent heap, useful in tests.
//
// ShowAllocMem and ShowAllocMemEx are read-only reporters over the same
// state, intended for debugging a process that has this allocator
// preloaded in place of the platform's own.
package malloc
