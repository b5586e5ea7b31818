//go:build !unix

package backingstore

import "os"

// flockExclusive is a no-op on non-unix platforms; the store is already
// single-process and serialized by the memory manager's lock.
func flockExclusive(f *os.File) error { return nil }

func funlock(f *os.File) error { return nil }
