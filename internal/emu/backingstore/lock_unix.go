//go:build unix

package backingstore

import (
	"os"

	"golang.org/x/sys/unix"
)

// flockExclusive takes an advisory exclusive lock on f for the duration of a
// rewrite, the same raw-syscall style internal/runtime/asyncio uses for its
// unix-specific file paths.
func flockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}

func funlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
