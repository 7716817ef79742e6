//go:build linux

// securemem_linux.go: Locked, non-dumpable page allocation on Linux.

package vault

import (
	"golang.org/x/sys/unix"
)

// allocLockedPage maps one anonymous page, locks it against swapping and
// excludes it from core dumps.
func allocLockedPage(size int) ([]byte, error) {
	page, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, err
	}
	if err := unix.Mlock(page); err != nil {
		_ = unix.Munmap(page)
		return nil, err
	}
	// MADV_DONTDUMP failing is not fatal: the page is still locked.
	_ = unix.Madvise(page, unix.MADV_DONTDUMP)
	return page, nil
}
