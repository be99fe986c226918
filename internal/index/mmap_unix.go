//go:build !windows

package index

import (
	"os"

	"golang.org/x/sys/unix"
)

// mmapFile maps f read-only for size bytes, following the pack's
// mmap-with-fallback pattern: any failure here (special files, network
// filesystems, permission issues) is reported to the caller, who falls
// back to ordinary buffered reads rather than propagating the error.
func mmapFile(f *os.File, size int64) ([]byte, func() error, error) {
	if size == 0 {
		return nil, func() error { return nil }, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return unix.Munmap(data) }, nil
}
