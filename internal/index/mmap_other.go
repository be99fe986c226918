//go:build windows

package index

import (
	"errors"
	"os"
)

// mmapFile has no implementation on this platform; Load always falls
// back to the buffered read path.
func mmapFile(f *os.File, size int64) ([]byte, func() error, error) {
	return nil, nil, errors.New("index: mmap not supported on this platform")
}
