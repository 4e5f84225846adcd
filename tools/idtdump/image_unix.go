//go:build unix

package main

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mapImage maps size bytes of file starting at offset. The offset does not
// need to be page aligned.
func mapImage(file string, offset int64, size int) ([]byte, func(), error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}

	if offset < 0 || info.Size()-offset < int64(size) {
		return nil, nil, fmt.Errorf("%s: need %d bytes at offset %d; file is %d bytes", file, size, offset, info.Size())
	}

	pageSize := int64(os.Getpagesize())
	pageOffset := offset % pageSize

	mem, err := unix.Mmap(int(f.Fd()), offset-pageOffset, int(pageOffset)+size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, fmt.Errorf("mmap %s: %w", file, err)
	}

	return mem[pageOffset:], func() { unix.Munmap(mem) }, nil
}
