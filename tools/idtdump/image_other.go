//go:build !unix

package main

import (
	"fmt"
	"os"
)

func mapImage(file string, offset int64, size int) ([]byte, func(), error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, nil, err
	}

	if offset < 0 || int64(len(data))-offset < int64(size) {
		return nil, nil, fmt.Errorf("%s: need %d bytes at offset %d; file is %d bytes", file, size, offset, len(data))
	}

	return data[offset : offset+int64(size)], func() {}, nil
}
