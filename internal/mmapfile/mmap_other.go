//go:build !unix

package mmapfile

import "fmt"

// mapFile is not supported on non-Unix platforms.
func mapFile(fd uintptr, size int) ([]byte, error) {
	return nil, fmt.Errorf("memory mapping is not supported on this platform")
}

// unmapFile is a no-op on non-Unix platforms.
func unmapFile(data []byte) error {
	return nil
}
