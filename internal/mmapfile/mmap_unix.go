//go:build unix

package mmapfile

import "syscall"

// mapFile memory-maps a file read-only. The fd can be closed after mapping.
func mapFile(fd uintptr, size int) ([]byte, error) {
	return syscall.Mmap(int(fd), 0, size, syscall.PROT_READ, syscall.MAP_PRIVATE)
}

// unmapFile releases a memory mapping created by mapFile.
func unmapFile(data []byte) error {
	return syscall.Munmap(data)
}
