// Package mmapfile memory-maps whole files read-only for zero-copy access.
// Tile placement logs and keyframe files are opened this way and held for
// the lifetime of the process; the OS pages them in on demand.
package mmapfile

import (
	"fmt"
	"os"
)

// File is a read-only memory-mapped file. The mapping is retained until
// Close is called.
type File struct {
	Data []byte
	f    *os.File
}

// Open opens path and maps its entire contents read-only. The underlying
// file descriptor is not needed once mapped and is closed immediately.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	size := fi.Size()
	if size == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	data, err := mapFile(f.Fd(), int(size))
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &File{Data: data}, nil
}

// Close releases the memory mapping. Safe to call once.
func (m *File) Close() error {
	if m.Data == nil {
		return nil
	}
	err := unmapFile(m.Data)
	m.Data = nil
	return err
}
