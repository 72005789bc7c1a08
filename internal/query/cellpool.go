package query

import "sync"

// cellPools maps tile edge size -> *sync.Pool of []uint32 frame buffers.
// Q1/Q2/Q3 are each invoked per HTTP request, and spec.md demands
// tens-of-milliseconds latency, so blank seed frames, diff and mask outputs
// and Q3 buffers are reused the same way the teacher's tile/rgbapool.go
// pools *image.RGBA by dimension. A keyframe read through
// tilestore.Tile.Frame is still a fresh allocation on each query.
var cellPools sync.Map

// getCells returns a zeroed []uint32 of length size*size from the pool, or
// allocates a new one.
func getCells(size int) []uint32 {
	n := size * size
	if p, ok := cellPools.Load(size); ok {
		if v := p.(*sync.Pool).Get(); v != nil {
			buf := v.([]uint32)
			for i := range buf {
				buf[i] = 0
			}
			return buf
		}
	}
	return make([]uint32, n)
}

// putCells returns a []uint32 to the pool for reuse. The caller must not
// use buf after calling putCells.
func putCells(size int, buf []uint32) {
	if buf == nil {
		return
	}
	p, _ := cellPools.LoadOrStore(size, &sync.Pool{})
	p.(*sync.Pool).Put(buf)
}
