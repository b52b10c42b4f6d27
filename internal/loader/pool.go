package loader

import (
	"sync"
	"sync/atomic"
)

// bufferPool hands out pixel buffers and keeps count of the ones that are
// currently owned by a DecodedImage.
type bufferPool struct {
	pool sync.Pool

	outstanding        atomic.Int64
	outstandingSamples atomic.Int64
	allocated          atomic.Int64
	reused             atomic.Int64
}

func (p *bufferPool) get(n int) []float32 {
	p.outstanding.Add(1)
	p.outstandingSamples.Add(int64(n))

	if v, ok := p.pool.Get().(*[]float32); ok && cap(*v) >= n {
		p.reused.Add(1)
		buf := (*v)[:n]
		clear(buf)
		return buf
	}
	p.allocated.Add(1)
	return make([]float32, n)
}

func (p *bufferPool) put(buf []float32) {
	p.outstanding.Add(-1)
	p.outstandingSamples.Add(-int64(len(buf)))
	if cap(buf) == 0 {
		return
	}
	buf = buf[:0]
	p.pool.Put(&buf)
}
