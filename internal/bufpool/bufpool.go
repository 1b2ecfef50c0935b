// Package bufpool manages the byte buffers whose ownership crosses the
// foreign boundary.
//
// Buffers for typical response sizes are drawn from tiered slab pools to
// cut allocation churn. Issuing a buffer transfers ownership to the
// receiver, which must hand it back exactly once through Release with the
// original length and capacity; the ledger validates the triple so a
// mismatched or repeated release can never corrupt the pools.
package bufpool

import (
	"errors"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Size classes for pooled buffers. Buffers above the largest class are
// allocated exactly and dropped on release instead of pooled, bounding the
// memory held by the pool.
const (
	slab1KB   = 1 << 10
	slab4KB   = 1 << 12
	slab16KB  = 1 << 14
	slab64KB  = 1 << 16
	slab256KB = 1 << 18

	numClasses = 5

	// MaxPooled is the reuse threshold: released buffers with a larger
	// capacity are left to the garbage collector.
	MaxPooled = slab256KB
)

var classSizes = [numClasses]int{slab1KB, slab4KB, slab16KB, slab64KB, slab256KB}

// Release errors. A rejected release leaves the ledger and pools untouched.
var (
	ErrUnknownBuffer  = errors.New("buffer was not issued by this pool or was already released")
	ErrBufferMismatch = errors.New("buffer length/capacity does not match the issued handle")
)

// Handle identifies an issued buffer: the address of its first byte plus
// the length and capacity the receiver must present back on release.
type Handle struct {
	Ptr uintptr
	Len int
	Cap int
}

type lease struct {
	buf    []byte
	length int
	cap    int
}

// Pool is a tiered slab allocator with an ownership ledger.
type Pool struct {
	classes [numClasses]sync.Pool

	mu     sync.Mutex
	leases map[uintptr]lease

	hits   atomic.Int64
	misses atomic.Int64
	puts   atomic.Int64
}

// New creates an empty pool.
func New() *Pool {
	p := &Pool{leases: make(map[uintptr]lease)}
	for i := 0; i < numClasses; i++ {
		size := classSizes[i]
		p.classes[i].New = func() any {
			p.misses.Add(1)
			return make([]byte, size)
		}
	}
	return p
}

// classFor returns the index of the smallest class that fits n bytes,
// or -1 when n exceeds the reuse threshold.
func classFor(n int) int {
	for i, size := range classSizes {
		if n <= size {
			return i
		}
	}
	return -1
}

// Issue copies data into an owned buffer and transfers that buffer to the
// caller. The returned handle must be passed to Release exactly once; until
// then the pool retains no claim on the memory beyond pinning it for the
// ledger.
func (p *Pool) Issue(data []byte) Handle {
	n := len(data)

	var buf []byte
	if idx := classFor(n); idx >= 0 {
		buf = p.classes[idx].Get().([]byte)
		p.hits.Add(1)
	} else {
		buf = make([]byte, n)
	}
	copy(buf, data)

	h := Handle{
		Ptr: uintptr(unsafe.Pointer(&buf[0])),
		Len: n,
		Cap: cap(buf),
	}

	p.mu.Lock()
	p.leases[h.Ptr] = lease{buf: buf, length: n, cap: cap(buf)}
	p.mu.Unlock()

	return h
}

// Bytes returns the issued region for a handle the pool still knows about.
// Intended for the in-process side of the boundary; returns false for
// handles that were never issued or were already released.
func (p *Pool) Bytes(h Handle) ([]byte, bool) {
	p.mu.Lock()
	l, ok := p.leases[h.Ptr]
	p.mu.Unlock()
	if !ok || l.length != h.Len || l.cap != h.Cap {
		return nil, false
	}
	return l.buf[:l.length], true
}

// Release takes back an issued buffer. The (ptr, length, capacity) triple
// must match the issued handle exactly: an unknown pointer means a double
// release or a foreign buffer, and a length or capacity mismatch means the
// caller lost track of the allocation; both are rejected without touching
// the pools. Within-threshold buffers return to their slab class.
func (p *Pool) Release(ptr uintptr, length, capacity int) error {
	p.mu.Lock()
	l, ok := p.leases[ptr]
	if !ok {
		p.mu.Unlock()
		return ErrUnknownBuffer
	}
	if l.length != length || l.cap != capacity {
		p.mu.Unlock()
		return ErrBufferMismatch
	}
	delete(p.leases, ptr)
	p.mu.Unlock()

	if idx := classIndex(l.cap); idx >= 0 {
		p.classes[idx].Put(l.buf[:classSizes[idx]])
		p.puts.Add(1)
	}
	// Oversized buffers are dropped for the GC.
	return nil
}

// classIndex returns the class whose size equals capacity exactly, or -1.
// Only exact class capacities go back to a pool; anything else would let a
// short buffer poison a class.
func classIndex(capacity int) int {
	for i, size := range classSizes {
		if capacity == size {
			return i
		}
	}
	return -1
}

// Active returns the number of issued buffers not yet released.
func (p *Pool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.leases)
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Hits   int64
	Misses int64
	Puts   int64
	Active int
}

// Stats returns current pool counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Hits:   p.hits.Load(),
		Misses: p.misses.Load(),
		Puts:   p.puts.Load(),
		Active: p.Active(),
	}
}
