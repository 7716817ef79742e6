// securemem.go: Zero-on-destroy buffers and the process-wide locked slot pool.

package vault

import (
	"fmt"
	"os"
	"sync"

	goerrors "github.com/agilira/go-errors"
)

// SecureBuffer is a fixed-size byte buffer for secret material. The backing
// array is overwritten with zeros when the buffer is destroyed, so secrets do
// not linger in reusable heap memory. Destroy is idempotent.
//
// SecureBuffer backs the long-lived key types (master key, encryption/MAC
// keys, private-key DER bytes) and short-lived plaintext scratch buffers.
type SecureBuffer struct {
	buf []byte
}

// NewSecureBuffer allocates a zeroed secret buffer of the given size.
func NewSecureBuffer(size int) *SecureBuffer {
	return &SecureBuffer{buf: make([]byte, size)}
}

// Bytes returns the backing slice. The caller must not retain it past
// Destroy.
func (b *SecureBuffer) Bytes() []byte {
	return b.buf
}

// Len returns the buffer size.
func (b *SecureBuffer) Len() int {
	return len(b.buf)
}

// Clone returns an independent copy of the buffer contents.
func (b *SecureBuffer) Clone() *SecureBuffer {
	c := NewSecureBuffer(len(b.buf))
	copy(c.buf, b.buf)
	return c
}

// Destroy zeroizes the buffer contents. The buffer stays usable as an
// all-zero buffer afterwards; callers treat Destroy as the end of life.
func (b *SecureBuffer) Destroy() {
	Zeroize(b.buf)
}

// Zeroize overwrites a byte slice with zeros. For buffers larger than a
// cache line the loop is unrolled eight wide.
func Zeroize(b []byte) {
	if len(b) <= 64 {
		for i := range b {
			b[i] = 0
		}
		return
	}

	i := 0
	for i < len(b)-7 {
		b[i] = 0
		b[i+1] = 0
		b[i+2] = 0
		b[i+3] = 0
		b[i+4] = 0
		b[i+5] = 0
		b[i+6] = 0
		b[i+7] = 0
		i += 8
	}
	for i < len(b) {
		b[i] = 0
		i++
	}
}

// LockedSlotCapacity is the fixed size of one slot in the locked pool.
const LockedSlotCapacity = 256

// lockedPool is one OS page, allocated once per process, memory-locked and
// excluded from core dumps where the platform supports it. The page is
// divided into LockedSlotCapacity-sized slots tracked by a bool table behind
// a single mutex. Allocation never blocks and never grows the pool.
type lockedPool struct {
	mu   sync.Mutex
	page []byte
	free []bool
}

var (
	poolOnce sync.Once
	pool     *lockedPool
)

func getLockedPool() *lockedPool {
	poolOnce.Do(func() {
		pool = newLockedPool()
	})
	return pool
}

func newLockedPool() *lockedPool {
	size := os.Getpagesize()
	page, err := allocLockedPage(size)
	if err != nil {
		// Locking is best effort: without it the pool still provides the
		// slot discipline and zero-on-release guarantees.
		page = make([]byte, size)
	}

	free := make([]bool, size/LockedSlotCapacity)
	for i := range free {
		free[i] = true
	}
	return &lockedPool{page: page, free: free}
}

func (p *lockedPool) allocate(size int) (*LockedBuffer, error) {
	if size <= 0 || size > LockedSlotCapacity {
		richErr := goerrors.New(ErrCodePoolExhausted, fmt.Sprintf("requested %d bytes, slot capacity is %d", size, LockedSlotCapacity))
		return nil, fmt.Errorf("%w: %w", ErrPoolExhausted, richErr)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i, f := range p.free {
		if !f {
			continue
		}
		p.free[i] = false
		off := i * LockedSlotCapacity
		return &LockedBuffer{
			buf:  p.page[off : off+size : off+LockedSlotCapacity],
			slot: i,
		}, nil
	}

	richErr := goerrors.New(ErrCodePoolExhausted, "no free slots in locked buffer pool")
	return nil, fmt.Errorf("%w: %w", ErrPoolExhausted, richErr)
}

func (p *lockedPool) deallocate(slot int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if slot < 0 || slot >= len(p.free) {
		return
	}
	off := slot * LockedSlotCapacity
	Zeroize(p.page[off : off+LockedSlotCapacity])
	p.free[slot] = true
}

// LockedBuffer is a view into one slot of the locked pool. At most one live
// LockedBuffer exists per slot; the slot index is the only state threaded
// between allocation and release.
type LockedBuffer struct {
	buf      []byte
	slot     int
	released bool
}

// AllocateLocked returns a size-byte view into a free slot of the locked
// pool, or ErrPoolExhausted if none remain. It never blocks.
func AllocateLocked(size int) (*LockedBuffer, error) {
	return getLockedPool().allocate(size)
}

// Bytes returns the slot view. Invalid after Release.
func (b *LockedBuffer) Bytes() []byte {
	return b.buf
}

// Len returns the requested allocation size.
func (b *LockedBuffer) Len() int {
	return len(b.buf)
}

// Release zeroizes the slot and returns it to the pool. Safe to call more
// than once.
func (b *LockedBuffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.buf = nil
	getLockedPool().deallocate(b.slot)
}
