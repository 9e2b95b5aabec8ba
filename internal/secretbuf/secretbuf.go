// Package secretbuf implements the secret buffer component: a heap region
// holding sensitive bytes that guarantees zeroization on release and
// resists compiler elision of that zeroization. Adapted from the
// SecureBytes/Wipe family in the witnessd security package, narrowed to
// exactly the allocate/write-through/lend-view/destroy contract this
// service needs.
package secretbuf

import (
	"runtime"
	"sync"
)

// Buffer is a heap buffer with an attached length, per the secret buffer
// component's contract: allocate, write-through from backend output, lend
// as an immutable view to the consumer, and destroy.
type Buffer struct {
	mu   sync.Mutex
	data []byte
	live bool
}

// New allocates a Buffer and copies src into it. src is not itself
// zeroized; callers that own src and no longer need it should wipe it
// separately.
func New(src []byte) *Buffer {
	b := &Buffer{data: make([]byte, len(src)), live: true}
	copy(b.data, src)
	return b
}

// View lends an immutable view of the buffer's contents to fn. The slice
// passed to fn must not be retained past fn's return; this is a
// documented contract, not one the type can enforce at compile time.
func (b *Buffer) View(fn func([]byte) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live {
		return fn(nil)
	}
	return fn(b.data)
}

// Destroy overwrites every byte with zero via a write the compiler is not
// permitted to elide, emits a barrier preventing reordering across that
// overwrite, then releases the buffer. Idempotent.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.live {
		return
	}
	wipe(b.data)
	b.data = nil
	b.live = false
}

// wipe zeroes data with an explicit loop and a runtime.KeepAlive barrier,
// the same idiom used throughout the pack for sensitive-memory wiping.
func wipe(data []byte) {
	if len(data) == 0 {
		return
	}
	for i := range data {
		data[i] = 0
	}
	runtime.KeepAlive(data)
}

// Wipe is exported for backends that zero transient copies (e.g. a PIN
// read off the wire before it is handed to New) without allocating a
// Buffer for them.
func Wipe(data []byte) { wipe(data) }
