package message

import "sync"

// CallbackIDAllocator hands out the 8-bit callback IDs that correlate a
// request with the controller's asynchronous callback for it.
// It is safe for concurrent use.
//
// IDs increase by one modulo 256. Results below MinCallbackID are clamped
// to MinCallbackID, so the reserved range is skipped on wraparound.
type CallbackIDAllocator struct {
	last uint8
	mu   sync.Mutex
}

// NewCallbackIDAllocator creates an allocator whose first ID is MinCallbackID.
func NewCallbackIDAllocator() *CallbackIDAllocator {
	return NewCallbackIDAllocatorWithValue(0xFF)
}

// NewCallbackIDAllocatorWithValue creates an allocator that behaves as if
// last had just been returned. Used for testing wraparound.
func NewCallbackIDAllocatorWithValue(last uint8) *CallbackIDAllocator {
	return &CallbackIDAllocator{last: last}
}

// Next returns the next callback ID. It never returns a reserved value.
func (a *CallbackIDAllocator) Next() uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.last + 1 // wraps at 256
	if next < MinCallbackID {
		next = MinCallbackID
	}
	a.last = next
	return next
}

// Last returns the most recently allocated ID without advancing.
func (a *CallbackIDAllocator) Last() uint8 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}
