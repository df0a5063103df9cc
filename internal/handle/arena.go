// Package handle provides a generational arena. Every resource the renderer
// allocates lives in an Arena and is referred to by an opaque Handle, so a
// stale handle to a released slot is detected instead of aliasing a new one.
package handle

import "errors"

// ErrInvalidHandle is returned when a handle is zero, out of range or stale.
var ErrInvalidHandle = errors.New("handle: invalid or stale handle")

// Handle identifies a slot in an Arena. The zero Handle is never valid.
type Handle struct {
	index      uint32
	generation uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h.generation == 0 }

// Index returns the slot index. Useful only for logging.
func (h Handle) Index() uint32 { return h.index }

type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Arena stores values of type T addressed by generational handles.
// It is not safe for concurrent use; owners guard it when needed.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

// Insert stores v and returns its handle.
func (a *Arena[T]) Insert(v T) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot[T]{})
	}
	s := &a.slots[idx]
	s.generation++
	if s.generation == 0 {
		s.generation = 1
	}
	s.value = v
	s.live = true
	a.live++
	return Handle{index: idx, generation: s.generation}
}

// Get returns the value for h.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	var zero T
	if !a.valid(h) {
		return zero, false
	}
	return a.slots[h.index].value, true
}

// Remove frees the slot for h and returns the value it held.
func (a *Arena[T]) Remove(h Handle) (T, error) {
	var zero T
	if !a.valid(h) {
		return zero, ErrInvalidHandle
	}
	s := &a.slots[h.index]
	v := s.value
	s.value = zero
	s.live = false
	a.free = append(a.free, h.index)
	a.live--
	return v, nil
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int { return a.live }

// Each calls fn for every live value in slot order.
func (a *Arena[T]) Each(fn func(Handle, T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.live {
			fn(Handle{index: uint32(i), generation: s.generation}, s.value)
		}
	}
}

// Clear removes every value. Outstanding handles become stale.
func (a *Arena[T]) Clear() {
	var zero T
	a.free = a.free[:0]
	for i := range a.slots {
		s := &a.slots[i]
		s.value = zero
		s.live = false
		a.free = append(a.free, uint32(i))
	}
	a.live = 0
}

func (a *Arena[T]) valid(h Handle) bool {
	if h.IsZero() || int(h.index) >= len(a.slots) {
		return false
	}
	s := &a.slots[h.index]
	return s.live && s.generation == h.generation
}
