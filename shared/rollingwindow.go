package shared

import (
	"errors"
	"fmt"
)

// RollingWindow represents a fixed capacity window of the most recently added
// items. Index 0 is the most recent item.
type RollingWindow[T any] struct {
	data  []T
	start int
	count int
	size  int
}

// NewRollingWindow initializes a new rolling window.
func NewRollingWindow[T any](size int) (*RollingWindow[T], error) {
	if size < 0 {
		return nil, errors.New("window size cannot be negative")
	}
	if size == 0 {
		return nil, errors.New("window size cannot be zero")
	}

	return &RollingWindow[T]{
		data: make([]T, size),
		size: size,
	}, nil
}

// Add adds the provided item to the window.
func (w *RollingWindow[T]) Add(item T) {
	end := (w.start + w.count) % w.size
	w.data[end] = item

	if w.count == w.size {
		// Overwrite the oldest entry when the window is at capacity.
		w.start = (w.start + 1) % w.size
	} else {
		w.count++
	}
}

// At returns the item at the provided index, counting back from the most recent.
func (w *RollingWindow[T]) At(idx int) (T, error) {
	var item T
	if idx < 0 || idx >= w.count {
		return item, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, idx, w.count)
	}

	pos := (w.start + w.count - 1 - idx) % w.size
	return w.data[pos], nil
}

// Reset clears the window, keeping its capacity.
func (w *RollingWindow[T]) Reset() {
	var zero T
	for idx := range w.data {
		w.data[idx] = zero
	}

	w.start = 0
	w.count = 0
}

// IsReady checks whether the window is at capacity.
func (w *RollingWindow[T]) IsReady() bool {
	return w.count == w.size
}

// Len returns the number of items in the window.
func (w *RollingWindow[T]) Len() int {
	return w.count
}

// Size returns the capacity of the window.
func (w *RollingWindow[T]) Size() int {
	return w.size
}
