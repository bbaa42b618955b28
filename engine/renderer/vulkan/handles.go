package vulkan

import (
	"fmt"

	"github.com/spaghettifunk/vkframe/engine/renderer/present"
)

// registry maps the opaque handles handed to the frame core onto the
// Vulkan objects behind them. All registries of a Driver share one counter
// so a handle is unique across kinds and never reused.
type registry[T any] struct {
	next  *uint64
	items map[present.Handle]T
}

func newRegistry[T any](next *uint64) *registry[T] {
	return &registry[T]{
		next:  next,
		items: make(map[present.Handle]T),
	}
}

func (r *registry[T]) add(v T) present.Handle {
	*r.next++
	h := present.Handle(*r.next)
	r.items[h] = v
	return h
}

func (r *registry[T]) get(h present.Handle) (T, bool) {
	v, ok := r.items[h]
	return v, ok
}

// take removes h and returns what it referred to.
func (r *registry[T]) take(h present.Handle) (T, bool) {
	v, ok := r.items[h]
	if ok {
		delete(r.items, h)
	}
	return v, ok
}

func (r *registry[T]) len() int {
	return len(r.items)
}

// resolve looks every handle up and fails on the first unknown one, so the
// result always has one entry per handle.
func resolve[H ~uint64, T any](r *registry[T], handles []H) ([]T, error) {
	if len(handles) == 0 {
		return nil, nil
	}
	out := make([]T, len(handles))
	for i, h := range handles {
		v, ok := r.get(present.Handle(h))
		if !ok {
			return nil, fmt.Errorf("unknown handle %d", h)
		}
		out[i] = v
	}
	return out, nil
}
