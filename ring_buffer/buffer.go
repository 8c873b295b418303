package ring_buffer

// Ring is a fixed-capacity ring that evicts its oldest item when full.
type Ring[T any] struct {
	buffer []T
	head   int
	size   int
}

func New[T any](capacity int) *Ring[T] {
	if capacity < 0 {
		capacity = 0
	}

	return &Ring[T]{
		buffer: make([]T, capacity),
	}
}

func (r *Ring[T]) Add(items ...T) {
	if len(r.buffer) == 0 {
		return
	}

	for _, item := range items {
		r.buffer[r.head] = item
		r.head = (r.head + 1) % len(r.buffer)

		if r.size < len(r.buffer) {
			r.size++
		}
	}
}

// Read returns the items oldest first.
func (r *Ring[T]) Read() []T {
	items := make([]T, r.size)
	start := (r.head - r.size + len(r.buffer)) % max(len(r.buffer), 1)

	for i := 0; i < r.size; i++ {
		items[i] = r.buffer[(start+i)%len(r.buffer)]
	}

	return items
}

// Each calls fn on every item, oldest first, and stops early when fn returns false.
func (r *Ring[T]) Each(fn func(T) bool) {
	start := (r.head - r.size + len(r.buffer)) % max(len(r.buffer), 1)

	for i := 0; i < r.size; i++ {
		if !fn(r.buffer[(start+i)%len(r.buffer)]) {
			return
		}
	}
}

func (r *Ring[T]) Clear() {
	var zero T
	for i := range r.buffer {
		r.buffer[i] = zero
	}

	r.head = 0
	r.size = 0
}

func (r *Ring[T]) Len() int {
	return r.size
}

func (r *Ring[T]) Cap() int {
	return len(r.buffer)
}
