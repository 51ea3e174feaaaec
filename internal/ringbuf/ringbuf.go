package ringbuf

// Ring is a fixed-capacity ring buffer. Push overwrites the oldest element
// once the buffer is full, so Len never exceeds Cap and no reallocation
// happens after construction.
type Ring[T any] struct {
	buf   []T
	head  int // next write position
	count int
}

// New creates a ring buffer with the given capacity.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("ringbuf: capacity must be positive")
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest element if the buffer is full.
func (r *Ring[T]) Push(v T) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Len returns the number of elements currently held.
func (r *Ring[T]) Len() int {
	return r.count
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Values returns the elements oldest-first as a freshly allocated slice.
func (r *Ring[T]) Values() []T {
	out := make([]T, 0, r.count)
	start := r.head - r.count
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// ValuesNewestFirst returns the elements newest-first as a freshly allocated
// slice.
func (r *Ring[T]) ValuesNewestFirst() []T {
	out := make([]T, 0, r.count)
	for i := 1; i <= r.count; i++ {
		idx := r.head - i
		if idx < 0 {
			idx += len(r.buf)
		}
		out = append(out, r.buf[idx])
	}
	return out
}

// Newest returns the most recently pushed element, or the zero value if the
// buffer is empty.
func (r *Ring[T]) Newest() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	idx := r.head - 1
	if idx < 0 {
		idx += len(r.buf)
	}
	return r.buf[idx], true
}
