package cellgraph

import (
	"sort"
	"strings"
)

// Container is a Source[[]T] refinement offering a full non-mutating
// accessor surface plus copy-on-write mutation helpers, so callers don't
// have to hand-roll slice surgery around Read/Write every time.
type Container[T any] struct {
	*Source[[]T]
}

// NewContainer creates an unnamed Container on the Default runtime.
func NewContainer[T any](initial []T, opts ...SourceOption[[]T]) *Container[T] {
	return &Container[T]{Source: NewSource(append([]T(nil), initial...), opts...)}
}

// NewNamedContainer creates a Container registered under name on the
// Default runtime.
func NewNamedContainer[T any](name string, initial []T, opts ...SourceOption[[]T]) (*Container[T], error) {
	s, err := NewNamedSource(name, append([]T(nil), initial...), opts...)
	if err != nil {
		return nil, err
	}
	return &Container[T]{Source: s}, nil
}

// --- non-mutating accessors ---

// Len returns the number of elements, tracked the same as Read.
func (c *Container[T]) Len() int { return len(c.Read()) }

// At returns the element at i and whether i was in range. Tracked.
func (c *Container[T]) At(i int) (T, bool) {
	v := c.Read()
	if i < 0 || i >= len(v) {
		var zero T
		return zero, false
	}
	return v[i], true
}

// Slice returns a copy of the backing slice. Tracked.
func (c *Container[T]) Slice() []T {
	v := c.Read()
	out := make([]T, len(v))
	copy(out, v)
	return out
}

// Range calls fn for every element in order until fn returns false.
func (c *Container[T]) Range(fn func(i int, v T) bool) {
	for i, v := range c.Read() {
		if !fn(i, v) {
			return
		}
	}
}

// Map returns a new slice built by applying fn to every element.
func (c *Container[T]) Map(fn func(T) T) []T {
	v := c.Read()
	out := make([]T, len(v))
	for i, e := range v {
		out[i] = fn(e)
	}
	return out
}

// Filter returns the elements for which fn returns true.
func (c *Container[T]) Filter(fn func(T) bool) []T {
	v := c.Read()
	out := make([]T, 0, len(v))
	for _, e := range v {
		if fn(e) {
			out = append(out, e)
		}
	}
	return out
}

// Reduce folds the container's elements with fn, starting from initial.
func (c *Container[T]) Reduce(initial T, fn func(acc, cur T) T) T {
	acc := initial
	for _, e := range c.Read() {
		acc = fn(acc, e)
	}
	return acc
}

// Find returns the first element satisfying fn.
func (c *Container[T]) Find(fn func(T) bool) (T, bool) {
	for _, e := range c.Read() {
		if fn(e) {
			return e, true
		}
	}
	var zero T
	return zero, false
}

// Some reports whether any element satisfies fn.
func (c *Container[T]) Some(fn func(T) bool) bool {
	for _, e := range c.Read() {
		if fn(e) {
			return true
		}
	}
	return false
}

// Every reports whether every element satisfies fn.
func (c *Container[T]) Every(fn func(T) bool) bool {
	for _, e := range c.Read() {
		if !fn(e) {
			return false
		}
	}
	return true
}

// Join renders every element with fn and joins the results with sep.
func (c *Container[T]) Join(sep string, fn func(T) string) string {
	v := c.Read()
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = fn(e)
	}
	return strings.Join(parts, sep)
}

// --- copy-on-write mutation ops ---

func (c *Container[T]) replace(next []T) { c.Write(next) }

// Append adds elements to the end.
func (c *Container[T]) Append(vs ...T) {
	cur := c.Peek()
	next := make([]T, 0, len(cur)+len(vs))
	next = append(next, cur...)
	next = append(next, vs...)
	c.replace(next)
}

// Prepend adds elements to the beginning.
func (c *Container[T]) Prepend(vs ...T) {
	cur := c.Peek()
	next := make([]T, 0, len(cur)+len(vs))
	next = append(next, vs...)
	next = append(next, cur...)
	c.replace(next)
}

// PopBack removes and returns the last element, if any.
func (c *Container[T]) PopBack() (T, bool) {
	cur := c.Peek()
	var zero T
	if len(cur) == 0 {
		return zero, false
	}
	last := cur[len(cur)-1]
	next := make([]T, len(cur)-1)
	copy(next, cur[:len(cur)-1])
	c.replace(next)
	return last, true
}

// PopFront removes and returns the first element, if any.
func (c *Container[T]) PopFront() (T, bool) {
	cur := c.Peek()
	var zero T
	if len(cur) == 0 {
		return zero, false
	}
	first := cur[0]
	next := make([]T, len(cur)-1)
	copy(next, cur[1:])
	c.replace(next)
	return first, true
}

// Splice removes count elements starting at index and inserts ins in
// their place, returning the removed elements.
func (c *Container[T]) Splice(index, count int, ins ...T) []T {
	cur := c.Peek()
	if index < 0 {
		index = 0
	}
	if index > len(cur) {
		index = len(cur)
	}
	end := index + count
	if end > len(cur) {
		end = len(cur)
	}
	removed := append([]T(nil), cur[index:end]...)

	next := make([]T, 0, len(cur)-(end-index)+len(ins))
	next = append(next, cur[:index]...)
	next = append(next, ins...)
	next = append(next, cur[end:]...)
	c.replace(next)
	return removed
}

// Sort reorders the container's elements in place using less.
func (c *Container[T]) Sort(less func(a, b T) bool) {
	cur := c.Peek()
	next := append([]T(nil), cur...)
	sort.Slice(next, func(i, j int) bool { return less(next[i], next[j]) })
	c.replace(next)
}

// Reverse reverses the element order.
func (c *Container[T]) Reverse() {
	cur := c.Peek()
	next := make([]T, len(cur))
	for i, v := range cur {
		next[len(cur)-1-i] = v
	}
	c.replace(next)
}

// Fill replaces every element with v.
func (c *Container[T]) Fill(v T) {
	cur := c.Peek()
	next := make([]T, len(cur))
	for i := range next {
		next[i] = v
	}
	c.replace(next)
}

// Clear empties the container.
func (c *Container[T]) Clear() { c.replace([]T{}) }

// SetAt replaces the element at i, if in range.
func (c *Container[T]) SetAt(i int, v T) bool {
	cur := c.Peek()
	if i < 0 || i >= len(cur) {
		return false
	}
	next := append([]T(nil), cur...)
	next[i] = v
	c.replace(next)
	return true
}

// Set replaces the container's contents entirely, spec.md §4.7's
// `set(seq)` op — distinct from SetAt's single-element replacement.
func (c *Container[T]) Set(seq []T) {
	c.replace(append([]T(nil), seq...))
}

// Draft accumulates mutation ops issued inside a Batch call so the
// container publishes once rather than once per op.
type Draft[T any] struct {
	c   *Container[T]
	cur []T
}

// Batch invokes fn with a Draft view of the container's current value;
// fn's ops accumulate against an unpublished copy that is written once
// when fn returns.
func (c *Container[T]) Batch(fn func(d *Draft[T])) {
	d := &Draft[T]{c: c, cur: append([]T(nil), c.Peek()...)}
	fn(d)
	c.replace(d.cur)
}

func (d *Draft[T]) Append(vs ...T) { d.cur = append(d.cur, vs...) }
func (d *Draft[T]) SetAt(i int, v T) bool {
	if i < 0 || i >= len(d.cur) {
		return false
	}
	d.cur[i] = v
	return true
}

// Set replaces the draft's accumulated contents entirely, mirroring
// Container's replace-entirely Set.
func (d *Draft[T]) Set(seq []T) { d.cur = append([]T(nil), seq...) }

func (d *Draft[T]) Clear()     { d.cur = d.cur[:0] }
func (d *Draft[T]) Len() int   { return len(d.cur) }
func (d *Draft[T]) Slice() []T { return append([]T(nil), d.cur...) }
