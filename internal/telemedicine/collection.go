package telemedicine

import (
	"fmt"
	"sort"
	"time"
)

// Collection is an ordered, immutable sequence of T. Every operation that
// changes contents returns a new collection; the backing slice is never shared
// with callers.
type Collection[T any] struct {
	items []T
}

// DoctorCollection holds doctors.
type DoctorCollection = Collection[Doctor]

// SlotCollection holds appointment slots.
type SlotCollection = Collection[AppointmentSlot]

// NewCollection copies items into a new collection.
func NewCollection[T any](items ...T) Collection[T] {
	if len(items) == 0 {
		return Collection[T]{}
	}
	cp := make([]T, len(items))
	copy(cp, items)
	return Collection[T]{items: cp}
}

// Add returns a new collection with items appended.
func (c Collection[T]) Add(items ...T) Collection[T] {
	out := make([]T, 0, len(c.items)+len(items))
	out = append(out, c.items...)
	out = append(out, items...)
	return Collection[T]{items: out}
}

// AddAny appends v after checking it holds the collection's subject type.
// On mismatch the receiver is returned unchanged with a validation error.
func (c Collection[T]) AddAny(v any) (Collection[T], error) {
	item, ok := v.(T)
	if !ok {
		var zero T
		return c, NewValidationError("collection", "expected item of type %T, got %T", zero, v)
	}
	return c.Add(item), nil
}

// Len returns the number of items.
func (c Collection[T]) Len() int {
	return len(c.items)
}

// IsEmpty reports whether the collection has no items.
func (c Collection[T]) IsEmpty() bool {
	return len(c.items) == 0
}

// At returns the item at index i.
func (c Collection[T]) At(i int) (T, error) {
	if i < 0 || i >= len(c.items) {
		var zero T
		return zero, NewValidationError("index", "index %d out of bounds for collection of %d items", i, len(c.items))
	}
	return c.items[i], nil
}

// First returns the first item, if any.
func (c Collection[T]) First() (T, bool) {
	if len(c.items) == 0 {
		var zero T
		return zero, false
	}
	return c.items[0], true
}

// Items returns a copy of the underlying items.
func (c Collection[T]) Items() []T {
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Each calls fn for each item in order.
func (c Collection[T]) Each(fn func(int, T)) {
	for i, item := range c.items {
		fn(i, item)
	}
}

// Filter returns items for which keep is true.
func (c Collection[T]) Filter(keep func(T) bool) Collection[T] {
	var out []T
	for _, item := range c.items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return Collection[T]{items: out}
}

// Contains reports whether any item matches.
func (c Collection[T]) Contains(match func(T) bool) bool {
	for _, item := range c.items {
		if match(item) {
			return true
		}
	}
	return false
}

// Find returns the first matching item.
func (c Collection[T]) Find(match func(T) bool) (T, bool) {
	for _, item := range c.items {
		if match(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Take returns at most n items. n <= 0 returns the collection unchanged.
func (c Collection[T]) Take(n int) Collection[T] {
	if n <= 0 || n >= len(c.items) {
		return c
	}
	return NewCollection(c.items[:n]...)
}

// SortStable returns a stably sorted copy.
func (c Collection[T]) SortStable(less func(a, b T) bool) Collection[T] {
	out := c.Items()
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return Collection[T]{items: out}
}

func (c Collection[T]) String() string {
	var zero T
	return fmt.Sprintf("Collection[%T](%d)", zero, len(c.items))
}

// MapCollection transforms every item.
func MapCollection[T, R any](c Collection[T], fn func(T) R) Collection[R] {
	out := make([]R, len(c.items))
	for i, item := range c.items {
		out[i] = fn(item)
	}
	return Collection[R]{items: out}
}

// SortByDoctorSlot orders doctors by their earliest slot, ties broken by name.
// Every doctor must have loaded slots.
func SortByDoctorSlot(doctors DoctorCollection) (DoctorCollection, error) {
	if !IncludesSlots(doctors) {
		return doctors, NewValidationError("doctors", "cannot sort doctors without slots")
	}
	return doctors.SortStable(func(a, b Doctor) bool {
		sa, okA := a.EarliestSlot()
		sb, okB := b.EarliestSlot()
		switch {
		case okA && okB && !sa.DateTime.Equal(sb.DateTime):
			return sa.DateTime.Before(sb.DateTime)
		case okA != okB:
			return okA
		}
		return a.Name < b.Name
	}), nil
}

// IncludesSlots reports whether every doctor has loaded slots.
func IncludesSlots(doctors DoctorCollection) bool {
	return !doctors.Contains(func(d Doctor) bool { return !d.HasSlots() })
}

// FindDoctor looks a doctor up by id.
func FindDoctor(doctors DoctorCollection, id string) (Doctor, bool) {
	return doctors.Find(func(d Doctor) bool { return d.ID == id })
}

// FindSlot looks a slot up by id.
func FindSlot(slots SlotCollection, id string) (AppointmentSlot, bool) {
	return slots.Find(func(s AppointmentSlot) bool { return s.ID == id })
}

// SlotsUntil drops slots strictly after until. A zero until keeps everything.
func SlotsUntil(slots SlotCollection, until time.Time) SlotCollection {
	if until.IsZero() {
		return slots
	}
	return slots.Filter(func(s AppointmentSlot) bool { return !s.DateTime.After(until) })
}

// SortSlotsChronologically returns slots ordered by date-time, keeping upstream
// order for equal instants.
func SortSlotsChronologically(slots SlotCollection) SlotCollection {
	return slots.SortStable(func(a, b AppointmentSlot) bool { return a.DateTime.Before(b.DateTime) })
}
