package core

// Optional is a three-state patch field: the zero value keeps the stored
// value, Set replaces it and Clear removes it.
type Optional[T any] struct {
	set   bool
	value *T
}

// Set returns an Optional that replaces the stored value with v.
func Set[T any](v T) Optional[T] {
	return Optional[T]{set: true, value: &v}
}

// Clear returns an Optional that removes the stored value.
func Clear[T any]() Optional[T] {
	return Optional[T]{set: true}
}

// IsSet reports whether the field takes part in the patch at all.
func (o Optional[T]) IsSet() bool {
	return o.set
}

func (o Optional[T]) IsCleared() bool {
	return o.set && o.value == nil
}

// Get returns the new value when the field is set to one.
func (o Optional[T]) Get() (T, bool) {
	if !o.set || o.value == nil {
		var zero T
		return zero, false
	}
	return *o.value, true
}

// ApplyTo writes the field into dst according to its state.
func (o Optional[T]) ApplyTo(dst **T) {
	if !o.set {
		return
	}
	if o.value == nil {
		*dst = nil
		return
	}
	v := *o.value
	*dst = &v
}
