package models

import (
	"bytes"
	"encoding/json"
)

// Optional holds a value that may be absent, explicitly null, or present.
// Set is true once a value or null was supplied; Valid is true only for a value.
type Optional[T any] struct {
	Value T
	Set   bool
	Valid bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true, Valid: true}
}

// Null returns an explicitly null Optional.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// OptionalPtr maps nil to an explicit null and anything else to a value.
func OptionalPtr[T any](p *T) Optional[T] {
	if p == nil {
		return Null[T]()
	}
	return Some(*p)
}

// Ptr returns nil unless o holds a value.
func (o Optional[T]) Ptr() *T {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

// Get returns the value and whether one is held.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

// SameValue compares two optionals treating unset and null as the same
// "no value".
func SameValue[T comparable](a, b Optional[T]) bool {
	if !a.Valid || !b.Valid {
		return a.Valid == b.Valid
	}
	return a.Value == b.Value
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON is only invoked for keys present in the input, which is what
// separates an explicit null from an omitted field.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Value, o.Valid = zero, false
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}
