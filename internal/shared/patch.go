package shared

import (
	"bytes"
	"encoding/json"
)

// Patch holds a sparse-update field that distinguishes "absent from the
// payload" from "explicitly set to null". The zero value means absent;
// encoding/json only invokes UnmarshalJSON for keys present in the body.
type Patch[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// PatchValue builds a present, non-null patch field.
func PatchValue[T any](v T) Patch[T] {
	return Patch[T]{Set: true, Valid: true, Value: v}
}

// PatchNull builds a present, explicit-null patch field.
func PatchNull[T any]() Patch[T] {
	return Patch[T]{Set: true}
}

func (p *Patch[T]) UnmarshalJSON(data []byte) error {
	p.Set = true
	if bytes.Equal(data, []byte("null")) {
		p.Valid = false
		var zero T
		p.Value = zero
		return nil
	}
	if err := json.Unmarshal(data, &p.Value); err != nil {
		return err
	}
	p.Valid = true
	return nil
}

func (p Patch[T]) MarshalJSON() ([]byte, error) {
	if !p.Set || !p.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

// Ptr returns the value as a pointer, nil when the field is absent or null.
func (p Patch[T]) Ptr() *T {
	if !p.Set || !p.Valid {
		return nil
	}
	v := p.Value
	return &v
}
