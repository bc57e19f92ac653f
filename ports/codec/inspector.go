// Package codec implements spec §6's Inspector contract: a visitor capability
// set {object(name).fields(field(name, value)...)} that user types drive to
// describe their own serialization, the way CAF's inspect() free functions do.
// The one backend implemented here is the binary codec (BinaryEncoder /
// BinaryDecoder); there is no JSON or stringification backend.
package codec

import "errors"

// ErrFieldMissing is returned by a decoding backend when a required
// (non-Optional, no Fallback) field is absent from the input.
var ErrFieldMissing = errors.New("codec: required field missing")

// ErrInvariant is returned when a decoded field fails its Invariant check.
var ErrInvariant = errors.New("codec: field failed invariant")

var errNotAssignable = errors.New("codec: value not assignable to field")

// Inspectable lets a value participate in Inspector-driven codecs without
// the backend needing reflection over its internals: it calls back into
// Object/Fields on insp to describe itself, recursively for nested values.
type Inspectable interface {
	Inspect(insp Inspector) error
}

// Inspector is the capability a codec backend exposes. Object starts
// describing a named value; the returned ObjectVisitor's Fields call
// commits the field list to the backend (encoding them if the backend
// saves, decoding them if it loads).
type Inspector interface {
	Object(name string) *ObjectVisitor
}

// ObjectVisitor binds a name to the backend's Fields implementation.
type ObjectVisitor struct {
	name  string
	apply func(name string, specs []*FieldSpec) error
}

func newObjectVisitor(name string, apply func(string, []*FieldSpec) error) *ObjectVisitor {
	return &ObjectVisitor{name: name, apply: apply}
}

// Fields commits specs to the backend in order.
func (o *ObjectVisitor) Fields(specs ...*FieldSpec) error {
	return o.apply(o.name, specs)
}

// FieldSpec names a field and a pointer to its storage, plus the optional
// capabilities spec §6 lists: Fallback, Invariant, Optional, GetterSetter.
type FieldSpec struct {
	name string
	ptr  any

	hasFallback bool
	fallback    any

	invariant func(any) bool
	optional  bool

	get       func() any
	set       func(any) error
	hasGetSet bool
}

// Field describes a field by name and a pointer to its backing storage.
// ptr must be a non-nil pointer unless GetterSetter is also supplied.
func Field(name string, ptr any) *FieldSpec {
	return &FieldSpec{name: name, ptr: ptr}
}

// Fallback supplies the value a decoding backend uses when this field is
// absent from the input, instead of failing with ErrFieldMissing.
func (f *FieldSpec) Fallback(v any) *FieldSpec {
	f.fallback, f.hasFallback = v, true
	return f
}

// Invariant registers a predicate a decoded value must satisfy.
func (f *FieldSpec) Invariant(pred func(any) bool) *FieldSpec {
	f.invariant = pred
	return f
}

// Optional marks the field as allowed to be absent with no fallback; a
// missing optional field is left at its current (zero) value.
func (f *FieldSpec) Optional() *FieldSpec {
	f.optional = true
	return f
}

// GetterSetter routes reads and writes through get/set instead of
// dereferencing ptr directly — for fields backed by computed or
// validated accessors rather than a plain struct field.
func (f *FieldSpec) GetterSetter(get func() any, set func(any) error) *FieldSpec {
	f.get, f.set, f.hasGetSet = get, set, true
	return f
}

func (f *FieldSpec) valueForEncode() any {
	if f.hasGetSet {
		return f.get()
	}
	return derefPtr(f.ptr)
}

func (f *FieldSpec) assignDecoded(v any) error {
	if f.invariant != nil && !f.invariant(v) {
		return ErrInvariant
	}
	if f.hasGetSet {
		return f.set(v)
	}
	return setPtr(f.ptr, v)
}

func (f *FieldSpec) assignFallbackOrMissing() error {
	if f.hasFallback {
		return f.assignDecoded(f.fallback)
	}
	if f.optional {
		return nil
	}
	return ErrFieldMissing
}
