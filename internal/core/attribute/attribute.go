// Package attribute implements TransferAttribute: a reference-counted
// key/value/required triple carried alongside transfers (e.g. an XRP
// destination tag, an XTZ operation memo).
package attribute

import "sync/atomic"

// Attribute is a (key, value, required) triple. It is reference-counted
// because a single attribute may be held simultaneously by a transfer
// and by a validator inspecting it; Take/Give mirror the teacher's
// GIVE/TAKE handle discipline without exposing a raw pointer.
type Attribute struct {
	key      string
	value    *string
	required bool
	refs     *int32
}

// New creates an attribute with one reference held by the caller.
func New(key string, value *string, required bool) *Attribute {
	refs := int32(1)
	return &Attribute{key: key, value: value, required: required, refs: &refs}
}

// Take increments the reference count and returns the same attribute,
// for a second owner (e.g. a validator) to Give back when done.
func (a *Attribute) Take() *Attribute {
	atomic.AddInt32(a.refs, 1)
	return a
}

// Give releases one reference. Attribute is a plain value once refs
// reaches zero; Go's GC reclaims it, so Give is a bookkeeping no-op
// beyond the counter, kept for parity with the ref-counted ownership
// model the rest of the core follows.
func (a *Attribute) Give() {
	atomic.AddInt32(a.refs, -1)
}

func (a *Attribute) Key() string { return a.key }

// Value returns the attribute's value and whether one was set.
func (a *Attribute) Value() (string, bool) {
	if a.value == nil {
		return "", false
	}
	return *a.value, true
}

func (a *Attribute) Required() bool { return a.required }

// SetValue replaces the value in place (the attribute identity and
// required flag are immutable after construction).
func (a *Attribute) SetValue(value *string) {
	a.value = value
}

// Equal compares key, value, and required flag.
func (a *Attribute) Equal(o *Attribute) bool {
	if a == o {
		return true
	}
	if a == nil || o == nil {
		return false
	}
	if a.key != o.key || a.required != o.required {
		return false
	}
	av, aok := a.Value()
	ov, ook := o.Value()
	return aok == ook && av == ov
}

// Clone produces an independent copy with its own reference count.
func (a *Attribute) Clone() *Attribute {
	var v *string
	if a.value != nil {
		cp := *a.value
		v = &cp
	}
	return New(a.key, v, a.required)
}

// ValidationError classifies why an attribute failed validation (spec
// §7 "Attribute validation").
type ValidationError string

const (
	ErrRequiredButNotProvided  ValidationError = "REQUIRED_BUT_NOT_PROVIDED"
	ErrMismatchedType          ValidationError = "MISMATCHED_TYPE"
	ErrRelationshipInconsistency ValidationError = "RELATIONSHIP_INCONSISTENCY"
)

func (e ValidationError) Error() string { return string(e) }
