// Package validate runs declarative constraints over a handler's input
// fields (spec §4.5): Validator.Validate iterates fields in declaration order and,
// within each field, constraints in attached order, returning the first
// failing response code. Success is response code 0.
package validate

import "reflect"

// Constraint checks one property of a field's current value, returning the
// response code to report on failure.
type Constraint interface {
	Check(field reflect.Value) (ok bool, failureCode uint16)
}

// FieldConstraints attaches an ordered list of constraints to one input
// field, addressed by its index into the handler struct.
type FieldConstraints struct {
	FieldIndex int
	Checks     []Constraint
}

// Validator runs an ordered set of per-field constraints against a handler
// instance.
type Validator struct {
	Fields []FieldConstraints
}

// Validate returns 0 (success) or the first failing constraint's response
// code, scanning fields in declaration order and, within a field,
// constraints in attached order.
func (v *Validator) Validate(handler reflect.Value) uint16 {
	for _, fc := range v.Fields {
		field := handler.Field(fc.FieldIndex)
		for _, c := range fc.Checks {
			if ok, code := c.Check(field); !ok {
				return code
			}
		}
	}
	return 0
}

// AtLeast fails unless the field's integer value is >= Min.
type AtLeast struct {
	Min          int64
	FailureCode  uint16
}

func (a AtLeast) Check(field reflect.Value) (bool, uint16) {
	var v int64
	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v = field.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v = int64(field.Uint())
	}
	if v < a.Min {
		return false, a.FailureCode
	}
	return true, 0
}

// StringLengthRange fails unless len(field) is within [Min, Max] (Max <= 0
// means unbounded).
type StringLengthRange struct {
	Min, Max    int
	FailureCode uint16
}

func (s StringLengthRange) Check(field reflect.Value) (bool, uint16) {
	n := len(field.String())
	if n < s.Min || (s.Max > 0 && n > s.Max) {
		return false, s.FailureCode
	}
	return true, 0
}

// NotEmptyString fails if the string field is empty.
type NotEmptyString struct {
	FailureCode uint16
}

func (n NotEmptyString) Check(field reflect.Value) (bool, uint16) {
	if field.String() == "" {
		return false, n.FailureCode
	}
	return true, 0
}

// IntRange fails unless the field's integer value is within [Min, Max].
type IntRange struct {
	Min, Max    int64
	FailureCode uint16
}

func (r IntRange) Check(field reflect.Value) (bool, uint16) {
	var v int64
	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v = field.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v = int64(field.Uint())
	}
	if v < r.Min || v > r.Max {
		return false, r.FailureCode
	}
	return true, 0
}
