package validate

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type loginFields struct {
	Username string
	Attempts int32
}

func TestValidateReturnsSuccessWhenAllConstraintsPass(t *testing.T) {
	v := &Validator{
		Fields: []FieldConstraints{
			{FieldIndex: 0, Checks: []Constraint{NotEmptyString{FailureCode: 101}, StringLengthRange{Min: 1, Max: 32, FailureCode: 102}}},
			{FieldIndex: 1, Checks: []Constraint{AtLeast{Min: 0, FailureCode: 103}}},
		},
	}
	h := loginFields{Username: "alice", Attempts: 2}
	require.EqualValues(t, 0, v.Validate(reflect.ValueOf(h)))
}

func TestValidateReturnsFirstFailingFieldInDeclarationOrder(t *testing.T) {
	v := &Validator{
		Fields: []FieldConstraints{
			{FieldIndex: 0, Checks: []Constraint{NotEmptyString{FailureCode: 101}}},
			{FieldIndex: 1, Checks: []Constraint{AtLeast{Min: 5, FailureCode: 103}}},
		},
	}
	h := loginFields{Username: "", Attempts: 1}
	require.EqualValues(t, 101, v.Validate(reflect.ValueOf(h)))
}

func TestValidateReturnsFirstFailingConstraintInAttachedOrder(t *testing.T) {
	v := &Validator{
		Fields: []FieldConstraints{
			{FieldIndex: 0, Checks: []Constraint{
				NotEmptyString{FailureCode: 101},
				StringLengthRange{Min: 10, Max: 0, FailureCode: 102},
			}},
		},
	}
	h := loginFields{Username: "alice"}
	require.EqualValues(t, 102, v.Validate(reflect.ValueOf(h)))
}

func TestStringLengthRangeUnboundedMax(t *testing.T) {
	c := StringLengthRange{Min: 1, Max: 0, FailureCode: 1}
	ok, _ := c.Check(reflect.ValueOf("a very long string that would fail a bounded max"))
	require.True(t, ok)
}

func TestIntRangeRejectsOutOfBounds(t *testing.T) {
	c := IntRange{Min: 0, Max: 10, FailureCode: 55}
	ok, code := c.Check(reflect.ValueOf(int32(11)))
	require.False(t, ok)
	require.EqualValues(t, 55, code)
}

func TestIntRangeAcceptsUnsignedWithinBounds(t *testing.T) {
	c := IntRange{Min: 0, Max: 10, FailureCode: 55}
	ok, _ := c.Check(reflect.ValueOf(uint8(3)))
	require.True(t, ok)
}

func TestAtLeastRejectsBelowMinimum(t *testing.T) {
	c := AtLeast{Min: 5, FailureCode: 9}
	ok, code := c.Check(reflect.ValueOf(int32(4)))
	require.False(t, ok)
	require.EqualValues(t, 9, code)
}
