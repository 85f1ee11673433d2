// Package conf holds the parsed configuration tree the breakpoint
// loader consumes. A Value is built once, by ParseJSON or by the
// builder constructors, and is read-only afterwards; the engine keeps
// references to nodes for the process lifetime and never mutates them.
package conf

import (
	"strconv"
)

// Kind identifies the shape of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

// Value is one node of the configuration tree.
type Value struct {
	kind     Kind
	boolVal  bool
	intVal   int64
	floatVal float64
	strVal   string
	items    []*Value
	fields   map[string]*Value
	keys     []string
}

func NewNull() *Value            { return &Value{kind: KindNull} }
func NewBool(b bool) *Value      { return &Value{kind: KindBool, boolVal: b} }
func NewInt(i int64) *Value      { return &Value{kind: KindInt, intVal: i} }
func NewFloat(f float64) *Value  { return &Value{kind: KindFloat, floatVal: f} }
func NewString(s string) *Value  { return &Value{kind: KindString, strVal: s} }
func NewArray(items ...*Value) *Value {
	return &Value{kind: KindArray, items: items}
}

func NewObject() *Value {
	return &Value{kind: KindObject, fields: map[string]*Value{}}
}

// Set adds or replaces a field on an object value and returns the
// object, so builders can chain. Field order is declaration order.
func (v *Value) Set(key string, item *Value) *Value {
	if v.kind != KindObject {
		return v
	}
	if _, ok := v.fields[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.fields[key] = item
	return v
}

func (v *Value) append(item *Value) {
	v.items = append(v.items, item)
}

func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

func (v *Value) IsNull() bool { return v == nil || v.kind == KindNull }

// Bool returns the boolean payload and whether the value is a boolean.
func (v *Value) Bool() (bool, bool) {
	if v == nil || v.kind != KindBool {
		return false, false
	}
	return v.boolVal, true
}

// Int returns the integer payload and whether the value is an integer.
func (v *Value) Int() (int64, bool) {
	if v == nil || v.kind != KindInt {
		return 0, false
	}
	return v.intVal, true
}

// Float returns the numeric payload of an integer or float value.
func (v *Value) Float() (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch v.kind {
	case KindInt:
		return float64(v.intVal), true
	case KindFloat:
		return v.floatVal, true
	}
	return 0, false
}

// Str returns the string payload and whether the value is a string.
func (v *Value) Str() (string, bool) {
	if v == nil || v.kind != KindString {
		return "", false
	}
	return v.strVal, true
}

// AsInt coerces the value to an integer: integer values directly,
// string values through integer-literal parsing ("64", "0x40", "0755").
// Expressions that need runtime state belong to the external evaluator
// and fail here.
func (v *Value) AsInt() (int64, bool) {
	if v == nil {
		return 0, false
	}
	switch v.kind {
	case KindInt:
		return v.intVal, true
	case KindString:
		n, err := strconv.ParseInt(v.strVal, 0, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Len returns the number of array items or object fields.
func (v *Value) Len() int {
	if v == nil {
		return 0
	}
	switch v.kind {
	case KindArray:
		return len(v.items)
	case KindObject:
		return len(v.keys)
	}
	return 0
}

// At returns the i-th array item, or nil when out of range.
func (v *Value) At(i int) *Value {
	if v == nil || v.kind != KindArray || i < 0 || i >= len(v.items) {
		return nil
	}
	return v.items[i]
}

// Get returns the named field of an object, or nil when absent.
func (v *Value) Get(key string) *Value {
	if v == nil || v.kind != KindObject {
		return nil
	}
	return v.fields[key]
}

// Keys returns object field names in declaration order. The returned
// slice is shared; callers must not modify it.
func (v *Value) Keys() []string {
	if v == nil || v.kind != KindObject {
		return nil
	}
	return v.keys
}

// GetBoolDefault reads a boolean field, falling back to def when the
// field is absent or not a boolean.
func (v *Value) GetBoolDefault(key string, def bool) bool {
	b, ok := v.Get(key).Bool()
	if !ok {
		return def
	}
	return b
}
