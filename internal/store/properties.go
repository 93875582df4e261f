package store

import (
	"encoding/json"
	"fmt"
)

// PropertyKind tags which variant a PropertyValue holds.
type PropertyKind string

const (
	PropertyString  PropertyKind = "string"
	PropertyNumber  PropertyKind = "number"
	PropertyBoolean PropertyKind = "boolean"
	PropertyArray   PropertyKind = "array"
	PropertyObject  PropertyKind = "object"
)

// PropertyValue is a tagged union over the value shapes a class property
// can hold, serialized as a JSON blob plus a separate type_tag column so
// the on-disk representation is self-describing even if the blob alone
// would be ambiguous (e.g. a JSON array of arrays vs. an object).
type PropertyValue struct {
	Kind    PropertyKind
	Str     string
	Num     float64
	Bool    bool
	Array   []PropertyValue
	Object  map[string]PropertyValue
}

// NewString builds a string-valued property.
func NewString(s string) PropertyValue { return PropertyValue{Kind: PropertyString, Str: s} }

// NewNumber builds a number-valued property.
func NewNumber(n float64) PropertyValue { return PropertyValue{Kind: PropertyNumber, Num: n} }

// NewBoolean builds a boolean-valued property.
func NewBoolean(b bool) PropertyValue { return PropertyValue{Kind: PropertyBoolean, Bool: b} }

// NewArray builds an array-valued property.
func NewArray(vs []PropertyValue) PropertyValue { return PropertyValue{Kind: PropertyArray, Array: vs} }

// NewObject builds an object-valued property.
func NewObject(m map[string]PropertyValue) PropertyValue {
	return PropertyValue{Kind: PropertyObject, Object: m}
}

type wireValue struct {
	Kind   PropertyKind         `json:"kind"`
	Str    string               `json:"str,omitempty"`
	Num    float64              `json:"num,omitempty"`
	Bool   bool                 `json:"bool,omitempty"`
	Array  []wireValue          `json:"array,omitempty"`
	Object map[string]wireValue `json:"object,omitempty"`
}

func toWire(v PropertyValue) wireValue {
	w := wireValue{Kind: v.Kind, Str: v.Str, Num: v.Num, Bool: v.Bool}
	if v.Array != nil {
		w.Array = make([]wireValue, len(v.Array))
		for i, e := range v.Array {
			w.Array[i] = toWire(e)
		}
	}
	if v.Object != nil {
		w.Object = make(map[string]wireValue, len(v.Object))
		for k, e := range v.Object {
			w.Object[k] = toWire(e)
		}
	}
	return w
}

func fromWire(w wireValue) PropertyValue {
	v := PropertyValue{Kind: w.Kind, Str: w.Str, Num: w.Num, Bool: w.Bool}
	if w.Array != nil {
		v.Array = make([]PropertyValue, len(w.Array))
		for i, e := range w.Array {
			v.Array[i] = fromWire(e)
		}
	}
	if w.Object != nil {
		v.Object = make(map[string]PropertyValue, len(w.Object))
		for k, e := range w.Object {
			v.Object[k] = fromWire(e)
		}
	}
	return v
}

// MarshalBlob serializes the value to its JSON blob form, for the value
// column; the type_tag column is written separately from v.Kind.
func (v PropertyValue) MarshalBlob() ([]byte, error) {
	return json.Marshal(toWire(v))
}

// UnmarshalBlob parses a value blob, falling back to treating it as a raw
// string if tag and blob disagree (e.g. a blob written by an older schema
// version without a type_tag).
func UnmarshalBlob(tag string, blob []byte) (PropertyValue, error) {
	var w wireValue
	if err := json.Unmarshal(blob, &w); err != nil {
		return NewString(string(blob)), nil
	}
	if string(w.Kind) != tag {
		return NewString(fmt.Sprintf("%s", blob)), nil
	}
	return fromWire(w), nil
}
