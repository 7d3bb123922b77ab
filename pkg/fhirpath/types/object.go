package types

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/buger/jsonparser"
)

// ObjectValue represents a FHIR resource or complex element as a JSON
// object. It carries an optional type annotation: the resourceType for
// resources, or the FHIR type assigned during choice-type resolution.
type ObjectValue struct {
	data     []byte
	typeName string
	fields   map[string]Value // cache of accessed fields
}

// NewObjectValue creates a new ObjectValue from JSON bytes.
func NewObjectValue(data []byte) *ObjectValue {
	o := &ObjectValue{
		data:   data,
		fields: make(map[string]Value),
	}
	if rt, err := jsonparser.GetString(data, "resourceType"); err == nil {
		o.typeName = rt
	}
	return o
}

// NewTypedObjectValue creates an ObjectValue with an explicit type name.
func NewTypedObjectValue(data []byte, typeName string) *ObjectValue {
	o := NewObjectValue(data)
	if o.typeName == "" {
		o.typeName = typeName
	}
	return o
}

// FHIR type constants for structural type inference.
const (
	typeQuantity        = "Quantity"
	typeCoding          = "Coding"
	typeCodeableConcept = "CodeableConcept"
	typeReference       = "Reference"
	typePeriod          = "Period"
	typeIdentifier      = "Identifier"
	typeRange           = "Range"
	typeRatio           = "Ratio"
	typeAttachment      = "Attachment"
	typeHumanName       = "HumanName"
	typeAddress         = "Address"
	typeContactPoint    = "ContactPoint"
	typeAnnotation      = "Annotation"
	typeObject          = "Object"
)

// Type returns the FHIR type of this object: the annotation when known,
// otherwise a structural inference over common complex types.
func (o *ObjectValue) Type() string {
	if o.typeName != "" {
		return o.typeName
	}
	return o.inferType()
}

// TypeInfo returns the qualified type of the value.
func (o *ObjectValue) TypeInfo() TypeInfo {
	return TypeInfo{Namespace: FHIRNamespace, Name: o.Type()}
}

// FHIRType returns the annotated type name, or "".
func (o *ObjectValue) FHIRType() string {
	return o.typeName
}

// Element returns nil; complex values carry no underscore sibling.
func (o *ObjectValue) Element() []byte {
	return nil
}

// inferType attempts to infer the FHIR type from the object's structure.
func (o *ObjectValue) inferType() string {
	if t := o.inferQuantityType(); t != "" {
		return t
	}
	if t := o.inferCodingType(); t != "" {
		return t
	}
	if t := o.inferComplexTypes(); t != "" {
		return t
	}
	return typeObject
}

// inferQuantityType checks if the object is a Quantity type.
func (o *ObjectValue) inferQuantityType() string {
	if o.hasField("value") {
		if o.hasField("unit") || o.hasField("code") || o.hasField("system") {
			return typeQuantity
		}
	}
	return ""
}

// inferCodingType checks if the object is a Coding type.
func (o *ObjectValue) inferCodingType() string {
	if o.hasField("system") && o.hasField("code") && !o.hasField("value") {
		return typeCoding
	}
	return ""
}

// inferComplexTypes checks for various FHIR complex types.
func (o *ObjectValue) inferComplexTypes() string {
	if o.hasArrayField("coding") {
		return typeCodeableConcept
	}
	if o.hasField("reference") {
		return typeReference
	}
	if o.hasField("start") || o.hasField("end") {
		return typePeriod
	}
	if o.hasField("system") && o.hasStringField("value") {
		return typeIdentifier
	}
	if o.hasField("low") || o.hasField("high") {
		return typeRange
	}
	if o.hasField("numerator") || o.hasField("denominator") {
		return typeRatio
	}
	if o.hasField("contentType") {
		return typeAttachment
	}
	if o.hasField("family") || o.hasArrayField("given") {
		return typeHumanName
	}
	if o.hasField("city") || o.hasField("postalCode") {
		return typeAddress
	}
	if o.hasField("system") && o.hasField("use") {
		return typeContactPoint
	}
	if o.hasAnnotationFields() {
		return typeAnnotation
	}
	return ""
}

// hasArrayField checks if a field exists and is an array.
func (o *ObjectValue) hasArrayField(name string) bool {
	_, dataType, _, err := jsonparser.Get(o.data, name)
	return err == nil && dataType == jsonparser.Array
}

// hasField checks if a field exists in the object.
func (o *ObjectValue) hasField(name string) bool {
	_, _, _, err := jsonparser.Get(o.data, name)
	return err == nil
}

// hasStringField checks if a field exists and is a string.
func (o *ObjectValue) hasStringField(name string) bool {
	_, dataType, _, err := jsonparser.Get(o.data, name)
	return err == nil && dataType == jsonparser.String
}

func (o *ObjectValue) hasAnnotationFields() bool {
	if !o.hasField("text") {
		return false
	}
	return o.hasField("time") || o.hasField("authorReference") || o.hasField("authorString")
}

// Equal returns true if the JSON data is identical.
func (o *ObjectValue) Equal(other Value) bool {
	if ov, ok := other.(*ObjectValue); ok {
		return bytes.Equal(o.data, ov.data)
	}
	return false
}

// Equivalent is the same as Equal for objects.
func (o *ObjectValue) Equivalent(other Value) bool {
	return o.Equal(other)
}

// String returns the JSON representation.
func (o *ObjectValue) String() string {
	return string(o.data)
}

// Data returns the raw JSON data.
func (o *ObjectValue) Data() []byte {
	return o.data
}

// Get retrieves a field value, caching the result.
func (o *ObjectValue) Get(field string) (Value, bool) {
	if v, ok := o.fields[field]; ok {
		return v, true
	}

	value, dataType, _, err := jsonparser.Get(o.data, field)
	if err != nil {
		return nil, false
	}

	v := jsonValueToFHIRValue(value, dataType)
	if v == nil {
		return nil, false
	}
	o.fields[field] = v
	return v, true
}

// GetCollection retrieves a field as a Collection.
// Array fields flatten to their elements; scalar fields become singletons;
// missing and null fields are empty.
func (o *ObjectValue) GetCollection(field string) Collection {
	value, dataType, _, err := jsonparser.Get(o.data, field)
	if err != nil {
		return Collection{}
	}

	if dataType == jsonparser.Array {
		return jsonArrayToCollection(value)
	}

	v := jsonValueToFHIRValue(value, dataType)
	if v == nil {
		return Collection{}
	}
	return Collection{v}
}

// GetRaw returns the raw bytes and JSON kind of a field.
func (o *ObjectValue) GetRaw(field string) ([]byte, jsonparser.ValueType, bool) {
	value, dataType, _, err := jsonparser.Get(o.data, field)
	if err != nil {
		return nil, jsonparser.NotExist, false
	}
	return value, dataType, true
}

// Keys returns all field names in the object, in document order.
func (o *ObjectValue) Keys() []string {
	var keys []string
	_ = jsonparser.ObjectEach(o.data, func(key []byte, _ []byte, _ jsonparser.ValueType, _ int) error {
		keys = append(keys, string(key))
		return nil
	})
	return keys
}

// EachField visits every field in document order.
func (o *ObjectValue) EachField(visit func(key string, value []byte, kind jsonparser.ValueType)) {
	_ = jsonparser.ObjectEach(o.data, func(key []byte, value []byte, kind jsonparser.ValueType, _ int) error {
		visit(string(key), value, kind)
		return nil
	})
}

// Children returns a collection of all child values.
func (o *ObjectValue) Children() Collection {
	var result Collection
	_ = jsonparser.ObjectEach(o.data, func(key []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		if len(key) > 0 && key[0] == '_' {
			return nil
		}
		if string(key) == "resourceType" {
			return nil
		}
		if dataType == jsonparser.Array {
			result = append(result, jsonArrayToCollection(value)...)
		} else {
			v := jsonValueToFHIRValue(value, dataType)
			if v != nil {
				result = append(result, v)
			}
		}
		return nil
	})
	return result
}

// jsonValueToFHIRValue converts a JSON value to a FHIRPath Value.
func jsonValueToFHIRValue(data []byte, dataType jsonparser.ValueType) Value {
	switch dataType {
	case jsonparser.String:
		var s string
		if err := json.Unmarshal(append([]byte{'"'}, append(data, '"')...), &s); err != nil {
			s = string(data)
		}
		return NewString(s)

	case jsonparser.Number:
		s := string(data)
		if !strings.ContainsAny(s, ".eE") {
			if i, err := jsonparser.ParseInt(data); err == nil {
				return NewInteger(i)
			}
		}
		d, err := NewDecimal(s)
		if err != nil {
			return nil
		}
		return d

	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(data)
		if err != nil {
			return nil
		}
		return NewBoolean(b)

	case jsonparser.Object:
		return NewObjectValue(data)

	case jsonparser.Array:
		// Arrays are handled separately as collections.
		return nil

	case jsonparser.Null:
		return nil
	}

	return nil
}

// jsonArrayToCollection converts a JSON array to a Collection.
func jsonArrayToCollection(data []byte) Collection {
	var result Collection
	_, _ = jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, _ error) {
		v := jsonValueToFHIRValue(value, dataType)
		if v != nil {
			result = append(result, v)
		}
	})
	return result
}

// ValueFromJSON converts one raw JSON value of a known kind to a Value.
// Arrays and nulls return nil; use ArrayToCollection for arrays.
func ValueFromJSON(data []byte, kind jsonparser.ValueType) Value {
	return jsonValueToFHIRValue(data, kind)
}

// ArrayToCollection converts a raw JSON array to a Collection.
func ArrayToCollection(data []byte) Collection {
	return jsonArrayToCollection(data)
}

// FromJSON converts JSON bytes to a Collection.
func FromJSON(data []byte) (Collection, error) {
	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, err
	}

	switch dataType {
	case jsonparser.Object:
		return Collection{NewObjectValue(value)}, nil
	case jsonparser.Array:
		return jsonArrayToCollection(value), nil
	case jsonparser.Null:
		return Collection{}, nil
	default:
		v := jsonValueToFHIRValue(value, dataType)
		if v == nil {
			return Collection{}, nil
		}
		return Collection{v}, nil
	}
}

// ToQuantity attempts to convert an ObjectValue representing a FHIR
// Quantity (value plus unit/code/system) to a Quantity value.
func (o *ObjectValue) ToQuantity() (Quantity, bool) {
	valueBytes, dataType, ok := o.GetRaw("value")
	if !ok || dataType != jsonparser.Number {
		return Quantity{}, false
	}

	val, err := NewDecimal(string(valueBytes))
	if err != nil {
		return Quantity{}, false
	}

	unit := ""
	if codeBytes, kind, ok := o.GetRaw("code"); ok && kind == jsonparser.String {
		unit = string(codeBytes)
	} else if unitBytes, kind, ok := o.GetRaw("unit"); ok && kind == jsonparser.String {
		unit = string(unitBytes)
	}

	return NewQuantityFromDecimal(val.Value(), unit), true
}
