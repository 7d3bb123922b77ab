// Package types defines the FHIRPath type system.
package types

// Type namespaces. Primitive system types live in the System namespace,
// values originating from a resource carry the FHIR namespace.
const (
	SystemNamespace = "System"
	FHIRNamespace   = "FHIR"
)

// Value is the base interface for all FHIRPath values.
type Value interface {
	// Type returns the FHIRPath type name.
	Type() string

	// TypeInfo returns the namespace-qualified type of the value.
	// Values produced by choice-type resolution report their FHIR type;
	// everything else reports its System type.
	TypeInfo() TypeInfo

	// Equal compares exact equality (= operator).
	Equal(other Value) bool

	// Equivalent compares equivalence (~ operator).
	// For strings: case-insensitive, ignores leading/trailing whitespace.
	Equivalent(other Value) bool

	// String returns a string representation of the value.
	String() string
}

// Comparable is implemented by types that support ordering.
type Comparable interface {
	Value
	// Compare returns -1 if less than, 0 if equal, 1 if greater than.
	// Returns error if types are incompatible.
	Compare(other Value) (int, error)
}

// Numeric is implemented by numeric types (Integer, Decimal).
type Numeric interface {
	Value
	// ToDecimal converts the numeric to a Decimal.
	ToDecimal() Decimal
}

// Annotated is implemented by values that can carry FHIR element metadata:
// the FHIR type name assigned during choice-type resolution and the sibling
// underscore-property JSON (id and extension array) FHIR uses to annotate
// primitives.
type Annotated interface {
	Value
	FHIRType() string
	Element() []byte
}

// anno is the metadata side-channel embedded in annotatable values.
// It never participates in equality or equivalence.
type anno struct {
	fhirType string
	element  []byte
}

// FHIRType returns the FHIR type name assigned by path resolution, or "".
func (a anno) FHIRType() string {
	return a.fhirType
}

// Element returns the sibling primitive-element JSON, or nil.
func (a anno) Element() []byte {
	return a.element
}

// Annotate attaches a FHIR type name and/or primitive-element JSON to a
// value. The value is returned unchanged if its kind cannot carry
// annotations.
func Annotate(v Value, fhirType string, element []byte) Value {
	a := anno{fhirType: fhirType, element: element}
	switch t := v.(type) {
	case Boolean:
		t.anno = a
		return t
	case Integer:
		t.anno = a
		return t
	case Decimal:
		t.anno = a
		return t
	case String:
		t.anno = a
		return t
	case Date:
		t.anno = a
		return t
	case DateTime:
		t.anno = a
		return t
	case Time:
		t.anno = a
		return t
	case Quantity:
		t.anno = a
		return t
	case *ObjectValue:
		if fhirType != "" {
			t.typeName = fhirType
		}
		return t
	}
	return v
}

// Equals compares two values with FHIRPath equality semantics.
// The second return is false when the comparison is indeterminate
// (temporal values at different precisions); callers surface that as the
// empty collection.
func Equals(a, b Value) (eq bool, ok bool) {
	switch l := a.(type) {
	case Date:
		if r, isDate := b.(Date); isDate {
			return l.equalTri(r)
		}
		if r, isDT := b.(DateTime); isDT {
			return l.ToDateTime().equalTri(r)
		}
	case DateTime:
		if r, isDT := b.(DateTime); isDT {
			return l.equalTri(r)
		}
		if r, isDate := b.(Date); isDate {
			return l.equalTri(r.ToDateTime())
		}
	case Time:
		if r, isTime := b.(Time); isTime {
			return l.equalTri(r)
		}
	}
	return a.Equal(b), true
}

// TypeInfo is the reified type value returned by the type() function.
type TypeInfo struct {
	Namespace string
	Name      string
}

// NewTypeInfo creates a TypeInfo value.
func NewTypeInfo(namespace, name string) TypeInfo {
	return TypeInfo{Namespace: namespace, Name: name}
}

// Type returns "TypeInfo".
func (t TypeInfo) Type() string {
	return "TypeInfo"
}

// TypeInfo returns the type of the TypeInfo value itself.
func (t TypeInfo) TypeInfo() TypeInfo {
	return TypeInfo{Namespace: SystemNamespace, Name: "TypeInfo"}
}

// Equal returns true if other names the same namespace and type.
func (t TypeInfo) Equal(other Value) bool {
	if o, isTI := other.(TypeInfo); isTI {
		return t.Namespace == o.Namespace && t.Name == o.Name
	}
	return false
}

// Equivalent is the same as Equal for type values.
func (t TypeInfo) Equivalent(other Value) bool {
	return t.Equal(other)
}

// String returns the qualified type name.
func (t TypeInfo) String() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// QualifiedName returns the namespace-qualified name.
func (t TypeInfo) QualifiedName() string {
	return t.String()
}
