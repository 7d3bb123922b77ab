package types

import (
	"strings"
	"unicode"
)

// StringKind distinguishes the string-like FHIRPath types. All kinds
// compare equal to each other; the kind only informs type reflection.
type StringKind int

const (
	PlainString StringKind = iota
	UriString
	UrlString
	IdString
)

// String represents a FHIRPath string value.
type String struct {
	anno
	value string
	kind  StringKind
}

// NewString creates a new String value.
func NewString(v string) String {
	return String{value: v}
}

// NewStringKind creates a string-like value of the given kind (uri, url, id).
func NewStringKind(v string, kind StringKind) String {
	return String{value: v, kind: kind}
}

// Value returns the underlying string value.
func (s String) Value() string {
	return s.value
}

// Kind returns the string kind.
func (s String) Kind() StringKind {
	return s.kind
}

// Type returns the FHIRPath type name of the string kind.
func (s String) Type() string {
	switch s.kind {
	case UriString:
		return "Uri"
	case UrlString:
		return "Url"
	case IdString:
		return "Id"
	default:
		return "String"
	}
}

// TypeInfo returns the qualified type of the value.
func (s String) TypeInfo() TypeInfo {
	if s.fhirType != "" {
		return TypeInfo{Namespace: FHIRNamespace, Name: s.fhirType}
	}
	return TypeInfo{Namespace: SystemNamespace, Name: s.Type()}
}

// Equal returns true if other is a string-like value with the same text.
// Kinds (plain, uri, url, id) compare equal to each other.
func (s String) Equal(other Value) bool {
	if o, ok := other.(String); ok {
		return s.value == o.value
	}
	return false
}

// Equivalent compares strings case-insensitively with normalized whitespace.
func (s String) Equivalent(other Value) bool {
	if o, ok := other.(String); ok {
		return normalizeString(s.value) == normalizeString(o.value)
	}
	return false
}

// normalizeString converts to lowercase and normalizes whitespace.
func normalizeString(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	var result strings.Builder
	prevSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !prevSpace {
				result.WriteRune(' ')
				prevSpace = true
			}
		} else {
			result.WriteRune(r)
			prevSpace = false
		}
	}
	return result.String()
}

// String returns the string value.
func (s String) String() string {
	return s.value
}

// Length returns the number of characters.
func (s String) Length() int {
	return len([]rune(s.value))
}

// Contains returns true if the string contains the substring.
func (s String) Contains(substr string) bool {
	return strings.Contains(s.value, substr)
}

// StartsWith returns true if the string starts with the prefix.
func (s String) StartsWith(prefix string) bool {
	return strings.HasPrefix(s.value, prefix)
}

// EndsWith returns true if the string ends with the suffix.
func (s String) EndsWith(suffix string) bool {
	return strings.HasSuffix(s.value, suffix)
}

// Upper returns a new String with all characters uppercase.
func (s String) Upper() String {
	return NewString(strings.ToUpper(s.value))
}

// Lower returns a new String with all characters lowercase.
func (s String) Lower() String {
	return NewString(strings.ToLower(s.value))
}

// Compare compares two strings lexicographically.
func (s String) Compare(other Value) (int, error) {
	if o, ok := other.(String); ok {
		return strings.Compare(s.value, o.value), nil
	}
	return 0, NewTypeError("String", other.Type(), "comparison")
}

// IndexOf returns the index of the first occurrence of substr, or -1.
func (s String) IndexOf(substr string) int {
	return strings.Index(s.value, substr)
}

// Substring returns a substring starting at start with the given length.
func (s String) Substring(start, length int) String {
	runes := []rune(s.value)
	if start < 0 || start >= len(runes) {
		return NewString("")
	}
	end := start + length
	if end > len(runes) {
		end = len(runes)
	}
	return NewString(string(runes[start:end]))
}

// Replace returns a new String with all occurrences of old replaced by replacement.
func (s String) Replace(old, replacement string) String {
	return NewString(strings.ReplaceAll(s.value, old, replacement))
}

// ToChars returns a collection of single-character strings.
func (s String) ToChars() Collection {
	runes := []rune(s.value)
	result := make(Collection, len(runes))
	for i, r := range runes {
		result[i] = NewString(string(r))
	}
	return result
}
