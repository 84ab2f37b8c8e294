// Package typenc parses Objective-C type encodings.
//
// A type encoding is the compact textual description the Objective-C runtime
// attaches to method signatures, instance variables, and properties. Each
// type is introduced by a single tag character, optionally preceded by
// qualifier characters such as r for const or o for out:
//
//	v       void
//	c C     char, unsigned char
//	s S     short, unsigned short
//	i I     int, unsigned int
//	l L     long, unsigned long (32 bits even on 64-bit targets)
//	q Q     long long, unsigned long long
//	f d     float, double
//	B       C++ bool or C99 _Bool
//	*       char *
//	@       object, optionally @"ClassName" or @? for blocks
//	#       class
//	:       selector
//	^type   pointer to type
//	[Ntype] array of N elements
//	{name=fields}  structure
//	(name=fields)  union
//	bN      bit field of N bits
//	?       unknown, including function pointers
//
// Method type strings interleave stack offsets with the types, as in
// "v24@0:8@16". ParseMethod and Split skip the offsets.
package typenc

import "strings"

// Qualifiers is the set of characters which may precede a type and which are
// stripped before dispatch.
const Qualifiers = "rnNoORV"

// Strip removes leading qualifier characters from enc.
func Strip(enc string) string {
	return strings.TrimLeft(enc, Qualifiers)
}

// Tag returns the character which determines the representation of enc,
// i.e. its first character after qualifiers are stripped. If nothing remains
// after stripping, the result is 0.
func Tag(enc string) byte {
	enc = Strip(enc)
	if enc == "" {
		return 0
	}
	return enc[0]
}

// Kind is a broad category of types.
type Kind int

const (
	// Invalid is the kind of tags that are not type encodings.
	Invalid Kind = iota
	// Void is the kind of v.
	Void
	// Integer is the kind of the signed and unsigned integer tags.
	Integer
	// Float is the kind of f and d.
	Float
	// Bool is the kind of B.
	Bool
	// CString is the kind of *.
	CString
	// Object is the kind of @.
	Object
	// ClassKind is the kind of #.
	ClassKind
	// Selector is the kind of :.
	Selector
	// Pointer is the kind of ^.
	Pointer
	// Array is the kind of [.
	Array
	// Struct is the kind of {.
	Struct
	// Union is the kind of (.
	Union
	// Bitfield is the kind of b.
	Bitfield
	// Unknown is the kind of ?.
	Unknown
)

var kindNames = [...]string{
	Invalid:   "invalid",
	Void:      "void",
	Integer:   "integer",
	Float:     "float",
	Bool:      "bool",
	CString:   "cstring",
	Object:    "object",
	ClassKind: "class",
	Selector:  "selector",
	Pointer:   "pointer",
	Array:     "array",
	Struct:    "struct",
	Union:     "union",
	Bitfield:  "bitfield",
	Unknown:   "unknown",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "invalid"
	}
	return kindNames[k]
}

// KindOf returns the kind of a tag character.
func KindOf(tag byte) Kind {
	switch tag {
	case 'v':
		return Void
	case 'c', 'C', 's', 'S', 'i', 'I', 'l', 'L', 'q', 'Q':
		return Integer
	case 'f', 'd':
		return Float
	case 'B':
		return Bool
	case '*':
		return CString
	case '@':
		return Object
	case '#':
		return ClassKind
	case ':':
		return Selector
	case '^':
		return Pointer
	case '[':
		return Array
	case '{':
		return Struct
	case '(':
		return Union
	case 'b':
		return Bitfield
	case '?':
		return Unknown
	}
	return Invalid
}

// IsFloat reports whether enc describes a floating-point value, which native
// calls return in floating-point registers.
func IsFloat(enc string) bool {
	return KindOf(Tag(enc)) == Float
}

// IsAggregate reports whether enc describes an array, structure, or union.
func IsAggregate(enc string) bool {
	switch Tag(enc) {
	case '[', '{', '(':
		return true
	}
	return false
}

// IsSigned reports whether an integer tag is signed.
func IsSigned(tag byte) bool {
	switch tag {
	case 'c', 's', 'i', 'l', 'q':
		return true
	}
	return false
}
