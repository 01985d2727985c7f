package signature

import (
	"strconv"
	"strings"
)

// Type is one node of a parsed type description.
//
// The concrete variants are Primitive, Pointer, Array, Struct, BitField,
// Qualified and Unknown. The set is closed; callers switch on the concrete
// type.
type Type interface {
	// Encode renders the type back into its encoded form.
	Encode() string
	// String returns a C-like human readable name.
	String() string

	isType()
}

// Primitive codes.
const (
	CodeChar      byte = 'c'
	CodeInt       byte = 'i'
	CodeShort     byte = 's'
	CodeLong      byte = 'l'
	CodeLongLong  byte = 'q'
	CodeUChar     byte = 'C'
	CodeUInt      byte = 'I'
	CodeUShort    byte = 'S'
	CodeULong     byte = 'L'
	CodeULongLong byte = 'Q'
	CodeInt128    byte = 't'
	CodeUInt128   byte = 'T'
	CodeFloat     byte = 'f'
	CodeDouble    byte = 'd'
	CodeLongDbl   byte = 'D'
	CodeBool      byte = 'B'
	CodeVoid      byte = 'v'
	CodeCString   byte = '*'
	CodeObject    byte = '@'
	CodeClass     byte = '#'
	CodeSelector  byte = ':'
	CodeUndefined byte = '?'
)

var primitiveNames = map[byte]string{
	'c': "char",
	'i': "int",
	's': "short",
	'l': "long",
	'q': "long long",
	'C': "unsigned char",
	'S': "unsigned short",
	'I': "unsigned int",
	'L': "unsigned long",
	'Q': "unsigned long long",
	't': "int128",
	'T': "unsigned int128",
	'f': "float",
	'd': "double",
	'D': "long double",
	'B': "BOOL",
	'v': "void",
	'*': "char *",
	'@': "id",
	'#': "Class",
	':': "SEL",
	'?': "void",
}

var qualifierNames = map[byte]string{
	'A': "atomic",
	'j': "_Complex",
	'r': "const",
	'n': "in",
	'N': "inout",
	'o': "out",
	'O': "bycopy",
	'R': "byref",
	'V': "oneway",
	'+': "register",
}

func isPrimitiveCode(c byte) bool {
	_, ok := primitiveNames[c]
	return ok
}

func isQualifier(c byte) bool {
	_, ok := qualifierNames[c]
	return ok
}

// Primitive is a scalar, an object reference, a class, a selector or void.
type Primitive struct {
	Code byte
	// Class is the static class of an object reference (`@"Name"`), if any.
	Class string
	// Block marks `@?`.
	Block bool
}

func (Primitive) isType() {}

func (p Primitive) Encode() string {
	switch {
	case p.Block:
		return "@?"
	case p.Code == CodeObject && p.Class != "":
		return `@"` + p.Class + `"`
	}
	return string(p.Code)
}

func (p Primitive) String() string {
	if p.Block {
		return "block"
	}
	if p.Code == CodeObject && p.Class != "" {
		return p.Class + " *"
	}
	return primitiveNames[p.Code]
}

// IsVoid reports whether the primitive is the void type.
func (p Primitive) IsVoid() bool { return p.Code == CodeVoid }

// Pointer is `^T`. A pointer to an undefined type (`^?`) is a function pointer.
type Pointer struct {
	Elem Type
}

func (Pointer) isType() {}

func (p Pointer) Encode() string { return "^" + p.Elem.Encode() }

func (p Pointer) String() string {
	if prim, ok := p.Elem.(Primitive); ok && prim.Code == CodeUndefined {
		return "IMP"
	}
	return p.Elem.String() + " *"
}

// Array is a fixed size C array, `[NT]`.
type Array struct {
	Len  int
	Elem Type
}

func (Array) isType() {}

func (a Array) Encode() string {
	return "[" + strconv.Itoa(a.Len) + a.Elem.Encode() + "]"
}

func (a Array) String() string {
	return a.Elem.String() + "[" + strconv.Itoa(a.Len) + "]"
}

// Field is a struct or union member. Name is empty when the encoding
// carries no field names.
type Field struct {
	Name string
	Type Type
}

// Struct is `{name=fields}` or, with Union set, `(name=fields)`.
// Opaque is set for `{name}` encodings that omit the layout.
type Struct struct {
	Name   string
	Fields []Field
	Union  bool
	Opaque bool
}

func (Struct) isType() {}

func (s Struct) Encode() string {
	open, closer := "{", "}"
	if s.Union {
		open, closer = "(", ")"
	}
	var b strings.Builder
	b.WriteString(open)
	b.WriteString(s.Name)
	if !s.Opaque {
		b.WriteByte('=')
		for _, f := range s.Fields {
			if f.Name != "" {
				b.WriteString(`"` + f.Name + `"`)
			}
			b.WriteString(f.Type.Encode())
		}
	}
	b.WriteString(closer)
	return b.String()
}

func (s Struct) String() string {
	kw := "struct"
	if s.Union {
		kw = "union"
	}
	if s.Name == "" || s.Name == "?" {
		return kw
	}
	return kw + " " + s.Name
}

// BitField is `bN`, a bit-field of width N.
type BitField struct {
	Width int
}

func (BitField) isType() {}

func (b BitField) Encode() string { return "b" + strconv.Itoa(b.Width) }
func (b BitField) String() string { return "unsigned int : " + strconv.Itoa(b.Width) }

// Qualified attaches type qualifiers (const, in, out, ...) to a type.
type Qualified struct {
	Qualifiers string
	Type       Type
}

func (Qualified) isType() {}

func (q Qualified) Encode() string { return q.Qualifiers + q.Type.Encode() }

func (q Qualified) String() string {
	names := make([]string, 0, len(q.Qualifiers)+1)
	for i := 0; i < len(q.Qualifiers); i++ {
		names = append(names, qualifierNames[q.Qualifiers[i]])
	}
	names = append(names, q.Type.String())
	return strings.Join(names, " ")
}

// Unknown is produced for anything the parser does not recognise.
type Unknown struct {
	Raw string
}

func (Unknown) isType() {}

func (u Unknown) Encode() string { return u.Raw }
func (u Unknown) String() string { return "?" }

// Unqualify strips any qualifiers from t.
func Unqualify(t Type) Type {
	for {
		q, ok := t.(Qualified)
		if !ok {
			return t
		}
		t = q.Type
	}
}

// IsVoid reports whether t (ignoring qualifiers) is void.
func IsVoid(t Type) bool {
	p, ok := Unqualify(t).(Primitive)
	return ok && p.IsVoid()
}
