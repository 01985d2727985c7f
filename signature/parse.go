package signature

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ref - https://developer.apple.com/library/archive/documentation/Cocoa/Conceptual/ObjCRuntimeGuide/Articles/ocrtTypeEncodings.html

// ErrEmpty is returned when an empty encoding is parsed.
var ErrEmpty = errors.New("signature: empty type encoding")

// Signature is a parsed method signature: a return type and the ordered
// argument types, including the implicit receiver and selector when the
// encoding carries them.
type Signature struct {
	Return    Type
	Args      []Type
	FrameSize int
}

// Parse decodes a method type encoding such as "q32@0:8q16q24".
//
// Stack offsets are accepted and ignored. Tokens the parser does not
// recognise become Unknown nodes; Parse never panics on malformed input.
func Parse(enc string) (*Signature, error) {
	if enc == "" {
		return nil, ErrEmpty
	}
	p := &parser{s: enc}
	sig := &Signature{Return: p.parseType()}
	sig.FrameSize = p.offset()
	for !p.eof() {
		t := p.parseType()
		p.offset()
		sig.Args = append(sig.Args, t)
	}
	return sig, nil
}

// MustParse is like Parse but panics on error. Intended for static tables.
func MustParse(enc string) *Signature {
	sig, err := Parse(enc)
	if err != nil {
		panic(err)
	}
	return sig
}

// ParseType decodes a single type. Trailing offsets are ignored; any other
// trailing input makes the whole description Unknown.
func ParseType(enc string) Type {
	if enc == "" {
		return Unknown{}
	}
	p := &parser{s: enc}
	t := p.parseType()
	p.offset()
	if !p.eof() {
		return Unknown{Raw: enc}
	}
	return t
}

// Explicit returns the arguments a caller actually passes, dropping the
// implicit receiver and selector slots when present.
func (s *Signature) Explicit() []Type {
	if len(s.Args) >= 2 {
		recv, ok1 := Unqualify(s.Args[0]).(Primitive)
		cmd, ok2 := Unqualify(s.Args[1]).(Primitive)
		if ok1 && ok2 && (recv.Code == CodeObject || recv.Code == CodeClass) && !recv.Block && cmd.Code == CodeSelector {
			return s.Args[2:]
		}
	}
	return s.Args
}

// NumExplicit is len(s.Explicit()).
func (s *Signature) NumExplicit() int {
	return len(s.Explicit())
}

// ReturnsVoid reports whether the method returns nothing.
func (s *Signature) ReturnsVoid() bool {
	return IsVoid(s.Return)
}

// Encode renders the signature with LP64 frame offsets.
func (s *Signature) Encode() string {
	var args strings.Builder
	off := 0
	for _, a := range s.Args {
		args.WriteString(a.Encode())
		args.WriteString(strconv.Itoa(off))
		off += stackSlot(a)
	}
	return s.Return.Encode() + strconv.Itoa(off) + args.String()
}

func (s *Signature) String() string {
	names := make([]string, len(s.Args))
	for i, a := range s.Args {
		names[i] = a.String()
	}
	return s.Return.String() + " (" + strings.Join(names, ", ") + ")"
}

// ---------------------------------------------------------------------------
// parser
// ---------------------------------------------------------------------------

type parser struct {
	s     string
	pos   int
	depth int // struct nesting, for the @"Class" vs field name ambiguity
}

func (p *parser) eof() bool { return p.pos >= len(p.s) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.s[p.pos]
}

// rest consumes the remaining input as an Unknown starting at start.
func (p *parser) rest(start int) Type {
	raw := p.s[start:]
	p.pos = len(p.s)
	return Unknown{Raw: raw}
}

// maxCount bounds array lengths and the byte size of an array.
const maxCount = math.MaxInt32

// maxBitWidth is the widest bit-field.
const maxBitWidth = 64

// digits consumes a run of decimal digits. It reports false when there are
// none or the number exceeds maxCount; the digits are consumed either way.
func (p *parser) digits() (int, bool) {
	start := p.pos
	n, overflow := 0, false
	for !p.eof() && isDigit(p.peek()) {
		if !overflow {
			n = n*10 + int(p.peek()-'0')
			overflow = n > maxCount
		}
		p.pos++
	}
	if overflow {
		return 0, false
	}
	return n, p.pos > start
}

// offset skips a (possibly signed) stack offset.
func (p *parser) offset() int {
	if c := p.peek(); (c == '-' || c == '+') && p.pos+1 < len(p.s) && isDigit(p.s[p.pos+1]) {
		p.pos++
	}
	n, _ := p.digits()
	return n
}

func (p *parser) quoted() (string, bool) {
	if p.peek() != '"' {
		return "", false
	}
	end := strings.IndexByte(p.s[p.pos+1:], '"')
	if end < 0 {
		return "", false
	}
	name := p.s[p.pos+1 : p.pos+1+end]
	p.pos += end + 2
	return name, true
}

// parseType consumes at least one byte unless already at EOF.
func (p *parser) parseType() Type {
	start := p.pos
	if p.eof() {
		return Unknown{}
	}
	c := p.peek()
	switch {
	case isQualifier(c):
		for !p.eof() && isQualifier(p.peek()) {
			p.pos++
		}
		quals := p.s[start:p.pos]
		if p.eof() {
			return Unknown{Raw: quals}
		}
		return Qualified{Qualifiers: quals, Type: p.parseType()}

	case c == '^':
		p.pos++
		if p.eof() {
			return Unknown{Raw: "^"}
		}
		return Pointer{Elem: p.parseType()}

	case c == '@':
		p.pos++
		switch p.peek() {
		case '?':
			p.pos++
			return Primitive{Code: CodeObject, Block: true}
		case '"':
			if p.depth > 0 && !p.classNameFollows() {
				return Primitive{Code: CodeObject}
			}
			save := p.pos
			name, ok := p.quoted()
			if !ok {
				p.pos = save
				return p.rest(start)
			}
			return Primitive{Code: CodeObject, Class: name}
		}
		return Primitive{Code: CodeObject}

	case c == '[':
		p.pos++
		n, ok := p.digits()
		if !ok || p.eof() {
			return p.rest(start)
		}
		elem := p.parseType()
		if p.peek() != ']' {
			return p.rest(start)
		}
		p.pos++
		if sz := SizeOf(elem); sz > 0 && n > maxCount/sz {
			return p.rest(start)
		}
		return Array{Len: n, Elem: elem}

	case c == '{' || c == '(':
		return p.parseStruct(start)

	case c == 'b':
		p.pos++
		w, ok := p.digits()
		if !ok || w > maxBitWidth {
			return p.rest(start)
		}
		return BitField{Width: w}

	case isPrimitiveCode(c):
		p.pos++
		return Primitive{Code: c}
	}

	p.pos++
	return Unknown{Raw: string(c)}
}

// classNameFollows resolves `@"X"` inside a struct with named fields: the
// quoted string names the object's class only when the struct closes or
// another field name follows it.
func (p *parser) classNameFollows() bool {
	end := strings.IndexByte(p.s[p.pos+1:], '"')
	if end < 0 {
		return false
	}
	next := p.pos + 1 + end + 1
	if next >= len(p.s) {
		return true
	}
	switch p.s[next] {
	case '"', '}', ')':
		return true
	}
	return false
}

func (p *parser) parseStruct(start int) Type {
	open := p.peek()
	closer := byte('}')
	if open == '(' {
		closer = ')'
	}
	p.pos++

	nameEnd := strings.IndexAny(p.s[p.pos:], "="+string(closer))
	if nameEnd < 0 {
		return p.rest(start)
	}
	st := Struct{Name: p.s[p.pos : p.pos+nameEnd], Union: open == '('}
	p.pos += nameEnd
	if p.peek() == closer {
		p.pos++
		st.Opaque = true
		return st
	}
	p.pos++ // '='

	p.depth++
	defer func() { p.depth-- }()
	for {
		if p.eof() {
			return p.rest(start)
		}
		if p.peek() == closer {
			p.pos++
			return st
		}
		var f Field
		if p.peek() == '"' {
			name, ok := p.quoted()
			if !ok {
				return p.rest(start)
			}
			f.Name = name
			if p.eof() {
				return p.rest(start)
			}
		}
		f.Type = p.parseType()
		if _, bad := f.Type.(Unknown); bad && p.eof() {
			return p.rest(start)
		}
		st.Fields = append(st.Fields, f)
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
