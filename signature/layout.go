package signature

// LP64 layout. Sizes follow the 64-bit Darwin ABI the encodings come from;
// Unknown and opaque types have size 0.

const pointerSize = 8

var primitiveSizes = map[byte]int{
	'c': 1, 'C': 1, 'B': 1,
	's': 2, 'S': 2,
	'i': 4, 'I': 4, 'f': 4,
	'l': 8, 'L': 8, 'q': 8, 'Q': 8, 'd': 8,
	'*': pointerSize, '@': pointerSize, '#': pointerSize, ':': pointerSize,
	't': 16, 'T': 16, 'D': 16,
	'v': 0, '?': 0,
}

// SizeOf returns the storage size of t in bytes.
func SizeOf(t Type) int {
	switch t := t.(type) {
	case Primitive:
		return primitiveSizes[t.Code]
	case Pointer:
		return pointerSize
	case Array:
		return t.Len * SizeOf(t.Elem)
	case Struct:
		size, _ := structLayout(t)
		return size
	case BitField:
		return (t.Width + 7) / 8
	case Qualified:
		return SizeOf(t.Type)
	}
	return 0
}

// AlignOf returns the alignment of t in bytes (at least 1).
func AlignOf(t Type) int {
	switch t := t.(type) {
	case Primitive:
		if a := primitiveSizes[t.Code]; a > 0 {
			return a
		}
	case Pointer:
		return pointerSize
	case Array:
		return AlignOf(t.Elem)
	case Struct:
		_, align := structLayout(t)
		return align
	case BitField:
		return 4
	case Qualified:
		return AlignOf(t.Type)
	}
	return 1
}

// FieldOffsets returns the byte offset of every field of s. Consecutive
// bit-fields share 4-byte storage units.
func FieldOffsets(s Struct) []int {
	offs := make([]int, len(s.Fields))
	if s.Union || s.Opaque {
		return offs
	}
	off, bits := 0, 0
	for i, f := range s.Fields {
		if bf, ok := f.Type.(BitField); ok {
			if bits == 0 || bits+bf.Width > 32 {
				off = alignUp(off, 4)
				offs[i] = off
				off += 4
				bits = bf.Width
				continue
			}
			offs[i] = off - 4
			bits += bf.Width
			continue
		}
		bits = 0
		off = alignUp(off, AlignOf(f.Type))
		offs[i] = off
		off += SizeOf(f.Type)
	}
	return offs
}

func structLayout(s Struct) (size, align int) {
	align = 1
	if s.Opaque {
		return 0, 1
	}
	for _, f := range s.Fields {
		if a := AlignOf(f.Type); a > align {
			align = a
		}
	}
	if s.Union {
		for _, f := range s.Fields {
			if sz := SizeOf(f.Type); sz > size {
				size = sz
			}
		}
		return alignUp(size, align), align
	}
	offs := FieldOffsets(s)
	for i, f := range s.Fields {
		end := offs[i] + SizeOf(f.Type)
		if _, ok := f.Type.(BitField); ok {
			end = offs[i] + 4
		}
		if end > size {
			size = end
		}
	}
	return alignUp(size, align), align
}

// stackSlot is the frame space an argument of type t occupies.
func stackSlot(t Type) int {
	n := alignUp(SizeOf(t), pointerSize)
	if n < pointerSize {
		n = pointerSize
	}
	return n
}

func alignUp(n, a int) int {
	if a <= 1 {
		return n
	}
	return (n + a - 1) / a * a
}
