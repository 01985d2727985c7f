package signature

import "reflect"

// Compatible reports whether a Go value of type rt can plausibly stand in
// for a value described by t. The check is deliberately gross: integer
// widths and signedness are not compared, objects accept any reference-like
// Go type, and interface types accept everything.
func Compatible(t Type, rt reflect.Type) bool {
	if rt == nil {
		return false
	}
	if rt.Kind() == reflect.Interface {
		return true
	}
	switch t := Unqualify(t).(type) {
	case Unknown:
		return true
	case Primitive:
		return primitiveCompatible(t, rt.Kind())
	case Pointer:
		switch rt.Kind() {
		case reflect.Pointer, reflect.UnsafePointer, reflect.Uintptr, reflect.Slice:
			return true
		case reflect.Func:
			p, ok := Unqualify(t.Elem).(Primitive)
			return ok && p.Code == CodeUndefined
		case reflect.String:
			p, ok := Unqualify(t.Elem).(Primitive)
			return ok && (p.Code == CodeChar || p.Code == CodeUChar)
		}
		return false
	case Array:
		switch rt.Kind() {
		case reflect.Array:
			return rt.Len() == t.Len && Compatible(t.Elem, rt.Elem())
		case reflect.Slice:
			return Compatible(t.Elem, rt.Elem())
		}
		return false
	case Struct:
		if rt.Kind() != reflect.Struct {
			return false
		}
		if t.Opaque || t.Union {
			return true
		}
		if rt.NumField() != len(t.Fields) {
			return false
		}
		for i, f := range t.Fields {
			if !Compatible(f.Type, rt.Field(i).Type) {
				return false
			}
		}
		return true
	case BitField:
		return isIntegerKind(rt.Kind()) || rt.Kind() == reflect.Bool
	}
	return false
}

func primitiveCompatible(p Primitive, k reflect.Kind) bool {
	switch p.Code {
	case CodeChar:
		return isIntegerKind(k) || k == reflect.Bool
	case CodeInt, CodeShort, CodeLong, CodeLongLong,
		CodeUChar, CodeUInt, CodeUShort, CodeULong, CodeULongLong,
		CodeInt128, CodeUInt128:
		return isIntegerKind(k)
	case CodeBool:
		return k == reflect.Bool || k == reflect.Int8 || k == reflect.Uint8
	case CodeFloat, CodeDouble, CodeLongDbl:
		return k == reflect.Float32 || k == reflect.Float64
	case CodeCString:
		return k == reflect.String || k == reflect.Slice || k == reflect.Pointer
	case CodeSelector:
		return isIntegerKind(k) || k == reflect.String
	case CodeObject:
		if p.Block {
			return k == reflect.Func
		}
		return isReferenceKind(k)
	case CodeClass:
		return isReferenceKind(k)
	case CodeUndefined:
		return true
	}
	return false
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func isReferenceKind(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan,
		reflect.String, reflect.UnsafePointer:
		return true
	}
	return false
}
