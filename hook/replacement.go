package hook

import (
	"fmt"
	"reflect"

	"github.com/chazu/interpose/signature"
	"github.com/chazu/interpose/vm"
	"go.uber.org/multierr"
)

// advice runs before or after the original.
type advice func(inv *Invocation) error

// around replaces the original.
type around func(inv *Invocation) (any, error)

// replacement is a caller's function normalized to one calling convention.
type replacement struct {
	advice advice
	around around
}

// shape is what a replacement is checked against.
type shape struct {
	sig      *signature.Signature // nil when the method has no type encoding
	nargs    int                  // explicit arguments
	receiver reflect.Type
}

var (
	errorType  = reflect.TypeFor[error]()
	objectType = reflect.TypeFor[*vm.Object]()
	classType  = reflect.TypeFor[*vm.Class]()
)

func newShape(sig *signature.Signature, sel vm.Selector, classSide bool) shape {
	sh := shape{sig: sig, nargs: sel.NumArgs(), receiver: objectType}
	if sig != nil {
		sh.nargs = sig.NumExplicit()
	}
	if classSide {
		sh.receiver = classType
	}
	return sh
}

func mismatch(errs error) error {
	return fmt.Errorf("%w: %w", ErrSignatureMismatch, errs)
}

// adapt checks fn against sh and wraps it. Generic replacements
// (func(*Invocation) and func(*Invocation) (any, error)) are accepted
// without checks; typed Go functions are checked by reflection. When
// strict is false only parameter counts are compared.
func adapt(fn any, mode Mode, kind Kind, sh shape, strict bool) (*replacement, error) {
	switch f := fn.(type) {
	case nil:
		return nil, mismatch(fmt.Errorf("replacement is nil"))
	case func(*Invocation):
		if mode == ModeInstead {
			return nil, mismatch(fmt.Errorf("an instead replacement must return (any, error)"))
		}
		return &replacement{advice: func(inv *Invocation) error { f(inv); return nil }}, nil
	case func(*Invocation) error:
		if mode == ModeInstead {
			return nil, mismatch(fmt.Errorf("an instead replacement must return (any, error)"))
		}
		return &replacement{advice: f}, nil
	case func(*Invocation) (any, error):
		if mode != ModeInstead {
			return nil, mismatch(fmt.Errorf("a %s replacement cannot return a value", mode))
		}
		return &replacement{around: f}, nil
	}

	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, mismatch(fmt.Errorf("replacement is %T, not a function", fn))
	}
	if rv.Type().IsVariadic() {
		return nil, mismatch(fmt.Errorf("variadic replacements are not supported"))
	}
	if mode != ModeInstead {
		return adaptAdvice(rv, sh, strict)
	}
	if kind == KindAdd && rv.Type().NumIn() == sh.nargs+1 {
		return adaptDirect(rv, sh, strict)
	}
	return adaptInstead(rv, sh, strict)
}

// adaptAdvice accepts func() or func(self, a1..an), either optionally
// returning error.
func adaptAdvice(rv reflect.Value, sh shape, strict bool) (*replacement, error) {
	ft := rv.Type()
	var errs error
	switch {
	case ft.NumIn() == 0:
	case ft.NumIn() == sh.nargs+1:
		if strict {
			errs = multierr.Append(errs, checkParams(ft, 0, sh))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("takes %d parameters, want none or the receiver and %d arguments", ft.NumIn(), sh.nargs))
	}
	if ft.NumOut() > 1 || (ft.NumOut() == 1 && ft.Out(0) != errorType) {
		errs = multierr.Append(errs, fmt.Errorf("may only return error, returns %d values", ft.NumOut()))
	}
	if errs != nil {
		return nil, mismatch(errs)
	}

	return &replacement{advice: func(inv *Invocation) error {
		var in []reflect.Value
		if ft.NumIn() > 0 {
			var err error
			if in, err = convertIn(ft, 0, inv); err != nil {
				return err
			}
		}
		_, err := results(ft, rv.Call(in))
		return err
	}}, nil
}

// adaptDirect accepts func(self, a1..an) (T[, error]) for synthesized
// methods, which have no original.
func adaptDirect(rv reflect.Value, sh shape, strict bool) (*replacement, error) {
	ft := rv.Type()
	var errs error
	if strict {
		errs = multierr.Append(errs, checkParams(ft, 0, sh))
	}
	errs = multierr.Append(errs, checkResults(ft, sh, strict))
	if errs != nil {
		return nil, mismatch(errs)
	}

	return &replacement{around: func(inv *Invocation) (any, error) {
		in, err := convertIn(ft, 0, inv)
		if err != nil {
			return nil, err
		}
		return results(ft, rv.Call(in))
	}}, nil
}

// adaptInstead accepts func(original F, self, a1..an) (T[, error]) where F
// is func(a1..an) (T[, error]).
func adaptInstead(rv reflect.Value, sh shape, strict bool) (*replacement, error) {
	ft := rv.Type()
	if ft.NumIn() != sh.nargs+2 || ft.In(0).Kind() != reflect.Func {
		return nil, mismatch(fmt.Errorf("takes %d parameters, want the original, the receiver and %d arguments", ft.NumIn(), sh.nargs))
	}
	origT := ft.In(0)
	var errs error
	if origT.IsVariadic() {
		errs = multierr.Append(errs, fmt.Errorf("original must not be variadic"))
	} else if origT.NumIn() != sh.nargs {
		errs = multierr.Append(errs, fmt.Errorf("original takes %d arguments, method takes %d", origT.NumIn(), sh.nargs))
	} else if strict && sh.sig != nil {
		for i, at := range sh.sig.Explicit() {
			if pt := origT.In(i); !signature.Compatible(at, pt) {
				errs = multierr.Append(errs, fmt.Errorf("original argument %d is %s, method takes %s", i+1, pt, at))
			}
		}
	}
	if strict {
		errs = multierr.Append(errs, checkParams(ft, 1, sh))
	}
	errs = multierr.Append(errs, checkResults(origT, sh, strict))
	errs = multierr.Append(errs, checkResults(ft, sh, strict))
	if errs != nil {
		return nil, mismatch(errs)
	}

	forwardsErr := returnsError(origT)
	return &replacement{around: func(inv *Invocation) (any, error) {
		var swallowed error
		orig := reflect.MakeFunc(origT, func(in []reflect.Value) []reflect.Value {
			args := make([]any, len(in))
			for i, v := range in {
				args[i] = v.Interface()
			}
			res, err := inv.CallOriginalWith(args...)
			out, err := buildResults(origT, res, err)
			if err != nil && !forwardsErr {
				swallowed = err
			}
			return out
		})
		rest, err := convertIn(ft, 1, inv)
		if err != nil {
			return nil, err
		}
		res, err := results(ft, rv.Call(append([]reflect.Value{orig}, rest...)))
		if err == nil && swallowed != nil {
			err = swallowed
		}
		return res, err
	}}, nil
}

// checkParams compares the receiver parameter at offset and the argument
// parameters after it with sh.
func checkParams(ft reflect.Type, offset int, sh shape) error {
	var errs error
	if pt := ft.In(offset); !sh.receiver.AssignableTo(pt) {
		errs = multierr.Append(errs, fmt.Errorf("receiver parameter is %s, want %s", pt, sh.receiver))
	}
	if sh.sig == nil {
		return errs
	}
	for i, at := range sh.sig.Explicit() {
		if pt := ft.In(offset + 1 + i); !signature.Compatible(at, pt) {
			errs = multierr.Append(errs, fmt.Errorf("argument %d is %s, method takes %s", i+1, pt, at))
		}
	}
	return errs
}

// checkResults allows at most one value plus an optional trailing error,
// and in strict mode compares the value with the method's return type.
func checkResults(ft reflect.Type, sh shape, strict bool) error {
	values := ft.NumOut()
	if returnsError(ft) {
		values--
	}
	if values > 1 {
		return fmt.Errorf("%s returns %d values, want at most one and an error", ft, values)
	}
	if !strict || sh.sig == nil {
		return nil
	}
	if sh.sig.ReturnsVoid() {
		if values != 0 {
			return fmt.Errorf("%s returns %s, method returns void", ft, ft.Out(0))
		}
		return nil
	}
	if values == 0 {
		return fmt.Errorf("%s returns nothing, method returns %s", ft, sh.sig.Return)
	}
	if !signature.Compatible(sh.sig.Return, ft.Out(0)) {
		return fmt.Errorf("%s returns %s, method returns %s", ft, ft.Out(0), sh.sig.Return)
	}
	return nil
}

func returnsError(ft reflect.Type) bool {
	n := ft.NumOut()
	return n > 0 && ft.Out(n-1) == errorType
}

// convertIn builds call arguments: the receiver at offset, then inv.Args.
func convertIn(ft reflect.Type, offset int, inv *Invocation) ([]reflect.Value, error) {
	want := ft.NumIn() - offset - 1
	if len(inv.Args) != want {
		return nil, &vm.ArgumentCountError{Method: inv.Selector.Name(), Want: want, Got: len(inv.Args)}
	}
	in := make([]reflect.Value, 0, ft.NumIn()-offset)
	self, err := convertValue(inv.Receiver, ft.In(offset))
	if err != nil {
		return nil, fmt.Errorf("receiver: %w", err)
	}
	in = append(in, self)
	for i, arg := range inv.Args {
		v, err := convertValue(arg, ft.In(offset+1+i))
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		in = append(in, v)
	}
	return in, nil
}

// convertValue turns v into a value of exactly type t. Numbers convert
// between kinds; everything else must be assignable.
func convertValue(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	}
	if isNumber(rv.Kind()) && isNumber(t.Kind()) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s: %w", v, t, ErrSignatureMismatch)
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// results splits reflect results into a value and an error.
func results(ft reflect.Type, out []reflect.Value) (any, error) {
	var res any
	var err error
	for i, v := range out {
		if i == len(out)-1 && ft.Out(i) == errorType {
			if !v.IsNil() {
				err = v.Interface().(error)
			}
			continue
		}
		res = v.Interface()
	}
	return res, err
}

// buildResults is the inverse of results, for functions made with
// reflect.MakeFunc. A value that cannot be converted to the result type
// becomes the zero value and its conversion error is reported in place of
// a nil err. The returned error is the one the results carry, or would
// carry when ft has no error result.
func buildResults(ft reflect.Type, res any, err error) ([]reflect.Value, error) {
	out := make([]reflect.Value, ft.NumOut())
	for i := range out {
		t := ft.Out(i)
		if i == len(out)-1 && t == errorType {
			continue
		}
		v, cerr := convertValue(res, t)
		if cerr != nil {
			v = reflect.Zero(t)
			if err == nil {
				err = fmt.Errorf("original result: %w", cerr)
			}
		}
		out[i] = v
	}
	if returnsError(ft) {
		if err != nil {
			out[len(out)-1] = reflect.ValueOf(&err).Elem()
		} else {
			out[len(out)-1] = reflect.Zero(errorType)
		}
	}
	return out, err
}
