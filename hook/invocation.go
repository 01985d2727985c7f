package hook

import (
	"github.com/chazu/interpose/vm"
)

type originalKind uint8

const (
	originalNone originalKind = iota
	originalWrapped
)

// Original is the implementation an instead replacement wraps. It is
// either none, for synthesized methods and advice, or a wrapped callable:
// the previous instead hook in the chain or the implementation that was
// in place before hooking.
type Original struct {
	kind originalKind
	call func(args []any) (any, error)
}

func noOriginal() Original { return Original{} }

func wrapOriginal(call func(args []any) (any, error)) Original {
	return Original{kind: originalWrapped, call: call}
}

// IsNone reports whether there is nothing to call.
func (o Original) IsNone() bool { return o.kind == originalNone }

// Call invokes the original. It fails with ErrNoOriginal when there is
// none.
func (o Original) Call(args ...any) (any, error) {
	if o.kind == originalNone {
		return nil, ErrNoOriginal
	}
	return o.call(args)
}

// Invocation describes one call of a hooked method as seen by a generic
// replacement.
//
// Before replacements get their own copy of Args. After replacements see
// the original's Result and Err and may overwrite them.
type Invocation struct {
	Receiver any // *vm.Object, or *vm.Class for class-side methods
	Selector vm.Selector
	Args     []any
	Result   any
	Err      error

	original Original
	done     bool
}

// Object returns the receiver when it is an object, or nil.
func (inv *Invocation) Object() *vm.Object {
	obj, _ := inv.Receiver.(*vm.Object)
	return obj
}

// HasOriginal reports whether CallOriginal has something to call.
func (inv *Invocation) HasOriginal() bool { return !inv.original.IsNone() }

// Original returns the wrapped implementation.
func (inv *Invocation) Original() Original { return inv.original }

// CallOriginal calls the wrapped implementation with the invocation's
// arguments.
func (inv *Invocation) CallOriginal() (any, error) {
	return inv.original.Call(inv.Args...)
}

// CallOriginalWith calls the wrapped implementation with different
// arguments.
func (inv *Invocation) CallOriginalWith(args ...any) (any, error) {
	return inv.original.Call(args...)
}

// Invoke calls the wrapped implementation with Args and stores its Result
// and Err.
func (inv *Invocation) Invoke() {
	inv.Result, inv.Err = inv.original.Call(inv.Args...)
	inv.done = true
}

// Return sets the invocation's outcome without calling the original.
func (inv *Invocation) Return(result any, err error) {
	inv.Result, inv.Err = result, err
	inv.done = true
}

// InvokeWithTarget sends the invocation's selector and arguments to
// another object through normal dispatch.
func (inv *Invocation) InvokeWithTarget(target *vm.Object) (any, error) {
	return target.Send(inv.Selector, inv.Args...)
}
