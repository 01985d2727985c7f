// Package hook intercepts methods of vm classes and objects at run time.
//
// A hook runs a replacement before, after or instead of a method. Its
// scope is one object, every instance of a class, or a class's own
// class-side methods:
//
//	tok, err := hook.Instead(calculator, sum,
//		func(original func(a, b int) int, self *vm.Object, a, b int) int {
//			return original(a, b) * 2
//		})
//	...
//	tok.Cancel()
//
// Hooks on one selector compose: befores run in registration order, then
// the instead chain, in which each instead hook wraps the one installed
// before it, then afters. Object-scoped hooks move the object to a
// synthesized subclass shared by all hooked objects of its class, so
// other objects are unaffected; the object returns to its class when its
// last hook is reverted.
//
// AddMethod synthesizes a method a class's protocols declare but nothing
// implements. Destruction hooks wrap dealloc; an instead replacement for
// dealloc must call its original.
//
// NewProxy makes an object that forwards every message to a target and
// shows each one to a handler first.
//
// Every install and revert is serialized through one process-wide queue.
// Calls of hooked methods are not: a call that started before a revert may
// still run the reverted hook.
package hook
