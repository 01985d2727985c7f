// Package vm implements the dynamic dispatch object system that hooks are
// installed into.
//
// This package contains:
//   - Interned selectors and copy-on-write dispatch tables
//   - Classes with instance-side and class-side tables, run-time subclass
//     synthesis and class substitution on live objects
//   - Objects with slots, associations and a dealloc-driven lifecycle
//   - doesNotUnderstand: forwarding and safe key-path access
//   - Protocols and reflection over declared method signatures
//   - A change observation facility and call-site lookup caches
package vm
