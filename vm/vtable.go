package vm

import (
	"sync"
	"sync/atomic"
)

// VTable holds the method dispatch table for a class.
//
// Methods are stored in a slice indexed by selector ID. Inheritance is
// handled by walking the parent chain when a method is not found locally.
//
// Lookups never block: writers build a new slice under the table lock and
// publish it atomically, so a send racing with a mutation sees either the
// old or the new entry, never a torn one.
type VTable struct {
	class  *Class
	parent atomic.Pointer[VTable]

	mu      sync.Mutex
	methods atomic.Pointer[[]Method]
}

// dispatchEpoch increases on every table mutation anywhere in the process.
// Caches compare it to decide whether a cached lookup is still valid.
var dispatchEpoch atomic.Uint64

// DispatchEpoch returns the current global dispatch epoch.
func DispatchEpoch() uint64 {
	return dispatchEpoch.Load()
}

// NewVTable creates a new vtable for a class.
func NewVTable(class *Class, parent *VTable) *VTable {
	vt := &VTable{class: class}
	vt.parent.Store(parent)
	empty := make([]Method, 0, 32)
	vt.methods.Store(&empty)
	return vt
}

func (vt *VTable) load() []Method {
	return *vt.methods.Load()
}

// Lookup finds a method by selector, walking the inheritance chain.
// Returns nil if no method is found.
func (vt *VTable) Lookup(sel Selector) Method {
	for v := vt; v != nil; v = v.Parent() {
		if m := v.LookupLocal(sel); m != nil {
			return m
		}
	}
	return nil
}

// LookupLocal finds a method by selector in this vtable only.
func (vt *VTable) LookupLocal(sel Selector) Method {
	methods := vt.load()
	if sel >= 0 && int(sel) < len(methods) {
		return methods[sel]
	}
	return nil
}

// HasMethod returns true if this vtable (not parents) has a method for sel.
func (vt *VTable) HasMethod(sel Selector) bool {
	return vt.LookupLocal(sel) != nil
}

// AddMethod adds or replaces a method at the given selector.
func (vt *VTable) AddMethod(sel Selector, method Method) {
	vt.mu.Lock()
	defer vt.mu.Unlock()
	vt.store(sel, method)
}

// RemoveMethod removes the local method at the given selector.
func (vt *VTable) RemoveMethod(sel Selector) {
	vt.mu.Lock()
	defer vt.mu.Unlock()
	if sel >= 0 && int(sel) < len(vt.load()) {
		vt.store(sel, nil)
	}
}

// CompareAndSwapMethod replaces the local entry for sel with new only if
// it is currently old (nil meaning "no local entry"). A nil new removes
// the entry.
func (vt *VTable) CompareAndSwapMethod(sel Selector, old, new Method) bool {
	vt.mu.Lock()
	defer vt.mu.Unlock()
	if vt.LookupLocal(sel) != old {
		return false
	}
	vt.store(sel, new)
	return true
}

// store publishes a copy of the table with sel set to method.
// Caller holds vt.mu.
func (vt *VTable) store(sel Selector, method Method) {
	if sel < 0 {
		return
	}
	cur := vt.load()
	n := len(cur)
	if int(sel) >= n {
		n = int(sel) + 1
	}
	next := make([]Method, n)
	copy(next, cur)
	next[sel] = method
	vt.methods.Store(&next)
	dispatchEpoch.Add(1)
}

// Parent returns the parent vtable (for inheritance).
func (vt *VTable) Parent() *VTable {
	return vt.parent.Load()
}

// SetParent sets the parent vtable.
func (vt *VTable) SetParent(parent *VTable) {
	vt.parent.Store(parent)
	dispatchEpoch.Add(1)
}

// Class returns the class this vtable belongs to.
func (vt *VTable) Class() *Class {
	return vt.class
}

// LocalMethods returns all non-nil methods defined in this vtable.
func (vt *VTable) LocalMethods() map[Selector]Method {
	result := make(map[Selector]Method)
	for i, m := range vt.load() {
		if m != nil {
			result[Selector(i)] = m
		}
	}
	return result
}
