package vm

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// SelDealloc is sent exactly once when an object is disposed.
var SelDealloc = Sel("dealloc")

// rootDealloc is the dealloc implementation every root class starts with.
// It finalizes the receiver; overriding implementations must reach it
// through SendSuper.
var rootDealloc = NewMethod0("dealloc", "v16@0:8", func(self any) (any, error) {
	if obj, ok := self.(*Object); ok {
		obj.Finalize()
	}
	return nil, nil
})

// Object lifecycle states.
const (
	stateAlive int32 = iota
	stateDeallocating
	stateDestroyed
)

var nextObjectID atomic.Uint64

// Object is a heap-allocated instance of a Class.
//
// The class pointer (the object's isa) can be replaced at run time by
// mechanisms that substitute a synthesized subclass. It is read without
// locks and replaced with CompareAndSwapClass so that two such mechanisms
// cannot silently overwrite each other.
type Object struct {
	id    uint64
	class atomic.Pointer[Class]
	state atomic.Int32

	mu        sync.RWMutex
	slots     []any
	assoc     map[any]any
	assocKeys []any
}

// DestructionObserver is implemented by associated values that want to be
// told when their object is finalized.
type DestructionObserver interface {
	ObjectDestroyed(obj *Object)
}

func newObject(c *Class) *Object {
	obj := &Object{
		id:    nextObjectID.Add(1),
		slots: make([]any, c.NumSlots),
	}
	obj.class.Store(c)
	return obj
}

// ID returns the object's process-unique identifier.
func (obj *Object) ID() uint64 { return obj.id }

// Class returns the object's current class, which may be synthesized.
func (obj *Object) Class() *Class {
	return obj.class.Load()
}

// DeclaredClass returns the class the object was created as, skipping
// any synthesized subclasses substituted since.
func (obj *Object) DeclaredClass() *Class {
	return obj.Class().DeclaredClass()
}

// SetClass unconditionally replaces the object's class.
func (obj *Object) SetClass(c *Class) {
	obj.class.Store(c)
}

// CompareAndSwapClass replaces the object's class with new only if it is
// currently old.
func (obj *Object) CompareAndSwapClass(old, new *Class) bool {
	return obj.class.CompareAndSwap(old, new)
}

// ClassName returns the name of the object's declared class.
func (obj *Object) ClassName() string {
	if c := obj.DeclaredClass(); c != nil {
		return c.FullName()
	}
	return "?"
}

func (obj *Object) String() string {
	return fmt.Sprintf("a %s#%d", obj.ClassName(), obj.id)
}

// ---------------------------------------------------------------------------
// Sending
// ---------------------------------------------------------------------------

// Send dispatches sel through the object's current class. A send that
// finds no method goes to doesNotUnderstand: if the class chain has one.
func (obj *Object) Send(sel Selector, args ...any) (any, error) {
	if obj.state.Load() == stateDestroyed {
		return nil, fmt.Errorf("%s #%s: %w", obj.ClassName(), sel, ErrObjectDestroyed)
	}
	m := obj.Class().VTable.Lookup(sel)
	if m == nil {
		return obj.notUnderstood(sel, args)
	}
	return m.Invoke(obj, args)
}

// RespondsTo reports whether the object's class chain implements sel.
func (obj *Object) RespondsTo(sel Selector) bool {
	return obj.Class().VTable.Lookup(sel) != nil
}

// ---------------------------------------------------------------------------
// Slot access
// ---------------------------------------------------------------------------

// GetSlot returns the value at the given slot index.
// Panics if index is out of range.
func (obj *Object) GetSlot(index int) any {
	obj.mu.RLock()
	defer obj.mu.RUnlock()
	if index < 0 || index >= len(obj.slots) {
		panic("Object.GetSlot: index out of range")
	}
	return obj.slots[index]
}

// SetSlot sets the value at the given slot index.
// Panics if index is out of range.
func (obj *Object) SetSlot(index int, value any) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	if index < 0 || index >= len(obj.slots) {
		panic("Object.SetSlot: index out of range")
	}
	obj.slots[index] = value
}

// NumSlots returns the total number of slots in this object.
func (obj *Object) NumSlots() int {
	obj.mu.RLock()
	defer obj.mu.RUnlock()
	return len(obj.slots)
}

// Get returns the named instance variable.
func (obj *Object) Get(name string) (any, bool) {
	idx := obj.DeclaredClass().InstVarIndex(name)
	if idx < 0 {
		return nil, false
	}
	return obj.GetSlot(idx), true
}

// Set assigns the named instance variable. Returns false if the class has
// no such variable.
func (obj *Object) Set(name string, value any) bool {
	idx := obj.DeclaredClass().InstVarIndex(name)
	if idx < 0 {
		return false
	}
	obj.SetSlot(idx, value)
	return true
}

// ---------------------------------------------------------------------------
// Associations
// ---------------------------------------------------------------------------

// SetAssociated attaches value to the object under key. The association
// lives exactly as long as the object; a nil value removes it.
func (obj *Object) SetAssociated(key, value any) {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	if value == nil {
		obj.removeAssociatedLocked(key)
		return
	}
	if obj.state.Load() == stateDestroyed {
		return
	}
	if obj.assoc == nil {
		obj.assoc = make(map[any]any)
	}
	if _, exists := obj.assoc[key]; !exists {
		obj.assocKeys = append(obj.assocKeys, key)
	}
	obj.assoc[key] = value
}

// Associated returns the value attached under key, or nil.
func (obj *Object) Associated(key any) any {
	obj.mu.RLock()
	defer obj.mu.RUnlock()
	return obj.assoc[key]
}

// LoadOrStoreAssociated returns the existing value for key if present,
// otherwise stores and returns the value produced by create.
func (obj *Object) LoadOrStoreAssociated(key any, create func() any) any {
	obj.mu.Lock()
	defer obj.mu.Unlock()
	if v, ok := obj.assoc[key]; ok {
		return v
	}
	v := create()
	if obj.state.Load() == stateDestroyed {
		return v
	}
	if obj.assoc == nil {
		obj.assoc = make(map[any]any)
	}
	obj.assoc[key] = v
	obj.assocKeys = append(obj.assocKeys, key)
	return v
}

func (obj *Object) removeAssociatedLocked(key any) {
	if _, ok := obj.assoc[key]; !ok {
		return
	}
	delete(obj.assoc, key)
	for i, k := range obj.assocKeys {
		if k == key {
			obj.assocKeys = append(obj.assocKeys[:i], obj.assocKeys[i+1:]...)
			break
		}
	}
}

// ---------------------------------------------------------------------------
// Destruction
// ---------------------------------------------------------------------------

// Dispose destroys the object by sending it dealloc. Destruction happens at
// most once; later calls return nil without sending anything.
func (obj *Object) Dispose() error {
	if !obj.state.CompareAndSwap(stateAlive, stateDeallocating) {
		return nil
	}
	_, err := obj.Send(SelDealloc)
	if errors.Is(err, ErrDoesNotUnderstand) {
		obj.Finalize()
		return nil
	}
	return err
}

// Finalize marks the object destroyed and releases its associations,
// notifying DestructionObservers in the order they were attached. It is
// normally reached through the root dealloc implementation.
func (obj *Object) Finalize() {
	if obj.state.Swap(stateDestroyed) == stateDestroyed {
		return
	}
	obj.mu.Lock()
	assoc, keys := obj.assoc, obj.assocKeys
	obj.assoc, obj.assocKeys = nil, nil
	obj.mu.Unlock()

	for _, k := range keys {
		if o, ok := assoc[k].(DestructionObserver); ok {
			o.ObjectDestroyed(obj)
		}
	}
}

// IsDeallocating reports whether dealloc is in flight.
func (obj *Object) IsDeallocating() bool {
	return obj.state.Load() == stateDeallocating
}

// IsDestroyed reports whether the object has been finalized.
func (obj *Object) IsDestroyed() bool {
	return obj.state.Load() == stateDestroyed
}
