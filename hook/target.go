package hook

import (
	"fmt"

	"github.com/chazu/interpose/vm"
)

// InstancesOf qualifies a class so that hooks affect every instance of it.
type InstancesOf struct{ Class *vm.Class }

// Instances scopes a hook to all present and future instances of c. A
// bare *vm.Class owner means the same thing.
func Instances(c *vm.Class) InstancesOf { return InstancesOf{c} }

// ClassSide qualifies a class so that hooks affect its class-side methods.
type ClassSide struct{ Class *vm.Class }

// ClassItself scopes a hook to c's own class-side methods.
func ClassItself(c *vm.Class) ClassSide { return ClassSide{c} }

// target is a resolved owner. Object targets hold the object weakly.
type target struct {
	scope Scope
	class *vm.Class // declared class for object targets
	obj   *vm.WeakReference
	objID uint64
}

func resolveOwner(owner any) (target, error) {
	switch o := owner.(type) {
	case *vm.Object:
		if o == nil {
			break
		}
		return target{scope: ScopeObject, class: o.DeclaredClass(), obj: vm.NewWeakReference(o), objID: o.ID()}, nil
	case *vm.Class:
		if o == nil {
			break
		}
		return target{scope: ScopeAllInstances, class: o}, nil
	case InstancesOf:
		if o.Class == nil {
			break
		}
		return target{scope: ScopeAllInstances, class: o.Class}, nil
	case ClassSide:
		if o.Class == nil {
			break
		}
		return target{scope: ScopeClassItself, class: o.Class}, nil
	}
	return target{}, fmt.Errorf("%w: %T", ErrInvalidOwner, owner)
}

func (t target) String() string {
	if t.class == nil {
		return "<invalid owner>"
	}
	switch t.scope {
	case ScopeObject:
		return fmt.Sprintf("a %s#%d", t.class.FullName(), t.objID)
	case ScopeClassItself:
		return t.class.FullName() + " class"
	}
	return t.class.FullName()
}

// object returns the target object, or nil for class targets and objects
// that have been collected. Destroyed objects are still returned so their
// hooks can be unwound.
func (t target) object() *vm.Object {
	if t.scope != ScopeObject {
		return nil
	}
	return t.obj.Referent()
}

func (t target) classSide() bool { return t.scope == ScopeClassItself }

// table is the dispatch table a class-scoped hook patches.
func (t target) table() *vm.VTable {
	if t.classSide() {
		return t.class.ClassVTable
	}
	return t.class.VTable
}

// dispatchClass is the class whose chain answers sends to the target right
// now. For objects that is the current, possibly synthesized, class.
func (t target) dispatchClass() *vm.Class {
	if obj := t.object(); obj != nil {
		return obj.Class()
	}
	return t.class
}

// responds reports whether sends of sel to the target find an
// implementation. For objects, dispatchers on hook subclasses only count
// when the object itself has hooks on sel; other objects sharing the
// subclass fall through them. Hooks that merely wrap a missing method do
// not count. Caller holds the queue.
func (t target) responds(sel vm.Selector) bool {
	switch t.scope {
	case ScopeClassItself, ScopeAllInstances:
		return implements(t.table(), sel)
	}
	obj := t.object()
	if obj == nil {
		return false
	}
	if r, ok := obj.Associated(registryKey{}).(*registry); ok && r.chainFor(sel).replaces() {
		return true
	}
	for c := obj.Class(); c != nil; c = c.Superclass {
		if c.Tag() != HookedTag && implementsLocally(c.VTable, sel) {
			return true
		}
	}
	return false
}

// methodTypes returns the type encoding sends of sel to the target would
// use, falling back to protocol declarations.
func (t target) methodTypes(sel vm.Selector) string {
	types, _ := t.dispatchClass().MethodTypes(sel, t.classSide())
	return types
}

func (t target) protocolMethod(sel vm.Selector) (vm.MethodDescription, bool) {
	d, _, ok := t.class.ProtocolMethod(sel, t.classSide())
	return d, ok
}

// matches reports whether owner resolves to the same target.
func (t target) matches(other target) bool {
	if t.scope != other.scope || t.class != other.class {
		return false
	}
	return t.scope != ScopeObject || t.objID == other.objID
}
