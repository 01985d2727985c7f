package hook

import (
	"github.com/chazu/interpose/vm"
)

// HookedTag marks classes synthesized for object-scoped hooks.
const HookedTag = "hooked"

// hookedClass is a synthesized subclass shared by every object of one
// parent class that carries object-scoped hooks. Its table holds one
// dispatcher per hooked selector, reference counted across objects.
type hookedClass struct {
	class   *vm.Class
	methods map[vm.Selector]*dispatch
}

type dispatch struct {
	method vm.Method
	refs   int
}

// The arena of hook subclasses, keyed both by parent and by the subclass
// itself. Guarded by the queue.
var (
	hookedByParent = map[*vm.Class]*hookedClass{}
	hookedByClass  = map[*vm.Class]*hookedClass{}
)

// attachSubclass puts obj on a hook subclass and returns it.
//
// If the object's synthesized chain already contains a hook subclass it is
// reused. Otherwise a hook subclass of the object's current class, which
// may itself have been synthesized by another mechanism, replaces it with
// a compare-and-swap; a concurrent substitution makes the loop retry on
// top of the new class. The first mechanism to substitute owns the lower
// class and later ones nest above it.
func attachSubclass(obj *vm.Object) *hookedClass {
	for {
		cur := obj.Class()
		if existing := cur.SynthesizedWithTag(HookedTag); existing != nil {
			if hc := hookedByClass[existing]; hc != nil {
				return hc
			}
		}
		hc := hookedByParent[cur]
		if hc == nil {
			hc = &hookedClass{
				class:   vm.AllocateSubclass(cur, cur.Name+loadSettings().suffix, HookedTag),
				methods: map[vm.Selector]*dispatch{},
			}
			hookedByParent[cur] = hc
			hookedByClass[hc.class] = hc
			log.Debugf("synthesized %s", hc.class)
		}
		if obj.CompareAndSwapClass(cur, hc.class) {
			log.Debugf("%s moved to %s", obj, hc.class)
			return hc
		}
	}
}

// detach moves obj back to the hook subclass's parent if nothing has
// substituted its class since. Otherwise the subclass stays in the chain,
// where its dispatchers fall through for objects without hooks.
func (hc *hookedClass) detach(obj *vm.Object) {
	if obj.CompareAndSwapClass(hc.class, hc.class.Superclass) {
		log.Debugf("%s restored to %s", obj, hc.class.Superclass)
		return
	}
	log.Debugf("%s left on %s: class is now %s", obj, hc.class, obj.Class())
}

// retain installs the dispatcher for sel on first use.
func (hc *hookedClass) retain(sel vm.Selector, types string) {
	d := hc.methods[sel]
	if d == nil {
		d = &dispatch{method: hc.dispatcher(sel, types)}
		hc.methods[sel] = d
		hc.class.VTable.AddMethod(sel, d.method)
	}
	d.refs++
}

// release removes the dispatcher for sel once no object uses it.
func (hc *hookedClass) release(sel vm.Selector) {
	d := hc.methods[sel]
	if d == nil {
		return
	}
	if d.refs--; d.refs > 0 {
		return
	}
	hc.class.VTable.CompareAndSwapMethod(sel, d.method, nil)
	delete(hc.methods, sel)
}

// dispatcher runs the receiver's own chain for sel, or falls through to
// the superclass for receivers without hooks on it.
func (hc *hookedClass) dispatcher(sel vm.Selector, types string) vm.Method {
	return vm.NewPrimitiveMethod(sel.Name(), types, func(self any, args []any) (any, error) {
		orig := superOriginal(hc.class, self, sel)
		obj, _ := self.(*vm.Object)
		var reg *registry
		if obj != nil {
			reg, _ = obj.Associated(registryKey{}).(*registry)
		}
		ch := reg.chainFor(sel)
		if ch == nil {
			if orig.IsNone() {
				return nil, &vm.DoesNotUnderstandError{Receiver: receiverName(self), Selector: sel}
			}
			return orig.Call(args...)
		}
		result, err := ch.invoke(self, sel, args, orig)
		if sel == vm.SelDealloc && obj != nil && obj.IsDestroyed() {
			reg.finishDestruction()
		}
		return result, err
	})
}

// superOriginal wraps the implementation sel resolves to above class.
func superOriginal(class *vm.Class, self any, sel vm.Selector) Original {
	if class.Superclass == nil {
		return noOriginal()
	}
	m := class.Superclass.VTable.Lookup(sel)
	if m == nil {
		return noOriginal()
	}
	return wrapOriginal(func(args []any) (any, error) { return m.Invoke(self, args) })
}

func receiverName(self any) string {
	switch r := self.(type) {
	case *vm.Object:
		return r.ClassName()
	case *vm.Class:
		return r.FullName()
	}
	return "?"
}
