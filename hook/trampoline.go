package hook

import (
	"github.com/chazu/interpose/vm"
)

// trampolines maps each installed trampoline to its entry. Guarded by the
// queue.
var trampolines = map[vm.Method]*entry{}

// installTrampoline replaces the target table's entry for e.sel with a
// trampoline that runs e's chain around whatever the entry held before.
// The prior local entry is captured so the last revert can put it back.
func installTrampoline(t target, e *entry, types string) error {
	table := t.table()
	for {
		prior := table.LookupLocal(e.sel)
		tramp := classTrampoline(e, table, prior, types)
		if table.CompareAndSwapMethod(e.sel, prior, tramp) {
			e.table, e.prior, e.trampoline = table, prior, tramp
			trampolines[tramp] = e
			log.Debugf("installed trampoline for %s #%s", t, e.sel)
			return nil
		}
	}
}

// uninstallTrampoline restores the prior entry, or removes the entry when
// there was none. It reports false when the table no longer holds our
// trampoline because another party wrapped it.
func uninstallTrampoline(t target, e *entry) bool {
	if e.table.CompareAndSwapMethod(e.sel, e.trampoline, e.prior) {
		delete(trampolines, e.trampoline)
		log.Debugf("restored %s #%s", t, e.sel)
		return true
	}
	log.Warningf("%s #%s was replaced after hooking; leaving the hook trampoline in place as a pass-through", t, e.sel)
	return false
}

func classTrampoline(e *entry, table *vm.VTable, prior vm.Method, types string) vm.Method {
	sel := e.sel
	return vm.NewPrimitiveMethod(sel.Name(), types, func(self any, args []any) (any, error) {
		orig := priorOriginal(table, prior, self, sel)
		ch := e.chain.Load()
		if ch == nil {
			if orig.IsNone() {
				return nil, &vm.DoesNotUnderstandError{Receiver: receiverName(self), Selector: sel, ClassSide: isClass(self)}
			}
			return orig.Call(args...)
		}
		return ch.invoke(self, sel, args, orig)
	})
}

// priorOriginal wraps the entry the trampoline replaced, or the inherited
// implementation when the table had no local entry.
func priorOriginal(table *vm.VTable, prior vm.Method, self any, sel vm.Selector) Original {
	m := prior
	if m == nil {
		if parent := table.Parent(); parent != nil {
			m = parent.Lookup(sel)
		}
	}
	if m == nil {
		return noOriginal()
	}
	return wrapOriginal(func(args []any) (any, error) { return m.Invoke(self, args) })
}

func isClass(self any) bool {
	_, ok := self.(*vm.Class)
	return ok
}

// implementsLocally reports whether table's own entry for sel answers
// sends. A hook trampoline with nothing beneath it only does when its
// chain replaces the original. Caller holds the queue.
func implementsLocally(table *vm.VTable, sel vm.Selector) bool {
	m := table.LookupLocal(sel)
	if m == nil {
		return false
	}
	e := trampolines[m]
	return e == nil || e.prior != nil || e.chain.Load().replaces()
}

// implements is implementsLocally over table and its parents.
func implements(table *vm.VTable, sel vm.Selector) bool {
	for ; table != nil; table = table.Parent() {
		if implementsLocally(table, sel) {
			return true
		}
	}
	return false
}
