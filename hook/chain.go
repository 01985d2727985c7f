package hook

import (
	"slices"

	"github.com/chazu/interpose/vm"
)

// chain is an immutable snapshot of the hooks active on one selector of
// one owner. Trampolines load it atomically on every call.
type chain struct {
	befores  []*Hook
	insteads []*Hook // first installed is innermost
	afters   []*Hook
	nargs    int
}

func buildChain(hooks []*Hook) *chain {
	if len(hooks) == 0 {
		return nil
	}
	c := &chain{nargs: hooks[0].shape.nargs}
	for _, h := range hooks {
		switch h.mode {
		case ModeBefore:
			c.befores = append(c.befores, h)
		case ModeAfter:
			c.afters = append(c.afters, h)
		case ModeInstead:
			c.insteads = append(c.insteads, h)
		}
	}
	return c
}

// replaces reports whether the chain supplies an implementation of its
// own, so that sends succeed with nothing underneath.
func (c *chain) replaces() bool {
	return c != nil && len(c.insteads) > 0
}

// invoke runs befores, then the instead chain around orig, then afters.
// An error from a before replacement aborts the call.
func (c *chain) invoke(self any, sel vm.Selector, args []any, orig Original) (any, error) {
	if orig.IsNone() && !c.replaces() {
		return nil, &vm.DoesNotUnderstandError{Receiver: receiverName(self), Selector: sel, ClassSide: isClass(self)}
	}
	if orig.IsNone() && len(args) != c.nargs {
		return nil, &vm.ArgumentCountError{Method: sel.Name(), Want: c.nargs, Got: len(args)}
	}

	for _, h := range c.befores {
		inv := &Invocation{Receiver: self, Selector: sel, Args: slices.Clone(args)}
		if err := h.repl.advice(inv); err != nil {
			return nil, err
		}
	}

	core := orig
	for _, h := range c.insteads {
		core = wrapInstead(h, self, sel, core)
	}
	result, err := core.Call(args...)

	if sel == vm.SelDealloc && len(c.insteads) > 0 {
		checkForwarded(self)
	}

	if len(c.afters) > 0 {
		inv := &Invocation{Receiver: self, Selector: sel, Args: args, Result: result, Err: err}
		for _, h := range c.afters {
			if aerr := h.repl.advice(inv); aerr != nil {
				inv.Err = aerr
			}
		}
		result, err = inv.Result, inv.Err
	}
	return result, err
}

func wrapInstead(h *Hook, self any, sel vm.Selector, inner Original) Original {
	return wrapOriginal(func(args []any) (any, error) {
		return h.repl.around(&Invocation{Receiver: self, Selector: sel, Args: args, original: inner})
	})
}

// checkForwarded warns when an instead chain on dealloc returned without
// the object having been finalized, which means some replacement did not
// call its original.
func checkForwarded(self any) {
	obj, ok := self.(*vm.Object)
	if !ok || obj.IsDestroyed() || !loadSettings().warnUnforwarded {
		return
	}
	log.Warningf("dealloc of %s returned without calling the original; the object was not finalized", obj)
}
