package hook

import (
	"github.com/chazu/interpose/vm"
)

// Token is returned by the installing functions. Cancelling it reverts the
// hook it stands for.
type Token struct {
	hook *Hook
}

// Cancel reverts the hook. Cancelling twice does nothing.
func (t *Token) Cancel() { t.hook.Revert() }

// IsActive reports whether the hook is still installed.
func (t *Token) IsActive() bool { return t.hook.IsActive() }

// Hook returns the underlying hook.
func (t *Token) Hook() *Hook { return t.hook }

func install(h *Hook) (*Token, error) {
	if err := h.Apply(); err != nil {
		return nil, err
	}
	return &Token{hook: h}, nil
}

// Before runs fn ahead of sel on owner. fn is func(*Invocation),
// func(*Invocation) error, func(), or func(self, a1..an) optionally
// returning error.
func Before(owner any, sel vm.Selector, fn any) (*Token, error) {
	return install(NewHook(owner, sel, ModeBefore, fn))
}

// After runs fn once sel on owner has returned. It takes the same forms as
// Before; a func(*Invocation) sees and may replace the result.
func After(owner any, sel vm.Selector, fn any) (*Token, error) {
	return install(NewHook(owner, sel, ModeAfter, fn))
}

// Instead replaces sel on owner with fn, which decides whether to call the
// original. fn is func(*Invocation) (any, error) or
// func(original func(a1..an) T, self, a1..an) T, where T and the original
// may add a trailing error. Later instead hooks wrap earlier ones.
func Instead(owner any, sel vm.Selector, fn any) (*Token, error) {
	return install(NewHook(owner, sel, ModeInstead, fn))
}

// AddMethod gives owner an implementation of sel, which must be declared by
// a protocol owner's class conforms to and not implemented yet. fn is
// func(*Invocation) (any, error), func(self, a1..an) T, or the Instead form
// whose original is never available. Reverting removes the method again.
func AddMethod(owner any, sel vm.Selector, fn any) (*Token, error) {
	return install(NewAddHook(owner, sel, fn))
}

// HookDestructionBefore runs fn before dealloc on owner, a *vm.Object or a
// class. fn is func(), func(self) or func(*Invocation).
func HookDestructionBefore(owner any, fn any) (*Token, error) {
	return install(newHook(owner, vm.SelDealloc, ModeBefore, KindDestruction, fn))
}

// HookDestructionAfter runs fn after dealloc on owner has finished.
func HookDestructionAfter(owner any, fn any) (*Token, error) {
	return install(newHook(owner, vm.SelDealloc, ModeAfter, KindDestruction, fn))
}

// HookDestructionInstead replaces dealloc on owner. fn must call the
// original, or the object is never finalized; fn is
// func(original func(), self) or func(*Invocation) (any, error).
func HookDestructionInstead(owner any, fn any) (*Token, error) {
	return install(newHook(owner, vm.SelDealloc, ModeInstead, KindDestruction, fn))
}

// RevertHooks reverts every active hook on sel of owner, or only those in
// the given modes.
func RevertHooks(owner any, sel vm.Selector, modes ...Mode) {
	t, err := resolveOwner(owner)
	if err != nil {
		return
	}
	queue.do(func() {
		r := registryFor(t, false)
		if r == nil {
			return
		}
		for _, h := range r.activeLocked(func(h *Hook) bool { return h.sel == sel && hasMode(modes, h.mode) }) {
			h.revertLocked()
		}
	})
}

// RevertAll reverts every active hook of owner.
func RevertAll(owner any) {
	t, err := resolveOwner(owner)
	if err != nil {
		return
	}
	queue.do(func() {
		r := registryFor(t, false)
		if r == nil {
			return
		}
		for _, h := range r.activeLocked(nil) {
			h.revertLocked()
		}
	})
}

// IsHooked reports whether sel of owner has an active hook, in one of the
// given modes if any are given.
func IsHooked(owner any, sel vm.Selector, modes ...Mode) bool {
	for _, h := range Hooks(owner, sel) {
		if hasMode(modes, h.mode) {
			return true
		}
	}
	return false
}

// Hooks returns the active hooks on sel of owner in registration order.
func Hooks(owner any, sel vm.Selector) []*Hook {
	t, err := resolveOwner(owner)
	if err != nil {
		return nil
	}
	var hooks []*Hook
	queue.do(func() {
		if r := registryFor(t, false); r != nil {
			hooks = r.activeLocked(func(h *Hook) bool { return h.sel == sel })
		}
	})
	return hooks
}
