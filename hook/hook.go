package hook

import (
	"fmt"
	"sync/atomic"

	"github.com/chazu/interpose/signature"
	"github.com/chazu/interpose/vm"
	"github.com/google/uuid"
)

// Hook is one interception of one selector on one owner.
//
// A Hook starts inert. Prepare resolves the method's signature and checks
// the replacement against it without touching any dispatch table; Apply
// installs it; Revert uninstalls it. Applying an active hook and reverting
// an inactive one are no-ops, and a reverted hook may be applied again.
type Hook struct {
	id       uuid.UUID
	target   target
	ownerErr error
	sel      vm.Selector
	mode     Mode
	kind     Kind
	fn       any

	// Set by Prepare.
	prepared bool
	types    string
	sig      *signature.Signature
	shape    shape
	repl     *replacement

	active atomic.Bool
	reg    *registry // guarded by queue
}

// NewHook creates an inert hook that intercepts sel on owner. Nothing is
// checked until Prepare or Apply.
//
// owner is a *vm.Object for a single object, a *vm.Class or
// Instances(class) for every instance, or ClassItself(class) for
// class-side methods.
func NewHook(owner any, sel vm.Selector, mode Mode, fn any) *Hook {
	kind := KindMethod
	if sel == vm.SelDealloc {
		kind = KindDestruction
	}
	return newHook(owner, sel, mode, kind, fn)
}

// NewAddHook creates an inert hook that synthesizes sel on owner from the
// declaration of a protocol owner's class conforms to.
func NewAddHook(owner any, sel vm.Selector, fn any) *Hook {
	return newHook(owner, sel, ModeInstead, KindAdd, fn)
}

func newHook(owner any, sel vm.Selector, mode Mode, kind Kind, fn any) *Hook {
	t, err := resolveOwner(owner)
	if err == nil && kind == KindDestruction && t.scope == ScopeClassItself {
		err = fmt.Errorf("%w: classes are not destroyed", ErrInvalidOwner)
	}
	return &Hook{
		id:       uuid.New(),
		target:   t,
		ownerErr: err,
		sel:      sel,
		mode:     mode,
		kind:     kind,
		fn:       fn,
	}
}

// ID returns the hook's unique identifier.
func (h *Hook) ID() uuid.UUID { return h.id }

// Selector returns the intercepted selector.
func (h *Hook) Selector() vm.Selector { return h.sel }

// Mode returns where the replacement runs relative to the original.
func (h *Hook) Mode() Mode { return h.mode }

// Kind returns what the hook installs.
func (h *Hook) Kind() Kind { return h.kind }

// Scope returns the breadth of the hook's effect.
func (h *Hook) Scope() Scope { return h.target.scope }

// Owner returns what the hook was created for: the object (nil once it has
// been collected), the class, or ClassItself(class).
func (h *Hook) Owner() any {
	switch h.target.scope {
	case ScopeObject:
		return h.target.object()
	case ScopeClassItself:
		return ClassItself(h.target.class)
	}
	return h.target.class
}

// Signature returns the resolved signature after Prepare, or nil when the
// method carries no type encoding.
func (h *Hook) Signature() *signature.Signature { return h.sig }

// IsActive reports whether the hook is installed.
func (h *Hook) IsActive() bool { return h.active.Load() }

func (h *Hook) String() string {
	return fmt.Sprintf("%s %s hook %s on %s #%s", h.mode, h.kind, h.id, h.target, h.sel)
}

// Prepare resolves the signature and validates the replacement. It does
// not modify any dispatch table.
func (h *Hook) Prepare() error {
	return queue.sync(h.prepareLocked)
}

func (h *Hook) prepareLocked() error {
	if h.prepared {
		return nil
	}
	if h.ownerErr != nil {
		return h.fail("prepare", h.ownerErr)
	}
	if h.target.scope == ScopeObject {
		if obj := h.target.object(); obj == nil || obj.IsDestroyed() {
			return h.fail("prepare", vm.ErrObjectDestroyed)
		}
	}

	if h.kind == KindAdd {
		d, ok := h.target.protocolMethod(h.sel)
		if !ok {
			return h.fail("prepare", fmt.Errorf("%w: no protocol of %s declares it", ErrNoSuchMethod, h.target.class))
		}
		h.types = d.Types
	} else {
		if !h.target.responds(h.sel) {
			return h.fail("prepare", ErrNoSuchMethod)
		}
		h.types = h.target.methodTypes(h.sel)
	}

	var sig *signature.Signature
	if h.types != "" {
		var err error
		if sig, err = signature.Parse(h.types); err != nil {
			return h.fail("prepare", err)
		}
	}
	sh := newShape(sig, h.sel, h.target.classSide())
	repl, err := adapt(h.fn, h.mode, h.kind, sh, loadSettings().strict)
	if err != nil {
		return h.fail("prepare", err)
	}
	h.sig, h.shape, h.repl = sig, sh, repl
	h.prepared = true
	return nil
}

// Apply prepares the hook if needed and installs it. Every failure is
// reported before any dispatch table changes.
func (h *Hook) Apply() error {
	return queue.sync(h.applyLocked)
}

func (h *Hook) applyLocked() error {
	if h.active.Load() {
		return nil
	}
	if err := h.prepareLocked(); err != nil {
		return err
	}

	reg := registryFor(h.target, false)
	switch {
	case h.kind == KindAdd && reg != nil && reg.isSynthesized(h.sel):
		return h.fail("apply", ErrAlreadyHooked)
	case h.kind == KindAdd && h.target.responds(h.sel):
		return h.fail("apply", ErrAlreadyImplemented)
	case h.kind != KindAdd && !h.target.responds(h.sel):
		return h.fail("apply", ErrNoSuchMethod)
	}

	if reg = registryFor(h.target, true); reg == nil {
		return h.fail("apply", vm.ErrObjectDestroyed)
	}
	if err := reg.addLocked(h); err != nil {
		return h.fail("apply", err)
	}
	h.reg = reg
	h.active.Store(true)
	log.Debugf("applied %s", h)
	return nil
}

// Revert uninstalls the hook. Reverting an inactive hook does nothing.
func (h *Hook) Revert() {
	queue.do(h.revertLocked)
}

func (h *Hook) revertLocked() {
	if !h.active.Load() || h.reg == nil {
		return
	}
	h.reg.removeLocked(h)
	h.reg = nil
	h.active.Store(false)
	log.Debugf("reverted %s", h)
}

func (h *Hook) fail(op string, err error) error {
	return &Error{Op: op, Owner: h.target.String(), Selector: h.sel, Err: err}
}
