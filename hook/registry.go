package hook

import (
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/chazu/interpose/vm"
)

// entry tracks the hooks on one selector of one owner.
type entry struct {
	sel   vm.Selector
	hooks []*Hook // active, registration order; guarded by queue
	chain atomic.Pointer[chain]

	// Class targets: the table patched and what it held before.
	table      *vm.VTable
	prior      vm.Method
	trampoline vm.Method
}

func (e *entry) rebuild() {
	e.chain.Store(buildChain(e.hooks))
}

// registry holds every hook of one owner. Class registries are keyed by
// (class, instance level); object registries live in the object's
// associations and reference the object only weakly.
type registry struct {
	target target

	mu          sync.RWMutex
	entries     map[vm.Selector]*entry
	synthesized map[vm.Selector]bool

	// Object targets only.
	hc      *hookedClass
	cleanup runtime.Cleanup
}

type classKey struct {
	class         *vm.Class
	instanceLevel bool
}

type registryKey struct{}

var (
	classRegistries  = map[classKey]*registry{}
	objectRegistries = map[*registry]struct{}{}
)

func newRegistry(t target) *registry {
	return &registry{
		target:      t,
		entries:     map[vm.Selector]*entry{},
		synthesized: map[vm.Selector]bool{},
	}
}

// registryFor returns the registry for t, creating it if create is set.
// Returns nil when there is none or the object is gone. Caller holds the
// queue.
func registryFor(t target, create bool) *registry {
	if t.scope != ScopeObject {
		key := classKey{t.class, t.scope == ScopeAllInstances}
		r := classRegistries[key]
		if r == nil && create {
			r = newRegistry(t)
			classRegistries[key] = r
		}
		return r
	}

	obj := t.object()
	if obj == nil {
		return nil
	}
	if r, ok := obj.Associated(registryKey{}).(*registry); ok {
		return r
	}
	if !create || obj.IsDestroyed() {
		return nil
	}
	r := newRegistry(t)
	obj.SetAssociated(registryKey{}, r)
	objectRegistries[r] = struct{}{}
	r.cleanup = runtime.AddCleanup(obj, (*registry).collected, r)
	return r
}

// chainFor returns the active chain for sel, or nil. Safe to call without
// the queue.
func (r *registry) chainFor(sel vm.Selector) *chain {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	e := r.entries[sel]
	r.mu.RUnlock()
	if e == nil {
		return nil
	}
	return e.chain.Load()
}

func (r *registry) isSynthesized(sel vm.Selector) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.synthesized[sel]
}

// activeLocked returns the active hooks matching keep, grouped by selector
// in selector order, registration order within a selector.
func (r *registry) activeLocked(keep func(*Hook) bool) []*Hook {
	sels := make([]vm.Selector, 0, len(r.entries))
	for sel := range r.entries {
		sels = append(sels, sel)
	}
	slices.Sort(sels)
	var out []*Hook
	for _, sel := range sels {
		for _, h := range r.entries[sel].hooks {
			if keep == nil || keep(h) {
				out = append(out, h)
			}
		}
	}
	return out
}

// addLocked records h and, for the first hook on its selector, installs a
// trampoline. Caller holds the queue.
func (r *registry) addLocked(h *Hook) error {
	e := r.entries[h.sel]
	fresh := e == nil
	if fresh {
		e = &entry{sel: h.sel}
	}
	e.hooks = append(e.hooks, h)
	e.rebuild()
	if !fresh {
		if h.kind == KindAdd {
			r.mu.Lock()
			r.synthesized[h.sel] = true
			r.mu.Unlock()
		}
		return nil
	}

	var err error
	if r.target.scope == ScopeObject {
		err = r.attachLocked(e, h)
	} else {
		err = installTrampoline(r.target, e, h.types)
	}
	if err != nil {
		if len(r.entries) == 0 {
			r.discardLocked()
		}
		return err
	}

	r.mu.Lock()
	r.entries[h.sel] = e
	if h.kind == KindAdd {
		r.synthesized[h.sel] = true
	}
	r.mu.Unlock()
	return nil
}

// removeLocked drops h. When it was the selector's last hook the
// trampoline is uninstalled, and an object registry with no entries left
// is discarded. Caller holds the queue.
func (r *registry) removeLocked(h *Hook) {
	e := r.entries[h.sel]
	if e == nil {
		return
	}
	if i := slices.Index(e.hooks, h); i >= 0 {
		e.hooks = slices.Delete(e.hooks, i, i+1)
	}
	e.rebuild()
	if h.kind == KindAdd && !slices.ContainsFunc(e.hooks, isAdd) {
		r.mu.Lock()
		delete(r.synthesized, h.sel)
		r.mu.Unlock()
	}
	if len(e.hooks) > 0 {
		return
	}

	if r.target.scope == ScopeObject {
		r.hc.release(h.sel)
	} else if !uninstallTrampoline(r.target, e) {
		// Someone wrapped our trampoline; it stays as a pass-through and
		// the entry is kept so a later hook reuses it.
		return
	}

	r.mu.Lock()
	delete(r.entries, h.sel)
	delete(r.synthesized, h.sel)
	empty := len(r.entries) == 0
	r.mu.Unlock()

	if empty {
		r.discardLocked()
	}
}

func isAdd(h *Hook) bool { return h.kind == KindAdd }

func (r *registry) discardLocked() {
	if r.target.scope == ScopeObject {
		r.detachLocked()
	} else {
		delete(classRegistries, classKey{r.target.class, r.target.scope == ScopeAllInstances})
	}
}

// attachLocked moves the object onto a hook subclass on first use and
// routes sel through that subclass's dispatcher.
func (r *registry) attachLocked(e *entry, h *Hook) error {
	obj := r.target.object()
	if obj == nil || obj.IsDestroyed() {
		return vm.ErrObjectDestroyed
	}
	if r.hc == nil {
		r.hc = attachSubclass(obj)
	}
	r.hc.retain(e.sel, h.types)
	return nil
}

// detachLocked discards an object registry with no hooks left.
func (r *registry) detachLocked() {
	if obj := r.target.object(); obj != nil {
		if r.hc != nil {
			r.hc.detach(obj)
		}
		if obj.Associated(registryKey{}) == r {
			obj.SetAssociated(registryKey{}, nil)
		}
	}
	r.hc = nil
	r.cleanup.Stop()
	delete(objectRegistries, r)
}

// ObjectDestroyed reverts the object's hooks when it is finalized. Hooks on
// dealloc are still running at this point; the dealloc dispatcher reverts
// them once the chain returns.
func (r *registry) ObjectDestroyed(*vm.Object) {
	queue.do(func() {
		for _, h := range r.activeLocked(func(h *Hook) bool { return h.sel != vm.SelDealloc }) {
			h.revertLocked()
		}
	})
}

// finishDestruction reverts whatever is left after dealloc completed.
func (r *registry) finishDestruction() {
	queue.do(func() {
		for _, h := range r.activeLocked(nil) {
			h.revertLocked()
		}
	})
}

// collected runs after the object was garbage collected without being
// disposed. There is no object to move back; only the subclass references
// are released.
func (r *registry) collected() {
	queue.do(func() {
		if _, live := objectRegistries[r]; !live {
			return
		}
		for sel, e := range r.entries {
			for _, h := range e.hooks {
				h.active.Store(false)
				h.reg = nil
			}
			if r.hc != nil {
				r.hc.release(sel)
			}
		}
		r.mu.Lock()
		clear(r.entries)
		clear(r.synthesized)
		r.mu.Unlock()
		r.hc = nil
		delete(objectRegistries, r)
		log.Debugf("released hooks of collected %s", r.target)
	})
}
