package vm

import (
	"sync"
	"weak"
)

// ---------------------------------------------------------------------------
// WeakReference: A reference that doesn't prevent garbage collection
// ---------------------------------------------------------------------------

// WeakReference holds a weak reference to an object.
// The reference goes dead when the object is collected or finalized.
// Optionally supports a callback run when Clear drops the target.
type WeakReference struct {
	target    weak.Pointer[Object]
	finalizer func(*Object)
	cleared   bool
	mu        sync.RWMutex
}

// NewWeakReference creates a new weak reference to the given object.
func NewWeakReference(target *Object) *WeakReference {
	return &WeakReference{target: weak.Make(target)}
}

// Get returns the target object, or nil if it has been collected,
// finalized or cleared.
func (wr *WeakReference) Get() *Object {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	if wr.cleared {
		return nil
	}
	obj := wr.target.Value()
	if obj == nil || obj.IsDestroyed() {
		return nil
	}
	return obj
}

// Referent returns the target even after it was finalized, or nil once it
// has been collected or the reference cleared. Code that must restore
// state on a destroyed object uses it where Get would already say nil.
func (wr *WeakReference) Referent() *Object {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	if wr.cleared {
		return nil
	}
	return wr.target.Value()
}

// IsAlive returns true if the target object is still reachable.
func (wr *WeakReference) IsAlive() bool {
	return wr.Get() != nil
}

// Clear drops the reference and runs the finalizer, if any, with the old
// target. Returns the old target.
func (wr *WeakReference) Clear() *Object {
	wr.mu.Lock()
	var old *Object
	if !wr.cleared {
		old = wr.target.Value()
	}
	wr.cleared = true
	fn := wr.finalizer
	wr.mu.Unlock()

	if fn != nil && old != nil {
		fn(old)
	}
	return old
}

// SetFinalizer sets a callback to be invoked by Clear.
func (wr *WeakReference) SetFinalizer(fn func(*Object)) {
	wr.mu.Lock()
	defer wr.mu.Unlock()
	wr.finalizer = fn
}
