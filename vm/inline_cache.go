package vm

import "sync"

// Inline caching for message sends
//
// A CallSite remembers the methods it resolved for the receiver classes it
// has seen:
// - most sites are monomorphic (single receiver class)
// - some are polymorphic (2-6 classes)
// - a few are megamorphic (many classes) and always do a full lookup
//
// Every dispatch table mutation bumps the global dispatch epoch. A site
// whose epoch is stale drops its entries before the next lookup, so
// installing or removing a hook is visible to cached sends immediately.

// CacheState represents the current state of an inline cache.
type CacheState uint8

const (
	CacheEmpty       CacheState = iota // No cached lookup yet
	CacheMonomorphic                   // Single (class, method) cached
	CachePolymorphic                   // 2-6 entries in PIC
	CacheMegamorphic                   // Too many types, use full lookup
)

// MaxPICEntries is the maximum number of entries in a polymorphic inline cache.
const MaxPICEntries = 6

// InlineCacheEntry holds a single cached method lookup result.
type InlineCacheEntry struct {
	Class  *Class // Receiver class
	Method Method // Resolved method
}

// CallSite caches method lookups for one selector.
// It is safe for concurrent use.
type CallSite struct {
	sel Selector

	mu      sync.Mutex
	state   CacheState
	epoch   uint64
	entries [MaxPICEntries]InlineCacheEntry
	count   int

	// Statistics for profiling
	hits   uint64
	misses uint64
}

// NewCallSite creates an empty call site for sel.
func NewCallSite(sel Selector) *CallSite {
	return &CallSite{sel: sel}
}

// Selector returns the selector this site sends.
func (cs *CallSite) Selector() Selector { return cs.sel }

// Send dispatches the site's selector to obj, using the cache when the
// receiver's class has been seen since the last table mutation.
func (cs *CallSite) Send(obj *Object, args ...any) (any, error) {
	if obj.IsDestroyed() {
		return obj.Send(cs.sel, args...)
	}
	class := obj.Class()
	m := cs.lookup(class)
	if m == nil {
		m = class.VTable.Lookup(cs.sel)
		if m == nil {
			return obj.notUnderstood(cs.sel, args)
		}
		cs.update(class, m)
	}
	return m.Invoke(obj, args)
}

// lookup checks the cache for a method matching the given class.
// Returns the cached method on hit, nil on miss.
func (cs *CallSite) lookup(class *Class) Method {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if epoch := DispatchEpoch(); epoch != cs.epoch {
		cs.resetLocked()
		cs.epoch = epoch
	}

	switch cs.state {
	case CacheMonomorphic, CachePolymorphic:
		for i := 0; i < cs.count; i++ {
			if cs.entries[i].Class == class {
				cs.hits++
				return cs.entries[i].Method
			}
		}
	case CacheMegamorphic, CacheEmpty:
		// Always miss for megamorphic or empty
	}

	cs.misses++
	return nil
}

// update records a new (class, method) pair, potentially upgrading the cache state.
func (cs *CallSite) update(class *Class, method Method) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	// A mutation between lookup and update makes method suspect.
	if cs.epoch != DispatchEpoch() {
		return
	}

	switch cs.state {
	case CacheEmpty:
		cs.state = CacheMonomorphic
		cs.entries[0] = InlineCacheEntry{Class: class, Method: method}
		cs.count = 1

	case CacheMonomorphic, CachePolymorphic:
		for i := 0; i < cs.count; i++ {
			if cs.entries[i].Class == class {
				return
			}
		}
		if cs.count < MaxPICEntries {
			cs.entries[cs.count] = InlineCacheEntry{Class: class, Method: method}
			cs.count++
			cs.state = CachePolymorphic
		} else {
			cs.state = CacheMegamorphic
			cs.clearEntriesLocked()
		}

	case CacheMegamorphic:
		// Stay megamorphic, don't cache anything
	}
}

// State returns the cache state.
func (cs *CallSite) State() CacheState {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.state
}

// HitRate returns the cache hit rate as a percentage (0-100).
func (cs *CallSite) HitRate() float64 {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	total := cs.hits + cs.misses
	if total == 0 {
		return 0
	}
	return float64(cs.hits) * 100 / float64(total)
}

// Reset clears the cache back to empty state.
func (cs *CallSite) Reset() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.resetLocked()
	cs.hits = 0
	cs.misses = 0
}

func (cs *CallSite) resetLocked() {
	cs.state = CacheEmpty
	cs.clearEntriesLocked()
}

func (cs *CallSite) clearEntriesLocked() {
	for i := range cs.entries {
		cs.entries[i] = InlineCacheEntry{}
	}
	cs.count = 0
}
