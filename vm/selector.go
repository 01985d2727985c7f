package vm

import "sync"

// Selector identifies a method within a dispatch table.
//
// Selectors are interned names like "sum:with:" or "dealloc". Two
// selectors are equal exactly when their names are equal, so they can be
// compared with == and used as map keys.
type Selector int

// NoSelector is the zero-value sentinel returned by failed lookups.
const NoSelector Selector = -1

// Selectors is the process-wide selector table.
var Selectors = NewSelectorTable()

// Sel interns name in the process-wide table.
func Sel(name string) Selector {
	return Selectors.Intern(name)
}

// LookupSelector returns the selector for name without interning it.
func LookupSelector(name string) (Selector, bool) {
	s := Selectors.Lookup(name)
	return s, s != NoSelector
}

// Name returns the selector's name, or "" for an invalid selector.
func (s Selector) Name() string {
	return Selectors.Name(s)
}

func (s Selector) String() string {
	if n := s.Name(); n != "" {
		return n
	}
	return "<invalid selector>"
}

// NumArgs counts the colons in the selector name, the number of explicit
// arguments a keyword selector takes.
func (s Selector) NumArgs() int {
	n := 0
	for _, c := range s.Name() {
		if c == ':' {
			n++
		}
	}
	return n
}

// SelectorTable interns selector names to numeric IDs for fast lookup.
//
// By converting names to IDs once, method dispatch can use array indexing
// instead of string comparison.
//
// The table is append-only and thread-safe.
type SelectorTable struct {
	mu     sync.RWMutex
	byName map[string]Selector
	byID   []string
}

// NewSelectorTable creates a new empty selector table.
func NewSelectorTable() *SelectorTable {
	return &SelectorTable{
		byName: make(map[string]Selector),
		byID:   make([]string, 0, 256),
	}
}

// Intern returns the ID for a selector name, creating a new ID if needed.
func (st *SelectorTable) Intern(name string) Selector {
	// Fast path: read-only lookup
	st.mu.RLock()
	if id, ok := st.byName[name]; ok {
		st.mu.RUnlock()
		return id
	}
	st.mu.RUnlock()

	st.mu.Lock()
	defer st.mu.Unlock()

	// Double-check after acquiring write lock
	if id, ok := st.byName[name]; ok {
		return id
	}

	id := Selector(len(st.byID))
	st.byName[name] = id
	st.byID = append(st.byID, name)
	return id
}

// Lookup returns the ID for a selector name, or NoSelector if not found.
func (st *SelectorTable) Lookup(name string) Selector {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if id, ok := st.byName[name]; ok {
		return id
	}
	return NoSelector
}

// Name returns the selector name for an ID, or "" if invalid.
func (st *SelectorTable) Name(id Selector) string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	if id < 0 || int(id) >= len(st.byID) {
		return ""
	}
	return st.byID[id]
}

// Len returns the number of interned selectors.
func (st *SelectorTable) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byID)
}
