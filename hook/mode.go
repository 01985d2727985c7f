package hook

// Mode selects where a replacement runs relative to the original.
type Mode uint8

const (
	// ModeBefore runs the replacement, then the original.
	ModeBefore Mode = iota
	// ModeAfter runs the original, then the replacement.
	ModeAfter
	// ModeInstead runs only the replacement, which may call the original.
	ModeInstead
)

func (m Mode) String() string {
	switch m {
	case ModeBefore:
		return "before"
	case ModeAfter:
		return "after"
	case ModeInstead:
		return "instead"
	}
	return "unknown"
}

// Scope is the breadth of a hook's effect.
type Scope uint8

const (
	// ScopeObject affects a single object.
	ScopeObject Scope = iota
	// ScopeAllInstances affects every instance of a class, present and future.
	ScopeAllInstances
	// ScopeClassItself affects the class's own (class-side) methods.
	ScopeClassItself
)

func (s Scope) String() string {
	switch s {
	case ScopeObject:
		return "object"
	case ScopeAllInstances:
		return "instances"
	case ScopeClassItself:
		return "class"
	}
	return "unknown"
}

// Kind distinguishes what a hook installs.
type Kind uint8

const (
	// KindMethod wraps an existing method.
	KindMethod Kind = iota
	// KindAdd synthesizes a method declared by a protocol.
	KindAdd
	// KindDestruction wraps dealloc.
	KindDestruction
)

func (k Kind) String() string {
	switch k {
	case KindMethod:
		return "method"
	case KindAdd:
		return "add"
	case KindDestruction:
		return "destruction"
	}
	return "unknown"
}

func hasMode(modes []Mode, m Mode) bool {
	if len(modes) == 0 {
		return true
	}
	for _, want := range modes {
		if want == m {
			return true
		}
	}
	return false
}
