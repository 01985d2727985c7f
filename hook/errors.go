package hook

import (
	"errors"
	"fmt"

	"github.com/chazu/interpose/vm"
)

var (
	// ErrNoSuchMethod means the target neither implements the selector nor
	// declares it in a protocol it conforms to.
	ErrNoSuchMethod = errors.New("no such method")
	// ErrSignatureMismatch means the replacement's shape does not fit the
	// method's signature.
	ErrSignatureMismatch = errors.New("signature mismatch")
	// ErrAlreadyHooked means a method was already synthesized for this owner.
	ErrAlreadyHooked = errors.New("already hooked")
	// ErrAlreadyImplemented means AddMethod targeted a selector the owner
	// already responds to.
	ErrAlreadyImplemented = errors.New("already implemented")
	// ErrInvalidOwner means the owner is not an object, a class or a scope
	// qualifier.
	ErrInvalidOwner = errors.New("invalid owner")
	// ErrNoOriginal is returned when a synthesized method calls its original.
	ErrNoOriginal = errors.New("no original implementation")
)

// Error describes a failed hook operation.
type Error struct {
	Op       string // "prepare", "apply"
	Owner    string
	Selector vm.Selector
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("hook: %s %s #%s: %v", e.Op, e.Owner, e.Selector, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
