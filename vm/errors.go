package vm

import (
	"errors"
	"fmt"
)

var (
	// ErrDoesNotUnderstand is wrapped by every failed send.
	ErrDoesNotUnderstand = errors.New("does not understand")
	// ErrObjectDestroyed is returned when messaging an object after dealloc.
	ErrObjectDestroyed = errors.New("object destroyed")
	// ErrArgumentCount is wrapped by ArgumentCountError.
	ErrArgumentCount = errors.New("wrong number of arguments")
)

// DoesNotUnderstandError reports a send to a receiver whose class chain has
// no implementation for the selector.
type DoesNotUnderstandError struct {
	Receiver  string
	Selector  Selector
	ClassSide bool
}

func (e *DoesNotUnderstandError) Error() string {
	side := ""
	if e.ClassSide {
		side = " class"
	}
	return fmt.Sprintf("%s%s does not understand #%s", e.Receiver, side, e.Selector)
}

func (e *DoesNotUnderstandError) Unwrap() error { return ErrDoesNotUnderstand }

// ArgumentCountError reports a call with the wrong number of arguments.
type ArgumentCountError struct {
	Method    string
	Want, Got int
}

func (e *ArgumentCountError) Error() string {
	return fmt.Sprintf("%s: expected %d arguments, got %d", e.Method, e.Want, e.Got)
}

func (e *ArgumentCountError) Unwrap() error { return ErrArgumentCount }
