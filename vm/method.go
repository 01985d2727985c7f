package vm

// Method is an implementation installed in a dispatch table.
//
// self is the receiver: an *Object for instance methods, a *Class for
// class-side methods. Implementations must be pointer types so table
// entries can be compared by identity.
type Method interface {
	Invoke(self any, args []any) (any, error)
}

// PrimitiveFunc is a Go function that implements a variadic method.
type PrimitiveFunc func(self any, args []any) (any, error)

// Method0Func is a primitive taking no arguments.
type Method0Func func(self any) (any, error)

// Method1Func is a primitive taking one argument.
type Method1Func func(self any, arg1 any) (any, error)

// Method2Func is a primitive taking two arguments.
type Method2Func func(self any, arg1, arg2 any) (any, error)

// Method3Func is a primitive taking three arguments.
type Method3Func func(self any, arg1, arg2, arg3 any) (any, error)

// ---------------------------------------------------------------------------
// Arity-specialized method wrappers
// ---------------------------------------------------------------------------

type methodInfo struct {
	name  string
	types string
}

func (m *methodInfo) Name() string         { return m.name }
func (m *methodInfo) TypeEncoding() string { return m.types }

// PrimitiveMethod wraps a general PrimitiveFunc as a Method.
type PrimitiveMethod struct {
	methodInfo
	fn PrimitiveFunc
}

func (m *PrimitiveMethod) Invoke(self any, args []any) (any, error) {
	return m.fn(self, args)
}

func (m *PrimitiveMethod) Arity() int { return -1 }

// Method0 wraps a zero-argument primitive.
type Method0 struct {
	methodInfo
	fn Method0Func
}

func (m *Method0) Invoke(self any, args []any) (any, error) {
	if err := checkArgs(m.name, args, 0); err != nil {
		return nil, err
	}
	return m.fn(self)
}

func (m *Method0) Arity() int { return 0 }

// Method1 wraps a one-argument primitive.
type Method1 struct {
	methodInfo
	fn Method1Func
}

func (m *Method1) Invoke(self any, args []any) (any, error) {
	if err := checkArgs(m.name, args, 1); err != nil {
		return nil, err
	}
	return m.fn(self, args[0])
}

func (m *Method1) Arity() int { return 1 }

// Method2 wraps a two-argument primitive.
type Method2 struct {
	methodInfo
	fn Method2Func
}

func (m *Method2) Invoke(self any, args []any) (any, error) {
	if err := checkArgs(m.name, args, 2); err != nil {
		return nil, err
	}
	return m.fn(self, args[0], args[1])
}

func (m *Method2) Arity() int { return 2 }

// Method3 wraps a three-argument primitive.
type Method3 struct {
	methodInfo
	fn Method3Func
}

func (m *Method3) Invoke(self any, args []any) (any, error) {
	if err := checkArgs(m.name, args, 3); err != nil {
		return nil, err
	}
	return m.fn(self, args[0], args[1], args[2])
}

func (m *Method3) Arity() int { return 3 }

func checkArgs(name string, args []any, want int) error {
	if len(args) != want {
		return &ArgumentCountError{Method: name, Want: want, Got: len(args)}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Factory functions
// ---------------------------------------------------------------------------

// NewPrimitiveMethod creates a new primitive method with variable arity.
// types is the method's type encoding and may be empty.
func NewPrimitiveMethod(name, types string, fn PrimitiveFunc) Method {
	return &PrimitiveMethod{methodInfo{name, types}, fn}
}

// NewMethod0 creates a new zero-argument primitive method.
func NewMethod0(name, types string, fn Method0Func) Method {
	return &Method0{methodInfo{name, types}, fn}
}

// NewMethod1 creates a new one-argument primitive method.
func NewMethod1(name, types string, fn Method1Func) Method {
	return &Method1{methodInfo{name, types}, fn}
}

// NewMethod2 creates a new two-argument primitive method.
func NewMethod2(name, types string, fn Method2Func) Method {
	return &Method2{methodInfo{name, types}, fn}
}

// NewMethod3 creates a new three-argument primitive method.
func NewMethod3(name, types string, fn Method3Func) Method {
	return &Method3{methodInfo{name, types}, fn}
}

// ---------------------------------------------------------------------------
// Method metadata interfaces (optional)
// ---------------------------------------------------------------------------

// NamedMethod is implemented by methods that have a name.
type NamedMethod interface {
	Method
	Name() string
}

// ArityMethod is implemented by methods that have a fixed arity.
type ArityMethod interface {
	Method
	Arity() int
}

// TypedMethod is implemented by methods that carry a type encoding.
type TypedMethod interface {
	Method
	TypeEncoding() string
}

// MethodName returns the name of a method if it implements NamedMethod.
func MethodName(m Method) string {
	if nm, ok := m.(NamedMethod); ok {
		return nm.Name()
	}
	return "<anonymous>"
}

// MethodArity returns the arity of a method if it implements ArityMethod.
// Returns -1 for variable arity or unknown methods.
func MethodArity(m Method) int {
	if am, ok := m.(ArityMethod); ok {
		return am.Arity()
	}
	return -1
}

// MethodTypes returns the type encoding of a method, or "".
func MethodTypes(m Method) string {
	if tm, ok := m.(TypedMethod); ok {
		return tm.TypeEncoding()
	}
	return ""
}
