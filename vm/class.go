package vm

import (
	"strconv"
	"sync"
)

// ---------------------------------------------------------------------------
// Class: runtime class descriptor
// ---------------------------------------------------------------------------

// Class is a runtime class: a named instance dispatch table, a class-side
// dispatch table (the metaclass equivalent) and a single superclass link.
type Class struct {
	Name        string   // Class name
	Namespace   string   // Namespace (empty for default)
	Superclass  *Class   // Parent class (nil for a root class)
	VTable      *VTable  // Instance method dispatch table
	ClassVTable *VTable  // Class-side method dispatch table
	InstVars    []string // Instance variable names
	NumSlots    int      // Total number of slots needed

	tag  string // mechanism that synthesized this class, "" if declared
	base *Class // class this one was synthesized from

	protoMu   sync.RWMutex
	protocols []*Protocol
}

// InstVarIndex returns the slot index for an instance variable by name.
// Returns -1 if the variable is not found.
func (c *Class) InstVarIndex(name string) int {
	for i, n := range c.InstVars {
		if n == name {
			return c.instVarOffset() + i
		}
	}
	if c.Superclass != nil {
		return c.Superclass.InstVarIndex(name)
	}
	return -1
}

// instVarOffset returns the starting slot index for this class's instance
// variables, accounting for inherited ones.
func (c *Class) instVarOffset() int {
	if c.Superclass == nil {
		return 0
	}
	return c.Superclass.NumSlots
}

// AllInstVarNames returns all instance variable names including inherited ones.
func (c *Class) AllInstVarNames() []string {
	if c.Superclass == nil {
		return c.InstVars
	}
	inherited := c.Superclass.AllInstVarNames()
	result := make([]string, len(inherited)+len(c.InstVars))
	copy(result, inherited)
	copy(result[len(inherited):], c.InstVars)
	return result
}

// IsSubclassOf returns true if c is a subclass of other (or is the same class).
func (c *Class) IsSubclassOf(other *Class) bool {
	for current := c; current != nil; current = current.Superclass {
		if current == other {
			return true
		}
	}
	return false
}

// IsSuperclassOf returns true if c is a superclass of other (or is the same class).
func (c *Class) IsSuperclassOf(other *Class) bool {
	return other.IsSubclassOf(c)
}

// New creates a new instance of this class.
func (c *Class) New() *Object {
	return newObject(c)
}

// ---------------------------------------------------------------------------
// Synthesized classes
// ---------------------------------------------------------------------------

// Tag names the mechanism that synthesized c, or "" for declared classes.
func (c *Class) Tag() string { return c.tag }

// IsSynthesized reports whether c was created at run time by
// AllocateSubclass rather than declared.
func (c *Class) IsSynthesized() bool { return c.tag != "" }

// Base returns the class c was synthesized from, or nil.
func (c *Class) Base() *Class { return c.base }

// DeclaredClass returns the first declared (non-synthesized) class in c's
// superclass chain, c itself if it was declared.
func (c *Class) DeclaredClass() *Class {
	current := c
	for current != nil && current.IsSynthesized() {
		current = current.Superclass
	}
	return current
}

// SynthesizedWithTag returns the first class carrying tag among c and the
// synthesized classes above it, stopping at the declared class. Returns
// nil if there is none.
func (c *Class) SynthesizedWithTag(tag string) *Class {
	for current := c; current != nil && current.IsSynthesized(); current = current.Superclass {
		if current.tag == tag {
			return current
		}
	}
	return nil
}

// AllocateSubclass creates a synthesized subclass of base with the given
// name, tagged with the mechanism that owns it. The subclass declares no
// instance variables and no methods of its own. If name is already taken in
// Classes a numeric suffix is appended.
func AllocateSubclass(base *Class, name, tag string) *Class {
	sub := NewClass(name, base)
	sub.Namespace = base.Namespace
	sub.tag = tag
	sub.base = base
	Classes.registerUnique(sub)
	return sub
}

// ---------------------------------------------------------------------------
// Method registration on Class
// ---------------------------------------------------------------------------

// AddMethod registers a method on this class under the named selector.
func (c *Class) AddMethod(name string, method Method) Selector {
	sel := Sel(name)
	c.VTable.AddMethod(sel, method)
	return sel
}

// AddMethod0 registers a zero-argument method on this class.
func (c *Class) AddMethod0(name, types string, fn Method0Func) Selector {
	return c.AddMethod(name, NewMethod0(name, types, fn))
}

// AddMethod1 registers a one-argument method on this class.
func (c *Class) AddMethod1(name, types string, fn Method1Func) Selector {
	return c.AddMethod(name, NewMethod1(name, types, fn))
}

// AddMethod2 registers a two-argument method on this class.
func (c *Class) AddMethod2(name, types string, fn Method2Func) Selector {
	return c.AddMethod(name, NewMethod2(name, types, fn))
}

// AddMethod3 registers a three-argument method on this class.
func (c *Class) AddMethod3(name, types string, fn Method3Func) Selector {
	return c.AddMethod(name, NewMethod3(name, types, fn))
}

// AddPrimitiveMethod registers a variable-arity method on this class.
func (c *Class) AddPrimitiveMethod(name, types string, fn PrimitiveFunc) Selector {
	return c.AddMethod(name, NewPrimitiveMethod(name, types, fn))
}

// LookupMethod looks up an instance method, walking superclasses.
func (c *Class) LookupMethod(sel Selector) Method {
	return c.VTable.Lookup(sel)
}

// HasMethod returns true if this class (not superclasses) defines a method.
func (c *Class) HasMethod(sel Selector) bool {
	return c.VTable.HasMethod(sel)
}

// RespondsTo reports whether instances of c respond to sel.
func (c *Class) RespondsTo(sel Selector) bool {
	return c.VTable.Lookup(sel) != nil
}

// ---------------------------------------------------------------------------
// Class method registration (class-side / metaclass methods)
// ---------------------------------------------------------------------------

// AddClassMethod registers a class-side method on this class.
func (c *Class) AddClassMethod(name string, method Method) Selector {
	sel := Sel(name)
	c.ClassVTable.AddMethod(sel, method)
	return sel
}

// AddClassMethod0 registers a zero-argument class-side method.
func (c *Class) AddClassMethod0(name, types string, fn Method0Func) Selector {
	return c.AddClassMethod(name, NewMethod0(name, types, fn))
}

// AddClassMethod1 registers a one-argument class-side method.
func (c *Class) AddClassMethod1(name, types string, fn Method1Func) Selector {
	return c.AddClassMethod(name, NewMethod1(name, types, fn))
}

// AddClassMethod2 registers a two-argument class-side method.
func (c *Class) AddClassMethod2(name, types string, fn Method2Func) Selector {
	return c.AddClassMethod(name, NewMethod2(name, types, fn))
}

// LookupClassMethod looks up a class-side method, walking superclasses.
func (c *Class) LookupClassMethod(sel Selector) Method {
	return c.ClassVTable.Lookup(sel)
}

// ---------------------------------------------------------------------------
// Sending
// ---------------------------------------------------------------------------

// Send sends a class-side message to c.
func (c *Class) Send(sel Selector, args ...any) (any, error) {
	m := c.ClassVTable.Lookup(sel)
	if m == nil {
		return nil, &DoesNotUnderstandError{Receiver: c.FullName(), Selector: sel, ClassSide: true}
	}
	return m.Invoke(c, args)
}

// SendSuper sends sel to self starting the lookup at c's superclass. Method
// implementations on c use it to call the inherited behavior.
func (c *Class) SendSuper(self *Object, sel Selector, args ...any) (any, error) {
	if c.Superclass == nil {
		return nil, &DoesNotUnderstandError{Receiver: self.ClassName(), Selector: sel}
	}
	m := c.Superclass.VTable.Lookup(sel)
	if m == nil {
		return nil, &DoesNotUnderstandError{Receiver: self.ClassName(), Selector: sel}
	}
	return m.Invoke(self, args)
}

// ---------------------------------------------------------------------------
// ClassTable: Global class registry
// ---------------------------------------------------------------------------

// ClassTable manages registered classes by name.
// It's thread-safe for concurrent access.
type ClassTable struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// Classes is the process-wide class table.
var Classes = NewClassTable()

// NewClassTable creates a new empty class table.
func NewClassTable() *ClassTable {
	return &ClassTable{
		classes: make(map[string]*Class),
	}
}

// Register adds a class to the table.
// Returns the previous class with this name, or nil.
func (ct *ClassTable) Register(c *Class) *Class {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	key := c.FullName()
	old := ct.classes[key]
	ct.classes[key] = c
	return old
}

// registerUnique registers c, renaming it with a numeric suffix while its
// name collides with a different registered class.
func (ct *ClassTable) registerUnique(c *Class) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	name := c.Name
	for i := 1; ; i++ {
		c.Name = name
		if i > 1 {
			c.Name = name + "_" + strconv.Itoa(i)
		}
		if _, taken := ct.classes[c.FullName()]; !taken {
			break
		}
	}
	ct.classes[c.FullName()] = c
}

// Lookup finds a class by name.
func (ct *ClassTable) Lookup(name string) *Class {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return ct.classes[name]
}

// LookupInNamespace finds a class by name and namespace.
func (ct *ClassTable) LookupInNamespace(namespace, name string) *Class {
	key := name
	if namespace != "" {
		key = namespace + "::" + name
	}
	return ct.Lookup(key)
}

// Has returns true if a class with this name is registered.
func (ct *ClassTable) Has(name string) bool {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	_, ok := ct.classes[name]
	return ok
}

// All returns all registered classes.
func (ct *ClassTable) All() []*Class {
	ct.mu.RLock()
	defer ct.mu.RUnlock()

	result := make([]*Class, 0, len(ct.classes))
	for _, c := range ct.classes {
		result = append(result, c)
	}
	return result
}

// Len returns the number of registered classes.
func (ct *ClassTable) Len() int {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.classes)
}

// ---------------------------------------------------------------------------
// Class creation helpers
// ---------------------------------------------------------------------------

// NewClass creates a new class with the given name and superclass.
// The VTable and ClassVTable are automatically created and linked. Root
// classes receive the default dealloc implementation.
func NewClass(name string, superclass *Class) *Class {
	var parentVT *VTable
	var parentClassVT *VTable
	var numSlots int
	if superclass != nil {
		parentVT = superclass.VTable
		parentClassVT = superclass.ClassVTable
		numSlots = superclass.NumSlots
	}

	c := &Class{
		Name:       name,
		Superclass: superclass,
		NumSlots:   numSlots,
	}
	c.VTable = NewVTable(c, parentVT)
	c.ClassVTable = NewVTable(c, parentClassVT)
	if superclass == nil {
		c.VTable.AddMethod(SelDealloc, rootDealloc)
	}
	return c
}

// NewClassWithInstVars creates a new class with instance variables.
func NewClassWithInstVars(name string, superclass *Class, instVars []string) *Class {
	c := NewClass(name, superclass)
	c.InstVars = instVars
	c.NumSlots += len(instVars)
	return c
}

// NewClassInNamespace creates a new class in a specific namespace.
func NewClassInNamespace(namespace, name string, superclass *Class) *Class {
	c := NewClass(name, superclass)
	c.Namespace = namespace
	return c
}

// FullName returns the fully qualified class name (namespace::name or just name).
func (c *Class) FullName() string {
	if c.Namespace == "" {
		return c.Name
	}
	return c.Namespace + "::" + c.Name
}

// String implements the Stringer interface.
func (c *Class) String() string {
	return c.FullName()
}

// Superclasses returns all superclasses from immediate parent to root.
func (c *Class) Superclasses() []*Class {
	var result []*Class
	for current := c.Superclass; current != nil; current = current.Superclass {
		result = append(result, current)
	}
	return result
}

// Depth returns the inheritance depth (0 for root class).
func (c *Class) Depth() int {
	depth := 0
	for current := c.Superclass; current != nil; current = current.Superclass {
		depth++
	}
	return depth
}
