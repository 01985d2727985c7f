package vm

import (
	"fmt"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// Protocol: declared method signatures a class may adopt
// ---------------------------------------------------------------------------

// MethodDescription declares a method without implementing it.
type MethodDescription struct {
	Selector  Selector
	Types     string // type encoding
	Required  bool
	ClassSide bool
}

// Protocol is a named set of method declarations. Protocols have no
// implementations and no instance variables; they may inherit other
// protocols.
type Protocol struct {
	Name      string
	Namespace string
	Protocols []*Protocol // inherited protocols

	mu      sync.RWMutex
	methods []MethodDescription
}

// NewProtocol creates a protocol inheriting the given protocols.
func NewProtocol(name string, inherits ...*Protocol) *Protocol {
	return &Protocol{Name: name, Protocols: inherits}
}

func (p *Protocol) add(name, types string, required, classSide bool) Selector {
	sel := Sel(name)
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, d := range p.methods {
		if d.Selector == sel && d.ClassSide == classSide {
			p.methods[i] = MethodDescription{sel, types, required, classSide}
			return sel
		}
	}
	p.methods = append(p.methods, MethodDescription{sel, types, required, classSide})
	return sel
}

// AddRequired declares a required instance method.
func (p *Protocol) AddRequired(name, types string) Selector {
	return p.add(name, types, true, false)
}

// AddOptional declares an optional instance method.
func (p *Protocol) AddOptional(name, types string) Selector {
	return p.add(name, types, false, false)
}

// AddRequiredClassMethod declares a required class-side method.
func (p *Protocol) AddRequiredClassMethod(name, types string) Selector {
	return p.add(name, types, true, true)
}

// AddOptionalClassMethod declares an optional class-side method.
func (p *Protocol) AddOptionalClassMethod(name, types string) Selector {
	return p.add(name, types, false, true)
}

// Methods returns the protocol's own declarations for one side.
func (p *Protocol) Methods(classSide bool) []MethodDescription {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var result []MethodDescription
	for _, d := range p.methods {
		if d.ClassSide == classSide {
			result = append(result, d)
		}
	}
	return result
}

// MethodDescription finds the declaration of sel in p or the protocols it
// inherits. Required declarations win over optional ones.
func (p *Protocol) MethodDescription(sel Selector, classSide bool) (MethodDescription, *Protocol, bool) {
	var optional MethodDescription
	var optionalFrom *Protocol
	for _, proto := range p.closure() {
		for _, d := range proto.Methods(classSide) {
			if d.Selector != sel {
				continue
			}
			if d.Required {
				return d, proto, true
			}
			if optionalFrom == nil {
				optional, optionalFrom = d, proto
			}
		}
	}
	return optional, optionalFrom, optionalFrom != nil
}

// ConformsTo reports whether p is other or inherits it.
func (p *Protocol) ConformsTo(other *Protocol) bool {
	for _, proto := range p.closure() {
		if proto == other {
			return true
		}
	}
	return false
}

// closure returns p and every protocol it inherits, depth first, without
// duplicates.
func (p *Protocol) closure() []*Protocol {
	var out []*Protocol
	seen := make(map[*Protocol]bool)
	var walk func(*Protocol)
	walk = func(q *Protocol) {
		if q == nil || seen[q] {
			return
		}
		seen[q] = true
		out = append(out, q)
		for _, parent := range q.Protocols {
			walk(parent)
		}
	}
	walk(p)
	return out
}

func (p *Protocol) String() string {
	if p.Namespace == "" {
		return p.Name
	}
	return p.Namespace + "::" + p.Name
}

// ---------------------------------------------------------------------------
// ProtocolTable: Global protocol registry
// ---------------------------------------------------------------------------

// ProtocolTable manages registered protocols by name.
// It's thread-safe for concurrent access.
type ProtocolTable struct {
	mu        sync.RWMutex
	protocols map[string]*Protocol
}

// Protocols is the process-wide protocol table.
var Protocols = NewProtocolTable()

// NewProtocolTable creates a new empty protocol table.
func NewProtocolTable() *ProtocolTable {
	return &ProtocolTable{
		protocols: make(map[string]*Protocol),
	}
}

// Register adds a protocol to the table.
// Returns the previous protocol with this name, or nil.
func (pt *ProtocolTable) Register(p *Protocol) *Protocol {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	old := pt.protocols[p.String()]
	pt.protocols[p.String()] = p
	return old
}

// Lookup finds a protocol by name.
func (pt *ProtocolTable) Lookup(name string) *Protocol {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return pt.protocols[name]
}

// Len returns the number of registered protocols.
func (pt *ProtocolTable) Len() int {
	pt.mu.RLock()
	defer pt.mu.RUnlock()
	return len(pt.protocols)
}

// ---------------------------------------------------------------------------
// Class conformance
// ---------------------------------------------------------------------------

// AddProtocol declares that c conforms to p. Adding the same protocol
// twice is a no-op.
func (c *Class) AddProtocol(p *Protocol) {
	c.protoMu.Lock()
	defer c.protoMu.Unlock()
	for _, existing := range c.protocols {
		if existing == p {
			return
		}
	}
	c.protocols = append(c.protocols, p)
}

// Protocols returns the protocols c itself adopts (not inherited ones).
func (c *Class) Protocols() []*Protocol {
	c.protoMu.RLock()
	defer c.protoMu.RUnlock()
	result := make([]*Protocol, len(c.protocols))
	copy(result, c.protocols)
	return result
}

// ConformsTo reports whether c, a superclass, or any adopted protocol's
// ancestry includes p.
func (c *Class) ConformsTo(p *Protocol) bool {
	for _, proto := range c.AllProtocols() {
		if proto == p {
			return true
		}
	}
	return false
}

// CheckConformance verifies that every required method of every adopted
// protocol has an implementation. The error lists all missing selectors.
func (c *Class) CheckConformance() error {
	var missing []string
	for _, proto := range c.AllProtocols() {
		for _, side := range []bool{false, true} {
			table := c.VTable
			if side {
				table = c.ClassVTable
			}
			for _, d := range proto.Methods(side) {
				if d.Required && table.Lookup(d.Selector) == nil {
					missing = append(missing, proto.Name+" "+d.Selector.Name())
				}
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("class %s does not provide required methods: %s", c.Name, strings.Join(missing, ", "))
	}
	return nil
}
