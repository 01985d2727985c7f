package vm

import "sort"

// MethodInfo describes one dispatch table entry.
type MethodInfo struct {
	Selector Selector
	Method   Method
	Types    string
}

// Methods returns the entries defined directly on c (not inherited),
// ordered by selector name. classSide selects the class-side table.
func (c *Class) Methods(classSide bool) []MethodInfo {
	table := c.VTable
	if classSide {
		table = c.ClassVTable
	}
	local := table.LocalMethods()
	result := make([]MethodInfo, 0, len(local))
	for sel, m := range local {
		result = append(result, MethodInfo{Selector: sel, Method: m, Types: MethodTypes(m)})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Selector.Name() < result[j].Selector.Name()
	})
	return result
}

// AllProtocols returns every protocol c conforms to: those adopted by c and
// its superclasses, plus everything they inherit. Each protocol appears
// once, in discovery order starting from c.
func (c *Class) AllProtocols() []*Protocol {
	var result []*Protocol
	seen := make(map[*Protocol]bool)
	for current := c; current != nil; current = current.Superclass {
		for _, p := range current.Protocols() {
			for _, q := range p.closure() {
				if !seen[q] {
					seen[q] = true
					result = append(result, q)
				}
			}
		}
	}
	return result
}

// ProtocolMethod finds the declaration of sel in c's conformance graph.
// A required declaration anywhere in the graph wins over an optional one.
func (c *Class) ProtocolMethod(sel Selector, classSide bool) (MethodDescription, *Protocol, bool) {
	var optional MethodDescription
	var optionalFrom *Protocol
	for _, p := range c.AllProtocols() {
		for _, d := range p.Methods(classSide) {
			if d.Selector != sel {
				continue
			}
			if d.Required {
				return d, p, true
			}
			if optionalFrom == nil {
				optional, optionalFrom = d, p
			}
		}
	}
	return optional, optionalFrom, optionalFrom != nil
}

// MethodTypes returns the type encoding for sel: the implementation's own
// encoding when c's chain has one, otherwise the declared protocol
// encoding.
func (c *Class) MethodTypes(sel Selector, classSide bool) (string, bool) {
	table := c.VTable
	if classSide {
		table = c.ClassVTable
	}
	if m := table.Lookup(sel); m != nil {
		if types := MethodTypes(m); types != "" {
			return types, true
		}
	}
	if d, _, ok := c.ProtocolMethod(sel, classSide); ok && d.Types != "" {
		return d.Types, true
	}
	return "", false
}
