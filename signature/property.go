package signature

import (
	"fmt"
	"strings"
)

const (
	propertyReadOnly  = 'R'
	propertyCopy      = 'C'
	propertyRetain    = '&'
	propertyDynamic   = 'D'
	propertyGetter    = 'G'
	propertySetter    = 'S'
	propertyIVar      = 'V'
	propertyType      = 'T'
	propertyWeak      = 'W'
	propertyNonAtomic = 'N'
)

// Property is a decoded property attribute string such as
// `T@"NSString",C,N,V_title`.
type Property struct {
	Name      string
	Type      Type
	ReadOnly  bool
	Copy      bool
	Retain    bool
	Weak      bool
	Dynamic   bool
	NonAtomic bool
	Getter    string
	Setter    string
	IVar      string
}

// ParseProperty decodes the attribute string of the property called name.
func ParseProperty(name, attrs string) (*Property, error) {
	p := &Property{Name: name}
	for _, attr := range strings.Split(attrs, ",") {
		if attr == "" {
			continue
		}
		val := attr[1:]
		switch attr[0] {
		case propertyType:
			p.Type = ParseType(val)
		case propertyReadOnly:
			p.ReadOnly = true
		case propertyCopy:
			p.Copy = true
		case propertyRetain:
			p.Retain = true
		case propertyWeak:
			p.Weak = true
		case propertyDynamic:
			p.Dynamic = true
		case propertyNonAtomic:
			p.NonAtomic = true
		case propertyGetter:
			p.Getter = val
		case propertySetter:
			p.Setter = val
		case propertyIVar:
			p.IVar = val
		}
	}
	if p.Type == nil {
		return nil, fmt.Errorf("signature: property %q has no type attribute", name)
	}
	return p, nil
}

// GetterName is the accessor selector name.
func (p *Property) GetterName() string {
	if p.Getter != "" {
		return p.Getter
	}
	return p.Name
}

// SetterName is the mutator selector name, or "" for read-only properties.
func (p *Property) SetterName() string {
	if p.ReadOnly {
		return ""
	}
	if p.Setter != "" {
		return p.Setter
	}
	return SetterFor(p.Name)
}

// GetterSignature is the method signature of the accessor.
func (p *Property) GetterSignature() *Signature {
	return &Signature{
		Return: p.Type,
		Args:   []Type{Primitive{Code: CodeObject}, Primitive{Code: CodeSelector}},
	}
}

// SetterSignature is the method signature of the mutator.
func (p *Property) SetterSignature() *Signature {
	return &Signature{
		Return: Primitive{Code: CodeVoid},
		Args:   []Type{Primitive{Code: CodeObject}, Primitive{Code: CodeSelector}, p.Type},
	}
}

// SetterFor returns the conventional setter selector for a key:
// "value" -> "setValue:".
func SetterFor(key string) string {
	if key == "" {
		return ""
	}
	return "set" + strings.ToUpper(key[:1]) + key[1:] + ":"
}
