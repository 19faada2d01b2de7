// Package objmodel describes classes of a program, class loader chain and
// dynamic proxies.
package objmodel

import (
	"fmt"
	"strings"

	"xtc/method"
)

type Field struct {
	Name   string
	Static bool
}

// Class is a loaded class or interface. Classes are frozen after loading.
type Class struct {
	Name      string
	Interface bool
	Fields    []Field
	// in declaration order
	Methods []*method.Declaration
	// set for synthesized proxy classes only
	Proxy *ProxyDescriptor
}

// Method returns declaration by member name.
func (c *Class) Method(name string) (*method.Declaration, bool) {
	for _, m := range c.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

func (c *Class) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ClassNotFoundError is returned when no loader in chain knows the class.
type ClassNotFoundError struct {
	Name    string
	Loaders []string
}

func (e *ClassNotFoundError) Error() string {
	return fmt.Sprintf("class %q was not found (searched: %s)", e.Name, strings.Join(e.Loaders, ", "))
}

// MemberNotFoundError is returned when class exists but does not declare
// requested member.
type MemberNotFoundError struct {
	Class  string
	Member string
}

func (e *MemberNotFoundError) Error() string {
	return fmt.Sprintf("class %q does not declare member %q", e.Class, e.Member)
}
