// Package method selects implementation text of declared methods for a
// backend.
package method

import (
	"fmt"
	"strings"

	"xtc/symbols"
)

// ConstructorName is a member name of instance initializers.
const ConstructorName = "<init>"

// Declaration is a method of a program or base runtime class. Declarations
// are frozen once program is loaded.
type Declaration struct {
	Class string
	// member name, may carry descriptor
	Name   string
	Static bool
	// backend name or alias -> body
	Overrides map[string]string
	Generic   string
	// no generic body exists, only overrides could be used
	Native bool
}

// QualifiedName returns "Class:Name".
func (d *Declaration) QualifiedName() string {
	return symbols.JoinName(d.Class, d.Name)
}

func (d *Declaration) IsConstructor() bool {
	return d.Name == ConstructorName || strings.HasPrefix(d.Name, ConstructorName+"(")
}

// Body is resolved, not yet expanded method text.
type Body struct {
	Method  string
	Backend string
	Text    string
	// which override key produced text, empty for generic body
	Key string
}

func (b Body) Generic() bool {
	return len(b.Key) == 0
}

// UnresolvedMethodBodyError is returned when method has neither override for
// requested backend nor generic body.
type UnresolvedMethodBodyError struct {
	Method  string
	Backend string
}

func (e *UnresolvedMethodBodyError) Error() string {
	return fmt.Sprintf("method %s has no body for backend %q and no generic fallback", e.Method, e.Backend)
}
