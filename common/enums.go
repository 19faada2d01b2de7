// Package common keeps enums shared between configuration, program loading
// and assembly. Code in enums_enum.go is generated by go-enum, do not edit it
// manually - run "go tool task generate" instead.
package common

//go:generate go tool go-enum --marshal --names --nocase

// How fragment text is merged into backend output.
// ENUM(prepend, append, prependAppend)
type MergeMode int

// Start reports whether fragment contributes to the beginning of the output.
func (m MergeMode) Start() bool {
	return m == MergeModePrepend || m == MergeModePrependAppend
}

// End reports whether fragment contributes to the end of the output.
func (m MergeMode) End() bool {
	return m == MergeModeAppend || m == MergeModePrependAppend
}

// Kind of placeholder reference found in fragment and method text.
// ENUM(class, method, smethod, constructor, field, sfield)
type RefKind int

// IsMember is true for references resolved against method declarations.
func (k RefKind) IsMember() bool {
	return k == RefKindMethod || k == RefKindSmethod || k == RefKindConstructor
}

// IsField is true for references resolved against class fields.
func (k RefKind) IsField() bool {
	return k == RefKindField || k == RefKindSfield
}

// How member references are linked in the final unit: either replaced with
// stand-in tokens (deferred) or with the referenced method text (inline).
// ENUM(deferred, inline)
type LinkMode int
