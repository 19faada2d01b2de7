// Package expand rewrites placeholder references found in fragment and method
// text.
//
// Placeholder has form "{% KIND target %}" where KIND is one of CLASS,
// METHOD, SMETHOD, CONSTRUCTOR, FIELD, SFIELD (case is ignored) and target is
// qualified class name for CLASS and "Class:member" for everything else.
package expand

import (
	"fmt"
	"strings"

	"xtc/common"
	"xtc/symbols"
)

const (
	openMarker  = "{%"
	closeMarker = "%}"
)

// Placeholder is a single reference found in text.
type Placeholder struct {
	Ref symbols.Ref
	// placeholder text as it appears in the source, including markers
	Raw string
	// byte offsets of Raw in the source
	Start, End int
}

// MalformedPlaceholderError is returned for markers which could not be
// parsed.
type MalformedPlaceholderError struct {
	Raw    string
	Offset int
	Reason string
}

func (e *MalformedPlaceholderError) Error() string {
	return fmt.Sprintf("malformed placeholder %q at offset %d: %s", e.Raw, e.Offset, e.Reason)
}

// UnresolvedSymbolError is returned when placeholder target is not present in
// symbol table.
type UnresolvedSymbolError struct {
	Kind    common.RefKind
	Target  string
	Backend string
	Raw     string
}

func (e *UnresolvedSymbolError) Error() string {
	return fmt.Sprintf("backend %q: unresolved %s reference to %s in %q", e.Backend, e.Kind, e.Target, e.Raw)
}

// Parse finds all placeholders in text in order of appearance.
func Parse(text string) ([]Placeholder, error) {
	var res []Placeholder
	for pos := 0; ; {
		i := strings.Index(text[pos:], openMarker)
		if i < 0 {
			return res, nil
		}
		start := pos + i
		j := strings.Index(text[start+len(openMarker):], closeMarker)
		if j < 0 {
			return nil, &MalformedPlaceholderError{Raw: abbreviate(text[start:]), Offset: start, Reason: "unterminated"}
		}
		end := start + len(openMarker) + j + len(closeMarker)
		ph, err := parseOne(text[start:end], start)
		if err != nil {
			return nil, err
		}
		ph.Start, ph.End = start, end
		res = append(res, ph)
		pos = end
	}
}

func parseOne(raw string, offset int) (Placeholder, error) {
	fields := strings.Fields(raw[len(openMarker) : len(raw)-len(closeMarker)])
	switch {
	case len(fields) == 0:
		return Placeholder{}, &MalformedPlaceholderError{Raw: raw, Offset: offset, Reason: "empty"}
	case len(fields) == 1:
		return Placeholder{}, &MalformedPlaceholderError{Raw: raw, Offset: offset, Reason: "missing target"}
	case len(fields) > 2:
		return Placeholder{}, &MalformedPlaceholderError{Raw: raw, Offset: offset, Reason: "unexpected text after target"}
	}

	kind, err := common.ParseRefKind(fields[0])
	if err != nil {
		return Placeholder{}, &MalformedPlaceholderError{Raw: raw, Offset: offset, Reason: fmt.Sprintf("unknown kind %q", fields[0])}
	}
	class, member := symbols.SplitName(fields[1])
	if len(class) == 0 {
		return Placeholder{}, &MalformedPlaceholderError{Raw: raw, Offset: offset, Reason: "missing class name"}
	}
	if kind == common.RefKindClass && len(member) > 0 {
		return Placeholder{}, &MalformedPlaceholderError{Raw: raw, Offset: offset, Reason: "class reference with member"}
	}
	if kind != common.RefKindClass && len(member) == 0 {
		return Placeholder{}, &MalformedPlaceholderError{Raw: raw, Offset: offset, Reason: "member reference without member"}
	}
	return Placeholder{Ref: symbols.Ref{Kind: kind, Name: fields[1]}, Raw: raw}, nil
}

// References returns references found in text without resolving them.
func References(text string) ([]symbols.Ref, error) {
	phs, err := Parse(text)
	if err != nil {
		return nil, err
	}
	refs := make([]symbols.Ref, 0, len(phs))
	for _, ph := range phs {
		refs = append(refs, ph.Ref)
	}
	return refs, nil
}

func abbreviate(s string) string {
	const limit = 40
	if r := []rune(s); len(r) > limit {
		return string(r[:limit]) + "..."
	}
	return s
}
