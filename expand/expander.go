package expand

import (
	"strings"

	"xtc/common"
	"xtc/symbols"
)

// Lookup is a read only view of symbol table.
type Lookup interface {
	Lookup(ref symbols.Ref) (string, bool)
}

// BodySource returns resolved, not yet expanded body of a method by its
// qualified name.
type BodySource func(name string) (string, bool)

// Expander replaces placeholders with symbol table tokens. In inline link
// mode method references are replaced with text of referenced method instead.
// Inserted text is never scanned again, so expansion always terminates.
type Expander struct {
	backend string
	table   Lookup
	mode    common.LinkMode
	bodies  BodySource
}

type Option func(*Expander)

// WithInline switches expander to inline link mode. Inlined bodies are
// expanded with tokens only.
func WithInline(bodies BodySource) Option {
	return func(e *Expander) {
		if bodies != nil {
			e.mode, e.bodies = common.LinkModeInline, bodies
		}
	}
}

func New(backend string, table Lookup, options ...Option) *Expander {
	e := &Expander{backend: backend, table: table, mode: common.LinkModeDeferred}
	for _, o := range options {
		o(e)
	}
	return e
}

func (e *Expander) Mode() common.LinkMode {
	return e.mode
}

// Expand rewrites all placeholders in text. The first failing placeholder
// aborts expansion.
func (e *Expander) Expand(text string) (string, error) {
	return e.expand(text, e.mode)
}

func (e *Expander) expand(text string, mode common.LinkMode) (string, error) {
	phs, err := Parse(text)
	if err != nil {
		return "", err
	}
	if len(phs) == 0 {
		return text, nil
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, ph := range phs {
		repl, err := e.replacement(ph, mode)
		if err != nil {
			return "", err
		}
		b.WriteString(text[last:ph.Start])
		b.WriteString(repl)
		last = ph.End
	}
	b.WriteString(text[last:])
	return b.String(), nil
}

func (e *Expander) replacement(ph Placeholder, mode common.LinkMode) (string, error) {
	token, ok := e.table.Lookup(ph.Ref)
	if !ok {
		return "", &UnresolvedSymbolError{Kind: ph.Ref.Kind, Target: ph.Ref.Name, Backend: e.backend, Raw: ph.Raw}
	}
	if mode != common.LinkModeInline || !ph.Ref.Kind.IsMember() {
		return token, nil
	}
	body, ok := e.bodies(ph.Ref.Name)
	if !ok {
		return token, nil
	}
	// one level only, referenced body keeps tokens
	return e.expand(body, common.LinkModeDeferred)
}
