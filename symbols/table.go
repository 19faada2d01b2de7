// Package symbols maps qualified class and member references to backend
// specific stand-in tokens.
package symbols

import (
	"fmt"
	"strings"

	"xtc/common"
)

// Ref is a reference to class ("pkg.Class") or its member
// ("pkg.Class:member").
type Ref struct {
	Kind common.RefKind
	Name string
}

// SplitName splits qualified name into class and member parts, member is
// empty for class names.
func SplitName(name string) (class, member string) {
	class, member, _ = strings.Cut(name, ":")
	return class, member
}

// JoinName builds qualified member name.
func JoinName(class, member string) string {
	if len(member) == 0 {
		return class
	}
	return class + ":" + member
}

func (r Ref) Class() string {
	c, _ := SplitName(r.Name)
	return c
}

func (r Ref) Member() string {
	_, m := SplitName(r.Name)
	return m
}

func (r Ref) String() string {
	return strings.ToUpper(r.Kind.String()) + " " + r.Name
}

// aliases reports whether two references may share stand-in token: the same
// member referenced as method, static method or constructor, or the same
// field referenced as instance or static one.
func (r Ref) aliases(other Ref) bool {
	if r.Name != other.Name {
		return false
	}
	return r.Kind == other.Kind ||
		(r.Kind.IsMember() && other.Kind.IsMember()) ||
		(r.Kind.IsField() && other.Kind.IsField())
}

// TokenCollisionError is returned when two different symbols render the same
// stand-in token.
type TokenCollisionError struct {
	Backend string
	Token   string
	Owner   Ref
	Ref     Ref
}

func (e *TokenCollisionError) Error() string {
	return fmt.Sprintf("backend %q: token %q of %s is already used by %s", e.Backend, e.Token, e.Ref, e.Owner)
}

// Table is per backend, per assembly run symbol table. It grows while
// populated and is only read during expansion. Table is not safe for
// concurrent use, every assembly owns its own instance.
type Table struct {
	backend string
	tokens  map[Ref]string
	// first symbol which got the token
	owners map[string]Ref
	order  []Ref
}

func NewTable(backend string) *Table {
	return &Table{backend: backend, tokens: make(map[Ref]string), owners: make(map[string]Ref)}
}

func (t *Table) Backend() string {
	return t.backend
}

// Insert adds token for reference. Tokens are chosen once, attempt to change
// already inserted token is an error, repeated insert of the same token is
// ignored. Different symbols may not share token, except kinds of the same
// member (see TokenCollisionError).
func (t *Table) Insert(ref Ref, token string) error {
	if old, ok := t.tokens[ref]; ok {
		if old != token {
			return fmt.Errorf("backend %q: symbol %s already has token %q, refusing %q", t.backend, ref, old, token)
		}
		return nil
	}
	if owner, ok := t.owners[token]; ok {
		if !owner.aliases(ref) {
			return &TokenCollisionError{Backend: t.backend, Token: token, Owner: owner, Ref: ref}
		}
	} else {
		t.owners[token] = ref
	}
	t.tokens[ref] = token
	t.order = append(t.order, ref)
	return nil
}

func (t *Table) Lookup(ref Ref) (string, bool) {
	token, ok := t.tokens[ref]
	return token, ok
}

func (t *Table) Len() int {
	return len(t.order)
}

// Refs returns all references in insertion order.
func (t *Table) Refs() []Ref {
	return append([]Ref(nil), t.order...)
}
