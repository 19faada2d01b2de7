package symbols

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"

	sprig "github.com/go-task/slim-sprig/v3"
)

// DefaultTemplate is used for backends without their own symbol template.
const DefaultTemplate = `{{ .ClassMangled }}{{ if .Member }}_{{ if .Field }}f{{ else }}m{{ end }}_{{ .MemberMangled }}{{ end }}`

// Values is a struct that holds variables we make available for symbol
// template expansion.
type Values struct {
	Kind          string
	Name          string
	Class         string
	Member        string
	Field         bool
	Backend       string
	Mangled       string
	ClassMangled  string
	MemberMangled string
}

// Namer renders stand-in tokens for backend.
type Namer struct {
	backend string
	tmpl    *template.Template
}

func NewNamer(backend, symbolTemplate string) (*Namer, error) {
	if len(strings.TrimSpace(symbolTemplate)) == 0 {
		symbolTemplate = DefaultTemplate
	}
	tmpl, err := template.New("symbol_template").Funcs(sprig.FuncMap()).Parse(symbolTemplate)
	if err != nil {
		return nil, fmt.Errorf("backend %q: unable to parse symbol template: %w", backend, err)
	}
	return &Namer{backend: backend, tmpl: tmpl}, nil
}

// Token renders stand-in token for reference.
func (n *Namer) Token(ref Ref) (string, error) {
	class, member := SplitName(ref.Name)
	values := Values{
		Kind:          ref.Kind.String(),
		Name:          ref.Name,
		Class:         class,
		Member:        member,
		Field:         ref.Kind.IsField(),
		Backend:       n.backend,
		Mangled:       Mangle(ref.Name),
		ClassMangled:  Mangle(class),
		MemberMangled: Mangle(member),
	}

	buf := new(bytes.Buffer)
	if err := n.tmpl.Execute(buf, values); err != nil {
		return "", fmt.Errorf("backend %q: unable to render token for %s: %w", n.backend, ref, err)
	}
	token := strings.TrimSpace(buf.String())
	if len(token) == 0 {
		return "", fmt.Errorf("backend %q: empty token rendered for %s", n.backend, ref)
	}
	return token, nil
}

// Mangle turns qualified name into identifier which is valid for all known
// backends. Letters and digits are kept, package separator becomes single
// underscore and everything else is escaped:
//
//	_0        underscore
//	_1HH      rune below 0x100
//	_2HHHH    rune below 0x10000
//	_3HHHHHH  any other rune
//
// Separator followed by digit 0-3 is escaped too, so mangling is one to one.
func Mangle(name string) string {
	rs := []rune(name)
	var b strings.Builder
	b.Grow(len(name))
	for i, r := range rs {
		switch {
		case r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '_':
			b.WriteString("_0")
		case r == '.' && (i+1 == len(rs) || rs[i+1] < '0' || rs[i+1] > '3'):
			b.WriteByte('_')
		case r < 0x100:
			fmt.Fprintf(&b, "_1%02x", r)
		case r < 0x10000:
			fmt.Fprintf(&b, "_2%04x", r)
		default:
			fmt.Fprintf(&b, "_3%06x", r)
		}
	}
	return b.String()
}
