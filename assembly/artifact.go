package assembly

import (
	"bytes"
	"slices"

	"github.com/google/uuid"

	"xtc/common"
	"xtc/objmodel"
	"xtc/symbols"
	"xtc/target"
	"xtc/utils/debug"
)

// namespace for artifact identifiers, artifacts with identical content always
// get identical IDs.
var artifactNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("xtc:artifact"))

// Unit is a single named output text.
type Unit struct {
	Name string
	Text string
}

// Artifact is assembled output for a single backend.
type Artifact struct {
	Backend  *target.Backend
	LinkMode common.LinkMode
	ID       uuid.UUID
	Units    []Unit
	// qualified names of assembled methods in output order
	Methods []string
	Symbols *symbols.Table
	proxies map[string]*objmodel.ProxyDescriptor
}

func newArtifact(b *target.Backend, units []Unit, methods []string, table *symbols.Table, proxies map[string]*objmodel.ProxyDescriptor) *Artifact {
	h := new(bytes.Buffer)
	h.WriteString(b.Name)
	for _, u := range units {
		h.WriteByte(0)
		h.WriteString(u.Name)
		h.WriteByte(0)
		h.WriteString(u.Text)
	}
	return &Artifact{
		Backend: b,
		ID:      uuid.NewSHA1(artifactNamespace, h.Bytes()),
		Units:   units,
		Methods: methods,
		Symbols: table,
		proxies: proxies,
	}
}

// IsProxyClass reports whether name is a proxy class synthesized for this
// artifact.
func (a *Artifact) IsProxyClass(name string) bool {
	_, ok := a.proxies[name]
	return ok
}

// ProxyClasses returns names of synthesized proxy classes, sorted.
func (a *Artifact) ProxyClasses() []string {
	names := make([]string, 0, len(a.proxies))
	for n := range a.proxies {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Unit returns unit by name.
func (a *Artifact) Unit(name string) (Unit, bool) {
	for _, u := range a.Units {
		if u.Name == name {
			return u, true
		}
	}
	return Unit{}, false
}

// Bytes returns all units concatenated in order, for single file backends
// this is the complete output.
func (a *Artifact) Bytes() []byte {
	buf := new(bytes.Buffer)
	for _, u := range a.Units {
		buf.WriteString(u.Text)
	}
	return buf.Bytes()
}

// String returns readable dump of the artifact. It exists solely for debug
// reports.
func (a *Artifact) String() string {
	if a == nil {
		return "<nil Artifact>"
	}
	tw := debug.NewTreeWriter()
	tw.Line(0, "Artifact backend=%q id=%s single_file=%t link=%s", a.Backend.Name, a.ID, a.Backend.SingleFile, a.LinkMode)
	tw.Line(1, "Methods (%d)", len(a.Methods))
	for _, m := range a.Methods {
		tw.Line(2, "%s", m)
	}
	if len(a.proxies) > 0 {
		tw.Line(1, "Proxies (%d)", len(a.proxies))
		for _, n := range a.ProxyClasses() {
			p := a.proxies[n]
			tw.Line(2, "%s interface=%q handler=%q", n, p.Interface, p.Handler)
		}
	}
	if a.Symbols != nil {
		m := make(map[string]string, a.Symbols.Len())
		for _, ref := range a.Symbols.Refs() {
			token, _ := a.Symbols.Lookup(ref)
			m[ref.String()] = token
		}
		tw.Pairs(1, "Symbols", m)
	}
	tw.Line(1, "Units (%d)", len(a.Units))
	for _, u := range a.Units {
		tw.TextBlock(2, u.Name, u.Text)
	}
	return tw.String()
}
