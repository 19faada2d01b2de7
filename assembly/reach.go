package assembly

import (
	"fmt"

	"xtc/expand"
	"xtc/fragment"
	"xtc/method"
	"xtc/objmodel"
	"xtc/symbols"
	"xtc/target"
)

// reachable is per assembly store of everything which goes into artifact.
type reachable struct {
	// methods in output order
	order []*method.Declaration
	// resolved, not expanded bodies by qualified name
	bodies map[string]method.Body
	// classes which get symbols, in order of discovery
	classes []*objmodel.Class
	known   map[string]*objmodel.Class
	queued  map[string]struct{}
	queue   []*method.Declaration
	proxies map[string]*objmodel.ProxyDescriptor
}

func (r *reachable) addClass(c *objmodel.Class) {
	if _, ok := r.known[c.Name]; ok {
		return
	}
	r.known[c.Name] = c
	r.classes = append(r.classes, c)
}

func (r *reachable) enqueue(c *objmodel.Class, d *method.Declaration) {
	r.addClass(c)
	qn := d.QualifiedName()
	if _, ok := r.queued[qn]; ok {
		return
	}
	r.queued[qn] = struct{}{}
	r.queue = append(r.queue, d)
}

// gather collects methods reachable from entry set, synthesizes proxies and
// resolves every body. Referenced classes always get symbols, referenced
// methods become reachable only when following references.
func (p *Pipeline) gather(b *target.Backend, frags []fragment.Fragment) (*reachable, error) {
	r := &reachable{
		bodies:  make(map[string]method.Body),
		known:   make(map[string]*objmodel.Class),
		queued:  make(map[string]struct{}),
		proxies: make(map[string]*objmodel.ProxyDescriptor),
	}
	chain := p.in.Chain

	for _, e := range p.in.Entry {
		class, member := symbols.SplitName(e)
		if len(member) == 0 {
			c, err := chain.FindClass(class)
			if err != nil {
				return nil, fmt.Errorf("entry %s: %w", e, err)
			}
			r.addClass(c)
			for _, d := range c.Methods {
				r.enqueue(c, d)
			}
			continue
		}
		c, d, err := chain.FindMethod(class, member)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e, err)
		}
		r.enqueue(c, d)
	}

	for _, req := range p.in.Proxies {
		if err := p.addProxy(r, req); err != nil {
			return nil, err
		}
	}

	for _, f := range frags {
		if !f.Process {
			continue
		}
		for _, text := range []string{f.Text, f.EndText} {
			if err := p.follow(r, text); err != nil {
				return nil, fmt.Errorf("fragment from %q: %w", f.Origin, err)
			}
		}
	}

	// queue grows while following references
	for i := 0; i < len(r.queue); i++ {
		d := r.queue[i]
		body, err := p.resolver.Resolve(d, b.Name)
		if err != nil {
			return nil, err
		}
		r.bodies[d.QualifiedName()] = body
		r.order = append(r.order, d)
		if err := p.follow(r, body.Text); err != nil {
			return nil, fmt.Errorf("method %s: %w", d.QualifiedName(), err)
		}
	}
	return r, nil
}

func (p *Pipeline) addProxy(r *reachable, req objmodel.ProxyRequest) error {
	pd, err := objmodel.NewProxy(req.Interfaces, req.Handler)
	if err != nil {
		return err
	}
	pc, err := pd.Class(p.in.Chain)
	if err != nil {
		return err
	}
	if existing, ok := r.proxies[pc.Name]; ok {
		if existing.Handler != pd.Handler {
			return fmt.Errorf("proxy %s: conflicting handlers %q and %q", pc.Name, existing.Handler, pd.Handler)
		}
		return nil
	}
	r.proxies[pc.Name] = pd

	for _, name := range []string{pd.Interface, pd.Handler} {
		c, err := p.in.Chain.FindClass(name)
		if err != nil {
			return err
		}
		r.addClass(c)
	}
	r.addClass(pc)
	for _, d := range pc.Methods {
		r.enqueue(pc, d)
	}
	return nil
}

// follow registers classes referenced from text and, when requested, makes
// referenced methods reachable. Unknown targets are left for expansion to
// report.
func (p *Pipeline) follow(r *reachable, text string) error {
	refs, err := expand.References(text)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		c := r.known[ref.Class()]
		if c == nil {
			found, err := p.in.Chain.FindClass(ref.Class())
			if err != nil {
				continue
			}
			c = found
		}
		if !ref.Kind.IsMember() {
			r.addClass(c)
			continue
		}
		if !p.followRefs {
			continue
		}
		if d, ok := c.Method(ref.Member()); ok {
			r.enqueue(c, d)
		}
	}
	return nil
}
