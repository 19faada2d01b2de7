// Package assembly turns frozen program declarations and fragments into
// per backend artifacts.
package assembly

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"xtc/common"
	"xtc/expand"
	"xtc/fragment"
	"xtc/method"
	"xtc/objmodel"
	"xtc/symbols"
	"xtc/target"
)

// Input is everything program loading produces. It must not be changed after
// pipeline is created.
type Input struct {
	Chain   *objmodel.Chain
	Catalog *fragment.Catalog
	// "Class" selects all methods of the class in declaration order,
	// "Class:member" selects single method
	Entry   []string
	Proxies []objmodel.ProxyRequest
}

// Pipeline assembles artifacts. Different backends could be assembled
// simultaneously, every assembly has its own symbol table.
type Pipeline struct {
	registry   *target.Registry
	resolver   *method.Resolver
	in         Input
	log        *zap.Logger
	followRefs bool
	parallel   int
	linkMode   *common.LinkMode
}

type Option func(*Pipeline)

func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// WithFollowReferences makes methods referenced from assembled bodies and
// fragments reachable.
func WithFollowReferences(follow bool) Option {
	return func(p *Pipeline) {
		p.followRefs = follow
	}
}

// WithParallel limits number of simultaneous assemblies in AssembleAll, 0
// means number of CPUs.
func WithParallel(n int) Option {
	return func(p *Pipeline) {
		p.parallel = n
	}
}

// WithLinkMode overwrites link mode of all backends.
func WithLinkMode(mode common.LinkMode) Option {
	return func(p *Pipeline) {
		p.linkMode = &mode
	}
}

func New(registry *target.Registry, resolver *method.Resolver, in Input, options ...Option) (*Pipeline, error) {
	if in.Chain == nil || in.Catalog == nil {
		return nil, errors.New("assembly input is incomplete")
	}
	if !in.Catalog.Frozen() {
		return nil, errors.New("fragment catalog must be frozen before assembly")
	}
	p := &Pipeline{
		registry:   registry,
		resolver:   resolver,
		in:         in,
		log:        zap.NewNop(),
		followRefs: true,
	}
	for _, o := range options {
		o(p)
	}
	p.log = p.log.Named("assembly")
	return p, nil
}

// Assemble produces artifact for backend (name or alias). Any failure aborts
// assembly with the first error, partial artifacts are never returned.
func (p *Pipeline) Assemble(ctx context.Context, id string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := p.registry.Resolve(id)
	if err != nil {
		return nil, &Error{Backend: id, Err: err}
	}

	start := time.Now()
	a, err := p.assemble(b)
	if err != nil {
		p.log.Debug("Assembly failed", zap.String("backend", b.Name), zap.Error(err))
		return nil, &Error{Backend: b.Name, Err: err}
	}
	p.log.Debug("Assembly completed",
		zap.String("backend", b.Name),
		zap.Int("methods", len(a.Methods)),
		zap.Int("symbols", a.Symbols.Len()),
		zap.Int("units", len(a.Units)),
		zap.Stringer("id", a.ID),
		zap.Duration("elapsed", time.Since(start)))
	return a, nil
}

// AssembleAll assembles several backends in parallel. Result has an artifact
// (or nil on failure) for every requested backend in request order, errors
// are combined in request order. Failure of one backend never affects others.
func (p *Pipeline) AssembleAll(ctx context.Context, ids []string) ([]*Artifact, error) {
	limit := p.parallel
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	artifacts := make([]*Artifact, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range ids {
		g.Go(func() error {
			artifacts[i], errs[i] = p.Assemble(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return artifacts, multierr.Combine(errs...)
}

func (p *Pipeline) effectiveLinkMode(b *target.Backend) common.LinkMode {
	if p.linkMode != nil {
		return *p.linkMode
	}
	return b.LinkMode
}

func (p *Pipeline) assemble(b *target.Backend) (*Artifact, error) {
	frags, err := p.in.Catalog.For(b.Name)
	if err != nil {
		return nil, err
	}

	// reachability, body resolution and proxies
	r, err := p.gather(b, frags)
	if err != nil {
		return nil, err
	}

	// every symbol gets its token before anything is expanded
	table, err := p.populate(b, r)
	if err != nil {
		return nil, err
	}

	mode := p.effectiveLinkMode(b)
	var options []expand.Option
	if mode == common.LinkModeInline {
		options = append(options, expand.WithInline(func(name string) (string, bool) {
			body, ok := r.bodies[name]
			return body.Text, ok
		}))
	}
	exp := expand.New(b.Name, table, options...)

	startFrags, endFrags := fragment.Split(frags)
	head, err := expandFragments(exp, startFrags)
	if err != nil {
		return nil, err
	}
	tail, err := expandFragments(exp, endFrags)
	if err != nil {
		return nil, err
	}

	bodies := make([]expandedBody, 0, len(r.order))
	for _, d := range r.order {
		text, err := exp.Expand(r.bodies[d.QualifiedName()].Text)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", d.QualifiedName(), err)
		}
		bodies = append(bodies, expandedBody{class: d.Class, text: text})
	}

	units, err := layout(b, head, bodies, tail)
	if err != nil {
		return nil, err
	}

	methods := make([]string, 0, len(r.order))
	for _, d := range r.order {
		methods = append(methods, d.QualifiedName())
	}
	a := newArtifact(b, units, methods, table, r.proxies)
	a.LinkMode = mode
	return a, nil
}

func expandFragments(exp *expand.Expander, frags []fragment.Fragment) ([]string, error) {
	res := make([]string, 0, len(frags))
	for _, f := range frags {
		if !f.Process {
			res = append(res, f.Text)
			continue
		}
		text, err := exp.Expand(f.Text)
		if err != nil {
			return nil, fmt.Errorf("fragment from %q: %w", f.Origin, err)
		}
		res = append(res, text)
	}
	return res, nil
}

// populate fills symbol table: classes, their fields and all reachable
// methods.
func (p *Pipeline) populate(b *target.Backend, r *reachable) (*symbols.Table, error) {
	namer, err := symbols.NewNamer(b.Name, b.SymbolTemplate)
	if err != nil {
		return nil, err
	}
	table := symbols.NewTable(b.Name)

	insert := func(kind common.RefKind, name string) error {
		ref := symbols.Ref{Kind: kind, Name: name}
		token, err := namer.Token(ref)
		if err != nil {
			return err
		}
		return table.Insert(ref, token)
	}

	for _, c := range r.classes {
		if err := insert(common.RefKindClass, c.Name); err != nil {
			return nil, err
		}
		for _, f := range c.Fields {
			name := symbols.JoinName(c.Name, f.Name)
			if err := insert(common.RefKindField, name); err != nil {
				return nil, err
			}
			if err := insert(common.RefKindSfield, name); err != nil {
				return nil, err
			}
		}
	}
	for _, d := range r.order {
		name := d.QualifiedName()
		kinds := []common.RefKind{common.RefKindMethod, common.RefKindSmethod}
		if d.IsConstructor() {
			kinds = append(kinds, common.RefKindConstructor)
		}
		for _, k := range kinds {
			if err := insert(k, name); err != nil {
				return nil, err
			}
		}
	}
	return table, nil
}

type expandedBody struct {
	class string
	text  string
}

func joinTexts(parts ...[]string) string {
	var all []string
	for _, p := range parts {
		all = append(all, p...)
	}
	return strings.Join(all, "\n")
}
