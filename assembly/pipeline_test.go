package assembly

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"xtc/common"
	"xtc/expand"
	"xtc/fragment"
	"xtc/method"
	"xtc/objmodel"
	"xtc/symbols"
	"xtc/target"
)

type fixture struct {
	registry *target.Registry
	system   *objmodel.MapLoader
	app      *objmodel.MapLoader
	catalog  *fragment.Catalog
	entry    []string
	proxies  []objmodel.ProxyRequest
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	r := target.NewRegistry()
	for _, b := range []target.Backend{
		{Name: "scriptBackend", Aliases: []string{"script"}, SingleFile: true, Extension: ".s"},
		{Name: "nativeBackend", Aliases: []string{"native"}, SingleFile: false, Extension: ".n"},
	} {
		if _, err := r.Register(b); err != nil {
			t.Fatalf("Register(%s) error = %v", b.Name, err)
		}
	}
	return &fixture{
		registry: r,
		system:   objmodel.NewMapLoader("system"),
		app:      objmodel.NewMapLoader("app"),
		catalog:  fragment.NewCatalog(r),
	}
}

func (f *fixture) define(t *testing.T, c *objmodel.Class) {
	t.Helper()
	for _, m := range c.Methods {
		m.Class = c.Name
	}
	if err := f.app.Define(c); err != nil {
		t.Fatalf("Define(%s) error = %v", c.Name, err)
	}
}

func (f *fixture) fragment(t *testing.T, frag fragment.Fragment) {
	t.Helper()
	if err := f.catalog.Add(frag); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
}

func (f *fixture) pipeline(t *testing.T, options ...Option) *Pipeline {
	t.Helper()
	f.catalog.Freeze()
	resolver, err := method.NewResolver(f.registry, 64)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	options = append([]Option{WithLogger(zaptest.NewLogger(t))}, options...)
	p, err := New(f.registry, resolver, Input{
		Chain:   objmodel.NewChain(f.system, f.app),
		Catalog: f.catalog,
		Entry:   f.entry,
		Proxies: f.proxies,
	}, options...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func mustAssemble(t *testing.T, p *Pipeline, id string) *Artifact {
	t.Helper()
	a, err := p.Assemble(context.Background(), id)
	if err != nil {
		t.Fatalf("Assemble(%s) error = %v", id, err)
	}
	return a
}

func TestAssemble_Scenario(t *testing.T) {
	f := newFixture(t)
	f.define(t, &objmodel.Class{
		Name: "demo.Main",
		Methods: []*method.Declaration{{
			Name:      "m",
			Generic:   "ret 0;",
			Overrides: map[string]string{"scriptBackend": "return 0;"},
		}},
	})
	f.entry = []string{"demo.Main"}
	p := f.pipeline(t)

	script := mustAssemble(t, p, "scriptBackend")
	if got := string(script.Bytes()); !strings.Contains(got, "return 0;") || strings.Contains(got, "ret 0;") {
		t.Errorf("scriptBackend output = %q, want override", got)
	}
	if len(script.Units) != 1 || script.Units[0].Name != "index.s" {
		t.Errorf("single file backend units = %+v", script.Units)
	}

	native := mustAssemble(t, p, "nativeBackend")
	if got := string(native.Bytes()); !strings.Contains(got, "ret 0;") || strings.Contains(got, "return 0;") {
		t.Errorf("nativeBackend output = %q, want generic body", got)
	}
}

func TestAssemble_DistinctTokens(t *testing.T) {
	newClasses := func(t *testing.T) *fixture {
		f := newFixture(t)
		f.define(t, &objmodel.Class{
			Name:    "a.b",
			Methods: []*method.Declaration{{Name: "run", Static: true, Generic: "call {% SMETHOD a_b:run %};"}},
		})
		f.define(t, &objmodel.Class{
			Name:    "a_b",
			Methods: []*method.Declaration{{Name: "run", Static: true, Generic: "call {% SMETHOD a.b:run %};"}},
		})
		f.entry = []string{"a.b", "a_b"}
		return f
	}

	t.Run("default naming", func(t *testing.T) {
		a := mustAssemble(t, newClasses(t).pipeline(t), "scriptBackend")
		if got, want := string(a.Bytes()), "call a_0b_m_run;\ncall a_b_m_run;"; got != want {
			t.Errorf("output = %q, want %q", got, want)
		}
	})

	t.Run("template collision", func(t *testing.T) {
		f := newClasses(t)
		if _, err := f.registry.Register(target.Backend{
			Name: "flatBackend", SingleFile: true, Extension: ".f",
			SymbolTemplate: `{{ if eq .Kind "class" }}{{ .ClassMangled }}{{ else }}{{ .MemberMangled }}{{ end }}`,
		}); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		a, err := f.pipeline(t).Assemble(context.Background(), "flatBackend")
		if a != nil {
			t.Error("artifact must not be produced")
		}
		var collision *symbols.TokenCollisionError
		if !errors.As(err, &collision) {
			t.Fatalf("Assemble() error = %v, want TokenCollisionError", err)
		}
		if collision.Token != "run" || collision.Owner.Name != "a.b:run" || collision.Ref.Name != "a_b:run" {
			t.Errorf("unexpected collision: %v", collision)
		}
	})
}

func TestAssemble_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.define(t, &objmodel.Class{
		Name:   "demo.Main",
		Fields: []objmodel.Field{{Name: "count", Static: true}},
		Methods: []*method.Declaration{
			{Name: "main", Static: true, Generic: "{% SFIELD demo.Main:count %} = {% SMETHOD demo.Main:helper %}();"},
			{Name: "helper", Static: true, Generic: "return {% METHOD demo.Main:main %};"},
		},
	})
	f.entry = []string{"demo.Main:main"}
	f.fragment(t, fragment.Fragment{Backend: "script", Mode: common.MergeModePrependAppend, Process: true, Text: "// {% CLASS demo.Main %}"})
	p := f.pipeline(t)

	for _, id := range []string{"scriptBackend", "nativeBackend"} {
		first := mustAssemble(t, p, id)
		second := mustAssemble(t, p, id)
		if string(first.Bytes()) != string(second.Bytes()) {
			t.Errorf("%s: outputs differ:\n%s\n---\n%s", id, first.Bytes(), second.Bytes())
		}
		if first.ID != second.ID {
			t.Errorf("%s: IDs differ: %s != %s", id, first.ID, second.ID)
		}
		if first.String() != second.String() {
			t.Errorf("%s: debug dumps differ", id)
		}
	}

	script := mustAssemble(t, p, "script")
	native := mustAssemble(t, p, "native")
	if script.ID == native.ID {
		t.Error("different artifacts must have different IDs")
	}
}

func TestAssemble_FragmentOrdering(t *testing.T) {
	f := newFixture(t)
	f.define(t, &objmodel.Class{
		Name:    "demo.Main",
		Methods: []*method.Declaration{{Name: "m", Generic: "BODY"}},
	})
	f.entry = []string{"demo.Main"}
	f.fragment(t, fragment.Fragment{Backend: "scriptBackend", Priority: 1, Mode: common.MergeModePrepend, Text: "F1"})
	f.fragment(t, fragment.Fragment{Backend: "scriptBackend", Priority: 0, Mode: common.MergeModePrepend, Text: "F2"})
	f.fragment(t, fragment.Fragment{Backend: "scriptBackend", Priority: 5, Mode: common.MergeModeAppend, Text: "F3"})
	f.fragment(t, fragment.Fragment{Backend: "nativeBackend", Priority: -100, Mode: common.MergeModePrepend, Text: "NATIVE"})
	p := f.pipeline(t)

	a := mustAssemble(t, p, "scriptBackend")
	if got, want := string(a.Bytes()), "F2\nF1\nBODY\nF3"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestAssemble_SinglePayloadPrependAppend(t *testing.T) {
	f := newFixture(t)
	f.define(t, &objmodel.Class{
		Name:    "demo.Main",
		Methods: []*method.Declaration{{Name: "m", Generic: "BODY"}},
	})
	f.entry = []string{"demo.Main"}
	f.fragment(t, fragment.Fragment{Backend: "scriptBackend", Mode: common.MergeModePrependAppend, Text: "X"})
	f.fragment(t, fragment.Fragment{Backend: "scriptBackend", Priority: 1, Mode: common.MergeModePrependAppend, Text: "(", EndText: ")"})
	p := f.pipeline(t)

	a := mustAssemble(t, p, "scriptBackend")
	if got, want := string(a.Bytes()), "X\n(\nBODY\nX\n)"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestAssemble_RepeatedReferences(t *testing.T) {
	f := newFixture(t)
	f.define(t, &objmodel.Class{
		Name: "demo.Main",
		Methods: []*method.Declaration{
			{Name: "a", Generic: "{% METHOD demo.Main:b %}(); {% METHOD demo.Main:b %}();"},
			{Name: "b", Generic: "return 1;"},
		},
	})
	f.entry = []string{"demo.Main:a"}
	p := f.pipeline(t)

	a := mustAssemble(t, p, "scriptBackend")
	if got, want := string(a.Bytes()), "demo_Main_m_b(); demo_Main_m_b();\nreturn 1;"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
	if len(a.Methods) != 2 || a.Methods[0] != "demo.Main:a" || a.Methods[1] != "demo.Main:b" {
		t.Errorf("Methods = %v, want entry first then referenced", a.Methods)
	}
}

func TestAssemble_CircularReferences(t *testing.T) {
	f := newFixture(t)
	f.define(t, &objmodel.Class{
		Name: "demo.Main",
		Methods: []*method.Declaration{
			{Name: "a", Generic: "{% METHOD demo.Main:b %}"},
			{Name: "b", Generic: "{% METHOD demo.Main:a %}"},
		},
	})
	f.entry = []string{"demo.Main:b"}

	for _, mode := range []common.LinkMode{common.LinkModeDeferred, common.LinkModeInline} {
		t.Run(mode.String(), func(t *testing.T) {
			p := f.pipeline(t, WithLinkMode(mode))
			a := mustAssemble(t, p, "scriptBackend")
			if len(a.Methods) != 2 {
				t.Errorf("Methods = %v", a.Methods)
			}
			if a.LinkMode != mode {
				t.Errorf("LinkMode = %v, want %v", a.LinkMode, mode)
			}
		})
	}
}

func TestAssemble_InlineLinking(t *testing.T) {
	f := newFixture(t)
	f.define(t, &objmodel.Class{
		Name: "demo.Main",
		Methods: []*method.Declaration{
			{Name: "main", Generic: "x = {% SMETHOD demo.Main:helper %};"},
			{Name: "helper", Generic: "{% CLASS demo.Main %}.value"},
		},
	})
	f.entry = []string{"demo.Main:main"}
	p := f.pipeline(t, WithLinkMode(common.LinkModeInline))

	a := mustAssemble(t, p, "scriptBackend")
	if got, want := string(a.Bytes()), "x = demo_Main.value;\ndemo_Main.value"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestAssemble_FollowReferences(t *testing.T) {
	build := func(t *testing.T, follow bool) *Pipeline {
		f := newFixture(t)
		f.define(t, &objmodel.Class{
			Name:    "demo.Util",
			Methods: []*method.Declaration{{Name: "helper", Generic: "H"}, {Name: "unused", Generic: "U"}},
		})
		f.define(t, &objmodel.Class{
			Name:    "demo.Main",
			Methods: []*method.Declaration{{Name: "main", Generic: "{% SMETHOD demo.Util:helper %}()"}},
		})
		f.fragment(t, fragment.Fragment{Backend: "scriptBackend", Mode: common.MergeModePrepend, Process: true, Text: "{% CLASS demo.Util %}"})
		f.entry = []string{"demo.Main:main"}
		return f.pipeline(t, WithFollowReferences(follow))
	}

	a := mustAssemble(t, build(t, true), "scriptBackend")
	if got, want := string(a.Bytes()), "demo_Util\ndemo_Util_m_helper()\nH"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}

	_, err := build(t, false).Assemble(context.Background(), "scriptBackend")
	var unresolved *expand.UnresolvedSymbolError
	if !errors.As(err, &unresolved) {
		t.Fatalf("Assemble() error = %v, want UnresolvedSymbolError", err)
	}
	if unresolved.Target != "demo.Util:helper" || unresolved.Raw != "{% SMETHOD demo.Util:helper %}" {
		t.Errorf("unexpected error details %+v", unresolved)
	}
}

func TestAssemble_MultiFileLayout(t *testing.T) {
	f := newFixture(t)
	f.define(t, &objmodel.Class{
		Name:    "demo.Main",
		Methods: []*method.Declaration{{Name: "a", Generic: "A1"}, {Name: "b", Generic: "{% METHOD demo.sub.Util:u %}"}},
	})
	f.define(t, &objmodel.Class{
		Name:    "demo.sub.Util",
		Methods: []*method.Declaration{{Name: "u", Generic: "U1"}},
	})
	f.entry = []string{"demo.Main"}
	f.fragment(t, fragment.Fragment{Backend: "native", Mode: common.MergeModePrependAppend, Text: "<", EndText: ">"})
	f.fragment(t, fragment.Fragment{Backend: "native", Priority: 2, Mode: common.MergeModePrepend, Text: "P"})
	p := f.pipeline(t)

	a := mustAssemble(t, p, "native")
	want := []Unit{
		{Name: "index.n", Text: "<\nP\n>"},
		{Name: "demo/Main.n", Text: "A1\ndemo_sub_Util_m_u"},
		{Name: "demo/sub/Util.n", Text: "U1"},
	}
	if len(a.Units) != len(want) {
		t.Fatalf("Units = %+v, want %+v", a.Units, want)
	}
	for i := range want {
		if a.Units[i] != want[i] {
			t.Errorf("Units[%d] = %+v, want %+v", i, a.Units[i], want[i])
		}
	}
	if u, ok := a.Unit("demo/sub/Util.n"); !ok || u.Text != "U1" {
		t.Errorf("Unit() = %+v, %v", u, ok)
	}
}

func TestAssemble_UnitTemplate(t *testing.T) {
	f := newFixture(t)
	if _, err := f.registry.Register(target.Backend{
		Name: "php", Extension: "php", UnitTemplate: `lib/{{ .Class | replace "." "_" | lower }}{{ .Ext }}`,
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := f.registry.Register(target.Backend{
		Name: "flat", Extension: "f", UnitTemplate: `same{{ .Ext }}`,
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	f.define(t, &objmodel.Class{Name: "demo.Main", Methods: []*method.Declaration{{Name: "a", Generic: "A"}}})
	f.define(t, &objmodel.Class{Name: "demo.Other", Methods: []*method.Declaration{{Name: "b", Generic: "B"}}})
	f.entry = []string{"demo.Main", "demo.Other"}
	p := f.pipeline(t)

	a := mustAssemble(t, p, "php")
	if _, ok := a.Unit("lib/demo_main.php"); !ok {
		t.Errorf("unit named by template not found: %+v", a.Units)
	}

	if _, err := p.Assemble(context.Background(), "flat"); err == nil {
		t.Error("expected error for duplicate unit names")
	}
}

func TestAssemble_Proxies(t *testing.T) {
	setup := func(t *testing.T, proxies ...objmodel.ProxyRequest) *Pipeline {
		f := newFixture(t)
		f.define(t, &objmodel.Class{Name: "demo.Greeter", Interface: true})
		f.define(t, &objmodel.Class{Name: "demo.Other", Interface: true})
		f.define(t, &objmodel.Class{Name: "demo.Handler", Methods: []*method.Declaration{{Name: "invoke", Generic: "I"}}})
		f.define(t, &objmodel.Class{Name: "demo.Main", Methods: []*method.Declaration{{Name: "main", Generic: "M"}}})
		f.entry = []string{"demo.Main"}
		f.proxies = proxies
		return f.pipeline(t)
	}

	_, err := setup(t, objmodel.ProxyRequest{Interfaces: []string{"demo.Greeter", "demo.Other"}, Handler: "demo.Handler"}).
		Assemble(context.Background(), "scriptBackend")
	var multi *objmodel.MultiInterfaceProxyError
	if !errors.As(err, &multi) {
		t.Fatalf("Assemble() error = %v, want MultiInterfaceProxyError", err)
	}
	var ae *Error
	if !errors.As(err, &ae) || ae.Backend != "scriptBackend" {
		t.Errorf("error is not wrapped into assembly error: %v", err)
	}

	p := setup(t, objmodel.ProxyRequest{Interfaces: []string{"demo.Greeter"}, Handler: "demo.Handler"})
	a := mustAssemble(t, p, "scriptBackend")
	if !a.IsProxyClass("demo.Greeter$Proxy") {
		t.Error("IsProxyClass() is false for synthesized proxy")
	}
	for _, name := range []string{"demo.Greeter", "demo.Handler", "demo.Main", "demo.Other$Proxy"} {
		if a.IsProxyClass(name) {
			t.Errorf("IsProxyClass(%s) = true", name)
		}
	}
	if got := string(a.Bytes()); !strings.Contains(got, "demo_Greeter_124Proxy_f_h = h; /* demo_Handler */") {
		t.Errorf("proxy constructor was not assembled: %q", got)
	}
	if names := a.ProxyClasses(); len(names) != 1 || names[0] != "demo.Greeter$Proxy" {
		t.Errorf("ProxyClasses() = %v", names)
	}

	other := setup(t)
	if a := mustAssemble(t, other, "scriptBackend"); a.IsProxyClass("demo.Greeter$Proxy") {
		t.Error("proxy leaked into artifact of another program")
	}
}

func TestAssemble_Errors(t *testing.T) {
	tests := []struct {
		name    string
		class   *objmodel.Class
		entry   []string
		backend string
		check   func(error) bool
	}{
		{
			name:    "unknown backend",
			class:   &objmodel.Class{Name: "demo.Main"},
			entry:   []string{"demo.Main"},
			backend: "php",
			check:   func(err error) bool { var e *target.UnknownBackendError; return errors.As(err, &e) },
		},
		{
			name:    "native without override",
			class:   &objmodel.Class{Name: "demo.Main", Methods: []*method.Declaration{{Name: "n", Native: true, Overrides: map[string]string{"script": "ok"}}}},
			entry:   []string{"demo.Main"},
			backend: "nativeBackend",
			check:   func(err error) bool { var e *method.UnresolvedMethodBodyError; return errors.As(err, &e) },
		},
		{
			name:    "unresolved symbol",
			class:   &objmodel.Class{Name: "demo.Main", Methods: []*method.Declaration{{Name: "m", Generic: "{% CLASS demo.Missing %}"}}},
			entry:   []string{"demo.Main"},
			backend: "scriptBackend",
			check:   func(err error) bool { var e *expand.UnresolvedSymbolError; return errors.As(err, &e) },
		},
		{
			name:    "malformed placeholder",
			class:   &objmodel.Class{Name: "demo.Main", Methods: []*method.Declaration{{Name: "m", Generic: "{% CLASS demo.Main"}}},
			entry:   []string{"demo.Main"},
			backend: "scriptBackend",
			check:   func(err error) bool { var e *expand.MalformedPlaceholderError; return errors.As(err, &e) },
		},
		{
			name:    "missing entry class",
			class:   &objmodel.Class{Name: "demo.Main"},
			entry:   []string{"demo.Missing"},
			backend: "scriptBackend",
			check:   func(err error) bool { var e *objmodel.ClassNotFoundError; return errors.As(err, &e) },
		},
		{
			name:    "missing entry method",
			class:   &objmodel.Class{Name: "demo.Main"},
			entry:   []string{"demo.Main:missing"},
			backend: "scriptBackend",
			check:   func(err error) bool { var e *objmodel.MemberNotFoundError; return errors.As(err, &e) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.define(t, tt.class)
			f.entry = tt.entry
			p := f.pipeline(t)

			a, err := p.Assemble(context.Background(), tt.backend)
			if a != nil {
				t.Errorf("partial artifact returned: %v", a)
			}
			if !tt.check(err) {
				t.Errorf("Assemble() error = %v", err)
			}
			var ae *Error
			if !errors.As(err, &ae) {
				t.Errorf("error is not wrapped into assembly error: %v", err)
			}

			// same input reports the same error
			_, again := p.Assemble(context.Background(), tt.backend)
			if again == nil || again.Error() != err.Error() {
				t.Errorf("repeated assembly reported %v, want %v", again, err)
			}
		})
	}
}

func TestAssembleAll(t *testing.T) {
	f := newFixture(t)
	f.define(t, &objmodel.Class{
		Name: "demo.Main",
		Methods: []*method.Declaration{{
			Name:      "m",
			Generic:   "{% CLASS demo.Missing %}",
			Overrides: map[string]string{"scriptBackend": "return 0;"},
		}},
	})
	f.entry = []string{"demo.Main"}
	p := f.pipeline(t, WithParallel(2))

	ids := []string{"nativeBackend", "script", "unknown", "scriptBackend"}
	artifacts, err := p.AssembleAll(context.Background(), ids)
	if err == nil {
		t.Fatal("AssembleAll() expected errors")
	}
	if len(artifacts) != len(ids) {
		t.Fatalf("AssembleAll() returned %d artifacts, want %d", len(artifacts), len(ids))
	}
	if artifacts[0] != nil || artifacts[2] != nil {
		t.Error("failed backends must not produce artifacts")
	}
	for _, i := range []int{1, 3} {
		if artifacts[i] == nil || string(artifacts[i].Bytes()) != "return 0;" {
			t.Errorf("artifacts[%d] = %v, failure of other backends must not affect it", i, artifacts[i])
		}
	}

	msg := err.Error()
	if i, j := strings.Index(msg, `backend "nativeBackend"`), strings.Index(msg, `backend "unknown"`); i < 0 || j < 0 || i > j {
		t.Errorf("errors are not combined in request order: %s", msg)
	}
}

func TestAssemble_Canceled(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Assemble(ctx, "scriptBackend"); !errors.Is(err, context.Canceled) {
		t.Errorf("Assemble() error = %v, want context.Canceled", err)
	}
}

func TestNew_Validation(t *testing.T) {
	f := newFixture(t)
	resolver, _ := method.NewResolver(f.registry, 16)
	chain := objmodel.NewChain(f.system)

	if _, err := New(f.registry, resolver, Input{Chain: chain, Catalog: f.catalog}); err == nil {
		t.Error("expected error for catalog which is not frozen")
	}
	if _, err := New(f.registry, resolver, Input{Catalog: f.catalog}); err == nil {
		t.Error("expected error for incomplete input")
	}
}

func TestArtifact_String(t *testing.T) {
	f := newFixture(t)
	f.define(t, &objmodel.Class{Name: "demo.Main", Methods: []*method.Declaration{{Name: "m", Generic: "{% METHOD demo.Main:m %}"}}})
	f.entry = []string{"demo.Main"}
	a := mustAssemble(t, f.pipeline(t), "script")

	dump := a.String()
	for _, want := range []string{`backend="scriptBackend"`, "demo.Main:m", "METHOD demo.Main:m => demo_Main_m_m", "index.s"} {
		if !strings.Contains(dump, want) {
			t.Errorf("String() does not contain %q:\n%s", want, dump)
		}
	}

	var nilArtifact *Artifact
	if nilArtifact.String() != "<nil Artifact>" {
		t.Error("String() on nil artifact")
	}
}
