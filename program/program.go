// Package program loads programs to be assembled: manifest with classes and
// fragments from a directory, a single manifest file or a zip archive, on top
// of the embedded base runtime.
package program

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"xtc/archive"
	"xtc/assembly"
	"xtc/fragment"
	"xtc/method"
	"xtc/objmodel"
	"xtc/target"
)

//go:embed runtime
var runtimeFS embed.FS

const (
	SystemLoaderName      = "system"
	ApplicationLoaderName = "app"
)

// Program is loaded and frozen program, ready for assembly.
type Program struct {
	Name string
	// where program was loaded from
	Source  string
	Chain   *objmodel.Chain
	Catalog *fragment.Catalog
	Entry   []string
	Proxies []objmodel.ProxyRequest
	// fragments dropped because of unknown backends
	Skipped []string
}

// Input returns what assembly pipeline needs.
func (p *Program) Input() assembly.Input {
	return assembly.Input{
		Chain:   p.Chain,
		Catalog: p.Catalog,
		Entry:   p.Entry,
		Proxies: p.Proxies,
	}
}

// Loader builds programs for registry backends.
type Loader struct {
	registry *target.Registry
	tolerate bool
	cp       encoding.Encoding
	log      *zap.Logger
}

type Option func(*Loader)

// WithTolerateBadFragments makes loader skip program fragments declared for
// unknown backends instead of failing.
func WithTolerateBadFragments(tolerate bool) Option {
	return func(l *Loader) {
		l.tolerate = tolerate
	}
}

// WithCodePage sets encoding of non UTF-8 file names in program archives.
func WithCodePage(cp encoding.Encoding) Option {
	return func(l *Loader) {
		l.cp = cp
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

func NewLoader(registry *target.Registry, options ...Option) *Loader {
	l := &Loader{registry: registry, log: zap.NewNop()}
	for _, o := range options {
		o(l)
	}
	l.log = l.log.Named("program")
	return l
}

// Load reads program from src which could be directory with manifest,
// manifest file itself or zip archive with manifest inside.
func (l *Loader) Load(ctx context.Context, src string) (*Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, res, err := l.open(src)
	if err != nil {
		return nil, fmt.Errorf("unable to open program %q: %w", src, err)
	}

	rt, err := runtimeManifest()
	if err != nil {
		return nil, err
	}

	p := &Program{
		Name:    m.Name,
		Source:  src,
		Catalog: fragment.NewCatalog(l.registry),
		Entry:   slices.Clone(m.Entry),
	}

	system, err := l.define(p, SystemLoaderName, rt, &fsResources{fsys: runtimeFS, dir: "runtime"}, true)
	if err != nil {
		return nil, fmt.Errorf("base runtime: %w", err)
	}
	app, err := l.define(p, ApplicationLoaderName, m, res, false)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", m.Name, err)
	}
	for _, c := range app.Classes() {
		if _, ok := system.FindClass(c.Name); ok {
			l.log.Debug("Program class shadows runtime class", zap.String("class", c.Name))
		}
	}
	p.Chain = objmodel.NewChain(system, app)
	p.Catalog.Freeze()

	for _, pd := range m.Proxies {
		p.Proxies = append(p.Proxies, objmodel.ProxyRequest{Interfaces: slices.Clone(pd.Interfaces), Handler: pd.Handler})
	}

	l.log.Debug("Program loaded",
		zap.String("name", p.Name),
		zap.String("source", src),
		zap.Int("classes", len(app.Classes())),
		zap.Int("fragments", p.Catalog.Len()),
		zap.Int("skipped", len(p.Skipped)))
	return p, nil
}

func runtimeManifest() (*Manifest, error) {
	data, err := fs.ReadFile(runtimeFS, path.Join("runtime", ManifestName))
	if err != nil {
		return nil, fmt.Errorf("unable to read base runtime: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("base runtime: %w", err)
	}
	return m, nil
}

// define puts manifest classes into new class loader and their fragments
// into program catalog. Runtime fragments for backends not in the registry
// are always skipped, program fragments follow tolerate policy.
func (l *Loader) define(p *Program, name string, m *Manifest, res resources, runtime bool) (*objmodel.MapLoader, error) {
	ld := objmodel.NewMapLoader(name)
	for _, cd := range m.Classes {
		if err := ld.Define(newClass(cd)); err != nil {
			return nil, err
		}
		for i, fd := range cd.Files {
			origin := fmt.Sprintf("%s:%s#%d", name, cd.Name, i)
			f, err := newFragment(fd, origin, res)
			if err != nil {
				return nil, fmt.Errorf("class %s: %w", cd.Name, err)
			}
			err = p.Catalog.Add(f)
			if err == nil {
				continue
			}
			var mismatch *fragment.FragmentBackendMismatchError
			if !errors.As(err, &mismatch) || !(runtime || l.tolerate) {
				return nil, err
			}
			if runtime {
				l.log.Debug("Skipping runtime fragment", zap.String("origin", origin), zap.String("target", fd.Target))
			} else {
				l.log.Warn("Skipping fragment for unknown backend", zap.String("origin", origin), zap.String("target", fd.Target))
			}
			p.Skipped = append(p.Skipped, origin)
		}
	}
	return ld, nil
}

func newClass(cd ClassDecl) *objmodel.Class {
	c := &objmodel.Class{Name: cd.Name, Interface: cd.Interface}
	for _, f := range cd.Fields {
		c.Fields = append(c.Fields, objmodel.Field{Name: f})
	}
	for _, f := range cd.StaticFields {
		c.Fields = append(c.Fields, objmodel.Field{Name: f, Static: true})
	}
	for _, md := range cd.Methods {
		d := &method.Declaration{
			Class:  cd.Name,
			Name:   md.Name,
			Static: md.Static,
			Native: md.Native || md.Body == nil,
		}
		if md.Body != nil {
			d.Generic = *md.Body
		}
		if len(md.Overrides) > 0 {
			d.Overrides = make(map[string]string, len(md.Overrides))
			for k, v := range md.Overrides {
				d.Overrides[k] = v
			}
		}
		c.Methods = append(c.Methods, d)
	}
	return c
}

func newFragment(fd FileDecl, origin string, res resources) (fragment.Fragment, error) {
	f := fragment.Fragment{
		Backend:  fd.Target,
		Priority: fd.Priority,
		Mode:     fd.Mode,
		Process:  fd.Process,
		Text:     fd.Text,
		EndText:  fd.EndText,
		Origin:   origin,
	}
	if len(fd.Resource) > 0 {
		data, err := res.read(fd.Resource)
		if err != nil {
			return f, err
		}
		f.Text, f.Origin = string(data), fd.Resource
	}
	if len(fd.EndResource) > 0 {
		data, err := res.read(fd.EndResource)
		if err != nil {
			return f, err
		}
		f.EndText = string(data)
	}
	return f, nil
}

// open locates and parses manifest, returning resources next to it.
func (l *Loader) open(src string) (*Manifest, resources, error) {
	fi, err := os.Stat(src)
	if err != nil {
		return nil, nil, err
	}

	if fi.IsDir() {
		return readManifest(&fsResources{fsys: os.DirFS(src), dir: "."})
	}

	isArchive, err := archive.IsArchive(src)
	if err != nil {
		return nil, nil, err
	}
	if !isArchive {
		dir := filepath.Dir(src)
		res := &fsResources{fsys: os.DirFS(dir), dir: "."}
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, nil, err
		}
		m, err := ParseManifest(data)
		if err != nil {
			return nil, nil, err
		}
		return m, res, nil
	}

	files, err := archive.ReadAll(src, "", l.cp)
	if err != nil {
		return nil, nil, err
	}
	if l.cp != nil {
		n, _ := ianaindex.IANA.Name(l.cp)
		l.log.Debug("Archive file names decoded", zap.String("archive", src), zap.String("charset", n))
	}
	dir, err := manifestDir(files)
	if err != nil {
		return nil, nil, err
	}
	return readManifest(&mapResources{files: files, dir: dir})
}

func readManifest(res resources) (*Manifest, resources, error) {
	data, err := res.read(ManifestName)
	if err != nil {
		return nil, nil, err
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, nil, err
	}
	return m, res, nil
}

// manifestDir selects manifest closest to archive root, archives often have
// single top level directory.
func manifestDir(files map[string][]byte) (string, error) {
	var candidates []string
	for name := range files {
		if path.Base(name) == ManifestName {
			candidates = append(candidates, path.Dir(name))
		}
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("archive has no %s", ManifestName)
	}
	slices.SortFunc(candidates, func(a, b string) int {
		if d := strings.Count(a, "/") - strings.Count(b, "/"); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	return candidates[0], nil
}

// resources are files referenced from manifest, paths are slash separated
// and relative to the manifest.
type resources interface {
	read(name string) ([]byte, error)
}

func resourcePath(dir, name string) (string, error) {
	p := path.Join(dir, name)
	if !fs.ValidPath(p) || path.IsAbs(name) {
		return "", fmt.Errorf("resource %q: invalid path", name)
	}
	return p, nil
}

type fsResources struct {
	fsys fs.FS
	dir  string
}

func (r *fsResources) read(name string) ([]byte, error) {
	p, err := resourcePath(r.dir, name)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(r.fsys, p)
	if err != nil {
		return nil, fmt.Errorf("resource %q: %w", name, err)
	}
	return data, nil
}

type mapResources struct {
	files map[string][]byte
	dir   string
}

func (r *mapResources) read(name string) ([]byte, error) {
	p, err := resourcePath(r.dir, name)
	if err != nil {
		return nil, err
	}
	data, ok := r.files[p]
	if !ok {
		return nil, fmt.Errorf("resource %q: %w", name, fs.ErrNotExist)
	}
	return data, nil
}
