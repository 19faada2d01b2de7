package objmodel

import (
	"fmt"

	"xtc/method"
)

// Loader knows set of classes.
type Loader interface {
	Name() string
	FindClass(name string) (*Class, bool)
}

// MapLoader is a simple loader which keeps classes in memory in definition
// order.
type MapLoader struct {
	name    string
	classes map[string]*Class
	order   []*Class
}

func NewMapLoader(name string) *MapLoader {
	return &MapLoader{name: name, classes: make(map[string]*Class)}
}

func (l *MapLoader) Name() string {
	return l.name
}

// Define adds class to the loader, every name could be defined once.
func (l *MapLoader) Define(c *Class) error {
	if len(c.Name) == 0 {
		return fmt.Errorf("loader %q: class without name", l.name)
	}
	if _, ok := l.classes[c.Name]; ok {
		return fmt.Errorf("loader %q: class %q is already defined", l.name, c.Name)
	}
	l.classes[c.Name] = c
	l.order = append(l.order, c)
	return nil
}

func (l *MapLoader) FindClass(name string) (*Class, bool) {
	c, ok := l.classes[name]
	return c, ok
}

// Classes returns defined classes in definition order.
func (l *MapLoader) Classes() []*Class {
	return append([]*Class(nil), l.order...)
}

// Chain is an ordered parent to child list of loaders ending with the system
// loader. Lookup walks the list child first every time it is called, nothing
// is cached.
type Chain struct {
	system  Loader
	loaders []Loader
}

// NewChain creates chain with loaders listed parent first.
func NewChain(system Loader, loaders ...Loader) *Chain {
	return &Chain{system: system, loaders: append([]Loader(nil), loaders...)}
}

// With returns new chain with child loader added, receiver is not changed.
func (c *Chain) With(child Loader) *Chain {
	loaders := make([]Loader, 0, len(c.loaders)+1)
	loaders = append(loaders, c.loaders...)
	return &Chain{system: c.system, loaders: append(loaders, child)}
}

// Loaders returns loaders in lookup order: child first, system loader last.
func (c *Chain) Loaders() []Loader {
	res := make([]Loader, 0, len(c.loaders)+1)
	for i := len(c.loaders) - 1; i >= 0; i-- {
		res = append(res, c.loaders[i])
	}
	if c.system != nil {
		res = append(res, c.system)
	}
	return res
}

// FindClass returns class from the nearest to child loader which defines it.
func (c *Chain) FindClass(name string) (*Class, error) {
	lds := c.Loaders()
	for _, l := range lds {
		if cls, ok := l.FindClass(name); ok {
			return cls, nil
		}
	}
	names := make([]string, 0, len(lds))
	for _, l := range lds {
		names = append(names, l.Name())
	}
	return nil, &ClassNotFoundError{Name: name, Loaders: names}
}

// FindMethod looks up "Class:member" declaration.
func (c *Chain) FindMethod(class, member string) (*Class, *method.Declaration, error) {
	cls, err := c.FindClass(class)
	if err != nil {
		return nil, nil, err
	}
	m, ok := cls.Method(member)
	if !ok {
		return nil, nil, &MemberNotFoundError{Class: class, Member: member}
	}
	return cls, m, nil
}
