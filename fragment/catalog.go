// Package fragment keeps source fragments contributed by program classes and
// base runtime for every backend.
package fragment

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"xtc/common"
	"xtc/target"
)

// Fragment is a chunk of backend source merged into output at position
// defined by its merge mode and priority.
type Fragment struct {
	// backend name or alias as declared
	Backend  string
	Priority int
	Mode     common.MergeMode
	// whether placeholders in text are expanded
	Process bool
	Text    string
	// optional second payload of prependAppend fragment, used at the end
	EndText string
	// declaring class or resource, for diagnostics only
	Origin string
}

// FragmentBackendMismatchError is returned when fragment is declared for a
// backend which is not registered. It unwraps to *target.UnknownBackendError.
type FragmentBackendMismatchError struct {
	Origin string
	Err    *target.UnknownBackendError
}

func (e *FragmentBackendMismatchError) Error() string {
	return fmt.Sprintf("fragment from %q: %v", e.Origin, e.Err)
}

func (e *FragmentBackendMismatchError) Unwrap() error {
	return e.Err
}

var ErrFrozen = errors.New("fragment catalog is frozen")

// Catalog is an append only store of fragments. Insertion order is kept and
// used to break priority ties. After Freeze catalog is read only and could be
// used from several goroutines.
type Catalog struct {
	registry *target.Registry
	frags    []Fragment
	frozen   bool
}

func NewCatalog(registry *target.Registry) *Catalog {
	return &Catalog{registry: registry}
}

// Add appends fragment to the catalog. Fragments for unregistered backends
// are rejected immediately.
func (c *Catalog) Add(f Fragment) error {
	if c.frozen {
		return ErrFrozen
	}
	if !f.Mode.IsValid() {
		return fmt.Errorf("fragment from %q: %w", f.Origin, common.ErrInvalidMergeMode)
	}
	if _, err := c.registry.Resolve(f.Backend); err != nil {
		var unknown *target.UnknownBackendError
		if errors.As(err, &unknown) {
			return &FragmentBackendMismatchError{Origin: f.Origin, Err: unknown}
		}
		return err
	}
	c.frags = append(c.frags, f)
	return nil
}

// Freeze makes catalog read only.
func (c *Catalog) Freeze() {
	c.frozen = true
}

func (c *Catalog) Frozen() bool {
	return c.frozen
}

func (c *Catalog) Len() int {
	return len(c.frags)
}

// For returns fragments declared for backend (by its name or any alias)
// sorted by priority, ties keep insertion order.
func (c *Catalog) For(id string) ([]Fragment, error) {
	b, err := c.registry.Resolve(id)
	if err != nil {
		return nil, err
	}
	res := make([]Fragment, 0, len(c.frags))
	for _, f := range c.frags {
		if b.Matches(f.Backend) {
			res = append(res, f)
		}
	}
	slices.SortStableFunc(res, func(a, b Fragment) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	return res, nil
}

// Split partitions ordered fragments into start and end portions. Both keep
// incoming order. prependAppend fragment contributes to both portions, its
// end payload is EndText when present and Text otherwise. Returned fragments
// always carry the payload for their position in Text.
func Split(frags []Fragment) (start, end []Fragment) {
	for _, f := range frags {
		if f.Mode.Start() {
			s := f
			s.EndText = ""
			start = append(start, s)
		}
		if f.Mode.End() {
			e := f
			if f.Mode == common.MergeModePrependAppend && len(f.EndText) > 0 {
				e.Text = f.EndText
			}
			e.EndText = ""
			end = append(end, e)
		}
	}
	return start, end
}
