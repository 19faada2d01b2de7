package method

import (
	"maps"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"xtc/target"
)

type cacheKey struct {
	decl    *Declaration
	backend string
}

// Resolver picks method bodies for backends. Resolution is deterministic, so
// results are memoized. Resolver is safe for concurrent use as long as
// declarations are not modified.
type Resolver struct {
	registry *target.Registry
	cache    *lru.Cache[cacheKey, Body]
}

func NewResolver(registry *target.Registry, cacheSize int) (*Resolver, error) {
	cache, err := lru.New[cacheKey, Body](max(cacheSize, 1))
	if err != nil {
		return nil, err
	}
	return &Resolver{registry: registry, cache: cache}, nil
}

// Resolve returns body of declaration for backend (name or alias). Override
// for backend name wins, then overrides for backend aliases in declaration
// order, then generic body unless method is native.
func (r *Resolver) Resolve(d *Declaration, backendID string) (Body, error) {
	b, err := r.registry.Resolve(backendID)
	if err != nil {
		return Body{}, err
	}

	key := cacheKey{decl: d, backend: b.Name}
	if body, ok := r.cache.Get(key); ok {
		return body, nil
	}

	body := Body{Method: d.QualifiedName(), Backend: b.Name}
	if k, text, ok := lookupOverride(d.Overrides, b.Identifiers()); ok {
		body.Key, body.Text = k, text
	} else if !d.Native {
		body.Text = d.Generic
	} else {
		return Body{}, &UnresolvedMethodBodyError{Method: body.Method, Backend: b.Name}
	}

	r.cache.Add(key, body)
	return body, nil
}

// CacheLen returns number of memoized resolutions.
func (r *Resolver) CacheLen() int {
	return r.cache.Len()
}

func lookupOverride(overrides map[string]string, ids []string) (string, string, bool) {
	if len(overrides) == 0 {
		return "", "", false
	}
	for _, id := range ids {
		if text, ok := overrides[id]; ok {
			return id, text, true
		}
	}
	// keys declared in different case, sorted to stay deterministic
	keys := slices.Sorted(maps.Keys(overrides))
	for _, id := range ids {
		for _, k := range keys {
			if strings.EqualFold(k, id) {
				return k, overrides[k], true
			}
		}
	}
	return "", "", false
}
