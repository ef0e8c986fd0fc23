package method

import (
	"fmt"
	"sort"

	"colorwerkz/internal/apperrors"
)

// Router resolves requested method names to profiles.
// Lookup is case-sensitive and pure; the table is immutable after NewRouter.
type Router struct {
	byName   map[string]*Profile
	profiles []Profile
	known    []string
}

// NewRouter builds the lookup table. Canonical names and aliases share one
// namespace; a duplicate anywhere is a configuration error.
func NewRouter(profiles []Profile) (*Router, error) {
	r := &Router{
		byName:   make(map[string]*Profile),
		profiles: profiles,
	}
	for i := range profiles {
		p := &r.profiles[i]
		for _, name := range append([]string{p.Name}, p.Aliases...) {
			if prev, ok := r.byName[name]; ok {
				return nil, fmt.Errorf("method name %q maps to both %q and %q", name, prev.Name, p.Name)
			}
			r.byName[name] = p
			r.known = append(r.known, name)
		}
	}
	sort.Strings(r.known)
	return r, nil
}

// Resolve returns the profile for a canonical name or alias.
// Unknown names fail with an unknown-method error listing the valid set.
func (r *Router) Resolve(name string) (*Profile, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, apperrors.UnknownMethod(name, r.known)
	}
	return p, nil
}

// Profiles returns the full profile table in declaration order.
func (r *Router) Profiles() []Profile {
	return r.profiles
}

// Known returns every valid name and alias, sorted.
func (r *Router) Known() []string {
	return r.known
}
