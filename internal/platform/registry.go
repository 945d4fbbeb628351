package platform

import (
	"errors"
	"sort"
	"strings"
)

// ErrUnknownPlatform is returned when no adapter is registered for a name.
var ErrUnknownPlatform = errors.New("platform: unknown platform")

// Registry holds the configured adapters. It is built once at startup
// and read-only afterwards.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[strings.ToLower(a.Name())] = a
	}
	return &Registry{adapters: m}
}

// Get resolves an adapter by name, case-insensitively.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[strings.ToLower(name)]
	if !ok {
		return nil, ErrUnknownPlatform
	}
	return a, nil
}

// Names lists registered platforms in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
