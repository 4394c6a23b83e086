package collector

import "math/rand"

// Registry holds the set of equivalent endpoint base URLs. Each page fetch
// walks the registry in a freshly shuffled order so no single mirror takes
// all the traffic.
type Registry struct {
	bases []string
}

func NewRegistry(bases []string) *Registry {
	out := make([]string, len(bases))
	copy(out, bases)
	return &Registry{bases: out}
}

func (r *Registry) Len() int { return len(r.bases) }

// Canonical returns the first configured base, used for endpoints that do
// not need mirror rotation (comment listings).
func (r *Registry) Canonical() string {
	if len(r.bases) == 0 {
		return ""
	}
	return r.bases[0]
}

// Shuffled returns a new random ordering of the mirror bases.
func (r *Registry) Shuffled() []string {
	out := make([]string, len(r.bases))
	copy(out, r.bases)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
