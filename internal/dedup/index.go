package dedup

// Index is the set of permalinks already collected, seeded once per run
// from the destination's existing records. It is mutated only by the
// sequential filtering step before any concurrent fan-out begins, so no
// locking is needed; within a run it only grows.
type Index struct {
	seen map[string]struct{}
}

func New() *Index {
	return &Index{seen: make(map[string]struct{})}
}

// Seed marks every permalink in ids as already collected.
func (i *Index) Seed(ids map[string]struct{}) {
	for id := range ids {
		i.seen[id] = struct{}{}
	}
}

// Accept reports whether permalink is new and, when it is, records it
// immediately so the same item delivered twice in one run is accepted
// only once.
func (i *Index) Accept(permalink string) bool {
	if permalink == "" {
		return false
	}
	if _, dup := i.seen[permalink]; dup {
		return false
	}
	i.seen[permalink] = struct{}{}
	return true
}

// Contains reports whether permalink has been seen without recording it.
func (i *Index) Contains(permalink string) bool {
	_, ok := i.seen[permalink]
	return ok
}

func (i *Index) Len() int { return len(i.seen) }
