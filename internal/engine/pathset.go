package engine

import "slices"

// PathSet is an ordered list of paths.
type PathSet []string

// Add appends paths in order, keeping duplicates.
func (ps *PathSet) Add(paths ...string) {
	*ps = append(*ps, paths...)
}

// AddUnique appends path unless it is already present and reports whether it was added.
func (ps *PathSet) AddUnique(path string) bool {
	if ps.Contains(path) {
		return false
	}
	*ps = append(*ps, path)
	return true
}

func (ps PathSet) Contains(path string) bool {
	return slices.Contains(ps, path)
}

func (ps PathSet) Len() int { return len(ps) }

// Reset empties the set but keeps its storage.
func (ps *PathSet) Reset() {
	*ps = (*ps)[:0]
}

// Clone returns an independent copy.
func (ps PathSet) Clone() PathSet {
	return slices.Clone(ps)
}
