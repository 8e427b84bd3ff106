package htdeploy

import "sort"

// FileMap is an unordered mapping from Path to Fingerprint.
//
// For every file path p in the map, every prefix directory d of p is
// also present in the map with fingerprint DIR. No two entries share
// the same path. Callers that build a FileMap for diffing must not
// include the manifest's own path.
type FileMap map[Path]Fingerprint

// Equal reports whether m and other contain exactly the same set of
// path/fingerprint pairs.
func (m FileMap) Equal(other FileMap) bool {
	if len(m) != len(other) {
		return false
	}
	for p, fp := range m {
		if ofp, ok := other[p]; !ok || ofp != fp {
			return false
		}
	}
	return true
}

// Paths returns the map's keys in lexicographic order.
func (m FileMap) Paths() []Path {
	out := make([]Path, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Without returns a copy of m with path removed if path is present,
// and m itself otherwise.
func (m FileMap) Without(path Path) FileMap {
	if _, ok := m[path]; !ok {
		return m
	}
	out := make(FileMap, len(m)-1)
	for p, fp := range m {
		if p != path {
			out[p] = fp
		}
	}
	return out
}
