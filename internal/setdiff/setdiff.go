// Package setdiff compares small id sets such as tag links and URL lists.
package setdiff

// Equal reports whether a and b hold the same elements, ignoring order and
// duplicates.
func Equal[T comparable](a, b []T) bool {
	as, bs := toSet(a), toSet(b)
	if len(as) != len(bs) {
		return false
	}
	for k := range as {
		if _, ok := bs[k]; !ok {
			return false
		}
	}
	return true
}

// Diff returns the elements of next missing from prev (add) and the elements
// of prev missing from next (remove). Each result keeps the first-seen order
// of its source and holds no duplicates.
func Diff[T comparable](prev, next []T) (add, remove []T) {
	ps, ns := toSet(prev), toSet(next)
	add = missing(next, ps)
	remove = missing(prev, ns)
	return add, remove
}

func missing[T comparable](items []T, other map[T]struct{}) []T {
	var out []T
	seen := make(map[T]struct{}, len(items))
	for _, v := range items {
		if _, ok := other[v]; ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func toSet[T comparable](items []T) map[T]struct{} {
	s := make(map[T]struct{}, len(items))
	for _, v := range items {
		s[v] = struct{}{}
	}
	return s
}
