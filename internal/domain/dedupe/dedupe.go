// Package dedupe collapses items that share a natural key.
package dedupe

// UniqueBy returns one item per distinct key. The last item seen for a key
// wins, placed where the key first appeared. The input is not modified.
func UniqueBy[T any](items []T, key func(T) string) []T {
	if len(items) == 0 {
		return []T{}
	}

	pos := make(map[string]int, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := key(it)
		if i, ok := pos[k]; ok {
			out[i] = it
			continue
		}
		pos[k] = len(out)
		out = append(out, it)
	}
	return out
}

