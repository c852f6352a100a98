package engine

import "sort"

// sortedKeys returns map keys in lexical order for deterministic iteration
// (evaluation order stability).
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
