package migration

import "sort"

// Sort returns a new slice of scripts sorted by Version in ascending numeric order.
// The sort is stable to preserve insertion order for equal versions.
func Sort(scripts []Script) []Script {
	sorted := make([]Script, len(scripts))
	copy(sorted, scripts)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Version.Less(sorted[j].Version)
	})

	return sorted
}
