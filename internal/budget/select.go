package budget

import "sort"

// Item is one rankable unit of content.
type Item[T any] struct {
	Value   T
	Size    float64
	Score   float64
	Focused bool
}

// Select picks items in descending score order while they fit in quota.
// An item that does not fit is skipped whole and later, smaller items may
// still be taken. Focused items are always included and their size counts
// against the quota. Ties keep input order.
func Select[T any](items []Item[T], quota float64) []Item[T] {
	ranked := append([]Item[T](nil), items...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	var (
		out  []Item[T]
		used float64
	)
	for _, it := range ranked {
		if used+it.Size <= quota+epsilon || it.Focused {
			out = append(out, it)
			used += it.Size
		}
	}
	return out
}

// Used sums the sizes of items.
func Used[T any](items []Item[T]) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Size
	}
	return sum
}
