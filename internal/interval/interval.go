// Package interval implements intersection of sorted sequences of
// disjoint closed intervals over an arbitrary ordered element type.
package interval

// Closed interval [Start, End]. Both endpoints are included.
type Interval[T any] struct {
	Start T
	End   T
}

// Intersect returns the intersection of two sequences of disjoint closed
// intervals. Both inputs must be sorted by start and pairwise disjoint;
// the output then has the same shape.
//
// The comparator must return a negative value, zero, or a positive value
// for a < b, a == b, a > b respectively (e.g. time.Time.Compare).
func Intersect[T any](a, b []Interval[T], cmp func(T, T) int) []Interval[T] {
	var out []Interval[T]

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		start := a[i].Start
		if cmp(b[j].Start, start) > 0 {
			start = b[j].Start
		}

		end := a[i].End
		if cmp(b[j].End, end) < 0 {
			end = b[j].End
		}

		if cmp(start, end) <= 0 {
			out = append(out, Interval[T]{Start: start, End: end})
		}

		// Advance whichever interval ends first; on a tie both are
		// exhausted at this point and either may move.
		if cmp(a[i].End, b[j].End) <= 0 {
			i++
		} else {
			j++
		}
	}

	return out
}
