package frame

import "sort"

// SortKey names a column to sort by and its direction.
type SortKey struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc"`
}

// Sort returns the frame's rows reordered by the given keys. The sort is
// stable so equal rows keep their relative order.
func (f *Frame) Sort(keys []SortKey) (*Frame, *EngineError) {
	if len(keys) == 0 {
		return nil, errInvalidOperator("sort requires at least one key")
	}
	cols := make([]Series, len(keys))
	for i, k := range keys {
		col, ok := f.Column(k.Column)
		if !ok {
			return nil, errColumnNotFound(k.Column)
		}
		cols[i] = col
	}

	idx := make([]int, f.NumRows())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		for i, k := range keys {
			c := compareValues(cols[i], idx[a], idx[b])
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return f.take(idx), nil
}

// compareValues orders two cells of the same column: -1, 0, or 1.
func compareValues(col Series, a, b int) int {
	switch col.kind {
	case KindInt:
		return compareOrdered(col.ints[a], col.ints[b])
	case KindFloat:
		return compareOrdered(col.floats[a], col.floats[b])
	case KindString:
		return compareOrdered(col.strs[a], col.strs[b])
	case KindBool:
		x, y := col.bools[a], col.bools[b]
		if x == y {
			return 0
		}
		if !x {
			return -1
		}
		return 1
	case KindTime:
		x, y := col.times[a], col.times[b]
		switch {
		case x.Before(y):
			return -1
		case x.After(y):
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

func compareOrdered[T int64 | float64 | string](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}
