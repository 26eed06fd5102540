package frame

import "time"

var zeroTime time.Time

// JoinHow selects the join semantics.
type JoinHow string

const (
	JoinInner JoinHow = "inner"
	JoinLeft  JoinHow = "left"
)

// ValidJoinHow reports whether how is a supported join type.
func ValidJoinHow(how JoinHow) bool {
	return how == JoinInner || how == JoinLeft
}

// Join hash-joins f (left) with other (right) on leftKey == rightKey.
// Result columns are the left columns followed by the right columns minus
// the right key; a right column whose name collides with a left column is
// suffixed "_right". Left joins fill unmatched right values with zero values.
func (f *Frame) Join(other *Frame, leftKey, rightKey string, how JoinHow) (*Frame, *EngineError) {
	if !ValidJoinHow(how) {
		return nil, errInvalidOperator("unknown join type %q", how)
	}
	lcol, ok := f.Column(leftKey)
	if !ok {
		return nil, errColumnNotFound(leftKey)
	}
	rcol, ok := other.Column(rightKey)
	if !ok {
		return nil, errColumnNotFound(rightKey)
	}
	if lcol.kind.Category() != rcol.kind.Category() {
		return nil, errTypeMismatch("join keys %q (%s) and %q (%s) have different categories",
			leftKey, lcol.kind.Category(), rightKey, rcol.kind.Category())
	}

	// Index the right side; first match wins on duplicate keys.
	rightIdx := make(map[string]int, rcol.Len())
	for i := 0; i < rcol.Len(); i++ {
		key := FormatValue(rcol.Value(i))
		if _, dup := rightIdx[key]; !dup {
			rightIdx[key] = i
		}
	}

	var leftRows, rightRows []int // rightRows[i] == -1 marks an unmatched left row
	for i := 0; i < lcol.Len(); i++ {
		j, matched := rightIdx[FormatValue(lcol.Value(i))]
		if matched {
			leftRows = append(leftRows, i)
			rightRows = append(rightRows, j)
		} else if how == JoinLeft {
			leftRows = append(leftRows, i)
			rightRows = append(rightRows, -1)
		}
	}

	out := make([]Series, 0, f.NumCols()+other.NumCols()-1)
	for _, c := range f.cols {
		out = append(out, c.take(leftRows))
	}

	taken := make(map[string]bool, f.NumCols())
	for _, name := range f.Columns() {
		taken[name] = true
	}
	for _, c := range other.cols {
		if c.name == rightKey {
			continue
		}
		name := c.name
		if taken[name] {
			name += "_right"
		}
		out = append(out, c.takeOrZero(rightRows).rename(name))
	}

	result, err := New(out...)
	if err != nil {
		return nil, errInternal("join produced invalid frame: %v", err)
	}
	return result, nil
}

// takeOrZero is take with -1 entries producing the kind's zero value.
func (s Series) takeOrZero(idx []int) Series {
	safe := make([]int, len(idx))
	missing := false
	for i, j := range idx {
		if j < 0 {
			safe[i] = 0
			missing = true
		} else {
			safe[i] = j
		}
	}
	if s.Len() == 0 {
		// no rows to gather from; produce an all-zero column
		return zeroSeries(s.name, s.kind, len(idx))
	}
	out := s.take(safe)
	if !missing {
		return out
	}
	for i, j := range idx {
		if j >= 0 {
			continue
		}
		switch out.kind {
		case KindInt:
			out.ints[i] = 0
		case KindFloat:
			out.floats[i] = 0
		case KindString:
			out.strs[i] = ""
		case KindBool:
			out.bools[i] = false
		case KindTime:
			out.times[i] = zeroTime
		}
	}
	return out
}

func zeroSeries(name string, kind Kind, n int) Series {
	switch kind {
	case KindInt:
		return NewIntSeries(name, make([]int64, n))
	case KindFloat:
		return NewFloatSeries(name, make([]float64, n))
	case KindBool:
		return NewBoolSeries(name, make([]bool, n))
	case KindTime:
		return NewTimeSeries(name, make([]time.Time, n))
	default:
		return NewStringSeries(name, make([]string, n))
	}
}
