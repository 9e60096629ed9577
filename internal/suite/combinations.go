package suite

// Dimension is a named, ordered index set of a task array.
type Dimension struct {
	Name   string
	Values []string
}

// Index is one coordinate of a combination.
type Index struct {
	Dimension string
	Position  int
	Value     string
}

// Combinations returns the cartesian product of dims. The last dimension
// varies fastest. No dimensions yield one empty combination; a dimension
// with no values yields none.
func Combinations(dims []Dimension) [][]Index {
	out := [][]Index{{}}
	for _, dim := range dims {
		var next [][]Index
		for _, prefix := range out {
			for pos, value := range dim.Values {
				combo := make([]Index, len(prefix), len(prefix)+1)
				copy(combo, prefix)
				next = append(next, append(combo, Index{Dimension: dim.Name, Position: pos, Value: value}))
			}
		}
		out = next
	}
	return out
}
