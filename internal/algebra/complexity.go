package algebra

import "github.com/vk/metasched/internal/depend"

// connectiveWeight penalizes nesting so flatter trees are preferred.
const connectiveWeight = 1.2

// Complexity scores an expression: every leaf costs 1, a Not costs 1.2 times
// its operand, and an And or Or costs 1.2 times the sum of its operands.
func Complexity(d depend.Dependency) float64 {
	switch d := d.(type) {
	case depend.Not:
		return connectiveWeight * Complexity(d.Operand)
	case depend.And:
		return connectiveWeight * sumComplexity(d.Operands)
	case depend.Or:
		return connectiveWeight * sumComplexity(d.Operands)
	default:
		return 1
	}
}

func sumComplexity(ops []depend.Dependency) float64 {
	var total float64
	for _, op := range ops {
		total += Complexity(op)
	}
	return total
}
