package algebra

import (
	"slices"

	"github.com/vk/metasched/internal/depend"
)

// Simplify returns an expression equivalent to d whose Complexity is never
// higher. The input is not modified. Simplify is stable: applying it to its
// own result returns an equal expression.
//
// Rewrites applied, innermost first:
//   - nested connectives of the same kind are flattened;
//   - True and False are folded away or absorb their parent;
//   - runs of adjacent Or operands inside an And are factored on their
//     common prefix and suffix when that is cheaper;
//   - duplicate operands are dropped and X with ~X cancels;
//   - single-operand connectives collapse, double negation is removed;
//   - ~(a & b) and ~(a | b) are pushed inward when that is cheaper.
func Simplify(d depend.Dependency) depend.Dependency {
	cur := depend.Copy(d)
	for {
		next := simplifyOnce(cur)
		if depend.Equal(next, cur) || Complexity(next) >= Complexity(cur) {
			return next
		}
		cur = next
	}
}

func simplifyOnce(d depend.Dependency) depend.Dependency {
	return deMorgan(simplifyNoDeMorgan(d))
}

func simplifyNoDeMorgan(d depend.Dependency) depend.Dependency {
	switch t := d.(type) {
	case depend.And:
		d = simplifySequence(t.Operands, false)
	case depend.Or:
		d = simplifySequence(t.Operands, true)
	}

	n, ok := d.(depend.Not)
	if !ok {
		return d
	}
	switch inner := simplifyOnce(n.Operand).(type) {
	case depend.Not:
		return inner.Operand
	case depend.Constant:
		return !inner
	default:
		return depend.Not{Operand: inner}
	}
}

// deMorgan tries the dual form of a negated connective. The alternative is
// simplified without another De Morgan step at its root and kept only if
// it is strictly cheaper.
func deMorgan(d depend.Dependency) depend.Dependency {
	n, ok := d.(depend.Not)
	if !ok {
		return d
	}

	var alt depend.Dependency
	switch inner := n.Operand.(type) {
	case depend.And:
		alt = simplifyNoDeMorgan(depend.Or{Operands: negateEach(inner.Operands)})
	case depend.Or:
		alt = simplifyNoDeMorgan(depend.And{Operands: negateEach(inner.Operands)})
	default:
		return d
	}

	if Complexity(alt) < Complexity(d) {
		return alt
	}
	return d
}

func negateEach(ops []depend.Dependency) []depend.Dependency {
	out := make([]depend.Dependency, len(ops))
	for i, op := range ops {
		out[i] = depend.Not{Operand: op}
	}
	return out
}

// simplifySequence simplifies the operands of an And (isOr false) or an Or
// (isOr true) and returns the rebuilt expression.
func simplifySequence(operands []depend.Dependency, isOr bool) depend.Dependency {
	ops := slices.Clone(operands)

	// Annihilator and identity of this connective.
	zero, identity := depend.False, depend.True
	if isOr {
		zero, identity = depend.True, depend.False
	}

	for expanded := true; expanded; {
		expanded = false

		kept := ops[:0]
		for _, op := range ops {
			op = simplifyOnce(op)
			if op == zero {
				return zero
			}
			if op == identity {
				continue
			}
			kept = append(kept, op)
		}
		ops = kept
		if len(ops) == 0 {
			return identity
		}

		for i := 0; i < len(ops); {
			if inner, ok := sameKindOperands(ops[i], isOr); ok {
				ops = slices.Concat(ops[:i], inner, ops[i+1:])
				expanded = true
				continue
			}
			if !isOr {
				if _, ok := ops[i].(depend.Or); ok {
					j := i
					for j < len(ops) {
						if _, ok := ops[j].(depend.Or); !ok {
							break
						}
						j++
					}
					if j > i+1 {
						if merged := andMergeOrs(ops[i:j]); merged != nil {
							ops = slices.Concat(ops[:i], []depend.Dependency{merged}, ops[j:])
							expanded = true
						}
					}
				}
			}
			i++
		}
	}

	for i := 0; i < len(ops); i++ {
		for j := i + 1; j < len(ops); {
			if depend.Equal(ops[i], ops[j]) {
				ops = slices.Delete(ops, j, j+1)
				continue
			}
			if depend.Complementary(ops[i], ops[j]) {
				return zero
			}
			j++
		}
	}

	if len(ops) == 1 {
		return ops[0]
	}
	if isOr {
		return depend.Or{Operands: ops}
	}
	return depend.And{Operands: ops}
}

func sameKindOperands(d depend.Dependency, isOr bool) ([]depend.Dependency, bool) {
	if isOr {
		if o, ok := d.(depend.Or); ok {
			return o.Operands, true
		}
		return nil, false
	}
	if a, ok := d.(depend.And); ok {
		return a.Operands, true
	}
	return nil, false
}

// andMergeOrs factors the conjunction of several disjunctions on their
// common leading and trailing operands:
//
//	(a|x|b) & (a|y|b)  ->  a | (x & y) | b
//
// It returns nil when nothing is shared or the result is not cheaper.
func andMergeOrs(ors []depend.Dependency) depend.Dependency {
	lists := make([][]depend.Dependency, len(ors))
	minLen := -1
	for i, o := range ors {
		lists[i] = o.(depend.Or).Operands
		if minLen < 0 || len(lists[i]) < minLen {
			minLen = len(lists[i])
		}
	}

	prefix := 0
	for prefix < minLen && allEqualAt(lists, func(l []depend.Dependency) depend.Dependency { return l[prefix] }) {
		prefix++
	}
	before := lists[0][:prefix]
	for i := range lists {
		lists[i] = lists[i][prefix:]
	}
	minLen -= prefix

	suffix := 0
	for suffix < minLen && allEqualAt(lists, func(l []depend.Dependency) depend.Dependency { return l[len(l)-1-suffix] }) {
		suffix++
	}
	after := lists[0][len(lists[0])-suffix:]
	for i := range lists {
		lists[i] = lists[i][:len(lists[i])-suffix]
	}

	if prefix == 0 && suffix == 0 {
		return nil
	}

	merged := orOrSingle(before)

	// An exhausted disjunction is False, which makes the whole middle False.
	haveMiddle := true
	for _, l := range lists {
		if len(l) == 0 {
			haveMiddle = false
			break
		}
	}
	if haveMiddle {
		var middle depend.Dependency = depend.True
		for _, l := range lists {
			middle = depend.AndOf(middle, orOrSingle(l))
		}
		merged = depend.OrOf(merged, middle)
	}
	if len(after) > 0 {
		merged = depend.OrOf(merged, orOrSingle(after))
	}

	if Complexity(merged) < Complexity(depend.And{Operands: ors}) {
		return merged
	}
	return nil
}

func allEqualAt(lists [][]depend.Dependency, at func([]depend.Dependency) depend.Dependency) bool {
	first := at(lists[0])
	for _, l := range lists[1:] {
		if !depend.Equal(first, at(l)) {
			return false
		}
	}
	return true
}

func orOrSingle(ops []depend.Dependency) depend.Dependency {
	switch len(ops) {
	case 0:
		return depend.False
	case 1:
		return ops[0]
	default:
		return depend.Or{Operands: slices.Clone(ops)}
	}
}
