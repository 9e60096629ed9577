package depend

import (
	"fmt"
	"time"
)

// Copy returns a deep copy of d. Leaves are values, so only connective
// operand slices are duplicated.
func Copy(d Dependency) Dependency {
	switch d := d.(type) {
	case And:
		return And{Operands: copyOperands(d.Operands, Copy)}
	case Or:
		return Or{Operands: copyOperands(d.Operands, Copy)}
	case Not:
		return Not{Operand: Copy(d.Operand)}
	default:
		return d
	}
}

// ShiftTime returns a copy of d with every time-relative reference moved by
// dt. Constants are unchanged.
func ShiftTime(d Dependency, dt time.Duration) Dependency {
	shift := func(child Dependency) Dependency { return ShiftTime(child, dt) }
	switch d := d.(type) {
	case Constant:
		return d
	case And:
		return And{Operands: copyOperands(d.Operands, shift)}
	case Or:
		return Or{Operands: copyOperands(d.Operands, shift)}
	case Not:
		return Not{Operand: ShiftTime(d.Operand, dt)}
	case State:
		return State{Target: d.Target.Shift(dt), Status: d.Status}
	case Event:
		return Event{Task: d.Task.Shift(dt), Name: d.Name}
	case CycleExists:
		return CycleExists{Offset: d.Offset + dt}
	case TaskExists:
		return TaskExists{Target: d.Target.Shift(dt)}
	default:
		panic(fmt.Sprintf("depend: unknown dependency type %T", d))
	}
}

func copyOperands(ops []Dependency, f func(Dependency) Dependency) []Dependency {
	out := make([]Dependency, len(ops))
	for i, op := range ops {
		out[i] = f(op)
	}
	return out
}

// Equal reports structural equality. Operand order matters.
func Equal(a, b Dependency) bool {
	switch a := a.(type) {
	case And:
		b, ok := b.(And)
		return ok && equalOperands(a.Operands, b.Operands)
	case Or:
		b, ok := b.(Or)
		return ok && equalOperands(a.Operands, b.Operands)
	case Not:
		b, ok := b.(Not)
		return ok && Equal(a.Operand, b.Operand)
	default:
		// Leaves and constants are comparable values.
		return a == b
	}
}

func equalOperands(a, b []Dependency) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Key returns a canonical string for d, suitable as a map key. Two
// expressions have the same key exactly when they are Equal.
func Key(d Dependency) string {
	return d.String()
}

// IsLeaf reports whether d has no sub-expressions.
func IsLeaf(d Dependency) bool {
	switch d.(type) {
	case And, Or, Not:
		return false
	}
	return true
}

// Complementary reports whether one of a, b is the negation of the other.
func Complementary(a, b Dependency) bool {
	if na, ok := a.(Not); ok && Equal(na.Operand, b) {
		return true
	}
	if nb, ok := b.(Not); ok && Equal(nb.Operand, a) {
		return true
	}
	return false
}

// --- Operator-style combinators ---

// AndOf combines two expressions the way `a & b` does: False absorbs, True
// is the identity, and an And on the left absorbs the right hand side.
func AndOf(a, b Dependency) Dependency {
	if a == False || b == False {
		return False
	}
	if b == True {
		return a
	}
	if a == True {
		return b
	}
	if left, ok := a.(And); ok {
		ops := append([]Dependency(nil), left.Operands...)
		if right, ok := b.(And); ok {
			return And{Operands: append(ops, right.Operands...)}
		}
		return And{Operands: append(ops, b)}
	}
	return And{Operands: []Dependency{a, b}}
}

// OrOf combines two expressions the way `a | b` does: True absorbs, False
// is the identity, and an Or on the left absorbs the right hand side.
func OrOf(a, b Dependency) Dependency {
	if a == True || b == True {
		return True
	}
	if b == False {
		return a
	}
	if a == False {
		return b
	}
	if left, ok := a.(Or); ok {
		ops := append([]Dependency(nil), left.Operands...)
		if right, ok := b.(Or); ok {
			return Or{Operands: append(ops, right.Operands...)}
		}
		return Or{Operands: append(ops, b)}
	}
	return Or{Operands: []Dependency{a, b}}
}

// Negate returns `~d`, folding constants and double negation.
func Negate(d Dependency) Dependency {
	switch d := d.(type) {
	case Constant:
		return !d
	case Not:
		return d.Operand
	}
	return Not{Operand: d}
}

// AllOf folds AndOf over ds, starting from True.
func AllOf(ds ...Dependency) Dependency {
	var acc Dependency = True
	for _, d := range ds {
		acc = AndOf(acc, d)
	}
	return acc
}

// AnyOf folds OrOf over ds, starting from False.
func AnyOf(ds ...Dependency) Dependency {
	var acc Dependency = False
	for _, d := range ds {
		acc = OrOf(acc, d)
	}
	return acc
}

// --- Traversal ---

// Walk calls fn for d and every sub-expression in pre-order. Returning false
// from fn skips the children of that node.
func Walk(d Dependency, fn func(Dependency) bool) {
	if !fn(d) {
		return
	}
	switch d := d.(type) {
	case And:
		for _, op := range d.Operands {
			Walk(op, fn)
		}
	case Or:
		for _, op := range d.Operands {
			Walk(op, fn)
		}
	case Not:
		Walk(d.Operand, fn)
	}
}

// Leaves returns every leaf of d other than constants, in pre-order.
func Leaves(d Dependency) []Dependency {
	var out []Dependency
	Walk(d, func(n Dependency) bool {
		if IsLeaf(n) {
			if _, isConst := n.(Constant); !isConst {
				out = append(out, n)
			}
		}
		return true
	})
	return out
}

// References returns the node paths referred to by State, Event and
// TaskExists leaves, in pre-order. Event leaves yield the owning task.
func References(d Dependency) []Path {
	var out []Path
	for _, leaf := range Leaves(d) {
		switch leaf := leaf.(type) {
		case State:
			out = append(out, leaf.Target)
		case Event:
			out = append(out, leaf.Task)
		case TaskExists:
			out = append(out, leaf.Target)
		}
	}
	return out
}
