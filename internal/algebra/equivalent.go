package algebra

import (
	"fmt"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"github.com/vk/metasched/internal/depend"
)

// Equivalent reports whether a and b agree under every assignment of their
// leaves. Each distinct leaf is a free variable, so relationships between
// leaves (for example two states of the same task) are not taken into
// account.
func Equivalent(a, b depend.Dependency) bool {
	c := logic.NewC()
	vars := make(map[string]z.Lit)
	la := encode(c, a, vars)
	lb := encode(c, b, vars)

	if la == lb {
		return true
	}
	// a XOR b; constants were folded while encoding.
	diff := or2(c, and2(c, la, lb.Not()), and2(c, la.Not(), lb))
	switch diff {
	case c.F:
		return true
	case c.T:
		return false
	}

	g := gini.New()
	c.ToCnf(g)
	g.Assume(diff)
	return g.Solve() != 1
}

// Satisfiable reports whether some assignment of the leaves makes d true.
func Satisfiable(d depend.Dependency) bool {
	c := logic.NewC()
	lit := encode(c, d, make(map[string]z.Lit))
	switch lit {
	case c.T:
		return true
	case c.F:
		return false
	}
	g := gini.New()
	c.ToCnf(g)
	g.Assume(lit)
	return g.Solve() == 1
}

func encode(c *logic.C, d depend.Dependency, vars map[string]z.Lit) z.Lit {
	switch d := d.(type) {
	case depend.Constant:
		if d {
			return c.T
		}
		return c.F
	case depend.Not:
		return encode(c, d.Operand, vars).Not()
	case depend.And:
		acc := c.T
		for _, op := range d.Operands {
			acc = and2(c, acc, encode(c, op, vars))
		}
		return acc
	case depend.Or:
		acc := c.F
		for _, op := range d.Operands {
			acc = or2(c, acc, encode(c, op, vars))
		}
		return acc
	case depend.State, depend.Event, depend.CycleExists, depend.TaskExists:
		key := depend.Key(d)
		lit, ok := vars[key]
		if !ok {
			lit = c.Lit()
			vars[key] = lit
		}
		return lit
	default:
		panic(fmt.Sprintf("algebra: unknown dependency type %T", d))
	}
}

func and2(c *logic.C, a, b z.Lit) z.Lit {
	switch {
	case a == c.F || b == c.F:
		return c.F
	case a == c.T:
		return b
	case b == c.T:
		return a
	}
	return c.And(a, b)
}

func or2(c *logic.C, a, b z.Lit) z.Lit {
	switch {
	case a == c.T || b == c.T:
		return c.T
	case a == c.F:
		return b
	case b == c.F:
		return a
	}
	return c.Or(a, b)
}
