package jobgraph

import (
	"time"

	"github.com/vk/metasched/internal/depend"
	"github.com/vk/metasched/internal/suite"
)

// expander is the state of one Expand call.
type expander struct {
	g       *Graph
	onStack map[chainKey]bool
	depth   int
}

// Expand rewrites d, an expression of a node in cycle, for schedulers that
// only understand task states:
//   - waiting for a task to complete also accepts the task's completion
//     condition, itself expanded;
//   - waiting for a family to run becomes waiting for any of its tasks to run;
//   - references to nodes missing from the suite become True.
//
// A completion condition that leads back to itself yields a
// *SelfReferenceError.
func (g *Graph) Expand(cycle time.Time, d depend.Dependency) (depend.Dependency, error) {
	e := &expander{g: g, onStack: make(map[chainKey]bool)}
	return e.expand(cycle, d)
}

func (e *expander) expand(cycle time.Time, d depend.Dependency) (depend.Dependency, error) {
	switch d := d.(type) {
	case depend.And:
		ops, err := e.expandAll(cycle, d.Operands)
		if err != nil {
			return nil, err
		}
		return depend.And{Operands: ops}, nil
	case depend.Or:
		ops, err := e.expandAll(cycle, d.Operands)
		if err != nil {
			return nil, err
		}
		return depend.Or{Operands: ops}, nil
	case depend.Not:
		inner, err := e.expand(cycle, d.Operand)
		if err != nil {
			return nil, err
		}
		return depend.Not{Operand: inner}, nil
	case depend.State:
		return e.expandState(cycle, d)
	default:
		return d, nil
	}
}

func (e *expander) expandAll(cycle time.Time, ops []depend.Dependency) ([]depend.Dependency, error) {
	out := make([]depend.Dependency, len(ops))
	for i, op := range ops {
		x, err := e.expand(cycle, op)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func (e *expander) expandState(cycle time.Time, d depend.State) (depend.Dependency, error) {
	view, ok := e.g.tree.Lookup(d.Target)
	if !ok {
		return depend.True, nil
	}

	if view.IsFamily() && d.Status == depend.Running {
		var acc depend.Dependency = depend.False
		for _, task := range tasksOf(view) {
			acc = depend.OrOf(acc, depend.State{Target: task.Path().Shift(d.Target.Offset), Status: depend.Running})
		}
		return acc, nil
	}

	if !view.IsTask() || d.Status != depend.Completed {
		return d, nil
	}
	complete := view.CompletionDependency()
	if complete == depend.False {
		return d, nil
	}

	targetCycle := cycle.Add(d.Target.Offset)
	key := chainKey{cycle: cycleKey(targetCycle), path: d.Target.Zero()}
	if e.onStack[key] || e.depth >= e.g.opts.MaxDepth {
		return nil, &SelfReferenceError{Path: d.Target.Zero(), Cycle: targetCycle, TooDeep: !e.onStack[key]}
	}

	e.onStack[key] = true
	e.depth++
	inner, err := e.expand(targetCycle, complete)
	e.depth--
	delete(e.onStack, key)
	if err != nil {
		return nil, err
	}
	return depend.OrOf(d, depend.ShiftTime(inner, d.Target.Offset)), nil
}

// tasksOf lists the tasks below a family in pre-order.
func tasksOf(v suite.View) []suite.View {
	var out []suite.View
	for _, child := range allViews(v.Children()) {
		if child.IsTask() {
			out = append(out, child)
		}
	}
	return out
}
