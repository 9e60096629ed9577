package jobgraph

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/metasched/internal/algebra"
	"github.com/vk/metasched/internal/ctxlog"
	"github.com/vk/metasched/internal/depend"
)

// Stats summarizes one SimplifyCycle call.
type Stats struct {
	Passes         int
	Nodes          int
	AlwaysComplete int
	NeverRun       int
}

// Open is the number of nodes without a verdict.
func (s Stats) Open() int {
	return s.Nodes - s.AlwaysComplete - s.NeverRun
}

// verdicts are the solver's conclusions for one cycle, keyed by zero-offset
// path. A path is in at most one set.
type verdicts struct {
	alwaysComplete map[depend.Path]struct{}
	neverRun       map[depend.Path]struct{}
}

func newVerdicts() *verdicts {
	return &verdicts{
		alwaysComplete: make(map[depend.Path]struct{}),
		neverRun:       make(map[depend.Path]struct{}),
	}
}

func (v *verdicts) isComplete(p depend.Path) bool {
	_, ok := v.alwaysComplete[p]
	return ok
}

func (v *verdicts) isNeverRun(p depend.Path) bool {
	_, ok := v.neverRun[p]
	return ok
}

func (v *verdicts) decided(p depend.Path) bool {
	return v.isComplete(p) || v.isNeverRun(p)
}

// markNeverRun records n and every undecided descendant as never running.
func (v *verdicts) markNeverRun(n *Node) {
	v.neverRun[n.Path] = struct{}{}
	n.ForceNeverRun()
	for _, c := range n.Children {
		if !v.decided(c.Path) {
			v.markNeverRun(c)
		}
	}
}

// markAlwaysComplete records n and every undecided descendant as complete.
func (v *verdicts) markAlwaysComplete(n *Node) {
	v.alwaysComplete[n.Path] = struct{}{}
	n.ForceAlwaysComplete()
	for _, c := range n.Children {
		if !v.decided(c.Path) {
			v.markAlwaysComplete(c)
		}
	}
}

// SimplifyCycle runs the solver on cycle until no node changes.
func (g *Graph) SimplifyCycle(ctx context.Context, cycle time.Time) (Stats, error) {
	logger := ctxlog.FromContext(ctx)

	cn, err := g.lookupCycle(cycle)
	if err != nil {
		return Stats{}, err
	}

	v := newVerdicts()
	for _, n := range cn.order {
		if n.vetoed && !v.decided(n.Path) {
			v.markNeverRun(n)
		}
	}

	env := algebra.Env{
		Schedule:   g.clock,
		Cycle:      cn.cycle,
		Recurs:     g.recurs,
		IsComplete: v.isComplete,
		IsNeverRun: v.isNeverRun,
	}

	// Every productive pass either reaches a new verdict or propagates one,
	// so the pass count is bounded by the node count.
	limit := 4*len(cn.order) + 4
	stats := Stats{Nodes: len(cn.order)}

	for changed := true; changed; {
		stats.Passes++
		if stats.Passes > limit {
			return stats, fmt.Errorf("%w after %d passes in cycle %s", ErrNoFixedPoint, limit, cycle.Format(time.RFC3339))
		}
		changed = false

		for _, n := range cn.order {
			if v.decided(n.Path) {
				continue
			}

			nodeChanged, err := n.assume(env, g.opts.Verify)
			if err != nil {
				return stats, err
			}
			changed = changed || nodeChanged

			switch {
			case n.CanNeverComplete():
				v.markNeverRun(n)
				changed = true
			case n.IsAlwaysComplete():
				v.markAlwaysComplete(n)
				changed = true
			case n.IsFamily():
				if g.aggregateFamily(n, v) {
					changed = true
				}
			}
		}
		logger.Debug("Solver pass finished.", "cycle", cycle, "pass", stats.Passes,
			"always_complete", len(v.alwaysComplete), "never_run", len(v.neverRun))
	}

	stats.AlwaysComplete = len(v.alwaysComplete)
	stats.NeverRun = len(v.neverRun)
	logger.Debug("Cycle simplified.", "cycle", cycle, "passes", stats.Passes, "open", stats.Open())
	return stats, nil
}

// aggregateFamily derives a family verdict from its children's verdicts. A
// family with no children is complete.
func (g *Graph) aggregateFamily(n *Node, v *verdicts) bool {
	complete, never := 0, 0
	for _, c := range n.Children {
		switch {
		case v.isComplete(c.Path):
			complete++
		case v.isNeverRun(c.Path):
			never++
		}
	}
	switch len(n.Children) {
	case complete:
		v.markAlwaysComplete(n)
		return true
	case never:
		v.markNeverRun(n)
		return true
	}
	return false
}
