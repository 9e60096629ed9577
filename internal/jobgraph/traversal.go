package jobgraph

import "time"

// DepthFirstTraversal walks the nodes of cycle in definition pre-order and
// returns them in visiting order. A node for which skip returns true is
// neither visited nor descended into. enter is called before a node's
// children are walked and exit after; either may be nil. Each node is
// visited at most once.
func (g *Graph) DepthFirstTraversal(cycle time.Time, skip func(*Node) bool, enter, exit func(*Node)) ([]*Node, error) {
	cn, err := g.lookupCycle(cycle)
	if err != nil {
		return nil, err
	}

	var out []*Node
	seen := make(map[*Node]struct{}, len(cn.order))
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			if skip != nil && skip(n) {
				continue
			}
			if enter != nil {
				enter(n)
			}
			out = append(out, n)
			walk(n.Children)
			if exit != nil {
				exit(n)
			}
		}
	}
	walk(cn.roots)
	return out, nil
}

// SkipDecided is a skip function that hides nodes with a verdict: those that
// can never complete and those that are always complete.
func SkipDecided(n *Node) bool {
	return !n.MightComplete() || n.IsAlwaysComplete()
}
