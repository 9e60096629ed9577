package jobgraph

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vk/metasched/internal/ctxlog"
	"github.com/vk/metasched/internal/depend"
	"github.com/vk/metasched/internal/schedule"
	"github.com/vk/metasched/internal/suite"
)

// DefaultMaxDepth bounds dependency chain walks.
const DefaultMaxDepth = 100000

// Options tune a Graph.
type Options struct {
	// MaxDepth bounds the length of dependency chains followed by
	// CheckDependencyChains and Expand. Zero means DefaultMaxDepth.
	MaxDepth int
	// Verify checks every simplification made by the solver with a SAT
	// solver. It is slow and meant for testing.
	Verify bool
}

// Graph holds the per-cycle instantiations of a suite.
type Graph struct {
	tree  suite.Tree
	clock schedule.Clock
	opts  Options

	mu     sync.RWMutex
	cycles map[int64]*cycleNodes

	chainMu        sync.Mutex
	verifiedChains map[chainKey]bool
}

// cycleNodes is the node set of one cycle, in definition pre-order.
type cycleNodes struct {
	cycle  time.Time
	roots  []*Node
	order  []*Node
	byPath map[depend.Path]*Node
}

// New creates an empty graph over tree.
func New(tree suite.Tree, opts Options) *Graph {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	return &Graph{
		tree:   tree,
		clock:  tree.Schedule(),
		opts:   opts,
		cycles: make(map[int64]*cycleNodes),

		verifiedChains: make(map[chainKey]bool),
	}
}

func cycleKey(t time.Time) int64 { return t.UnixNano() }

// Clock returns the suite clock the graph was built on.
func (g *Graph) Clock() schedule.Clock { return g.clock }

// AddCycle instantiates every suite node for cycle. Adding a cycle twice is
// a no-op.
func (g *Graph) AddCycle(ctx context.Context, cycle time.Time) error {
	logger := ctxlog.FromContext(ctx)

	if !g.clock.Contains(cycle) {
		return fmt.Errorf("%w: %s", ErrOutsideClock, cycle.Format(time.RFC3339))
	}

	g.mu.RLock()
	_, exists := g.cycles[cycleKey(cycle)]
	g.mu.RUnlock()
	if exists {
		logger.Debug("Cycle already added.", "cycle", cycle)
		return nil
	}

	cn := &cycleNodes{cycle: cycle, byPath: make(map[depend.Path]*Node)}
	var add func(views []suite.View, parent *Node) []*Node
	add = func(views []suite.View, parent *Node) []*Node {
		nodes := make([]*Node, 0, len(views))
		for _, v := range views {
			n := newNode(v, cycle, parent)
			cn.order = append(cn.order, n)
			cn.byPath[n.Path] = n
			n.Children = add(v.Children(), n)
			nodes = append(nodes, n)
		}
		return nodes
	}
	cn.roots = add(g.tree.Children(), nil)

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.cycles[cycleKey(cycle)]; exists {
		return nil
	}
	g.cycles[cycleKey(cycle)] = cn
	logger.Debug("Cycle added.", "cycle", cycle, "nodes", len(cn.order))
	return nil
}

func (g *Graph) lookupCycle(cycle time.Time) (*cycleNodes, error) {
	if !g.clock.Contains(cycle) {
		return nil, fmt.Errorf("%w: %s", ErrOutsideClock, cycle.Format(time.RFC3339))
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	cn, ok := g.cycles[cycleKey(cycle)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCycle, cycle.Format(time.RFC3339))
	}
	return cn, nil
}

// Cycles returns the added cycles in time order.
func (g *Graph) Cycles() []time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]time.Time, 0, len(g.cycles))
	for _, cn := range g.cycles {
		out = append(out, cn.cycle)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// GetNode returns the node at path relative to cycle: the node's own cycle
// is cycle plus path.Offset.
func (g *Graph) GetNode(cycle time.Time, path depend.Path) (*Node, error) {
	cn, err := g.lookupCycle(cycle.Add(path.Offset))
	if err != nil {
		return nil, err
	}
	n, ok := cn.byPath[path.Zero()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, path.Name)
	}
	return n, nil
}

// ForceNeverRun vetoes the node at path in cycle before simplification. The
// solver treats it, and everything below it, as never running.
func (g *Graph) ForceNeverRun(cycle time.Time, path depend.Path) error {
	n, err := g.GetNode(cycle, path)
	if err != nil {
		return err
	}
	n.ForceNeverRun()
	n.vetoed = true
	return nil
}

// MightComplete reports whether the node at path could still complete.
func (g *Graph) MightComplete(cycle time.Time, path depend.Path) (bool, error) {
	n, err := g.GetNode(cycle, path)
	if err != nil {
		return false, err
	}
	return n.MightComplete(), nil
}

// Nodes returns the nodes of cycle in definition pre-order.
func (g *Graph) Nodes(cycle time.Time) ([]*Node, error) {
	cn, err := g.lookupCycle(cycle)
	if err != nil {
		return nil, err
	}
	return append([]*Node(nil), cn.order...), nil
}

// recurs is the TaskExists predicate: whether the suite node at target
// runs in cycle.
func (g *Graph) recurs(target depend.Path, cycle time.Time) bool {
	v, ok := g.tree.Lookup(target)
	return ok && v.Recurs(cycle)
}
