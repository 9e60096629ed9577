package jobgraph

import (
	"time"

	"github.com/vk/metasched/internal/depend"
	"github.com/vk/metasched/internal/suite"
)

// chainKey identifies a suite node at an absolute cycle.
type chainKey struct {
	cycle int64
	path  depend.Path
}

// chainWalk is the state of one CheckDependencyChains call.
type chainWalk struct {
	g        *Graph
	onStack  map[chainKey]bool
	verified map[chainKey]bool
	stack    []string
}

// CheckDependencyChains follows every node's dependencies in cycle through
// the suite definition, across earlier and later cycles, and returns a
// *SelfReferenceError if a node can only start or complete after itself.
//
// A node depends on the nodes named in its own trigger and completion
// expressions and in its ancestors' triggers. Waiting on a family's
// completion or failure also means waiting on everything inside it.
// References to cycles outside the clock end the chain.
func (g *Graph) CheckDependencyChains(cycle time.Time) error {
	if !g.clock.Contains(cycle) {
		return ErrOutsideClock
	}
	w := &chainWalk{
		g:        g,
		onStack:  make(map[chainKey]bool),
		verified: make(map[chainKey]bool),
	}

	// Chains verified by earlier calls need not be walked again.
	g.chainMu.Lock()
	for k := range g.verifiedChains {
		w.verified[k] = true
	}
	g.chainMu.Unlock()

	for _, v := range allViews(g.tree.Children()) {
		if err := w.visit(cycle, v); err != nil {
			return err
		}
	}

	g.chainMu.Lock()
	for k := range w.verified {
		g.verifiedChains[k] = true
	}
	g.chainMu.Unlock()
	return nil
}

func (w *chainWalk) visit(cycle time.Time, v suite.View) error {
	key := chainKey{cycle: cycleKey(cycle), path: v.Path()}
	if w.verified[key] {
		return nil
	}
	if w.onStack[key] {
		return w.fail(cycle, v.Path(), false)
	}
	if len(w.stack) >= w.g.opts.MaxDepth {
		return w.fail(cycle, v.Path(), true)
	}

	w.onStack[key] = true
	w.stack = append(w.stack, v.Path().Name+"@"+cycle.Format(time.RFC3339))

	for _, dep := range w.dependencies(v) {
		target := cycle.Add(dep.path.Offset)
		if !w.g.clock.Contains(target) {
			continue
		}
		tv, ok := w.g.tree.Lookup(dep.path)
		if !ok {
			continue
		}
		if err := w.visit(target, tv); err != nil {
			return err
		}
		if dep.inside && tv.IsFamily() {
			for _, child := range allViews(tv.Children()) {
				if err := w.visit(target, child); err != nil {
					return err
				}
			}
		}
	}

	w.stack = w.stack[:len(w.stack)-1]
	delete(w.onStack, key)
	w.verified[key] = true
	return nil
}

func (w *chainWalk) fail(cycle time.Time, path depend.Path, tooDeep bool) error {
	return &SelfReferenceError{
		Path:    path,
		Cycle:   cycle,
		Chain:   append([]string(nil), w.stack...),
		TooDeep: tooDeep,
	}
}

// chainDep is one outgoing edge: a referenced path and whether the
// reference also waits on the target's descendants.
type chainDep struct {
	path   depend.Path
	inside bool
}

func (w *chainWalk) dependencies(v suite.View) []chainDep {
	exprs := []depend.Dependency{v.TriggerDependency(), v.CompletionDependency()}
	for p, ok := v.Path().Parent(); ok && !p.IsRoot(); p, ok = p.Parent() {
		if anc, found := w.g.tree.Lookup(p); found {
			exprs = append(exprs, anc.TriggerDependency())
		}
	}

	var deps []chainDep
	for _, expr := range exprs {
		for _, leaf := range depend.Leaves(expr) {
			switch leaf := leaf.(type) {
			case depend.State:
				deps = append(deps, chainDep{path: leaf.Target, inside: leaf.Status != depend.Running})
			case depend.Event:
				deps = append(deps, chainDep{path: leaf.Task})
			}
		}
	}
	return deps
}

// allViews flattens views and their descendants in pre-order.
func allViews(views []suite.View) []suite.View {
	var out []suite.View
	for _, v := range views {
		out = append(out, v)
		out = append(out, allViews(v.Children())...)
	}
	return out
}
