package jobgraph

import (
	"fmt"
	"time"

	"github.com/vk/metasched/internal/algebra"
	"github.com/vk/metasched/internal/depend"
	"github.com/vk/metasched/internal/suite"
)

// Node is one suite node instantiated for one cycle. Trigger and Complete
// are owned by the node and rewritten by the solver.
type Node struct {
	Path     depend.Path
	Cycle    time.Time
	Kind     suite.Kind
	Trigger  depend.Dependency
	Complete depend.Dependency
	Time     time.Duration
	Children []*Node
	Parent   *Node

	view   suite.View
	vetoed bool
}

func newNode(view suite.View, cycle time.Time, parent *Node) *Node {
	kind := suite.KindTask
	if view.IsFamily() {
		kind = suite.KindFamily
	}
	return &Node{
		Path:     view.Path(),
		Cycle:    cycle,
		Kind:     kind,
		Trigger:  view.TriggerDependency(),
		Complete: view.CompletionDependency(),
		Time:     view.TimeOffset(),
		Parent:   parent,
		view:     view,
	}
}

func (n *Node) IsFamily() bool { return n.Kind == suite.KindFamily }

func (n *Node) IsTask() bool { return n.Kind == suite.KindTask }

// CanNeverComplete is true when the node will neither run nor be marked
// complete.
func (n *Node) CanNeverComplete() bool {
	return n.Trigger == depend.False && n.Complete == depend.False
}

// IsAlwaysComplete is true when the node counts as complete regardless of
// anything else.
func (n *Node) IsAlwaysComplete() bool {
	return n.Complete == depend.True
}

// HasNoDependencies is true when both expressions are constants.
func (n *Node) HasNoDependencies() bool {
	_, trigConst := n.Trigger.(depend.Constant)
	_, compConst := n.Complete.(depend.Constant)
	return trigConst && compConst
}

// MightComplete is the complement of CanNeverComplete.
func (n *Node) MightComplete() bool {
	return !n.CanNeverComplete()
}

// ForceNeverRun sets both expressions to False.
func (n *Node) ForceNeverRun() {
	n.Trigger = depend.False
	n.Complete = depend.False
}

// ForceAlwaysComplete sets the trigger to False and the completion to True.
func (n *Node) ForceAlwaysComplete() {
	n.Trigger = depend.False
	n.Complete = depend.True
}

// Events lists the events the node's task may report.
func (n *Node) Events() []string {
	return n.view.Events()
}

func (n *Node) String() string {
	return fmt.Sprintf("%s %s", n.Kind, n.Path)
}

// assume applies env to both expressions and reports whether either one
// changed. With verify set, every simplification is checked for
// equivalence.
func (n *Node) assume(env algebra.Env, verify bool) (bool, error) {
	if !n.view.Recurs(n.Cycle) || n.view.Disabled() {
		changed := !n.CanNeverComplete()
		n.ForceNeverRun()
		return changed, nil
	}

	trigger, err := assumeOne(n.Trigger, env, verify)
	if err != nil {
		return false, fmt.Errorf("%s trigger: %w", n.Path, err)
	}
	complete, err := assumeOne(n.Complete, env, verify)
	if err != nil {
		return false, fmt.Errorf("%s complete: %w", n.Path, err)
	}

	changed := !depend.Equal(trigger, n.Trigger) || !depend.Equal(complete, n.Complete)
	n.Trigger, n.Complete = trigger, complete
	return changed, nil
}

func assumeOne(d depend.Dependency, env algebra.Env, verify bool) (depend.Dependency, error) {
	assumed := algebra.Assume(d, env)
	simplified := algebra.Simplify(assumed)
	if verify && !algebra.Equivalent(assumed, simplified) {
		return nil, fmt.Errorf("%w: %s became %s", ErrNotEquivalent, assumed, simplified)
	}
	return simplified, nil
}
