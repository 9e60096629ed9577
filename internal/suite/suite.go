package suite

import (
	"errors"
	"fmt"
	"time"

	"github.com/vk/metasched/internal/depend"
	"github.com/vk/metasched/internal/schedule"
)

// Kind distinguishes tasks from families.
type Kind int

const (
	KindTask Kind = iota
	KindFamily
)

func (k Kind) String() string {
	if k == KindFamily {
		return "family"
	}
	return "task"
}

// View is the read-only face of a suite node.
type View interface {
	Path() depend.Path
	IsTask() bool
	IsFamily() bool
	TriggerDependency() depend.Dependency
	CompletionDependency() depend.Dependency
	TimeOffset() time.Duration
	Children() []View
	Recurs(cycle time.Time) bool
	Disabled() bool
	Events() []string
}

// Tree is a set of top-level views on a schedule.
type Tree interface {
	Children() []View
	Schedule() schedule.Clock
	Lookup(p depend.Path) (View, bool)
}

// Node is one family or task definition. Trigger and Complete may be nil,
// meaning True and False respectively. Alarm names an entry of the suite's
// alarms; an empty Alarm inherits the parent's recurrence.
type Node struct {
	Name     string
	Kind     Kind
	Trigger  depend.Dependency
	Complete depend.Dependency
	Time     time.Duration
	Alarm    string
	Disable  bool
	EventIDs []string
	Nodes    []*Node

	path       depend.Path
	recurrence schedule.Clock
}

// Path returns the node's zero-offset path. It is set when the suite is built.
func (n *Node) Path() depend.Path { return n.path }

func (n *Node) IsTask() bool { return n.Kind == KindTask }

func (n *Node) IsFamily() bool { return n.Kind == KindFamily }

// TriggerDependency returns a copy of the trigger, True when unset.
func (n *Node) TriggerDependency() depend.Dependency {
	if n.Trigger == nil {
		return depend.True
	}
	return depend.Copy(n.Trigger)
}

// CompletionDependency returns a copy of the completion condition, False
// when unset.
func (n *Node) CompletionDependency() depend.Dependency {
	if n.Complete == nil {
		return depend.False
	}
	return depend.Copy(n.Complete)
}

func (n *Node) TimeOffset() time.Duration { return n.Time }

func (n *Node) Children() []View {
	out := make([]View, len(n.Nodes))
	for i, c := range n.Nodes {
		out[i] = c
	}
	return out
}

// Recurs reports whether the node runs in cycle according to its alarm.
func (n *Node) Recurs(cycle time.Time) bool { return n.recurrence.Contains(cycle) }

// Recurrence is the resolved alarm clock of the node.
func (n *Node) Recurrence() schedule.Clock { return n.recurrence }

func (n *Node) Disabled() bool { return n.Disable }

func (n *Node) Events() []string { return n.EventIDs }

// Suite is the root of a workflow definition.
type Suite struct {
	Name   string
	Clock  schedule.Clock
	Alarms map[string]schedule.Clock
	Nodes  []*Node

	index map[depend.Path]*Node
}

// New assembles a suite. Alarms are aligned to the suite clock, node paths
// and recurrences are resolved, and the result is validated.
func New(name string, clock schedule.Clock, alarms map[string]schedule.Clock, nodes []*Node) (*Suite, error) {
	s := &Suite{
		Name:   name,
		Clock:  clock,
		Alarms: make(map[string]schedule.Clock, len(alarms)),
		Nodes:  nodes,
		index:  make(map[depend.Path]*Node),
	}

	for alarmName, raw := range alarms {
		aligned, err := clock.ForAlarm(raw)
		if err != nil {
			return nil, fmt.Errorf("alarm %q: %w", alarmName, err)
		}
		s.Alarms[alarmName] = aligned
	}

	var errs []error
	var index func(parent depend.Path, recurrence schedule.Clock, nodes []*Node)
	index = func(parent depend.Path, recurrence schedule.Clock, nodes []*Node) {
		for _, n := range nodes {
			n.path = parent.Child(n.Name)
			n.recurrence = recurrence
			if n.Alarm != "" {
				alarm, ok := s.Alarms[n.Alarm]
				if !ok {
					errs = append(errs, fmt.Errorf("%s: %w %q", n.path, ErrUnknownAlarm, n.Alarm))
				} else {
					n.recurrence = alarm
				}
			}
			if _, dup := s.index[n.path]; dup {
				errs = append(errs, fmt.Errorf("%s: %w", n.path, ErrDuplicateNode))
				continue
			}
			s.index[n.path] = n
			index(n.path, n.recurrence, n.Nodes)
		}
	}
	index(depend.Path{}, clock, nodes)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Children returns the top-level nodes in definition order.
func (s *Suite) Children() []View {
	out := make([]View, len(s.Nodes))
	for i, n := range s.Nodes {
		out[i] = n
	}
	return out
}

// Schedule returns the suite clock.
func (s *Suite) Schedule() schedule.Clock { return s.Clock }

// Lookup finds a node by path. The path's offset is ignored.
func (s *Suite) Lookup(p depend.Path) (View, bool) {
	n, ok := s.index[p.Zero()]
	if !ok {
		return nil, false
	}
	return n, true
}

// Node is Lookup returning the concrete type.
func (s *Suite) Node(p depend.Path) (*Node, bool) {
	n, ok := s.index[p.Zero()]
	return n, ok
}

// Walk visits every node in depth-first definition order. Returning false
// from fn skips that node's children.
func (s *Suite) Walk(fn func(*Node) bool) {
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if fn(n) {
				walk(n.Nodes)
			}
		}
	}
	walk(s.Nodes)
}

// Len is the number of nodes in the suite.
func (s *Suite) Len() int { return len(s.index) }
