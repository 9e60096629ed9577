package suite

import (
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/vk/metasched/internal/depend"
)

var (
	ErrDuplicateNode    = errors.New("duplicate node name")
	ErrUnknownAlarm     = errors.New("unknown alarm")
	ErrUndefinedRef     = errors.New("reference to undefined node")
	ErrUndefinedEvent   = errors.New("reference to undefined event")
	ErrTaskWithChildren = errors.New("task cannot have children")
	ErrInvalidName      = errors.New("invalid name")
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Validate checks the structural rules of the suite: names are well formed,
// tasks are leaves, and every reference in a trigger or completion
// expression points at a defined node or event.
func (s *Suite) Validate() error {
	var errs []error
	s.Walk(func(n *Node) bool {
		if !nameRegex.MatchString(n.Name) {
			errs = append(errs, fmt.Errorf("%w %q", ErrInvalidName, n.Name))
		}
		if n.IsTask() && len(n.Nodes) > 0 {
			errs = append(errs, fmt.Errorf("%s: %w", n.path, ErrTaskWithChildren))
		}
		for _, ev := range n.EventIDs {
			if !nameRegex.MatchString(ev) {
				errs = append(errs, fmt.Errorf("%s: %w event %q", n.path, ErrInvalidName, ev))
			}
		}
		for _, expr := range []depend.Dependency{n.Trigger, n.Complete} {
			if expr != nil {
				errs = append(errs, s.checkReferences(n.path, expr)...)
			}
		}
		return true
	})
	return errors.Join(errs...)
}

func (s *Suite) checkReferences(owner depend.Path, expr depend.Dependency) []error {
	var errs []error
	for _, leaf := range depend.Leaves(expr) {
		switch leaf := leaf.(type) {
		case depend.State:
			if _, ok := s.Lookup(leaf.Target); !ok {
				errs = append(errs, fmt.Errorf("%s: %w %q", owner, ErrUndefinedRef, leaf.Target.Name))
			}
		case depend.TaskExists:
			if _, ok := s.Lookup(leaf.Target); !ok {
				errs = append(errs, fmt.Errorf("%s: %w %q", owner, ErrUndefinedRef, leaf.Target.Name))
			}
		case depend.Event:
			task, ok := s.Node(leaf.Task)
			if !ok {
				errs = append(errs, fmt.Errorf("%s: %w %q", owner, ErrUndefinedRef, leaf.Task.Name))
				continue
			}
			if !slices.Contains(task.EventIDs, leaf.Name) {
				errs = append(errs, fmt.Errorf("%s: %w %q on %q", owner, ErrUndefinedEvent, leaf.Name, leaf.Task.Name))
			}
		}
	}
	return errs
}
