package jobgraph

import (
	"errors"
	"fmt"
	"time"

	"github.com/vk/metasched/internal/depend"
)

var (
	ErrUnknownCycle  = errors.New("cycle was never added")
	ErrOutsideClock  = errors.New("cycle is not in the suite clock")
	ErrUnknownNode   = errors.New("no such node")
	ErrNoFixedPoint  = errors.New("solver did not reach a fixed point")
	ErrNotEquivalent = errors.New("simplification changed the meaning of an expression")

	// ErrSelfReferentialDependency matches every *SelfReferenceError.
	ErrSelfReferentialDependency = errors.New("self-referential dependency")
)

// SelfReferenceError reports a node whose dependencies lead back to itself,
// or a dependency chain too deep to follow.
type SelfReferenceError struct {
	Path  depend.Path
	Cycle time.Time
	// Chain lists the nodes visited from Path back to the repeat, rendered
	// as strings.
	Chain []string
	// TooDeep is set when the chain exceeded the depth bound.
	TooDeep bool
}

func (e *SelfReferenceError) Error() string {
	if e.TooDeep {
		return fmt.Sprintf("/%s: dependency chain too deep from this task (%d links)", e.Path.Name, len(e.Chain))
	}
	return fmt.Sprintf("/%s: cyclic dependency graph referenced from this task.", e.Path.Name)
}

func (e *SelfReferenceError) Is(target error) bool {
	return target == ErrSelfReferentialDependency
}
