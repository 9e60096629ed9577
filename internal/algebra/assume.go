package algebra

import (
	"fmt"
	"time"

	"github.com/vk/metasched/internal/depend"
)

// Schedule reports whether a cycle is part of the suite.
type Schedule interface {
	Contains(t time.Time) bool
}

// Env is what Assume knows about the cycle an expression belongs to. Paths
// handed to the callbacks keep their time offset, so a verdict recorded
// under a zero-offset path only matches references to the current cycle.
type Env struct {
	Schedule Schedule
	Cycle    time.Time

	// Recurs reports whether the task at target runs in cycle. When nil the
	// task is assumed to run in every cycle of Schedule.
	Recurs func(target depend.Path, cycle time.Time) bool

	// IsComplete and IsNeverRun report solver verdicts. Nil means no
	// verdict is known.
	IsComplete func(depend.Path) bool
	IsNeverRun func(depend.Path) bool
}

func (e Env) cycleExists(offset time.Duration) bool {
	return e.Schedule != nil && e.Schedule.Contains(e.Cycle.Add(offset))
}

func (e Env) complete(p depend.Path) bool {
	return e.IsComplete != nil && e.IsComplete(p)
}

func (e Env) neverRun(p depend.Path) bool {
	return e.IsNeverRun != nil && e.IsNeverRun(p)
}

func (e Env) recurs(p depend.Path) bool {
	at := e.Cycle.Add(p.Offset)
	if e.Recurs == nil {
		return e.Schedule != nil && e.Schedule.Contains(at)
	}
	return e.Recurs(p, at)
}

// Assume substitutes everything env already decides into d and returns the
// partially evaluated expression. Leaves that remain unknown are returned
// unchanged. The result is not simplified.
func Assume(d depend.Dependency, env Env) depend.Dependency {
	switch d := d.(type) {
	case depend.Constant:
		return d

	case depend.CycleExists:
		return depend.Constant(env.cycleExists(d.Offset))

	case depend.TaskExists:
		if env.complete(d.Target) || env.neverRun(d.Target) {
			return depend.False
		}
		return depend.Constant(env.recurs(d.Target))

	case depend.And:
		var acc depend.Dependency = depend.True
		for _, op := range d.Operands {
			acc = depend.AndOf(acc, Assume(op, env))
		}
		return acc

	case depend.Or:
		var acc depend.Dependency = depend.False
		for _, op := range d.Operands {
			acc = depend.OrOf(acc, Assume(op, env))
		}
		return acc

	case depend.Not:
		return depend.Negate(Assume(d.Operand, env))

	case depend.State:
		if env.neverRun(d.Target) {
			return depend.False
		}
		if env.complete(d.Target) {
			return depend.Constant(d.Status == depend.Completed)
		}
		if !env.cycleExists(d.Target.Offset) {
			return depend.False
		}
		return d

	case depend.Event:
		if env.neverRun(d.Task) || env.complete(d.Task) || !env.cycleExists(d.Task.Offset) {
			return depend.False
		}
		return d

	default:
		panic(fmt.Sprintf("algebra: unknown dependency type %T", d))
	}
}
