package depend

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyOperands is returned when an And or Or is built with no operands.
var ErrEmptyOperands = errors.New("logical dependency needs at least one operand")

// Status is the observable state of a node in some cycle.
type Status int

const (
	Running Status = iota
	Completed
	Failed
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(s) {
	case "running":
		return Running, nil
	case "completed", "complete":
		return Completed, nil
	case "failed":
		return Failed, nil
	}
	return 0, fmt.Errorf("unknown status %q", s)
}

// Dependency is a boolean expression over the state of the suite. The set of
// implementations is closed: Constant, And, Or, Not, State, Event,
// CycleExists and TaskExists.
type Dependency interface {
	fmt.Stringer
	isDependency()
}

// Constant is a literal truth value.
type Constant bool

const (
	True  Constant = true
	False Constant = false
)

// And is satisfied when every operand is. It always has at least one operand.
type And struct {
	Operands []Dependency
}

// Or is satisfied when any operand is. It always has at least one operand.
type Or struct {
	Operands []Dependency
}

// Not negates its operand.
type Not struct {
	Operand Dependency
}

// State is satisfied when the target node is in the given status.
type State struct {
	Target Path
	Status Status
}

// Event is satisfied when the task at Task has reported the named event.
type Event struct {
	Task Path
	Name string
}

// CycleExists is satisfied when the cycle at Offset from the current cycle is
// part of the schedule.
type CycleExists struct {
	Offset time.Duration
}

// TaskExists is satisfied when the target task recurs in the cycle its path
// points at.
type TaskExists struct {
	Target Path
}

func (Constant) isDependency()    {}
func (And) isDependency()         {}
func (Or) isDependency()          {}
func (Not) isDependency()         {}
func (State) isDependency()       {}
func (Event) isDependency()       {}
func (CycleExists) isDependency() {}
func (TaskExists) isDependency()  {}

// NewAnd builds a conjunction. The operand slice is copied.
func NewAnd(operands ...Dependency) (And, error) {
	if len(operands) == 0 {
		return And{}, ErrEmptyOperands
	}
	return And{Operands: append([]Dependency(nil), operands...)}, nil
}

// NewOr builds a disjunction. The operand slice is copied.
func NewOr(operands ...Dependency) (Or, error) {
	if len(operands) == 0 {
		return Or{}, ErrEmptyOperands
	}
	return Or{Operands: append([]Dependency(nil), operands...)}, nil
}

// MustAnd is like NewAnd but panics on an empty operand list.
func MustAnd(operands ...Dependency) And {
	d, err := NewAnd(operands...)
	if err != nil {
		panic(err)
	}
	return d
}

// MustOr is like NewOr but panics on an empty operand list.
func MustOr(operands ...Dependency) Or {
	d, err := NewOr(operands...)
	if err != nil {
		panic(err)
	}
	return d
}

// Completion is shorthand for State{target, Completed}.
func Completion(target Path) State {
	return State{Target: target, Status: Completed}
}

// --- String forms ---

func (c Constant) String() string {
	if c {
		return "TRUE"
	}
	return "FALSE"
}

func (d And) String() string { return joinOperands(d.Operands, " & ") }

func (d Or) String() string { return joinOperands(d.Operands, " | ") }

func (d Not) String() string { return "~ " + d.Operand.String() }

func (d State) String() string { return d.Target.String() + "=" + d.Status.String() }

func (d Event) String() string { return d.Task.String() + ":" + d.Name }

func (d CycleExists) String() string { return "cycle_exists(" + FormatOffset(d.Offset) + ")" }

func (d TaskExists) String() string { return d.Target.String() + " exists" }

func joinOperands(ops []Dependency, sep string) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op.String()
	}
	return "( " + strings.Join(parts, sep) + " )"
}
