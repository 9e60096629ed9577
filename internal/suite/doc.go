// Package suite holds the static definition of a cyclic workflow: the
// suite clock, named alarms, and the ordered tree of families and tasks with
// their trigger and completion expressions.
//
// A Suite is read-only once built. The job graph reads it through the View
// interface and never modifies it.
package suite
