/*
Package depend defines the dependency expressions attached to suite nodes.

An expression is a tree of boolean connectives (And, Or, Not) over leaves
that ask about the world at some cycle relative to the node that owns the
expression: the state of another node, an event reported by a task, whether a
cycle exists at all, or whether a task recurs in that cycle.

Expressions are immutable values. Every transformation returns a new tree,
so one expression may be shared between many graph nodes.

Node references use Path, a dot-separated name paired with a time offset,
e.g. `gdas.prep` at `-6h`.
*/
package depend
