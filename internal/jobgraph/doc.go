/*
Package jobgraph instantiates a suite for concrete cycles and reduces each
cycle to the nodes whose outcome is still open.

For every cycle added, the graph holds one Node per suite node, carrying its
own copies of the trigger and completion expressions. SimplifyCycle then
runs a fixed-point solver over that cycle:

 1. Nodes that do not recur in the cycle, or are disabled, can never run.
 2. Every other expression is partially evaluated against the schedule and
    the verdicts reached so far, then simplified.
 3. A node whose trigger and completion are both False can never complete;
    a node whose completion is True is always complete. Either verdict
    propagates to its whole subtree.
 4. A family whose children are all always complete is itself always
    complete; one whose children can all never run can never run.

The passes repeat until nothing changes. Verdicts are kept per call, so
each cycle is solved independently.

Distinct cycles may be added and simplified from different goroutines. A
single cycle must not be mutated concurrently.

CheckDependencyChains rejects suites in which a node waits, directly or
through other nodes and earlier cycles, on itself. Expand rewrites
completion and family-running references into the form a scheduler without
completion conditions needs.
*/
package jobgraph
