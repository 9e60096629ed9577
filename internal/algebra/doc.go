// Package algebra rewrites dependency expressions.
//
// Simplify produces a smaller equivalent expression, Assume partially
// evaluates an expression against what is known about one cycle, and
// Complexity is the cost metric both use to decide between rewrites.
// Equivalent checks two expressions for logical equivalence with a SAT
// solver and is meant for verification, not for the hot path.
package algebra
