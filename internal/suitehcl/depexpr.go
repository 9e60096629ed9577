package suitehcl

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/metasched/internal/depend"
)

// ParseDependency parses a standalone dependency expression, as written on
// the right-hand side of a trigger attribute.
func ParseDependency(src string) (depend.Dependency, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "<expression>", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}
	dep, diags := decodeDependency(expr, nil)
	if diags.HasErrors() {
		return nil, diags
	}
	return dep, nil
}

// decodeDependency converts an HCL expression tree into a dependency. ctx
// supplies the variables available to string arguments.
func decodeDependency(expr hcl.Expression, ctx *hcl.EvalContext) (depend.Dependency, hcl.Diagnostics) {
	switch e := expr.(type) {
	case *hclsyntax.ParenthesesExpr:
		return decodeDependency(e.Expression, ctx)

	case *hclsyntax.BinaryOpExpr:
		if e.Op != hclsyntax.OpLogicalAnd && e.Op != hclsyntax.OpLogicalOr {
			return nil, exprDiag(expr, "Unsupported operator", "Dependency expressions only combine with && and ||.")
		}
		lhs, diags := decodeDependency(e.LHS, ctx)
		rhs, rDiags := decodeDependency(e.RHS, ctx)
		diags = append(diags, rDiags...)
		if diags.HasErrors() {
			return nil, diags
		}
		if e.Op == hclsyntax.OpLogicalAnd {
			return joinAnd(lhs, rhs), diags
		}
		return joinOr(lhs, rhs), diags

	case *hclsyntax.UnaryOpExpr:
		if e.Op != hclsyntax.OpLogicalNot {
			return nil, exprDiag(expr, "Unsupported operator", "Only ! may negate a dependency.")
		}
		inner, diags := decodeDependency(e.Val, ctx)
		if diags.HasErrors() {
			return nil, diags
		}
		return depend.Not{Operand: inner}, diags

	case *hclsyntax.LiteralValueExpr:
		if e.Val.Type() == cty.Bool && e.Val.IsKnown() && !e.Val.IsNull() {
			return depend.Constant(e.Val.True()), nil
		}
		return nil, exprDiag(expr, "Invalid dependency", "Only true and false are valid literal dependencies.")

	case *hclsyntax.ScopeTraversalExpr:
		p, diags := traversalPath(e.Traversal)
		if diags.HasErrors() {
			return nil, diags
		}
		return depend.Completion(p), nil

	case *hclsyntax.FunctionCallExpr:
		return decodeCall(e, ctx)

	default:
		return nil, exprDiag(expr, "Invalid dependency", fmt.Sprintf("Unsupported expression of type %T in a dependency.", expr))
	}
}

func decodeCall(call *hclsyntax.FunctionCallExpr, ctx *hcl.EvalContext) (depend.Dependency, hcl.Diagnostics) {
	switch call.Name {
	case "completed", "running", "failed":
		if len(call.Args) < 1 || len(call.Args) > 2 {
			return nil, arityDiag(call, "a node reference and an optional offset")
		}
		target, diags := decodeReference(call.Args[0], ctx)
		if len(call.Args) == 2 {
			offset, oDiags := evalDuration(call.Args[1], ctx, "offset")
			diags = append(diags, oDiags...)
			target = target.Shift(offset)
		}
		if diags.HasErrors() {
			return nil, diags
		}
		status, err := depend.ParseStatus(call.Name)
		if err != nil {
			return nil, exprDiag(call, "Invalid dependency", err.Error())
		}
		return depend.State{Target: target, Status: status}, diags

	case "exists":
		if len(call.Args) != 1 {
			return nil, arityDiag(call, "a node reference")
		}
		target, diags := decodeReference(call.Args[0], ctx)
		if diags.HasErrors() {
			return nil, diags
		}
		return depend.TaskExists{Target: target}, diags

	case "event":
		if len(call.Args) != 2 {
			return nil, arityDiag(call, "a task reference and an event name")
		}
		task, diags := decodeReference(call.Args[0], ctx)
		name, nDiags := evalString(call.Args[1], ctx, "event name")
		diags = append(diags, nDiags...)
		if diags.HasErrors() {
			return nil, diags
		}
		return depend.Event{Task: task, Name: name}, diags

	case "cycle_exists":
		if len(call.Args) != 1 {
			return nil, arityDiag(call, "an offset such as \"-6h\"")
		}
		offset, diags := evalDuration(call.Args[0], ctx, "offset")
		if diags.HasErrors() {
			return nil, diags
		}
		return depend.CycleExists{Offset: offset}, diags

	case "at":
		if len(call.Args) != 2 {
			return nil, arityDiag(call, "a dependency and an offset")
		}
		inner, diags := decodeDependency(call.Args[0], ctx)
		offset, oDiags := evalDuration(call.Args[1], ctx, "offset")
		diags = append(diags, oDiags...)
		if diags.HasErrors() {
			return nil, diags
		}
		return depend.ShiftTime(inner, offset), diags

	case "all", "any":
		if len(call.Args) == 0 {
			return nil, arityDiag(call, "at least one dependency")
		}
		var diags hcl.Diagnostics
		ops := make([]depend.Dependency, 0, len(call.Args))
		for _, arg := range call.Args {
			op, argDiags := decodeDependency(arg, ctx)
			diags = append(diags, argDiags...)
			ops = append(ops, op)
		}
		if diags.HasErrors() {
			return nil, diags
		}
		if call.Name == "all" {
			return depend.MustAnd(ops...), diags
		}
		return depend.MustOr(ops...), diags

	default:
		return nil, exprDiag(call, "Unknown dependency function",
			fmt.Sprintf("There is no dependency function named %q.", call.Name))
	}
}

// decodeReference resolves a node reference: either a bare traversal such
// as gdas.prep, or a string (possibly templated) such as "gdas.prep@-6h".
func decodeReference(expr hcl.Expression, ctx *hcl.EvalContext) (depend.Path, hcl.Diagnostics) {
	if trav, ok := expr.(*hclsyntax.ScopeTraversalExpr); ok {
		return traversalPath(trav.Traversal)
	}
	s, diags := evalString(expr, ctx, "node reference")
	if diags.HasErrors() {
		return depend.Path{}, diags
	}
	p, err := depend.ParsePath(s)
	if err != nil {
		return depend.Path{}, append(diags, exprDiag(expr, "Invalid node reference", err.Error())...)
	}
	return p, diags
}

func traversalPath(trav hcl.Traversal) (depend.Path, hcl.Diagnostics) {
	names := make([]string, 0, len(trav))
	for _, step := range trav {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			names = append(names, s.Name)
		case hcl.TraverseAttr:
			names = append(names, s.Name)
		default:
			rng := trav.SourceRange()
			return depend.Path{}, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid node reference",
				Detail:   "Node references are dot-separated names; use a string for generated names.",
				Subject:  &rng,
			}}
		}
	}
	return depend.Path{Name: strings.Join(names, ".")}, nil
}

// joinAnd and joinOr extend an existing connective of the same kind so that
// `a && b && c` becomes one And with three operands.
func joinAnd(lhs, rhs depend.Dependency) depend.Dependency {
	if and, ok := lhs.(depend.And); ok {
		return depend.And{Operands: append(append([]depend.Dependency(nil), and.Operands...), rhs)}
	}
	return depend.MustAnd(lhs, rhs)
}

func joinOr(lhs, rhs depend.Dependency) depend.Dependency {
	if or, ok := lhs.(depend.Or); ok {
		return depend.Or{Operands: append(append([]depend.Dependency(nil), or.Operands...), rhs)}
	}
	return depend.MustOr(lhs, rhs)
}

func exprDiag(expr hcl.Expression, summary, detail string) hcl.Diagnostics {
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  expr.Range().Ptr(),
	}}
}

func arityDiag(call *hclsyntax.FunctionCallExpr, want string) hcl.Diagnostics {
	return exprDiag(call, "Wrong number of arguments",
		fmt.Sprintf("Function %q expects %s.", call.Name, want))
}
