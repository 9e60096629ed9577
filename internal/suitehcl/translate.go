// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package suitehcl

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/metasched/internal/ctxlog"
	"github.com/vk/metasched/internal/suite"
)

// translateBlocks converts task, family and array blocks into suite nodes in
// source order. Other block types are ignored.
func (l *Loader) translateBlocks(ctx context.Context, blocks hcl.Blocks) ([]*suite.Node, hcl.Diagnostics) {
	var nodes []*suite.Node
	var diags hcl.Diagnostics

	for _, block := range blocks {
		switch block.Type {
		case "task":
			node, d := l.translateTask(ctx, block, nil, block.Labels[0])
			diags = append(diags, d...)
			if node != nil {
				nodes = append(nodes, node)
			}
		case "family":
			node, d := l.translateFamily(ctx, block)
			diags = append(diags, d...)
			if node != nil {
				nodes = append(nodes, node)
			}
		case "array":
			node, d := l.translateArray(ctx, block)
			diags = append(diags, d...)
			if node != nil {
				nodes = append(nodes, node)
			}
		}
	}
	return nodes, diags
}

// translateTask decodes one task block. evalCtx carries the dimension
// variables of an array instance and is nil elsewhere. defaultName is used
// when the block does not set `name`.
func (l *Loader) translateTask(ctx context.Context, block *hcl.Block, evalCtx *hcl.EvalContext, defaultName string) (*suite.Node, hcl.Diagnostics) {
	var tb taskBlock
	diags := gohcl.DecodeBody(block.Body, evalCtx, &tb)
	if diags.HasErrors() {
		return nil, diags
	}

	node := &suite.Node{
		Name:     defaultName,
		Kind:     suite.KindTask,
		EventIDs: tb.Events,
	}
	if tb.Name != nil {
		node.Name = *tb.Name
	}
	if tb.Alarm != nil {
		node.Alarm = *tb.Alarm
	}
	if tb.Disable != nil {
		node.Disable = *tb.Disable
	}
	if tb.Time != nil {
		d, err := parseDuration(*tb.Time)
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid time",
				Detail:   err.Error(),
				Subject:  &block.DefRange,
			})
		}
		node.Time = d
	}
	if isExprDefined(ctx, tb.Trigger, "trigger") {
		dep, d := decodeDependency(tb.Trigger, evalCtx)
		diags = append(diags, d...)
		node.Trigger = dep
	}
	if isExprDefined(ctx, tb.Complete, "complete") {
		dep, d := decodeDependency(tb.Complete, evalCtx)
		diags = append(diags, d...)
		node.Complete = dep
	}
	return node, diags
}

func (l *Loader) translateFamily(ctx context.Context, block *hcl.Block) (*suite.Node, hcl.Diagnostics) {
	content, diags := block.Body.Content(familySchema)
	if diags.HasErrors() {
		return nil, diags
	}

	node := &suite.Node{Name: block.Labels[0], Kind: suite.KindFamily}
	diags = append(diags, applyNodeAttributes(node, content.Attributes)...)

	children, d := l.translateBlocks(ctx, content.Blocks)
	diags = append(diags, d...)
	node.Nodes = children
	return node, diags
}

// translateArray expands an array block into a family holding one task per
// combination of the dimensions each task block iterates over.
func (l *Loader) translateArray(ctx context.Context, block *hcl.Block) (*suite.Node, hcl.Diagnostics) {
	content, diags := block.Body.Content(arraySchema)
	if diags.HasErrors() {
		return nil, diags
	}

	node := &suite.Node{Name: block.Labels[0], Kind: suite.KindFamily}
	diags = append(diags, applyNodeAttributes(node, content.Attributes)...)

	dims, d := decodeDimensions(content.Attributes["dimensions"].Expr)
	diags = append(diags, d...)
	if d.HasErrors() {
		return nil, diags
	}

	logger := ctxlog.FromContext(ctx)
	for _, taskBlk := range content.Blocks {
		selected, d := selectDimensions(taskBlk, dims)
		diags = append(diags, d...)
		if d.HasErrors() {
			continue
		}

		label := taskBlk.Labels[0]
		combos := suite.Combinations(selected)
		logger.Debug("Expanding array task.", "array", node.Name, "task", label, "instances", len(combos))

		for _, combo := range combos {
			task, d := l.translateTask(ctx, taskBlk, dimensionContext(combo), instanceName(label, combo))
			diags = append(diags, d...)
			if task != nil {
				node.Nodes = append(node.Nodes, task)
			}
		}
	}
	return node, diags
}

func applyNodeAttributes(node *suite.Node, attrs hcl.Attributes) hcl.Diagnostics {
	var diags hcl.Diagnostics
	if attr, ok := attrs["trigger"]; ok {
		dep, d := decodeDependency(attr.Expr, nil)
		diags = append(diags, d...)
		node.Trigger = dep
	}
	if attr, ok := attrs["complete"]; ok {
		dep, d := decodeDependency(attr.Expr, nil)
		diags = append(diags, d...)
		node.Complete = dep
	}
	if attr, ok := attrs["time"]; ok {
		offset, d := evalDuration(attr.Expr, nil, "time")
		diags = append(diags, d...)
		node.Time = offset
	}
	if attr, ok := attrs["alarm"]; ok {
		alarm, d := evalString(attr.Expr, nil, "alarm")
		diags = append(diags, d...)
		node.Alarm = alarm
	}
	if attr, ok := attrs["disable"]; ok {
		disable, d := evalBool(attr.Expr, nil, "disable")
		diags = append(diags, d...)
		node.Disable = disable
	}
	return diags
}

// decodeDimensions reads a map of lists. Dimensions come back ordered by
// name, which is the iteration order cty uses for maps and objects.
func decodeDimensions(expr hcl.Expression) ([]suite.Dimension, hcl.Diagnostics) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	ty := val.Type()
	if val.IsNull() || !(ty.IsObjectType() || ty.IsMapType()) {
		return nil, exprDiag(expr, "Invalid dimensions", "Dimensions must be a map of lists, e.g. { member = [\"a\", \"b\"] }.")
	}

	var dims []suite.Dimension
	for it := val.ElementIterator(); it.Next(); {
		key, list := it.Element()
		name := key.AsString()
		listTy := list.Type()
		if list.IsNull() || !(listTy.IsListType() || listTy.IsTupleType() || listTy.IsSetType()) {
			return nil, exprDiag(expr, "Invalid dimension", fmt.Sprintf("Dimension %q must be a list.", name))
		}

		dim := suite.Dimension{Name: name}
		for vit := list.ElementIterator(); vit.Next(); {
			_, v := vit.Element()
			sv, err := convert.Convert(v, cty.String)
			if err != nil || sv.IsNull() || !sv.IsKnown() {
				return nil, exprDiag(expr, "Invalid dimension", fmt.Sprintf("Dimension %q must only hold strings or numbers.", name))
			}
			dim.Values = append(dim.Values, sv.AsString())
		}
		dims = append(dims, dim)
	}
	return dims, diags
}

// selectDimensions returns the dimensions named by the task's `foreach`
// attribute, in array order. Without `foreach` every dimension is used.
func selectDimensions(block *hcl.Block, dims []suite.Dimension) ([]suite.Dimension, hcl.Diagnostics) {
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	attr, ok := attrs["foreach"]
	if !ok {
		return dims, nil
	}

	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	listVal, err := convert.Convert(val, cty.List(cty.String))
	if err != nil || listVal.IsNull() || !listVal.IsWhollyKnown() {
		return nil, exprDiag(attr.Expr, "Invalid foreach", "Foreach must be a list of dimension names.")
	}

	var names []string
	for it := listVal.ElementIterator(); it.Next(); {
		_, v := it.Element()
		names = append(names, v.AsString())
	}

	var selected []suite.Dimension
	for _, name := range names {
		if !slices.ContainsFunc(dims, func(d suite.Dimension) bool { return d.Name == name }) {
			diags = append(diags, exprDiag(attr.Expr, "Unknown dimension", fmt.Sprintf("The array has no dimension %q.", name))...)
		}
	}
	for _, dim := range dims {
		if slices.Contains(names, dim.Name) {
			selected = append(selected, dim)
		}
	}
	return selected, diags
}

// dimensionContext exposes one combination as `dimval.<name>` and
// `dimidx.<name>`.
func dimensionContext(combo []suite.Index) *hcl.EvalContext {
	vals := make(map[string]cty.Value, len(combo))
	idx := make(map[string]cty.Value, len(combo))
	for _, ix := range combo {
		vals[ix.Dimension] = cty.StringVal(ix.Value)
		idx[ix.Dimension] = cty.NumberIntVal(int64(ix.Position))
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"dimval": cty.ObjectVal(vals),
			"dimidx": cty.ObjectVal(idx),
		},
	}
}

func instanceName(label string, combo []suite.Index) string {
	if len(combo) == 0 {
		return label
	}
	parts := []string{label}
	for _, ix := range combo {
		parts = append(parts, ix.Value)
	}
	return strings.Join(parts, "_")
}
