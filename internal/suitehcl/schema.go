// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package suitehcl

import "github.com/hashicorp/hcl/v2"

// rootSchema lists the top-level blocks of a definition file.
var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "suite", LabelNames: []string{"name"}},
		{Type: "task", LabelNames: []string{"name"}},
		{Type: "family", LabelNames: []string{"name"}},
		{Type: "array", LabelNames: []string{"name"}},
	},
}

// nodeAttributes are accepted by families and arrays.
var nodeAttributes = []hcl.AttributeSchema{
	{Name: "trigger"},
	{Name: "complete"},
	{Name: "time"},
	{Name: "alarm"},
	{Name: "disable"},
}

var familySchema = &hcl.BodySchema{
	Attributes: nodeAttributes,
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "task", LabelNames: []string{"name"}},
		{Type: "family", LabelNames: []string{"name"}},
		{Type: "array", LabelNames: []string{"name"}},
	},
}

var arraySchema = &hcl.BodySchema{
	Attributes: append([]hcl.AttributeSchema{{Name: "dimensions", Required: true}}, nodeAttributes...),
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "task", LabelNames: []string{"name"}},
	},
}

// suiteBlock is the `suite` block.
type suiteBlock struct {
	Name   string        `hcl:"name,label"`
	Clock  clockBlock    `hcl:"clock,block"`
	Alarms []*alarmBlock `hcl:"alarm,block"`
}

type clockBlock struct {
	Start string  `hcl:"start"`
	Step  string  `hcl:"step"`
	End   *string `hcl:"end,optional"`
}

type alarmBlock struct {
	Name  string  `hcl:"name,label"`
	Start string  `hcl:"start"`
	Step  string  `hcl:"step"`
	End   *string `hcl:"end,optional"`
}

// taskBlock is the body of a `task` block. Name overrides the block label
// and is mostly used inside arrays, where it can interpolate the dimension
// values.
type taskBlock struct {
	Name     *string        `hcl:"name,optional"`
	Trigger  hcl.Expression `hcl:"trigger,optional"`
	Complete hcl.Expression `hcl:"complete,optional"`
	Time     *string        `hcl:"time,optional"`
	Alarm    *string        `hcl:"alarm,optional"`
	Disable  *bool          `hcl:"disable,optional"`
	Events   []string       `hcl:"events,optional"`
	Foreach  []string       `hcl:"foreach,optional"`
}
