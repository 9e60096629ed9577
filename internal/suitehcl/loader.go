// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package suitehcl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/metasched/internal/ctxlog"
	"github.com/vk/metasched/internal/fsutil"
	"github.com/vk/metasched/internal/schedule"
	"github.com/vk/metasched/internal/suite"
)

var (
	ErrNoFiles      = errors.New("no .hcl files found")
	ErrNoSuiteBlock = errors.New("no \"suite\" block defined")
)

// Loader reads suite definitions from HCL files.
type Loader struct{}

// NewLoader creates a new HCL suite loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under paths and assembles one suite from them.
// Files are read in lexical path order, which fixes the order of top-level
// nodes spread over several files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*suite.Suite, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(hclFiles) == 0 {
		return nil, fmt.Errorf("%w in %v", ErrNoFiles, paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	var blocks hcl.Blocks
	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		content, diags := hclFile.Body.Content(rootSchema)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		blocks = append(blocks, content.Blocks...)
	}

	suiteBlk, diags := findUniqueBlock(blocks, "suite")
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode suite: %w", diags)
	}
	if suiteBlk == nil {
		return nil, ErrNoSuiteBlock
	}

	var sb suiteBlock
	if diags := gohcl.DecodeBody(suiteBlk.Body, nil, &sb); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode suite block: %w", diags)
	}
	sb.Name = suiteBlk.Labels[0]

	clock, alarms, err := translateSchedule(&sb)
	if err != nil {
		return nil, fmt.Errorf("suite %q: %w", sb.Name, err)
	}
	logger.Debug("Suite clock decoded.", "suite", sb.Name, "clock", clock.String(), "alarms", len(alarms))

	nodes, diags := l.translateBlocks(ctx, blocks)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode suite %q: %w", sb.Name, diags)
	}

	s, err := suite.New(sb.Name, clock, alarms, nodes)
	if err != nil {
		return nil, fmt.Errorf("invalid suite %q: %w", sb.Name, err)
	}

	logger.Debug("HCL loading complete.", "suite", s.Name, "nodes", s.Len())
	return s, nil
}

// findAllHCLFiles walks all given paths and returns a flat, de-duplicated
// list of all .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}

		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}
	return allFiles, nil
}

func translateSchedule(sb *suiteBlock) (schedule.Clock, map[string]schedule.Clock, error) {
	clock, err := buildClock(sb.Clock.Start, sb.Clock.Step, sb.Clock.End)
	if err != nil {
		return schedule.Clock{}, nil, fmt.Errorf("clock: %w", err)
	}

	alarms := make(map[string]schedule.Clock, len(sb.Alarms))
	for _, a := range sb.Alarms {
		if _, dup := alarms[a.Name]; dup {
			return schedule.Clock{}, nil, fmt.Errorf("alarm %q defined twice", a.Name)
		}
		alarm, err := buildClock(a.Start, a.Step, a.End)
		if err != nil {
			return schedule.Clock{}, nil, fmt.Errorf("alarm %q: %w", a.Name, err)
		}
		alarms[a.Name] = alarm
	}
	return clock, alarms, nil
}

func buildClock(startStr, stepStr string, endStr *string) (schedule.Clock, error) {
	start, err := parseTime(startStr)
	if err != nil {
		return schedule.Clock{}, err
	}
	step, err := parseDuration(stepStr)
	if err != nil {
		return schedule.Clock{}, err
	}
	var end time.Time
	if endStr != nil {
		if end, err = parseTime(*endStr); err != nil {
			return schedule.Clock{}, err
		}
	}
	return schedule.New(start, step, end)
}
