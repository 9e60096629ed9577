// Package report turns a compiled job graph into a plan listing, per cycle,
// the nodes a scheduler still has to run and what they wait for.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vk/metasched/internal/algebra"
	"github.com/vk/metasched/internal/depend"
	"github.com/vk/metasched/internal/jobgraph"
)

// Plan is the scheduler-facing result of a compile.
type Plan struct {
	Suite  string  `yaml:"suite"`
	RunID  string  `yaml:"run_id,omitempty"`
	Cycles []Cycle `yaml:"cycles"`
}

// Cycle holds the open nodes of one cycle in definition order.
type Cycle struct {
	Cycle string  `yaml:"cycle"`
	Nodes []Entry `yaml:"nodes"`
}

// Entry is one open node. Trigger is omitted when it is always satisfied and
// Complete when it is never satisfied.
type Entry struct {
	Path     string   `yaml:"path"`
	Kind     string   `yaml:"kind"`
	Depth    int      `yaml:"depth"`
	Trigger  string   `yaml:"trigger,omitempty"`
	Complete string   `yaml:"complete,omitempty"`
	Time     string   `yaml:"time,omitempty"`
	Events   []string `yaml:"events,omitempty"`
}

// Options controls Build.
type Options struct {
	Suite string
	RunID string
	// Expand inlines completion conditions and family running states into
	// the triggers, for schedulers that only observe task states.
	Expand bool
}

// Build walks every cycle of graph depth-first and records the nodes that
// might still complete and are not already complete.
func Build(graph *jobgraph.Graph, cycles []time.Time, opts Options) (*Plan, error) {
	plan := &Plan{Suite: opts.Suite, RunID: opts.RunID}
	for _, cycle := range cycles {
		nodes, err := graph.DepthFirstTraversal(cycle, jobgraph.SkipDecided, nil, nil)
		if err != nil {
			return nil, err
		}

		c := Cycle{Cycle: cycle.Format(time.RFC3339), Nodes: make([]Entry, 0, len(nodes))}
		for _, n := range nodes {
			entry, err := buildEntry(graph, n, opts.Expand)
			if err != nil {
				return nil, fmt.Errorf("cycle %s: %w", c.Cycle, err)
			}
			c.Nodes = append(c.Nodes, entry)
		}
		plan.Cycles = append(plan.Cycles, c)
	}
	return plan, nil
}

func buildEntry(graph *jobgraph.Graph, n *jobgraph.Node, expand bool) (Entry, error) {
	trigger := n.Trigger
	if expand {
		expanded, err := graph.Expand(n.Cycle, trigger)
		if err != nil {
			return Entry{}, err
		}
		trigger = algebra.Simplify(expanded)
	}

	e := Entry{
		Path:   n.Path.Name,
		Kind:   n.Kind.String(),
		Depth:  n.Path.Depth() - 1,
		Events: n.Events(),
	}
	if trigger != depend.True {
		e.Trigger = trigger.String()
	}
	if n.Complete != depend.False {
		e.Complete = n.Complete.String()
	}
	if n.Time != 0 {
		e.Time = depend.FormatOffset(n.Time)
	}
	return e, nil
}

// WriteYAML encodes plan as YAML.
func WriteYAML(w io.Writer, plan *Plan) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(plan); err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	return enc.Close()
}

// WriteText renders plan as an indented suite listing, one block per cycle.
func WriteText(w io.Writer, plan *Plan) error {
	var b strings.Builder
	fmt.Fprintf(&b, "suite %s\n", plan.Suite)
	for _, c := range plan.Cycles {
		fmt.Fprintf(&b, "  cycle %s\n", c.Cycle)

		var open []int
		closeTo := func(depth int) {
			for len(open) > 0 && open[len(open)-1] >= depth {
				fmt.Fprintf(&b, "%sendfamily\n", indent(open[len(open)-1]))
				open = open[:len(open)-1]
			}
		}

		for _, e := range c.Nodes {
			closeTo(e.Depth)
			pad := indent(e.Depth)
			if e.Kind == "family" {
				fmt.Fprintf(&b, "%sfamily %s\n", pad, e.Path)
				open = append(open, e.Depth)
			} else {
				fmt.Fprintf(&b, "%stask %s\n", pad, e.Path)
			}
			if e.Trigger != "" {
				fmt.Fprintf(&b, "%s  trigger %s\n", pad, e.Trigger)
			}
			if e.Complete != "" {
				fmt.Fprintf(&b, "%s  complete %s\n", pad, e.Complete)
			}
			if e.Time != "" {
				fmt.Fprintf(&b, "%s  time %s\n", pad, e.Time)
			}
			for _, ev := range e.Events {
				fmt.Fprintf(&b, "%s  event %s\n", pad, ev)
			}
		}
		closeTo(0)
	}
	b.WriteString("endsuite\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func indent(depth int) string {
	return strings.Repeat("  ", depth+2)
}
