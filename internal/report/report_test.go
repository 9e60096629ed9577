package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vk/metasched/internal/depend"
	"github.com/vk/metasched/internal/jobgraph"
	"github.com/vk/metasched/internal/schedule"
	"github.com/vk/metasched/internal/suite"
)

func at(hours int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(hours) * time.Hour)
}

func done(name string) depend.Dependency {
	return depend.Completion(depend.Path{Name: name})
}

// compiledGraph solves a small suite for the 00Z and 06Z cycles, with final
// vetoed.
func compiledGraph(t *testing.T) *jobgraph.Graph {
	t.Helper()
	clock, err := schedule.New(at(0), 6*time.Hour, at(6))
	require.NoError(t, err)

	s, err := suite.New("test", clock, nil, []*suite.Node{
		{Name: "init", Complete: depend.CycleExists{Offset: -6 * time.Hour}},
		{
			Name: "fam",
			Kind: suite.KindFamily,
			Nodes: []*suite.Node{
				{Name: "a", Trigger: done("init"), Time: time.Hour, EventIDs: []string{"ready"}},
				{Name: "b", Trigger: depend.Event{Task: depend.Path{Name: "fam.a"}, Name: "ready"}},
			},
		},
		{Name: "watch", Trigger: depend.State{Target: depend.Path{Name: "fam"}, Status: depend.Running}},
		{Name: "final", Trigger: done("fam")},
	})
	require.NoError(t, err)

	ctx := context.Background()
	g := jobgraph.New(s, jobgraph.Options{})
	for _, cycle := range []time.Time{at(0), at(6)} {
		require.NoError(t, g.AddCycle(ctx, cycle))
		require.NoError(t, g.ForceNeverRun(cycle, depend.Path{Name: "final"}))
		_, err := g.SimplifyCycle(ctx, cycle)
		require.NoError(t, err)
	}
	return g
}

func TestBuild(t *testing.T) {
	g := compiledGraph(t)

	plan, err := Build(g, []time.Time{at(0), at(6)}, Options{Suite: "test", RunID: "run-1"})
	require.NoError(t, err)

	want := &Plan{
		Suite: "test",
		RunID: "run-1",
		Cycles: []Cycle{
			{
				Cycle: "2024-01-01T00:00:00Z",
				Nodes: []Entry{
					{Path: "init", Kind: "task"},
					{Path: "fam", Kind: "family"},
					{Path: "fam.a", Kind: "task", Depth: 1, Trigger: "init=completed", Time: "+1h", Events: []string{"ready"}},
					{Path: "fam.b", Kind: "task", Depth: 1, Trigger: "fam.a:ready"},
					{Path: "watch", Kind: "task", Trigger: "fam=running"},
				},
			},
			{
				Cycle: "2024-01-01T06:00:00Z",
				Nodes: []Entry{
					{Path: "fam", Kind: "family"},
					{Path: "fam.a", Kind: "task", Depth: 1, Time: "+1h", Events: []string{"ready"}},
					{Path: "fam.b", Kind: "task", Depth: 1, Trigger: "fam.a:ready"},
					{Path: "watch", Kind: "task", Trigger: "fam=running"},
				},
			},
		},
	}
	if diff := cmp.Diff(want, plan); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_Expand(t *testing.T) {
	g := compiledGraph(t)

	plan, err := Build(g, []time.Time{at(6)}, Options{Suite: "test", Expand: true})
	require.NoError(t, err)
	require.Len(t, plan.Cycles, 1)

	var watch *Entry
	for i := range plan.Cycles[0].Nodes {
		if plan.Cycles[0].Nodes[i].Path == "watch" {
			watch = &plan.Cycles[0].Nodes[i]
		}
	}
	require.NotNil(t, watch)
	assert.Equal(t, "( fam.a=running | fam.b=running )", watch.Trigger)
}

func TestBuild_UnknownCycle(t *testing.T) {
	_, err := Build(compiledGraph(t), []time.Time{at(12)}, Options{})
	require.ErrorIs(t, err, jobgraph.ErrOutsideClock)
}

func TestWriteYAML(t *testing.T) {
	plan := &Plan{
		Suite: "test",
		Cycles: []Cycle{{
			Cycle: "2024-01-01T00:00:00Z",
			Nodes: []Entry{{Path: "a", Kind: "task", Trigger: "b=completed"}},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteYAML(&buf, plan))

	var decoded Plan
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	if diff := cmp.Diff(plan, &decoded); diff != "" {
		t.Errorf("YAML round trip mismatch (-want +got):\n%s", diff)
	}
	assert.NotContains(t, buf.String(), "run_id")
	assert.NotContains(t, buf.String(), "complete:")
}

func TestWriteText(t *testing.T) {
	plan := &Plan{
		Suite: "test",
		Cycles: []Cycle{{
			Cycle: "2024-01-01T00:00:00Z",
			Nodes: []Entry{
				{Path: "outer", Kind: "family"},
				{Path: "outer.inner", Kind: "family", Depth: 1, Trigger: "x=completed"},
				{Path: "outer.inner.a", Kind: "task", Depth: 2, Time: "+1h", Events: []string{"ready"}},
				{Path: "outer.b", Kind: "task", Depth: 1, Complete: "cycle_exists(-6h)"},
				{Path: "x", Kind: "task"},
			},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, plan))

	want := `suite test
  cycle 2024-01-01T00:00:00Z
    family outer
      family outer.inner
        trigger x=completed
        task outer.inner.a
          time +1h
          event ready
      endfamily
      task outer.b
        complete cycle_exists(-6h)
    endfamily
    task x
endsuite
`
	assert.Equal(t, want, buf.String())
}
