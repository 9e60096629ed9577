package compiler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

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

// testSuite runs on a 6-hourly clock from 00Z to 18Z.
func testSuite(t *testing.T, end time.Time) *suite.Suite {
	t.Helper()
	clock, err := schedule.New(at(0), 6*time.Hour, end)
	require.NoError(t, err)

	prev := depend.CycleExists{Offset: -6 * time.Hour}
	s, err := suite.New("test", clock, nil, []*suite.Node{
		{Name: "init", Complete: prev},
		{
			Name: "model",
			Kind: suite.KindFamily,
			Nodes: []*suite.Node{
				{Name: "fcst", Trigger: depend.MustAnd(done("init"), depend.MustOr(
					depend.Completion(depend.Path{Offset: -6 * time.Hour, Name: "model.post"}),
					depend.Not{Operand: prev},
				))},
				{Name: "post", Trigger: done("model.fcst")},
			},
		},
		{Name: "final", Trigger: done("model")},
	})
	require.NoError(t, err)
	return s
}

func TestCompile_WholeClock(t *testing.T) {
	for _, workers := range []int{1, 4} {
		c := New(testSuite(t, at(18)), Options{Workers: workers, Verify: true, Tracer: noop.NewTracerProvider().Tracer("test")})
		res, err := c.Compile(context.Background())
		require.NoError(t, err)

		_, err = uuid.Parse(res.RunID)
		require.NoError(t, err)
		assert.Equal(t, []time.Time{at(0), at(6), at(12), at(18)}, res.Cycles)
		assert.Equal(t, res.Cycles, res.Graph.Cycles())
		require.Len(t, res.Stats, 4)

		for i, cycle := range res.Cycles {
			st := res.Stats[i]
			assert.Equal(t, 5, st.Nodes)
			assert.GreaterOrEqual(t, st.Passes, 1)

			final, err := res.Graph.GetNode(cycle, depend.Path{Name: "final"})
			require.NoError(t, err)
			assert.True(t, final.CanNeverComplete(), "final is vetoed by default in %s", cycle)
		}

		first, err := res.Graph.GetNode(at(0), depend.Path{Name: "model.fcst"})
		require.NoError(t, err)
		assert.True(t, depend.Equal(done("init"), first.Trigger), "got %s", first.Trigger)

		later, err := res.Graph.GetNode(at(12), depend.Path{Name: "init"})
		require.NoError(t, err)
		assert.True(t, later.IsAlwaysComplete())
	}
}

func TestCompile_Range(t *testing.T) {
	c := New(testSuite(t, at(18)), Options{From: at(6), To: at(12), NeverRun: []string{}})
	res, err := c.Compile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Time{at(6), at(12)}, res.Cycles)

	final, err := res.Graph.GetNode(at(6), depend.Path{Name: "final"})
	require.NoError(t, err)
	assert.True(t, final.MightComplete(), "an empty never-run list vetoes nothing")
}

func TestCompile_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		end     time.Time
		opts    Options
		wantErr error
	}{
		{name: "from off the grid", end: at(18), opts: Options{From: at(3)}, wantErr: schedule.ErrOutsideClock},
		{name: "to past the end", end: at(18), opts: Options{To: at(24)}, wantErr: ErrInvalidRange},
		{name: "reversed range", end: at(18), opts: Options{From: at(12), To: at(6)}, wantErr: ErrInvalidRange},
		{name: "unbounded clock", end: time.Time{}, opts: Options{}, wantErr: schedule.ErrUnbounded},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(testSuite(t, tc.end), tc.opts).Compile(context.Background())
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCompile_UnboundedClockWithRange(t *testing.T) {
	res, err := New(testSuite(t, time.Time{}), Options{To: at(6)}).Compile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Time{at(0), at(6)}, res.Cycles)
}

func TestCompile_NeverRun(t *testing.T) {
	t.Run("unknown names are ignored", func(t *testing.T) {
		_, err := New(testSuite(t, at(6)), Options{NeverRun: []string{"missing", "final"}}).Compile(context.Background())
		require.NoError(t, err)
	})

	t.Run("vetoed family", func(t *testing.T) {
		res, err := New(testSuite(t, at(6)), Options{NeverRun: []string{"model"}}).Compile(context.Background())
		require.NoError(t, err)
		post, err := res.Graph.GetNode(at(6), depend.Path{Name: "model.post"})
		require.NoError(t, err)
		assert.True(t, post.CanNeverComplete())
	})

	t.Run("malformed name", func(t *testing.T) {
		_, err := New(testSuite(t, at(6)), Options{NeverRun: []string{"a..b"}}).Compile(context.Background())
		require.Error(t, err)
	})
}

func TestCompile_SelfReference(t *testing.T) {
	clock, err := schedule.New(at(0), 6*time.Hour, at(6))
	require.NoError(t, err)
	s, err := suite.New("loop", clock, nil, []*suite.Node{
		{Name: "a", Trigger: done("b")},
		{Name: "b", Trigger: done("a")},
	})
	require.NoError(t, err)

	_, err = New(s, Options{}).Compile(context.Background())
	require.ErrorIs(t, err, jobgraph.ErrSelfReferentialDependency)

	var selfRef *jobgraph.SelfReferenceError
	require.ErrorAs(t, err, &selfRef)
	assert.False(t, selfRef.TooDeep)
}

func TestCompile_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(testSuite(t, at(18)), Options{}).Compile(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCheck(t *testing.T) {
	cycles, err := New(testSuite(t, at(18)), Options{From: at(6)}).Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Time{at(6), at(12), at(18)}, cycles)
}
