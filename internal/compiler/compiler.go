// Package compiler drives a suite through the job graph: it instantiates the
// requested cycles, checks dependency chains, applies never-run vetoes and
// runs the solver on every cycle.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vk/metasched/internal/ctxlog"
	"github.com/vk/metasched/internal/depend"
	"github.com/vk/metasched/internal/jobgraph"
	"github.com/vk/metasched/internal/schedule"
	"github.com/vk/metasched/internal/suite"
)

const tracerName = "github.com/vk/metasched/internal/compiler"

var (
	ErrNoCycles     = errors.New("no cycles selected")
	ErrInvalidRange = errors.New("invalid cycle range")
)

// DefaultNeverRun lists the nodes vetoed when Options.NeverRun is nil.
var DefaultNeverRun = []string{"final"}

// Options controls a compile.
type Options struct {
	// From and To bound the compiled cycles. Zero values mean the clock's
	// start and end.
	From, To time.Time
	// NeverRun names nodes vetoed in every cycle. Nil means DefaultNeverRun;
	// an empty non-nil slice vetoes nothing. Names missing from the suite are
	// skipped with a warning.
	NeverRun []string
	// Workers is the number of cycles solved in parallel. Zero or less
	// means one.
	Workers  int
	MaxDepth int
	Verify   bool
	// Tracer receives the compile spans. Nil uses the global provider.
	Tracer trace.Tracer
}

// Result is a compiled suite.
type Result struct {
	RunID  string
	Suite  *suite.Suite
	Graph  *jobgraph.Graph
	Cycles []time.Time
	// Stats holds the solver statistics of Cycles[i] at index i.
	Stats  []jobgraph.Stats
}

// Compiler compiles one suite.
type Compiler struct {
	suite  *suite.Suite
	opts   Options
	tracer trace.Tracer
}

// New creates a compiler for s.
func New(s *suite.Suite, opts Options) *Compiler {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.NeverRun == nil {
		opts.NeverRun = DefaultNeverRun
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Compiler{suite: s, opts: opts, tracer: tracer}
}

// Compile builds the job graph and solves every selected cycle.
func (c *Compiler) Compile(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	ctx = ctxlog.With(ctx, "run_id", runID)
	logger := ctxlog.FromContext(ctx)

	ctx, span := c.tracer.Start(ctx, "compiler.Compile", trace.WithAttributes(
		attribute.String("metasched.run_id", runID),
		attribute.String("metasched.suite", c.suite.Name),
	))
	defer span.End()

	res, err := c.compile(ctx, runID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("metasched.cycles", len(res.Cycles)))
	span.SetStatus(codes.Ok, "")

	logger.Info("🏁 Compile finished.", "suite", c.suite.Name, "cycles", len(res.Cycles))
	return res, nil
}

// Check instantiates the selected cycles and verifies that no dependency
// chain leads back to where it started, without running the solver.
func (c *Compiler) Check(ctx context.Context) ([]time.Time, error) {
	ctx, span := c.tracer.Start(ctx, "compiler.Check", trace.WithAttributes(
		attribute.String("metasched.suite", c.suite.Name),
	))
	defer span.End()

	_, cycles, err := c.build(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return cycles, nil
}

// build selects the cycles, adds them to a new graph and checks their
// dependency chains.
func (c *Compiler) build(ctx context.Context) (*jobgraph.Graph, []time.Time, error) {
	logger := ctxlog.FromContext(ctx)

	cycles, err := c.selectCycles()
	if err != nil {
		return nil, nil, err
	}
	logger.Info("🚀 Starting compile.", "suite", c.suite.Name, "cycles", len(cycles),
		"first", cycles[0], "last", cycles[len(cycles)-1], "workers", c.opts.Workers)

	graph := jobgraph.New(c.suite, jobgraph.Options{MaxDepth: c.opts.MaxDepth, Verify: c.opts.Verify})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for _, cycle := range cycles {
		g.Go(func() error { return graph.AddCycle(gctx, cycle) })
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// Chain checks share a cache, so walk cycles in order on one goroutine.
	for _, cycle := range cycles {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if err := graph.CheckDependencyChains(cycle); err != nil {
			return nil, nil, err
		}
	}
	logger.Debug("Dependency chains verified.", "cycles", len(cycles))
	return graph, cycles, nil
}

func (c *Compiler) compile(ctx context.Context, runID string) (*Result, error) {
	graph, cycles, err := c.build(ctx)
	if err != nil {
		return nil, err
	}

	vetoes, err := c.vetoes(ctx)
	if err != nil {
		return nil, err
	}

	stats := make([]jobgraph.Stats, len(cycles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for i, cycle := range cycles {
		g.Go(func() error {
			st, err := c.solveCycle(gctx, graph, cycle, vetoes)
			stats[i] = st
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Result{
		RunID:  runID,
		Suite:  c.suite,
		Graph:  graph,
		Cycles: cycles,
		Stats:  stats,
	}, nil
}

func (c *Compiler) solveCycle(ctx context.Context, graph *jobgraph.Graph, cycle time.Time, vetoes []depend.Path) (jobgraph.Stats, error) {
	ctx, span := c.tracer.Start(ctx, "compiler.cycle", trace.WithAttributes(
		attribute.String("metasched.cycle", cycle.Format(time.RFC3339)),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return jobgraph.Stats{}, err
	}

	for _, p := range vetoes {
		if err := graph.ForceNeverRun(cycle, p); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return jobgraph.Stats{}, err
		}
	}

	st, err := graph.SimplifyCycle(ctx, cycle)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return st, fmt.Errorf("cycle %s: %w", cycle.Format(time.RFC3339), err)
	}

	span.SetAttributes(
		attribute.Int("metasched.nodes", st.Nodes),
		attribute.Int("metasched.passes", st.Passes),
		attribute.Int("metasched.open", st.Open()),
	)
	return st, nil
}

// selectCycles turns the configured range into a list of clock cycles.
func (c *Compiler) selectCycles() ([]time.Time, error) {
	clock := c.suite.Clock
	for _, bound := range []time.Time{c.opts.From, c.opts.To} {
		if !bound.IsZero() && !clock.Contains(bound) {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRange, bound.Format(time.RFC3339), schedule.ErrOutsideClock)
		}
	}
	if !c.opts.From.IsZero() && !c.opts.To.IsZero() && c.opts.To.Before(c.opts.From) {
		return nil, fmt.Errorf("%w: %s is before %s", ErrInvalidRange,
			c.opts.To.Format(time.RFC3339), c.opts.From.Format(time.RFC3339))
	}

	cycles, err := clock.Cycles(c.opts.From, c.opts.To)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRange, err)
	}
	if len(cycles) == 0 {
		return nil, ErrNoCycles
	}
	return cycles, nil
}

// vetoes resolves the never-run names against the suite.
func (c *Compiler) vetoes(ctx context.Context) ([]depend.Path, error) {
	logger := ctxlog.FromContext(ctx)

	var out []depend.Path
	for _, name := range c.opts.NeverRun {
		p, err := depend.ParsePath(name)
		if err != nil {
			return nil, fmt.Errorf("never-run node: %w", err)
		}
		if p.Offset != 0 {
			return nil, fmt.Errorf("never-run node %q: offsets are not allowed", name)
		}
		if _, ok := c.suite.Lookup(p); !ok {
			logger.Warn("Never-run node is not defined in the suite; ignoring.", "node", name)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
