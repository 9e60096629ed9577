package app

import (
	"context"
	"fmt"
	"io"

	"github.com/vk/metasched/internal/compiler"
	"github.com/vk/metasched/internal/ctxlog"
	"github.com/vk/metasched/internal/report"
)

// compilerOptions maps the config onto compiler options.
func (a *App) compilerOptions() compiler.Options {
	return compiler.Options{
		From:     a.config.From,
		To:       a.config.To,
		NeverRun: a.config.NeverRun,
		Workers:  a.config.Workers,
		MaxDepth: a.config.MaxDepth,
		Verify:   a.config.Verify,
	}
}

// Run loads and compiles the suite and writes the resulting plan.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	s, err := a.loadSuite(ctx)
	if err != nil {
		return fmt.Errorf("failed to load suite: %w", err)
	}

	res, err := compiler.New(s, a.compilerOptions()).Compile(ctx)
	if err != nil {
		return fmt.Errorf("failed to compile suite %q: %w", s.Name, err)
	}

	plan, err := report.Build(res.Graph, res.Cycles, report.Options{
		Suite:  s.Name,
		RunID:  res.RunID,
		Expand: a.config.Expand,
	})
	if err != nil {
		return fmt.Errorf("failed to build plan: %w", err)
	}

	write := func(w io.Writer) error {
		if a.config.Format == "text" {
			return report.WriteText(w, plan)
		}
		return report.WriteYAML(w, plan)
	}
	if a.config.Output == "" {
		if err := write(a.outW); err != nil {
			return fmt.Errorf("failed to write plan: %w", err)
		}
	} else {
		if err := writeOutput(ctx, a.config.Output, write); err != nil {
			return err
		}
		a.logger.Info("Plan written.", "path", a.config.Output)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// Check loads the suite and verifies its dependency chains over the
// configured cycles.
func (a *App) Check(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	s, err := a.loadSuite(ctx)
	if err != nil {
		return fmt.Errorf("failed to load suite: %w", err)
	}

	cycles, err := compiler.New(s, a.compilerOptions()).Check(ctx)
	if err != nil {
		return fmt.Errorf("suite %q: %w", s.Name, err)
	}

	_, err = fmt.Fprintf(a.outW, "suite %s: %d nodes, %d cycles, no self-referential dependencies\n",
		s.Name, s.Len(), len(cycles))
	return err
}
