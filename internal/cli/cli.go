package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vk/metasched/internal/app"
	"github.com/vk/metasched/internal/compiler"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// flagValues receives the raw flag values before they are merged over the
// settings file.
type flagValues struct {
	configPath string
	output     string
	format     string
	logFormat  string
	logLevel   string
	workers    int
	from       string
	to         string
	neverRun   []string
	maxDepth   int
	verify     bool
	expand     bool
}

// Run executes the metasched command line. Plans and reports go to outW,
// logs and usage errors to errW.
func Run(ctx context.Context, args []string, outW, errW io.Writer, loader app.SuiteLoader) error {
	root := NewRootCommand(outW, errW, loader)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the metasched command tree.
func NewRootCommand(outW, errW io.Writer, loader app.SuiteLoader) *cobra.Command {
	fv := &flagValues{}

	root := &cobra.Command{
		Use:   "metasched",
		Short: "Compile cyclic workflow suites into scheduler plans",
		Long: `metasched reads a workflow suite written in HCL, instantiates it for every
cycle of its clock, and simplifies each task's trigger and completion
conditions. Tasks that can never run or are always complete are pruned; the
rest are written out as a plan.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("%s", err.Error())
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&fv.configPath, "config", "c", "", "Path to a TOML settings file.")
	pf.StringVar(&fv.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.StringVar(&fv.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.IntVar(&fv.workers, "workers", 1, "Number of cycles compiled concurrently.")
	pf.StringVar(&fv.from, "from", "", "First cycle to compile (RFC 3339). Defaults to the clock start.")
	pf.StringVar(&fv.to, "to", "", "Last cycle to compile (RFC 3339). Defaults to the clock end.")
	pf.StringSliceVar(&fv.neverRun, "never-run", compiler.DefaultNeverRun, "Nodes that never run in any cycle.")
	pf.IntVar(&fv.maxDepth, "max-depth", 0, "Longest dependency chain followed. 0 uses the built-in limit.")

	compileCmd := &cobra.Command{
		Use:   "compile SUITE_PATH",
		Short: "Compile a suite and write its plan",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd.Flags(), fv, args[0])
			if err != nil {
				return err
			}
			return app.NewApp(outW, errW, cfg, loader).Run(cmd.Context())
		},
	}
	compileCmd.Flags().StringVarP(&fv.output, "output", "o", "", "Write the plan to this file instead of stdout.")
	compileCmd.Flags().StringVarP(&fv.format, "format", "f", "yaml", "Plan format. Options: 'yaml' or 'text'.")
	compileCmd.Flags().BoolVar(&fv.verify, "verify", false, "Check every simplification with a SAT solver.")
	compileCmd.Flags().BoolVar(&fv.expand, "expand", false, "Inline completion conditions into triggers.")

	checkCmd := &cobra.Command{
		Use:   "check SUITE_PATH",
		Short: "Load a suite and check it for self-referential dependencies",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd.Flags(), fv, args[0])
			if err != nil {
				return err
			}
			return app.NewApp(outW, errW, cfg, loader).Check(cmd.Context())
		},
	}

	simplifyCmd := &cobra.Command{
		Use:   "simplify EXPR",
		Short: "Simplify a single dependency expression",
		Example: `  metasched simplify '!!a && (b || true)'
  metasched simplify 'at(post, "-6h") || !cycle_exists("-6h")'`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Debug("Simplifying expression.", "expr", args[0])
			err := app.Simplify(outW, args[0])
			if err != nil {
				return usageError("%s", err.Error())
			}
			return nil
		},
	}

	root.AddCommand(compileCmd, checkCmd, simplifyCmd)
	return root
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError("%s: %s\nUsage: %s", cmd.Name(), err.Error(), cmd.UseLine())
		}
		return nil
	}
}

// buildConfig layers explicitly set flags over the settings file and
// validates the result.
func buildConfig(flags *pflag.FlagSet, fv *flagValues, suitePath string) (*app.Config, error) {
	var cfg app.Config
	if fv.configPath != "" {
		loaded, err := app.LoadFile(fv.configPath, cfg)
		if err != nil {
			return nil, usageError("%s", err.Error())
		}
		cfg = loaded
		slog.Debug("Settings file loaded.", "path", fv.configPath)
	}

	set := func(name string, apply func()) {
		if fv.configPath == "" || flags.Changed(name) {
			apply()
		}
	}
	set("output", func() { cfg.Output = fv.output })
	set("format", func() { cfg.Format = fv.format })
	set("log-format", func() { cfg.LogFormat = fv.logFormat })
	set("log-level", func() { cfg.LogLevel = fv.logLevel })
	set("workers", func() { cfg.Workers = fv.workers })
	set("never-run", func() { cfg.NeverRun = fv.neverRun })
	set("max-depth", func() { cfg.MaxDepth = fv.maxDepth })
	set("verify", func() { cfg.Verify = fv.verify })
	set("expand", func() { cfg.Expand = fv.expand })

	for _, bound := range []struct {
		name  string
		value string
		dst   *time.Time
	}{
		{"from", fv.from, &cfg.From},
		{"to", fv.to, &cfg.To},
	} {
		if bound.value == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, bound.value)
		if err != nil {
			return nil, usageError("invalid --%s: %s", bound.name, err.Error())
		}
		*bound.dst = t.UTC()
	}

	if suitePath != "" {
		cfg.SuitePath = suitePath
	}

	validated, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError("%s", err.Error())
	}
	return validated, nil
}
