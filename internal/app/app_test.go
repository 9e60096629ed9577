package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vk/metasched/internal/jobgraph"
	"github.com/vk/metasched/internal/report"
)

const demoSuite = `
suite "demo" {
  clock {
    start = "2024-01-01T00:00:00Z"
    step  = "6h"
    end   = "2024-01-01T12:00:00Z"
  }
}

task "init" {
  complete = cycle_exists("-6h")
}

family "model" {
  task "fcst" {
    trigger = init && (at(model.post, "-6h") || !cycle_exists("-6h"))
  }
  task "post" {
    trigger = model.fcst
  }
}

task "final" {
  trigger = model
}
`

func writeSuite(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "suite.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestApp_RunYAML(t *testing.T) {
	testApp, out, logs := SetupAppTest(t, Config{SuitePath: writeSuite(t, demoSuite)})

	require.NoError(t, testApp.Run(context.Background()))

	var plan report.Plan
	require.NoError(t, yaml.Unmarshal([]byte(out.String()), &plan))
	assert.Equal(t, "demo", plan.Suite)
	assert.NotEmpty(t, plan.RunID)
	require.Len(t, plan.Cycles, 3)
	assert.Equal(t, "2024-01-01T00:00:00Z", plan.Cycles[0].Cycle)

	var first []string
	for _, e := range plan.Cycles[0].Nodes {
		first = append(first, e.Path)
	}
	assert.Equal(t, []string{"init", "model", "model.fcst", "model.post"}, first)
	assert.Equal(t, "init=completed", plan.Cycles[0].Nodes[2].Trigger)

	// init is complete from the second cycle on.
	assert.Equal(t, "model", plan.Cycles[1].Nodes[0].Path)
	assert.Equal(t, "model.post@-6h=completed", plan.Cycles[1].Nodes[1].Trigger)

	assert.Contains(t, logs.String(), "Compile finished.")
	assert.Contains(t, logs.String(), "run_id=")
}

func TestApp_RunText(t *testing.T) {
	testApp, out, _ := SetupAppTest(t, Config{SuitePath: writeSuite(t, demoSuite), Format: "text", NeverRun: []string{}})

	require.NoError(t, testApp.Run(context.Background()))

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "suite demo\n"), text)
	assert.Contains(t, text, "  cycle 2024-01-01T06:00:00Z\n")
	assert.Contains(t, text, "    family model\n")
	assert.Contains(t, text, "        trigger model.post@-6h=completed\n")
	assert.Contains(t, text, "    task final\n", "nothing is vetoed with an empty never-run list")
	assert.True(t, strings.HasSuffix(text, "endsuite\n"))
}

func TestApp_RunToFile(t *testing.T) {
	output := filepath.Join(t.TempDir(), "out", "plan.yaml")
	testApp, out, _ := SetupAppTest(t, Config{SuitePath: writeSuite(t, demoSuite), Output: output})

	require.NoError(t, testApp.Run(context.Background()))
	assert.Empty(t, out.String())

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), "suite: demo")

	_, err = os.Stat(output + ".lock")
	require.NoError(t, err, "the lock file stays next to the output")
}

func TestApp_OutputLocked(t *testing.T) {
	output := filepath.Join(t.TempDir(), "plan.yaml")
	held := flock.New(output + ".lock")
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	testApp, _, _ := SetupAppTest(t, Config{SuitePath: writeSuite(t, demoSuite), Output: output})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err = testApp.Run(ctx)
	require.ErrorIs(t, err, ErrOutputLocked)

	_, err = os.Stat(output)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApp_RunErrors(t *testing.T) {
	t.Run("load failure", func(t *testing.T) {
		testApp, _, _ := SetupAppTest(t, Config{SuitePath: writeSuite(t, `task "a" {}`)})
		err := testApp.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load suite")
	})

	t.Run("self reference", func(t *testing.T) {
		src := strings.Replace(demoSuite, `trigger = model.fcst`, `trigger = model.fcst && final`, 1)
		testApp, _, _ := SetupAppTest(t, Config{SuitePath: writeSuite(t, src)})
		err := testApp.Run(context.Background())
		require.ErrorIs(t, err, jobgraph.ErrSelfReferentialDependency)
	})
}

func TestApp_Check(t *testing.T) {
	testApp, out, _ := SetupAppTest(t, Config{SuitePath: writeSuite(t, demoSuite)})

	require.NoError(t, testApp.Check(context.Background()))
	assert.Equal(t, "suite demo: 5 nodes, 3 cycles, no self-referential dependencies\n", out.String())
}

func TestSimplify(t *testing.T) {
	var out SafeBuffer
	require.NoError(t, Simplify(&out, "a && a"))
	assert.Equal(t, "input:      ( a=completed & a=completed )\nsimplified: a=completed\ncomplexity: 2.4 -> 1\n", out.String())

	err := Simplify(&out, "a +")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse expression")
}
