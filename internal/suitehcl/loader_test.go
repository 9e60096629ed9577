package suitehcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/metasched/internal/depend"
	"github.com/vk/metasched/internal/suite"
)

const suiteHCL = `
suite "test" {
  clock {
    start = "2024-01-01T00:00:00Z"
    step  = "6h"
    end   = "2024-01-02T00:00:00Z"
  }
  alarm "daily" {
    start = "2024-01-01T00:00:00Z"
    step  = "1d"
  }
}

family "gdas" {
  task "prep" {
    trigger = at(gdas.fcst, "-6h") || !cycle_exists("-6h")
    events  = ["obs_ready"]
  }
  task "fcst" {
    trigger = event(gdas.prep, "obs_ready")
    time    = "1h"
  }
  array "post" {
    dimensions = { lead = [0, 6], grp = ["a", "b"] }
    task "step" {
      foreach = ["grp"]
      name    = "step_${dimval.grp}"
      trigger = completed("gdas.fcst")
    }
    task "prod" {
      trigger = completed("gdas.post.step_${dimval.grp}")
    }
  }
}
`

const finalHCL = `
task "final" {
  alarm    = "daily"
  trigger  = gdas
  complete = false
  disable  = true
}
`

// writeFiles creates files under a temporary directory and returns it.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestLoader_Load(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a_suite.hcl":   suiteHCL,
		"b_final.hcl":   finalHCL,
		"notes.txt":     "not hcl",
		".hidden/x.hcl": "this would not parse",
	})

	s, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "test", s.Name)
	assert.Equal(t, start, s.Clock.Start)
	assert.Equal(t, 6*time.Hour, s.Clock.Step)
	assert.Equal(t, start.Add(24*time.Hour), s.Clock.End)

	require.Len(t, s.Nodes, 2)
	assert.Equal(t, "gdas", s.Nodes[0].Name)
	assert.Equal(t, "final", s.Nodes[1].Name)

	t.Run("task attributes", func(t *testing.T) {
		fcst, ok := s.Node(depend.Path{Name: "gdas.fcst"})
		require.True(t, ok)
		assert.Equal(t, time.Hour, fcst.Time)
		assert.Equal(t, depend.Event{Task: depend.Path{Name: "gdas.prep"}, Name: "obs_ready"}, fcst.Trigger)

		prep, ok := s.Node(depend.Path{Name: "gdas.prep"})
		require.True(t, ok)
		assert.Equal(t, []string{"obs_ready"}, prep.EventIDs)
		assert.Equal(t, "( gdas.fcst@-6h=completed | ~ cycle_exists(-6h) )", prep.Trigger.String())
		assert.Nil(t, prep.Complete)
	})

	t.Run("array expansion", func(t *testing.T) {
		post, ok := s.Node(depend.Path{Name: "gdas.post"})
		require.True(t, ok)
		assert.Equal(t, suite.KindFamily, post.Kind)

		var names []string
		for _, n := range post.Nodes {
			names = append(names, n.Name)
		}
		assert.Equal(t, []string{"step_a", "step_b", "prod_a_0", "prod_a_6", "prod_b_0", "prod_b_6"}, names)

		prod, ok := s.Node(depend.Path{Name: "gdas.post.prod_b_6"})
		require.True(t, ok)
		assert.Equal(t, completed("gdas.post.step_b"), prod.Trigger)
	})

	t.Run("alarm and disable", func(t *testing.T) {
		final, ok := s.Node(depend.Path{Name: "final"})
		require.True(t, ok)
		assert.True(t, final.Disable)
		assert.Equal(t, depend.False, final.Complete)
		assert.Equal(t, completed("gdas"), final.Trigger)
		assert.Equal(t, 24*time.Hour, final.Recurrence().Step)
		assert.True(t, final.Recurs(start))
		assert.False(t, final.Recurs(start.Add(6*time.Hour)))
	})
}

func TestLoader_SingleFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{"suite.hcl": suiteHCL + finalHCL})

	s, err := NewLoader().Load(context.Background(), filepath.Join(dir, "suite.hcl"))
	require.NoError(t, err)
	assert.Equal(t, 11, s.Len())
}

func TestLoader_Errors(t *testing.T) {
	const clockOnly = `
suite "s" {
  clock {
    start = "2024-01-01T00:00:00Z"
    step  = "6h"
  }
}
`
	testCases := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "no files",
			files:   map[string]string{"readme.md": "# nothing"},
			wantErr: "no .hcl files found",
		},
		{
			name:    "no suite block",
			files:   map[string]string{"a.hcl": `task "a" {}`},
			wantErr: "no \"suite\" block defined",
		},
		{
			name:    "duplicate suite block",
			files:   map[string]string{"a.hcl": clockOnly, "b.hcl": clockOnly},
			wantErr: "Duplicate \"suite\" block",
		},
		{
			name:    "syntax error",
			files:   map[string]string{"a.hcl": clockOnly + `task "a" {`},
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "bad clock step",
			files:   map[string]string{"a.hcl": `suite "s" {
  clock {
    start = "2024-01-01T00:00:00Z"
    step  = "often"
  }
}`},
			wantErr: "invalid duration",
		},
		{
			name:    "undefined reference",
			files:   map[string]string{"a.hcl": clockOnly + `task "a" { trigger = b }`},
			wantErr: "reference to undefined node",
		},
		{
			name:    "unknown alarm",
			files:   map[string]string{"a.hcl": clockOnly + `task "a" { alarm = "weekly" }`},
			wantErr: "unknown alarm",
		},
		{
			name: "unknown foreach dimension",
			files: map[string]string{"a.hcl": clockOnly + `
array "arr" {
  dimensions = { mem = ["1", "2"] }
  task "t" { foreach = ["lead"] }
}
`},
			wantErr: "Unknown dimension",
		},
		{
			name:    "bad dependency",
			files:   map[string]string{"a.hcl": clockOnly + `task "a" { trigger = 42 }`},
			wantErr: "Invalid dependency",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeFiles(t, tc.files)
			_, err := NewLoader().Load(context.Background(), dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoader_MissingPath(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
