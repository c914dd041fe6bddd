package harness

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/ethereum-optimism/infra/op-harness/check"
	"github.com/ethereum-optimism/infra/op-harness/exitcodes"
	"github.com/ethereum-optimism/infra/op-harness/flags"
	"github.com/ethereum-optimism/infra/op-harness/registry"
	"github.com/ethereum-optimism/infra/op-harness/types"
)

func pass(context.Context, *check.T) error { return nil }

func newRegistry(t *testing.T, cases ...registry.TestCase) *registry.Registry {
	reg := registry.New(registry.Config{Log: log.NewLogger(log.DiscardHandler())})
	require.NoError(t, reg.Add(cases...))
	return reg
}

// runApp runs reg through the full command line application.
func runApp(t *testing.T, reg *registry.Registry, args ...string) (string, error) {
	var buf bytes.Buffer
	app := NewApp(reg)
	app.Writer = &buf
	app.ErrWriter = &buf
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := app.RunContext(ctx, append([]string{"op-harness", "--log.level", "error"}, args...))
	return buf.String(), err
}

func TestRunPassing(t *testing.T) {
	reg := newRegistry(t,
		registry.Test("s", "a", pass),
		registry.Test("s", "b", pass),
		registry.Test("s", "c", pass, registry.Skip("not today")),
	)
	logDir := t.TempDir()

	out, err := runApp(t, reg, "--format", flags.FormatJSON, "--logdir", logDir)
	require.NoError(t, err)
	assert.Equal(t, exitcodes.Success, ExitCode(err))
	assert.Contains(t, out, `"Action":"pass","Package":"s","Test":"s.a"`)
	assert.Contains(t, out, `"Action":"skip","Package":"s","Test":"s.c"`)
	assert.True(t, reg.Sealed())

	runs, err := filepath.Glob(filepath.Join(logDir, "testrun-*"))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.FileExists(t, filepath.Join(runs[0], "summary.log"))
	assert.FileExists(t, filepath.Join(runs[0], "passed", "s.a.log"))
}

func TestRunFailing(t *testing.T) {
	reg := newRegistry(t,
		registry.Test("s", "ok", pass),
		registry.Test("s", "bad", func(ctx context.Context, t *check.T) error {
			t.AssertEqual(1, 2)
			return nil
		}),
	)

	out, err := runApp(t, reg, "--format", flags.FormatConsole, "--logdir", "")
	require.Error(t, err)
	assert.True(t, IsTestFailureError(err))
	assert.Equal(t, exitcodes.TestFailure, ExitCode(err))
	assert.Contains(t, out, "s.bad")
}

func TestRunTable(t *testing.T) {
	reg := newRegistry(t, registry.Test("s", "ok", pass))

	out, err := runApp(t, reg, "--logdir", "", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "s.ok")
}

func TestRunRuntimeErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing plan file", args: []string{"--plan", filepath.Join(t.TempDir(), "missing.yaml")}},
		{name: "profile without plan", args: []string{"--profile", "x"}},
		{name: "bad format", args: []string{"--format", "xml"}},
		{name: "bad attribute", args: []string{"--include", "=v"}},
		{name: "unknown profile", args: []string{"--plan", writePlan(t, planYAML), "--profile", "nope"}},
		{name: "override of unknown test", args: []string{"--plan", writePlan(t, "profiles: []\noverrides:\n  - id: nope\n    skip: x\n")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newRegistry(t, registry.Test("s", "ok", pass))
			_, err := runApp(t, reg, append([]string{"--logdir", ""}, tt.args...)...)
			require.Error(t, err)
			assert.True(t, IsRuntimeError(err), "got %v", err)
			assert.Equal(t, exitcodes.RuntimeErr, ExitCode(err))
		})
	}
}

const planYAML = `
profiles:
  - id: base
    suites: [keep]
    time_limit: 50ms
    max_concurrency: 2
  - id: child
    inherits: [base]
overrides:
  - id: keep.slow
    time_limit: 0s
`

func writePlan(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunWithProfile(t *testing.T) {
	reg := newRegistry(t,
		registry.Test("keep", "slow", func(ctx context.Context, t *check.T) error {
			time.Sleep(100 * time.Millisecond)
			return nil
		}),
		registry.Test("drop", "bad", func(ctx context.Context, t *check.T) error {
			return errors.New("should not run")
		}),
	)

	out, err := runApp(t, reg, "--plan", writePlan(t, planYAML), "--profile", "child", "--format", flags.FormatJSON, "--logdir", "")
	require.NoError(t, err, "the override lifts the profile time limit and drop.bad is filtered out")
	assert.Contains(t, out, `"Test":"keep.slow"`)
	assert.NotContains(t, out, "drop.bad")
}

// configFromArgs parses args with the harness flags and returns the resulting config.
func configFromArgs(t *testing.T, args ...string) (*Config, error) {
	var cfg *Config
	var cfgErr error
	app := cli.NewApp()
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = func(ctx *cli.Context) error {
		cfg, cfgErr = NewConfig(ctx, log.NewLogger(log.DiscardHandler()))
		return nil
	}
	require.NoError(t, app.Run(append([]string{"op-harness"}, args...)))
	return cfg, cfgErr
}

func TestNewConfig(t *testing.T) {
	plan := writePlan(t, planYAML)

	t.Run("defaults", func(t *testing.T) {
		cfg, err := configFromArgs(t)
		require.NoError(t, err)
		assert.Equal(t, flags.FormatTable, cfg.Format)
		assert.True(t, filepath.IsAbs(cfg.LogDir))
		assert.Equal(t, "logs", filepath.Base(cfg.LogDir))
		assert.True(t, cfg.Filter.IsEmpty())
		assert.Zero(t, cfg.MaxConcurrency)
		assert.False(t, cfg.Serve)
		assert.Nil(t, cfg.Plan())
	})

	t.Run("flags", func(t *testing.T) {
		cfg, err := configFromArgs(t,
			"--suite", "a", "--suite", "b", "--id", "a.x",
			"--include", "area=math", "--exclude", "slow",
			"--default-time-limit", "3s", "--max-concurrency", "5",
			"--metrics.enabled", "--metrics.port", "9999")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, cfg.Filter.Suites)
		assert.Equal(t, []string{"a.x"}, cfg.Filter.IDs)
		assert.Equal(t, []types.Attribute{{Key: "area", Value: "math"}}, []types.Attribute(cfg.Filter.Include))
		assert.Equal(t, []types.Attribute{{Key: "slow"}}, []types.Attribute(cfg.Filter.Exclude))
		assert.Equal(t, 3*time.Second, cfg.DefaultTimeLimit)
		assert.Equal(t, 5, cfg.MaxConcurrency)
		assert.True(t, cfg.Serve)
		assert.Equal(t, 9999, cfg.Service.MetricsPort)
	})

	t.Run("profile values", func(t *testing.T) {
		cfg, err := configFromArgs(t, "--plan", plan, "--profile", "child")
		require.NoError(t, err)
		assert.Equal(t, []string{"keep"}, cfg.Filter.Suites)
		assert.Equal(t, 50*time.Millisecond, cfg.DefaultTimeLimit)
		assert.Equal(t, 2, cfg.MaxConcurrency)
		assert.NotNil(t, cfg.Plan())
	})

	t.Run("flags override profile", func(t *testing.T) {
		cfg, err := configFromArgs(t, "--plan", plan, "--profile", "base",
			"--suite", "other", "--max-concurrency", "0", "--default-time-limit", "1s")
		require.NoError(t, err)
		assert.Equal(t, []string{"other"}, cfg.Filter.Suites)
		assert.Equal(t, time.Second, cfg.DefaultTimeLimit)
		assert.Zero(t, cfg.MaxConcurrency)
	})
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitcodes.Success},
		{"runtime", NewRuntimeError(errors.New("x")), exitcodes.RuntimeErr},
		{"wrapped runtime", errors.Join(errors.New("failed to setup"), NewRuntimeError(errors.New("x"))), exitcodes.RuntimeErr},
		{"test failure", NewTestFailureError("1 failed"), exitcodes.TestFailure},
		{"exit coder", cli.Exit("bye", 3), 3},
		{"other", errors.New("x"), exitcodes.TestFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestNewRequiresConfigAndRegistry(t *testing.T) {
	_, err := New(nil, newRegistry(t), "v", nil)
	assert.Error(t, err)
	_, err = New(&Config{Log: log.NewLogger(log.DiscardHandler())}, nil, "v", nil)
	assert.Error(t, err)
}
