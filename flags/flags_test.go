package flags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"
)

func checkArgs(t *testing.T, args ...string) error {
	var checkErr error
	app := cli.NewApp()
	app.Flags = cliapp.ProtectFlags(Flags)
	app.Action = func(ctx *cli.Context) error {
		checkErr = CheckRequired(ctx)
		return nil
	}
	require.NoError(t, app.Run(append([]string{"op-harness"}, args...)))
	return checkErr
}

func TestCheckRequired(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "defaults"},
		{name: "plan and profile", args: []string{"--plan", "plan.yaml", "--profile", "nightly"}},
		{name: "profile without plan", args: []string{"--profile", "nightly"}, wantErr: "requires plan"},
		{name: "json format", args: []string{"--format", FormatJSON}},
		{name: "unknown format", args: []string{"--format", "xml"}, wantErr: `unknown format "xml"`},
		{name: "negative concurrency", args: []string{"--max-concurrency", "-1"}, wantErr: "must not be negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkArgs(t, tt.args...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestFlagsCarryEnvPrefix(t *testing.T) {
	for _, f := range optionalFlags {
		envs := f.(interface{ GetEnvVars() []string }).GetEnvVars()
		require.NotEmpty(t, envs, f.Names()[0])
		assert.Regexp(t, "^"+EnvVarPrefix+"_", envs[0], f.Names()[0])
	}
}
