package cli

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aperrors "github.com/talentops/autopilot/internal/errors"
)

// chdir stands in for t.Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestRootSubcommands(t *testing.T) {
	want := []string{"init", "process", "dispatch", "list", "log", "version"}

	got := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		got[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, got[name], "missing subcommand %s", name)
	}
}

func TestProcessFlags(t *testing.T) {
	cmd := newProcessCmd()

	for _, name := range []string{
		"limit", "max-runtime-seconds", "applicant-id", "dry-run",
		"max-iterations", "max-output-tokens", "no-web-search", "model",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %s", name)
	}
}

func TestProcessRequiresInit(t *testing.T) {
	chdir(t, t.TempDir())

	cmd := newProcessCmd()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, aperrors.HasCode(err, aperrors.CodeNotInitialized))
}

func TestLogRequiresInit(t *testing.T) {
	chdir(t, t.TempDir())

	cmd := newLogCmd()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"42"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, aperrors.HasCode(err, aperrors.CodeNotInitialized))
}
