package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdHasSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"serve", "worker", "migrate", "sweep"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestSweepWithMemoryBackends(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "cli-access-secret-cli-access-secret-0000")
	t.Setenv("JWT_REFRESH_SECRET", "cli-refresh-secret-cli-refresh-secret-00")
	t.Setenv("USER_BACKEND", "memory")
	t.Setenv("TOKEN_BACKEND", "memory")
	t.Setenv("BCRYPT_COST", "4")

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"sweep"})

	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Removed 0 expired tokens")
}

func TestCommandsFailWithoutSecrets(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	for _, name := range []string{"serve", "worker", "migrate", "sweep"} {
		t.Run(name, func(t *testing.T) {
			cmd := NewRootCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs([]string{name})
			assert.Error(t, cmd.ExecuteContext(context.Background()))
		})
	}
}
