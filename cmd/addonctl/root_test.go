package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/addonctl/internal/domain/addonerr"
)

func TestRootCommand_UseLine(t *testing.T) {
	assert.Equal(t, "addonctl", rootCmd.Use)
}

func TestRootCommand_HasPersistentFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	t.Run("sim-root flag exists", func(t *testing.T) {
		flag := flags.Lookup("sim-root")
		require.NotNil(t, flag)
		assert.Empty(t, flag.DefValue)
	})

	t.Run("config flag defaults to addonctl.toml", func(t *testing.T) {
		flag := flags.Lookup("config")
		require.NotNil(t, flag)
		assert.Equal(t, "addonctl.toml", flag.DefValue)
	})

	t.Run("locks flag defaults to locks.yaml", func(t *testing.T) {
		flag := flags.Lookup("locks")
		require.NotNil(t, flag)
		assert.Equal(t, "locks.yaml", flag.DefValue)
	})

	t.Run("yes flag exists", func(t *testing.T) {
		flag := flags.Lookup("yes")
		require.NotNil(t, flag)
		assert.Equal(t, "false", flag.DefValue)
	})
}

func TestRootCommand_RegistersSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"install", "scenery", "locks", "update", "version"} {
		assert.True(t, names[want], "expected %q subcommand to be registered", want)
	}
}

func TestFormatError_PlainError(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, "boom", formatError(err))
}

func TestFormatError_AddonErrorWithoutVerbose(t *testing.T) {
	orig := verbose
	verbose = false
	defer func() { verbose = orig }()

	err := addonerr.New(addonerr.BadInputPath, "no such path").
		WithPath("/tmp/x").
		WithSuggestion("check the path").
		Wrap(errors.New("stat: no such file"))

	msg := formatError(err)
	assert.Contains(t, msg, "[BadInputPath] no such path")
	assert.Contains(t, msg, "/tmp/x")
	assert.Contains(t, msg, "check the path")
	assert.NotContains(t, msg, "stat: no such file")
}

func TestFormatError_AddonErrorWithVerbose(t *testing.T) {
	orig := verbose
	verbose = true
	defer func() { verbose = orig }()

	err := addonerr.New(addonerr.Internal, "failed").Wrap(errors.New("underlying cause"))

	msg := formatError(err)
	assert.Contains(t, msg, "underlying cause")
}

func TestPrintErrorTo_WritesErrorPrefix(t *testing.T) {
	var buf bytes.Buffer
	printErrorTo(&buf, errors.New("failed to do the thing"))
	assert.Equal(t, "Error: failed to do the thing\n", buf.String())
}

func TestRequireSimRoot(t *testing.T) {
	orig := simRoot
	defer func() { simRoot = orig }()

	simRoot = ""
	assert.Error(t, requireSimRoot())

	simRoot = "/Users/pilot/X-Plane 12"
	assert.NoError(t, requireSimRoot())
}
