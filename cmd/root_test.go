package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"prep", "stratify", "sample", "classcount", "strata", "runs"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "vhr-sample", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestPrepCommand_Flags(t *testing.T) {
	for _, name := range []string{"lcmap", "thresh", "ndv", "lc-ndv", "strata-values", "workers"} {
		assert.NotNil(t, prepCmd.Flags().Lookup(name), "prep should have --%s flag", name)
	}
}

func TestStratifyCommand_Flags(t *testing.T) {
	flag := stratifyCmd.Flags().Lookup("all")
	require.NotNil(t, flag, "stratify command should have --all flag")
	assert.Equal(t, "false", flag.DefValue)

	for _, name := range []string{"method", "size", "threshold", "allocation", "seed", "summary"} {
		assert.NotNil(t, stratifyCmd.Flags().Lookup(name), "stratify should have --%s flag", name)
	}
}

func TestSampleCommand_Flags(t *testing.T) {
	for _, name := range []string{"mode", "size", "allocation", "mask", "margin", "seed", "summary"} {
		assert.NotNil(t, sampleCmd.Flags().Lookup(name), "sample should have --%s flag", name)
	}
}

func TestStrataCommand_Defaults(t *testing.T) {
	flag := strataCmd.Flags().Lookup("in-forest")
	require.NotNil(t, flag)
	assert.Equal(t, "2", flag.DefValue)
	assert.Equal(t, "5", strataCmd.Flags().Lookup("out-forest").DefValue)
	assert.Equal(t, "6", strataCmd.Flags().Lookup("out-nonforest").DefValue)
	assert.Equal(t, "255", strataCmd.Flags().Lookup("ndv").DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "stats"} {
		assert.True(t, names[name], "runs should have subcommand %q", name)
	}
}
