package cmd

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands(t *testing.T) {
	initCommands(hclog.NewNullLogger(), cli.NewMockUi(), afero.NewMemMapFs())

	for _, name := range []string{"config", "config validate", "demo", "version"} {
		factory, ok := Commands[name]
		require.True(t, ok, name)

		c, err := factory()
		require.NoError(t, err)
		assert.NotEmpty(t, c.Synopsis(), name)
		assert.NotEmpty(t, c.Help(), name)
	}
}

func TestCLIRun(t *testing.T) {
	ui := cli.NewMockUi()
	initCommands(hclog.NewNullLogger(), ui, afero.NewMemMapFs())

	c := &cli.CLI{
		Name:     "casctl",
		Args:     []string{"version"},
		Commands: Commands,
	}
	code, err := c.Run()
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, ui.OutputWriter.String(), "casctl v")
}
