package config

import (
	"testing"

	"github.com/mitchellh/cli"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/casstore/internal/cmd/base"
)

func newValidateCommand(t *testing.T) (*ValidateCommand, *cli.MockUi, afero.Fs) {
	t.Helper()
	ui := cli.NewMockUi()
	fs := afero.NewMemMapFs()
	return &ValidateCommand{Command: base.NewCommand(nil, ui, fs)}, ui, fs
}

func TestValidateCommand(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		c, ui, fs := newValidateCommand(t)
		require.NoError(t, afero.WriteFile(fs, "casctl.hcl", []byte(`
log_level = "debug"

loader {
  max_retries = 7
}
`), 0o644))

		assert.Equal(t, 0, c.Run([]string{"-config", "casctl.hcl"}))

		out := ui.OutputWriter.String()
		assert.Contains(t, out, "Configuration casctl.hcl is valid")
		assert.Contains(t, out, "log_level:             debug")
		assert.Contains(t, out, "loader.max_retries:    7")
		assert.Empty(t, ui.ErrorWriter.String())
	})

	t.Run("positional path", func(t *testing.T) {
		c, ui, fs := newValidateCommand(t)
		require.NoError(t, afero.WriteFile(fs, "casctl.yaml", []byte("log_format: json\n"), 0o644))

		assert.Equal(t, 0, c.Run([]string{"casctl.yaml"}))
		assert.Contains(t, ui.OutputWriter.String(), "log_format:            json")
	})

	t.Run("invalid file", func(t *testing.T) {
		c, ui, fs := newValidateCommand(t)
		require.NoError(t, afero.WriteFile(fs, "casctl.hcl", []byte(`log_level = "loud"`), 0o644))

		assert.Equal(t, 1, c.Run([]string{"-config=casctl.hcl"}))
		assert.Contains(t, ui.ErrorWriter.String(), "unknown log level")
	})

	t.Run("missing flag", func(t *testing.T) {
		c, ui, _ := newValidateCommand(t)

		assert.Equal(t, 1, c.Run(nil))
		assert.Contains(t, ui.ErrorWriter.String(), "config flag is required")
	})

	t.Run("unknown flag", func(t *testing.T) {
		c, ui, _ := newValidateCommand(t)

		assert.Equal(t, 1, c.Run([]string{"-bogus"}))
		assert.Contains(t, ui.ErrorWriter.String(), "error parsing flags")
	})
}

func TestCommand(t *testing.T) {
	c := &Command{Command: base.NewCommand(nil, cli.NewMockUi(), nil)}
	assert.Equal(t, cli.RunResultHelp, c.Run(nil))
	assert.Contains(t, c.Help(), "casctl config")
}
