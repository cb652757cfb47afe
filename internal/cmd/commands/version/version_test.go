package version

import (
	"testing"

	"github.com/mitchellh/cli"
	"github.com/stretchr/testify/assert"

	"github.com/hashicorp-forge/casstore/internal/cmd/base"
	"github.com/hashicorp-forge/casstore/internal/version"
)

func TestCommand(t *testing.T) {
	ui := cli.NewMockUi()
	c := &Command{Command: base.NewCommand(nil, ui, nil)}

	assert.Equal(t, 0, c.Run(nil))
	assert.Equal(t, "casctl v"+version.FullVersion()+"\n", ui.OutputWriter.String())
	assert.NotEmpty(t, c.Synopsis())
	assert.Contains(t, c.Help(), "Usage: casctl version")
}
