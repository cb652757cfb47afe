package version

import (
	"fmt"

	"github.com/hashicorp-forge/casstore/internal/cmd/base"
	"github.com/hashicorp-forge/casstore/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the casctl version"
}

func (c *Command) Help() string {
	return `Usage: casctl version

  This command prints the casctl version.`
}

func (c *Command) Run(args []string) int {
	c.UI.Output(fmt.Sprintf("casctl v%s", version.FullVersion()))
	return 0
}
