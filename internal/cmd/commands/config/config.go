package config

import (
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/casstore/internal/cmd/base"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Work with casctl configuration files"
}

func (c *Command) Help() string {
	return `Usage: casctl config <subcommand> [options] [args]

  This command groups subcommands for casctl configuration files.`
}

func (c *Command) Run(args []string) int {
	return cli.RunResultHelp
}
