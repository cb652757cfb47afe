package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"

	"github.com/hashicorp-forge/casstore/internal/cmd/base"
	"github.com/hashicorp-forge/casstore/internal/cmd/commands/config"
	"github.com/hashicorp-forge/casstore/internal/cmd/commands/demo"
	"github.com/hashicorp-forge/casstore/internal/cmd/commands/version"
)

// Commands is the mapping of all available casctl commands.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui, fs afero.Fs) {
	b := base.NewCommand(log, ui, fs)

	Commands = map[string]cli.CommandFactory{
		"config": func() (cli.Command, error) {
			return &config.Command{Command: b}, nil
		},
		"config validate": func() (cli.Command, error) {
			return &config.ValidateCommand{Command: b}, nil
		},
		"demo": func() (cli.Command, error) {
			return &demo.Command{Command: b}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: b}, nil
		},
	}
}
