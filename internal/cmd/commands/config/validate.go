package config

import (
	"flag"
	"fmt"

	"github.com/hashicorp-forge/casstore/internal/cmd/base"
	"github.com/hashicorp-forge/casstore/internal/config"
)

type ValidateCommand struct {
	*base.Command

	flagConfig string
}

func (c *ValidateCommand) Synopsis() string {
	return "Validate a configuration file"
}

func (c *ValidateCommand) Help() string {
	return `Usage: casctl config validate -config=<file>

  This command parses and validates a casctl configuration file and prints
  the effective settings. HCL and YAML (.yaml, .yml) files are supported.` +
		c.Flags().Help()
}

func (c *ValidateCommand) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("validate", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "", "(Required) Path to the configuration `file`.",
	)

	return f
}

func (c *ValidateCommand) Run(args []string) int {
	ui := c.UI

	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	if c.flagConfig == "" && flags.NArg() == 1 {
		c.flagConfig = flags.Arg(0)
	}
	if c.flagConfig == "" {
		ui.Error("config flag is required")
		return 1
	}

	cfg, err := config.LoadConfig(c.Fs, c.flagConfig)
	if err != nil {
		ui.Error(fmt.Sprintf("error loading %s: %v", c.flagConfig, err))
		return 1
	}
	c.Log.Debug("configuration loaded", "path", c.flagConfig)

	ui.Info(fmt.Sprintf("Configuration %s is valid", c.flagConfig))
	ui.Output(fmt.Sprintf("  log_level:             %s", cfg.LogLevel))
	ui.Output(fmt.Sprintf("  log_format:            %s", cfg.LogFormat))
	ui.Output(fmt.Sprintf("  disable_creator_stack: %t", cfg.Session.DisableCreatorStack))
	ui.Output(fmt.Sprintf("  managed_count_warning: %d", cfg.Session.ManagedCountWarning))
	ui.Output(fmt.Sprintf("  loader.max_retries:    %d", cfg.Loader.MaxRetries))
	ui.Output(fmt.Sprintf("  loader.intervals:      %s .. %s",
		cfg.Loader.InitialInterval, cfg.Loader.MaxInterval))
	return 0
}
