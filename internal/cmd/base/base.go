// Package base contains the parts shared by all casctl commands.
package base

import (
	"bytes"
	"flag"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"
)

// Command is embedded by every casctl command.
type Command struct {
	Log hclog.Logger
	UI  cli.Ui
	Fs  afero.Fs
}

// NewCommand returns a Command writing to ui. A nil logger is replaced by a
// null logger and a nil file system by the OS file system.
func NewCommand(log hclog.Logger, ui cli.Ui, fs afero.Fs) *Command {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Command{Log: log, UI: ui, Fs: fs}
}

// FlagSet wraps a flag.FlagSet to render help text for command usage.
type FlagSet struct {
	*flag.FlagSet
}

// NewFlagSet wraps f. Parse errors are returned instead of printed, so
// commands can report them through their UI.
func NewFlagSet(f *flag.FlagSet) *FlagSet {
	f.SetOutput(new(bytes.Buffer))
	return &FlagSet{FlagSet: f}
}

// Help returns the formatted flag documentation, or an empty string if the
// flag set has no flags.
func (f *FlagSet) Help() string {
	var b strings.Builder
	f.VisitAll(func(fl *flag.Flag) {
		if b.Len() == 0 {
			b.WriteString("\n\nOptions:\n")
		}
		name, usage := flag.UnquoteUsage(fl)
		if name != "" {
			fmt.Fprintf(&b, "\n  -%s=<%s>\n", fl.Name, name)
		} else {
			fmt.Fprintf(&b, "\n  -%s\n", fl.Name)
		}
		if fl.DefValue != "" && fl.DefValue != "false" {
			usage = fmt.Sprintf("%s Default: %s.", usage, fl.DefValue)
		}
		fmt.Fprintf(&b, "    %s\n", usage)
	})
	return b.String()
}
