package commands

import (
	"fmt"

	"git.home.luguber.info/inful/rebuildcheck/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	_, _ = fmt.Fprintf(stdout, "Writing configuration to %s\n", root.Config)
	if err := config.Init(root.Config, i.Force); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(stdout, "initialized successfully")
	return nil
}
