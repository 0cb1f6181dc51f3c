package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/autoapi/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Directory for the generated config file"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	// If the user specified an output directory, place the config there as "autoapi.yaml".
	if i.Output != "" {
		return RunInit(filepath.Join(i.Output, "autoapi.yaml"), i.Force)
	}
	return RunInit(root.Config, i.Force)
}

func RunInit(configPath string, force bool) error {
	fmt.Fprintf(stdout, "Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "initialized successfully")
	return nil
}
