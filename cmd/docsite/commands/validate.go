package commands

import (
	"fmt"

	"git.home.luguber.info/inful/docsite/internal/plugins"
)

// ValidateCmd implements the 'validate' command.
type ValidateCmd struct{}

func (v *ValidateCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadValidated(root.Config, plugins.NewRegistry())
	if err != nil {
		return err
	}
	fmt.Printf("Configuration OK: %q, %d plugins, %d nav entries\n",
		cfg.SiteName, len(cfg.Plugins), len(cfg.Nav))
	return nil
}
