package commands

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/navtree"
	"git.home.luguber.info/inful/docsite/internal/plugins"
)

// NavCmd implements the 'nav' command: it prints the resolved navigation
// tree, marking external links.
type NavCmd struct{}

func (n *NavCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadValidated(root.Config, plugins.NewRegistry())
	if err != nil {
		return err
	}

	tree, err := navtree.Build(cfg)
	if err != nil {
		return err
	}

	return tree.Walk(func(node *navtree.Node, depth int) error {
		indent := strings.Repeat("  ", depth)
		switch node.Kind {
		case navtree.KindSection:
			fmt.Printf("%s%s/\n", indent, node.Label)
		case navtree.KindLink:
			fmt.Printf("%s%s -> %s (external)\n", indent, node.Label, node.Target)
		default:
			fmt.Printf("%s%s -> %s\n", indent, node.Label, node.Target)
		}
		return nil
	})
}
