// Package navtree resolves the configured navigation sequence into a typed
// tree of pages, external links and sections, preserving declaration order.
package navtree

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/docsite/internal/config"
)

// Kind classifies a navigation node.
type Kind string

const (
	KindPage    Kind = "page"
	KindLink    Kind = "link"
	KindSection Kind = "section"
)

// Node is one entry of the navigation tree.
type Node struct {
	Label  string
	Target string // source path for pages, URL for links
	Kind   Kind

	Children []*Node
}

// Tree is the resolved navigation in declared order.
type Tree struct {
	Roots []*Node
}

// Build resolves the configuration's nav sequence. When no nav is declared
// the docs directory is walked and all markdown sources are included, index
// pages first, the rest alphabetically.
func Build(cfg *config.Config) (*Tree, error) {
	if len(cfg.Nav) == 0 {
		return discover(cfg.ResolvedDocsDir())
	}
	roots, err := buildLevel(cfg.Nav)
	if err != nil {
		return nil, err
	}
	return &Tree{Roots: roots}, nil
}

func buildLevel(items []config.NavItem) ([]*Node, error) {
	nodes := make([]*Node, 0, len(items))
	for _, item := range items {
		node, err := buildNode(item)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func buildNode(item config.NavItem) (*Node, error) {
	if item.IsSection() {
		children, err := buildLevel(item.Children)
		if err != nil {
			return nil, err
		}
		return &Node{Label: item.Label, Kind: KindSection, Children: children}, nil
	}
	if item.Target == "" {
		return nil, fmt.Errorf("nav entry %q has no target", item.Label)
	}

	node := &Node{Label: item.DisplayLabel(), Target: item.Target}
	switch config.ClassifyTarget(item.Target) {
	case config.TargetLink:
		node.Kind = KindLink
	default:
		node.Kind = KindPage
	}
	return node, nil
}

// discover builds a flat nav from the markdown files under docsDir.
func discover(docsDir string) (*Tree, error) {
	var paths []string
	err := filepath.WalkDir(docsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".md") {
			rel, relErr := filepath.Rel(docsDir, path)
			if relErr != nil {
				return relErr
			}
			paths = append(paths, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return &Tree{}, nil
		}
		return nil, fmt.Errorf("discover docs: %w", err)
	}

	sort.Slice(paths, func(i, j int) bool {
		ii, jj := paths[i] == "index.md", paths[j] == "index.md"
		if ii != jj {
			return ii
		}
		return paths[i] < paths[j]
	})

	tree := &Tree{}
	for _, p := range paths {
		tree.Roots = append(tree.Roots, &Node{Label: TitleForPath(p), Target: p, Kind: KindPage})
	}
	return tree, nil
}

// TitleForPath derives a display label from a source path: the base name
// without extension, underscores and hyphens spaced, first letter upper.
// Shares the derivation validation uses for duplicate-label checks.
func TitleForPath(path string) string {
	return config.NavItem{Target: path}.DisplayLabel()
}

// Walk visits every node depth-first in declared order.
func (t *Tree) Walk(fn func(node *Node, depth int) error) error {
	var walk func(nodes []*Node, depth int) error
	walk = func(nodes []*Node, depth int) error {
		for _, n := range nodes {
			if err := fn(n, depth); err != nil {
				return err
			}
			if len(n.Children) > 0 {
				if err := walk(n.Children, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(t.Roots, 0)
}

// Pages returns all page nodes in declared order.
func (t *Tree) Pages() []*Node {
	var pages []*Node
	_ = t.Walk(func(n *Node, _ int) error {
		if n.Kind == KindPage {
			pages = append(pages, n)
		}
		return nil
	})
	return pages
}
