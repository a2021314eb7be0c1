package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"mindnoscape/editor/internal/model"
	"mindnoscape/editor/internal/tree"
)

// TreeOptions control RenderTree.
type TreeOptions struct {
	ShowIDs bool
	// Prefix is the dotted path of the rendered root, "" for a document root.
	Prefix string
}

// RenderTree draws root and its visible descendants with box connectors.
// Each line carries the node's dotted path; collapsed nodes show how many
// descendants they hide as [+n].
func (u *UI) RenderTree(root *model.Node, opts TreeOptions) string {
	if root == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(u.nodeLabel(root, opts.Prefix, opts))
	b.WriteByte('\n')
	if !root.Collapsed {
		u.renderChildren(&b, root, "", opts.Prefix, opts)
	}
	return b.String()
}

// ShowTree prints RenderTree output.
func (u *UI) ShowTree(root *model.Node, opts TreeOptions) {
	fmt.Fprint(u.writer, u.RenderTree(root, opts))
}

func (u *UI) renderChildren(b *strings.Builder, n *model.Node, indent, path string, opts TreeOptions) {
	for i, child := range n.Children {
		last := i == len(n.Children)-1
		connector, next := "├── ", "│   "
		if last {
			connector, next = "└── ", "    "
		}
		childPath := strconv.Itoa(i + 1)
		if path != "" {
			childPath = path + "." + childPath
		}

		b.WriteString(indent)
		b.WriteString(u.render(u.muted, connector))
		b.WriteString(u.nodeLabel(child, childPath, opts))
		b.WriteByte('\n')
		if !child.Collapsed {
			u.renderChildren(b, child, indent+next, childPath, opts)
		}
	}
}

func (u *UI) nodeLabel(n *model.Node, path string, opts TreeOptions) string {
	var parts []string
	if path != "" {
		parts = append(parts, u.render(u.muted, path))
	}

	style := u.renderer.NewStyle().
		Foreground(lipgloss.Color("#ffffff")).
		Background(lipgloss.Color(n.BackgroundColor))
	if n.Kind == model.KindRoot {
		style = style.Bold(true)
	}
	parts = append(parts, u.render(style, n.Text))

	if n.Description != "" {
		parts = append(parts, u.render(u.muted, "- "+n.Description))
	}
	if n.Collapsed && len(n.Children) > 0 {
		parts = append(parts, u.render(u.warning, fmt.Sprintf("[+%d]", tree.CountNodes(n)-1)))
	}
	if opts.ShowIDs {
		parts = append(parts, u.render(u.muted, "("+n.ID+")"))
	}
	return strings.Join(parts, " ")
}
