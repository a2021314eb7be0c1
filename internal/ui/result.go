package ui

import (
	"fmt"

	"mindnoscape/editor/internal/model"
	"mindnoscape/editor/internal/session"
)

// Result prints a command result in the most readable form for its type.
func (u *UI) Result(result interface{}, showIDs bool) {
	switch r := result.(type) {
	case nil:
	case string:
		u.Success("%s", r)
	case *model.Node:
		u.ShowTree(r, TreeOptions{ShowIDs: showIDs})
	case model.Mindmap:
		u.Success("Mindmap %q (%s) open, %d nodes", r.Name, r.ID, r.NodeCount)
	case []model.Mindmap:
		if len(r) == 0 {
			u.Message("No mindmaps yet. Create one with: mindmap add <name>")
			return
		}
		rows := make([][]string, len(r))
		for i, m := range r {
			rows[i] = []string{m.Name, m.ID, m.Updated.Format("2006-01-02 15:04")}
		}
		u.Table([]string{"NAME", "ID", "UPDATED"}, rows)
	case session.NodeRef:
		u.Success("Node %s %q (%s)", r.Path, r.Text, r.ID)
	case []session.NodeRef:
		if len(r) == 0 {
			u.Message("No matching nodes")
			return
		}
		rows := make([][]string, len(r))
		for i, ref := range r {
			rows[i] = []string{ref.Path, ref.Text}
			if showIDs {
				rows[i] = append(rows[i], ref.ID)
			}
		}
		header := []string{"PATH", "TEXT"}
		if showIDs {
			header = append(header, "ID")
		}
		u.Table(header, rows)
	case bool:
		u.Message("%t", r)
	default:
		u.Message("%v", r)
	}
}

// ShowHelp prints the command table, optionally limited to one scope.
func (u *UI) ShowHelp(commands []session.CommandHelp, scope string) {
	u.Title("Command syntax: <scope> <operation> [arguments]")
	u.Message(`Nodes are addressed by id or by path: 0 is the root, 1.2 the second child of its first child.`)
	current := ""
	shown := 0
	for _, c := range commands {
		if scope != "" && c.Scope != scope {
			continue
		}
		if c.Scope != current {
			u.Message("\n%s:", c.Scope)
			current = c.Scope
		}
		u.Message("  %-45s %s", c.Usage, c.Help)
		shown++
	}
	if shown == 0 {
		u.Warning("No commands in scope %q", scope)
	}
	fmt.Fprintln(u.writer)
}
