package session

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
)

// argSpec bounds the argument count of one operation. max < 0 means unbounded.
type argSpec struct {
	min, max int
	usage    string
	help     string
}

var commandSpecs = map[string]map[string]argSpec{
	"mindmap": {
		"add":        {1, 1, "mindmap add <name>", "Create a mindmap and open it"},
		"open":       {1, 1, "mindmap open <id|name>", "Open a stored mindmap"},
		"close":      {0, 0, "mindmap close", "Close the open mindmap"},
		"save":       {0, 0, "mindmap save", "Save the open mindmap"},
		"delete":     {0, 1, "mindmap delete [id|name]", "Delete a mindmap, the open one by default"},
		"list":       {0, 0, "mindmap list", "List stored mindmaps"},
		"view":       {0, 1, "mindmap view [node]", "Show the open mindmap or one of its subtrees"},
		"export":     {1, 2, "mindmap export <file> [json|xml]", "Export the open mindmap"},
		"import":     {1, 3, "mindmap import <file> [json|xml] [name]", "Import a mindmap file"},
		"layout":     {0, 0, "mindmap layout", "Recompute node positions"},
		"reorganize": {0, 0, "mindmap reorganize", "Restore every node's initial position"},
	},
	"node": {
		"add":      {2, 3, "node add <parent> <text> [description]", "Add a child node"},
		"text":     {2, 2, "node text <node> <text>", "Change a node's text"},
		"prop":     {3, 3, "node prop <node> <property> <value>", "Set width, height, fontSize, backgroundColor, borderColor or borderWidth"},
		"move":     {3, 3, "node move <node> <x> <y>", "Move a node"},
		"swap":     {2, 2, "node swap <node> <node>", "Swap the positions of two nodes"},
		"delete":   {1, 1, "node delete <node>", "Delete a node and its descendants"},
		"collapse": {1, 1, "node collapse <node>", "Hide or show a node's descendants"},
		"expand":   {1, 1, "node expand <node|--all>", "Generate children for a node, or for every leaf"},
		"find":     {1, 1, "node find <query>", "Find nodes by text or description"},
		"undo":     {0, 0, "node undo", "Undo the last change"},
		"redo":     {0, 0, "node redo", "Redo the last undone change"},
	},
	"system": {
		"exit": {0, 0, "system exit", "Leave the session"},
		"quit": {0, 0, "system quit", "Leave the session"},
	},
}

// CommandHelp describes one operation for help output.
type CommandHelp struct {
	Scope     string
	Operation string
	Usage     string
	Help      string
}

// Commands lists every supported operation ordered by scope and operation.
func Commands() []CommandHelp {
	var out []CommandHelp
	for scope, ops := range commandSpecs {
		for op, spec := range ops {
			out = append(out, CommandHelp{Scope: scope, Operation: op, Usage: spec.usage, Help: spec.help})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scope != out[j].Scope {
			return out[i].Scope < out[j].Scope
		}
		return out[i].Operation < out[j].Operation
	})
	return out
}

// SessionCommand wraps the model.Command and adds session-specific functionality
type SessionCommand struct {
	model.Command
	logger *log.Logger
}

// NewSessionCommand creates a new SessionCommand from a model.Command
func NewSessionCommand(cmd model.Command, logger *log.Logger) SessionCommand {
	return SessionCommand{Command: cmd, logger: logger}
}

// Validate checks the scope, the operation and the number of arguments.
func (c *SessionCommand) Validate() error {
	ctx := context.Background()
	if c.Scope == "" {
		return errors.New("command scope is required")
	}
	if c.Operation == "" {
		return errors.New("command operation is required")
	}

	ops, ok := commandSpecs[c.Scope]
	if !ok {
		c.logger.Error(ctx, "Invalid command scope", log.Fields{"scope": c.Scope})
		return fmt.Errorf("invalid command scope: %s", c.Scope)
	}
	spec, ok := ops[c.Operation]
	if !ok {
		c.logger.Error(ctx, "Invalid command operation", log.Fields{"scope": c.Scope, "operation": c.Operation})
		return fmt.Errorf("invalid %s operation: %s", c.Scope, c.Operation)
	}
	if len(c.Args) < spec.min || (spec.max >= 0 && len(c.Args) > spec.max) {
		c.logger.Error(ctx, "Invalid number of arguments", log.Fields{"scope": c.Scope, "operation": c.Operation, "argCount": len(c.Args)})
		return fmt.Errorf("usage: %s", spec.usage)
	}
	return nil
}
