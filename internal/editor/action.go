package editor

import "mindnoscape/editor/internal/model"

// Action is a discrete document edit understood by the Reducer.
type Action interface {
	Name() string
}

type (
	// SetText replaces a node's text.
	SetText struct {
		ID   string
		Text string
	}

	// SetPosition moves a node. Not recorded in history.
	SetPosition struct {
		ID   string
		X, Y float64
	}

	// SetProperty changes a style property. Numeric values are clamped and
	// invalid colors fall back to the node kind's color.
	SetProperty struct {
		ID       string
		Property model.Property
		Value    any
	}

	// AddChild attaches a node under ParentID.
	AddChild struct {
		ParentID string
		Child    *model.Node
	}

	// AddChildren attaches a generated batch under ParentID and marks the
	// parent as expanded.
	AddChildren struct {
		ParentID string
		Children []*model.Node
	}

	// DeleteNode removes a node and its descendants. The root cannot be deleted.
	DeleteNode struct {
		ID string
	}

	// SetTree replaces the whole document.
	SetTree struct {
		Tree *model.Node
	}

	// ToggleCollapse hides or shows a node's descendants. Not recorded in history.
	ToggleCollapse struct {
		ID string
	}

	// ResetPositions restores every node's initial position.
	ResetPositions struct{}

	// SwapNodes exchanges the positions of two nodes.
	SwapNodes struct {
		A, B string
	}

	// MarkGenerated flags a node as expanded without adding children.
	// Not recorded in history.
	MarkGenerated struct {
		ID string
	}

	// Relayout recomputes every position with the layout engine.
	Relayout struct{}

	Undo struct{}
	Redo struct{}
)

func (SetText) Name() string        { return "set_text" }
func (SetPosition) Name() string    { return "set_position" }
func (SetProperty) Name() string    { return "set_property" }
func (AddChild) Name() string       { return "add_child" }
func (AddChildren) Name() string    { return "add_children" }
func (DeleteNode) Name() string     { return "delete_node" }
func (SetTree) Name() string        { return "set_tree" }
func (ToggleCollapse) Name() string { return "toggle_collapse" }
func (ResetPositions) Name() string { return "reset_positions" }
func (SwapNodes) Name() string      { return "swap_nodes" }
func (MarkGenerated) Name() string  { return "mark_generated" }
func (Relayout) Name() string       { return "relayout" }
func (Undo) Name() string           { return "undo" }
func (Redo) Name() string           { return "redo" }
