package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"mindnoscape/editor/internal/editor"
	"mindnoscape/editor/internal/expand"
	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
	"mindnoscape/editor/internal/tree"
)

const (
	childOffsetX = 300
	childOffsetY = 120
)

// resolve returns the open document and the nodes named by refs.
func resolve(s *Session, refs ...string) (*editor.Editor, []*model.Node, error) {
	doc, err := s.Document()
	if err != nil {
		return nil, nil, err
	}
	root := doc.Tree()
	nodes := make([]*model.Node, len(refs))
	for i, ref := range refs {
		if nodes[i], err = Resolve(root, ref); err != nil {
			return nil, nil, err
		}
	}
	return doc, nodes, nil
}

// handleNodeAdd attaches a child of the kind derived from the parent.
func handleNodeAdd(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	doc, nodes, err := resolve(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	parent := nodes[0]
	description := ""
	if len(cmd.Args) > 2 {
		description = cmd.Args[2]
	}

	offsetY := float64(len(parent.Children) * childOffsetY)
	child := s.services.Factory.NewChild(parent, cmd.Args[1], childOffsetX, offsetY, parent.Kind.ChildKind(), description, "")
	state, changed := doc.Dispatch(ctx, editor.AddChild{ParentID: parent.ID, Child: child})
	if !changed {
		return nil, fmt.Errorf("failed to add node under %s", cmd.Args[0])
	}
	s.logger.Debug(ctx, "Node added", log.Fields{"parentID": parent.ID, "nodeID": child.ID})
	return refOf(state.Tree, child), nil
}

func handleNodeText(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	doc, nodes, err := resolve(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	doc.Dispatch(ctx, editor.SetText{ID: nodes[0].ID, Text: cmd.Args[1]})
	return nil, nil
}

// handleNodeProp sets a style property. Out-of-range numbers are clamped
// and invalid colors fall back to the kind's color.
func handleNodeProp(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	doc, nodes, err := resolve(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	prop, err := model.ParseProperty(cmd.Args[1])
	if err != nil {
		return nil, err
	}
	var value any = cmd.Args[2]
	if !prop.IsColor() {
		f, err := strconv.ParseFloat(cmd.Args[2], 64)
		if err != nil {
			return nil, fmt.Errorf("%s expects a number, got %q", prop, cmd.Args[2])
		}
		value = f
	}
	state, _ := doc.Dispatch(ctx, editor.SetProperty{ID: nodes[0].ID, Property: prop, Value: value})
	return refOf(state.Tree, tree.FindByID(state.Tree, nodes[0].ID)), nil
}

func handleNodeMove(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	doc, nodes, err := resolve(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	x, errX := strconv.ParseFloat(cmd.Args[1], 64)
	y, errY := strconv.ParseFloat(cmd.Args[2], 64)
	if err := errors.Join(errX, errY); err != nil {
		return nil, fmt.Errorf("invalid coordinates: %w", err)
	}
	doc.Dispatch(ctx, editor.SetPosition{ID: nodes[0].ID, X: x, Y: y})
	return nil, nil
}

func handleNodeSwap(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	doc, nodes, err := resolve(s, cmd.Args[0], cmd.Args[1])
	if err != nil {
		return nil, err
	}
	doc.Dispatch(ctx, editor.SwapNodes{A: nodes[0].ID, B: nodes[1].ID})
	return nil, nil
}

func handleNodeDelete(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	doc, nodes, err := resolve(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	if nodes[0] == doc.Tree() {
		return nil, fmt.Errorf("the root node cannot be deleted")
	}
	doc.Dispatch(ctx, editor.DeleteNode{ID: nodes[0].ID})
	return nil, nil
}

func handleNodeCollapse(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	doc, nodes, err := resolve(s, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	doc.Dispatch(ctx, editor.ToggleCollapse{ID: nodes[0].ID})
	return nil, nil
}

// handleNodeExpand asks the generator for children of one node, or of every
// visible leaf with --all.
func handleNodeExpand(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	if s.services.Expander == nil {
		return nil, fmt.Errorf("node generation is not configured")
	}
	doc, err := s.Document()
	if err != nil {
		return nil, err
	}

	if cmd.Args[0] == "--all" {
		n, err := s.services.Expander.ExpandAll(ctx, doc, expand.Leaves(doc.Tree()), s.services.ExpandConcurrency)
		if err != nil {
			return nil, fmt.Errorf("expanded %d nodes before failing: %w", n, err)
		}
		return fmt.Sprintf("expanded %d nodes", n), nil
	}

	node, err := Resolve(doc.Tree(), cmd.Args[0])
	if err != nil {
		return nil, err
	}
	children, err := s.services.Expander.Expand(ctx, doc, node.ID)
	if err != nil {
		return nil, err
	}
	root := doc.Tree()
	refs := make([]NodeRef, len(children))
	for i, c := range children {
		refs[i] = refOf(root, c)
	}
	return refs, nil
}

func handleNodeFind(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	doc, err := s.Document()
	if err != nil {
		return nil, err
	}
	root := doc.Tree()
	found := tree.Find(root, cmd.Args[0])
	refs := make([]NodeRef, len(found))
	for i, n := range found {
		refs[i] = refOf(root, n)
	}
	return refs, nil
}

func handleNodeUndo(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	doc, err := s.Document()
	if err != nil {
		return nil, err
	}
	if !doc.Snapshot().CanUndo() {
		return nil, fmt.Errorf("nothing to undo")
	}
	doc.Dispatch(ctx, editor.Undo{})
	return nil, nil
}

func handleNodeRedo(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	doc, err := s.Document()
	if err != nil {
		return nil, err
	}
	if !doc.Snapshot().CanRedo() {
		return nil, fmt.Errorf("nothing to redo")
	}
	doc.Dispatch(ctx, editor.Redo{})
	return nil, nil
}
