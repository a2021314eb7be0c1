// Package expand grows a mind map by attaching generated children to a node.
package expand

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"mindnoscape/editor/internal/editor"
	"mindnoscape/editor/internal/event"
	"mindnoscape/editor/internal/generate"
	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
	"mindnoscape/editor/internal/tree"
)

const (
	childOffsetX = 300
	childOffsetY = 120
)

var (
	// ErrNodeNotFound is returned when the node to expand does not exist.
	ErrNodeNotFound = errors.New("node not found")
	// ErrAlreadyExpanded is returned for nodes that already have generated children.
	ErrAlreadyExpanded = errors.New("node already expanded")
	// ErrStale is returned when the document changed in a way that makes
	// the generated children no longer apply.
	ErrStale = errors.New("generation result is stale")
)

// Expander asks a generator for children and attaches them to a document.
type Expander struct {
	generator generate.Generator
	factory   *model.Factory
	events    *event.EventManager
	count     int
	logger    *log.Logger
}

// NewExpander creates an Expander producing count children per node.
// events may be nil.
func NewExpander(generator generate.Generator, factory *model.Factory, events *event.EventManager, count int, logger *log.Logger) (*Expander, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if generator == nil || factory == nil {
		return nil, fmt.Errorf("expander requires a generator and a node factory")
	}
	if count <= 0 {
		count = generate.DefaultCount
	}
	return &Expander{
		generator: generator,
		factory:   factory,
		events:    events,
		count:     count,
		logger:    logger,
	}, nil
}

// token captures what a generation request was based on.
type token struct {
	nodeID string
	text   string
	kind   model.Kind
}

// check reports why a result built for t no longer fits state, if it does not.
// A result applies only while the node exists with unchanged text and kind
// and has not been expanded in the meantime.
func (t token) check(state editor.State) error {
	n := tree.FindByID(state.Tree, t.nodeID)
	switch {
	case n == nil:
		return fmt.Errorf("%w: node %s was deleted", ErrStale, t.nodeID)
	case n.Text != t.text || n.Kind != t.kind:
		return fmt.Errorf("%w: node %s was edited", ErrStale, t.nodeID)
	case n.HasGeneratedChildren:
		return fmt.Errorf("%w: node %s was expanded meanwhile", ErrStale, t.nodeID)
	default:
		return nil
	}
}

// Expand generates children for the node and attaches them in one undoable step.
func (x *Expander) Expand(ctx context.Context, doc *editor.Editor, nodeID string) ([]*model.Node, error) {
	state := doc.Snapshot()
	node := tree.FindByID(state.Tree, nodeID)
	if node == nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	if node.HasGeneratedChildren {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExpanded, nodeID)
	}
	tok := token{nodeID: node.ID, text: node.Text, kind: node.Kind}
	ancestry, _ := tree.AncestryOf(state.Tree, nodeID)

	x.logger.Info(ctx, "Expanding node", log.Fields{"mindmapID": doc.MindmapID(), "nodeID": nodeID, "generator": x.generator.Name()})
	suggestions, err := x.generator.Generate(ctx, generate.Request{
		ParentText: node.Text,
		ParentKind: node.Kind,
		Count:      x.count,
		Ancestry:   ancestry,
	})
	if err != nil {
		x.logger.Error(ctx, "Failed to generate children", log.Fields{"nodeID": nodeID, "error": err})
		return nil, fmt.Errorf("failed to generate children for %s: %w", nodeID, err)
	}

	childKind := node.Kind.ChildKind()
	children := make([]*model.Node, len(suggestions))
	for i, s := range suggestions {
		children[i] = x.factory.NewChild(node, s.Text, childOffsetX, float64(i*childOffsetY), childKind, s.Description, s.Source)
	}

	_, _, err = doc.DispatchIf(ctx, tok.check, editor.AddChildren{ParentID: nodeID, Children: children})
	if err != nil {
		x.logger.Warn(ctx, "Discarding generated children", log.Fields{"nodeID": nodeID, "reason": err.Error()})
		x.publish(event.GenerationDropped, doc.MindmapID(), nodeID, len(children), err.Error())
		return nil, err
	}

	x.publish(event.NodesGenerated, doc.MindmapID(), nodeID, len(children), "")
	x.logger.Info(ctx, "Node expanded", log.Fields{"nodeID": nodeID, "children": len(children)})
	return children, nil
}

// ExpandAll expands several nodes with at most limit generator calls in
// flight. Nodes that are already expanded are skipped. It returns the
// number of nodes expanded and the first error encountered.
func (x *Expander) ExpandAll(ctx context.Context, doc *editor.Editor, nodeIDs []string, limit int) (int, error) {
	if limit <= 0 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	expanded := make([]bool, len(nodeIDs))
	for i, id := range nodeIDs {
		g.Go(func() error {
			_, err := x.Expand(gctx, doc, id)
			if errors.Is(err, ErrAlreadyExpanded) {
				return nil
			}
			if err != nil {
				return err
			}
			expanded[i] = true
			return nil
		})
	}
	err := g.Wait()
	count := 0
	for _, ok := range expanded {
		if ok {
			count++
		}
	}
	return count, err
}

// Leaves returns the ids of visible nodes that have never been expanded and
// have no children, the natural targets of ExpandAll.
func Leaves(root *model.Node) []string {
	var ids []string
	tree.Traverse(root, func(n *model.Node, _ int) bool {
		if len(n.Children) == 0 && !n.HasGeneratedChildren {
			ids = append(ids, n.ID)
		}
		return !n.Collapsed
	})
	return ids
}

func (x *Expander) publish(t event.EventType, mindmapID, nodeID string, count int, reason string) {
	if x.events == nil {
		return
	}
	x.events.Publish(event.Event{Type: t, Data: event.Generation{
		MindmapID: mindmapID,
		NodeID:    nodeID,
		Count:     count,
		Reason:    reason,
	}})
}
