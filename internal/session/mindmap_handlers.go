package session

import (
	"context"
	"fmt"

	"mindnoscape/editor/internal/editor"
	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
)

// handleMindmapAdd creates a mindmap and opens it.
func handleMindmapAdd(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	mindmap, root, err := s.services.Mindmaps.MindmapAdd(ctx, cmd.Args[0])
	if err != nil {
		return nil, fmt.Errorf("failed to add mindmap: %w", err)
	}
	if err := s.open(mindmap, root); err != nil {
		return nil, err
	}
	return mindmap, nil
}

func handleMindmapOpen(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	found, err := s.services.Mindmaps.MindmapFind(ctx, cmd.Args[0])
	if err != nil {
		return nil, err
	}
	mindmap, root, err := s.services.Mindmaps.MindmapGet(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	if err := s.open(mindmap, root); err != nil {
		return nil, err
	}
	return mindmap, nil
}

func handleMindmapClose(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	if _, err := s.Document(); err != nil {
		return nil, err
	}
	s.close()
	return nil, nil
}

// handleMindmapSave writes the open document and reports whether anything changed.
func handleMindmapSave(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	doc, err := s.Document()
	if err != nil {
		return nil, err
	}
	saved, err := s.services.Mindmaps.MindmapSave(ctx, doc.MindmapID(), doc.Tree())
	if err != nil {
		return nil, err
	}
	if !saved {
		return "no changes to save", nil
	}
	return "saved", nil
}

// handleMindmapDelete deletes the named mindmap, or the open one without arguments.
func handleMindmapDelete(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	var id string
	current := s.Mindmap()
	if len(cmd.Args) == 0 {
		if current == nil {
			return nil, ErrNoMindmap
		}
		id = current.ID
	} else {
		found, err := s.services.Mindmaps.MindmapFind(ctx, cmd.Args[0])
		if err != nil {
			return nil, err
		}
		id = found.ID
	}

	if err := s.services.Mindmaps.MindmapDelete(ctx, id); err != nil {
		return nil, err
	}
	if current != nil && current.ID == id {
		s.logger.Debug(ctx, "Closing deleted mindmap", log.Fields{"mindmapID": id})
		s.close()
	}
	return nil, nil
}

func handleMindmapList(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	return s.services.Mindmaps.MindmapList(ctx)
}

// handleMindmapView returns the open tree, or the subtree at the given node.
func handleMindmapView(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	doc, err := s.Document()
	if err != nil {
		return nil, err
	}
	root := doc.Tree()
	if len(cmd.Args) == 0 {
		return root, nil
	}
	return Resolve(root, cmd.Args[0])
}

func handleMindmapExport(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	doc, err := s.Document()
	if err != nil {
		return nil, err
	}
	format := ""
	if len(cmd.Args) > 1 {
		format = cmd.Args[1]
	}
	// Export what the user sees, not what was last saved.
	if _, err := s.services.Mindmaps.MindmapSave(ctx, doc.MindmapID(), doc.Tree()); err != nil {
		return nil, err
	}
	if err := s.services.Mindmaps.MindmapExport(ctx, doc.MindmapID(), cmd.Args[0], format); err != nil {
		return nil, err
	}
	return fmt.Sprintf("exported to %s", cmd.Args[0]), nil
}

// handleMindmapImport stores the file as a new mindmap and opens it.
func handleMindmapImport(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	format, name := "", ""
	if len(cmd.Args) > 1 {
		format = cmd.Args[1]
	}
	if len(cmd.Args) > 2 {
		name = cmd.Args[2]
	}
	imported, err := s.services.Mindmaps.MindmapImport(ctx, cmd.Args[0], format, name)
	if err != nil {
		return nil, err
	}
	mindmap, root, err := s.services.Mindmaps.MindmapGet(ctx, imported.ID)
	if err != nil {
		return nil, err
	}
	if err := s.open(mindmap, root); err != nil {
		return nil, err
	}
	return mindmap, nil
}

func handleMindmapLayout(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	return dispatch(ctx, s, editor.Relayout{})
}

func handleMindmapReorganize(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	return dispatch(ctx, s, editor.ResetPositions{})
}

// dispatch applies an action to the open document and returns nil.
func dispatch(ctx context.Context, s *Session, action editor.Action) (interface{}, error) {
	doc, err := s.Document()
	if err != nil {
		return nil, err
	}
	doc.Dispatch(ctx, action)
	return nil, nil
}
