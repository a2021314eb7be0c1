// Package editor implements the document state machine: a persistent node
// tree, a bounded linear undo history and the reducer that moves between them.
package editor

import "mindnoscape/editor/internal/model"

// DefaultMaxHistory is the number of snapshots kept when none is configured.
const DefaultMaxHistory = 50

// State is an immutable snapshot of an edited document. History holds past
// trees; HistoryIndex points at the entry Tree was last synchronized with.
type State struct {
	Tree         *model.Node
	History      []*model.Node
	HistoryIndex int
	MaxHistory   int
}

// NewState starts a document whose history contains only root.
func NewState(root *model.Node, maxHistory int) State {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return State{
		Tree:         root,
		History:      []*model.Node{root},
		HistoryIndex: 0,
		MaxHistory:   maxHistory,
	}
}

// CanUndo reports whether an earlier snapshot exists.
func (s State) CanUndo() bool {
	return s.HistoryIndex > 0
}

// CanRedo reports whether a later snapshot exists.
func (s State) CanRedo() bool {
	return s.HistoryIndex < len(s.History)-1
}

// withTree replaces the tree without recording history.
func (s State) withTree(tree *model.Node) State {
	s.Tree = tree
	return s
}

// normalized repairs a hand-built State: an empty history is seeded with
// the current tree, the index is clamped and MaxHistory defaulted.
func (s State) normalized() State {
	if s.MaxHistory <= 0 {
		s.MaxHistory = DefaultMaxHistory
	}
	if len(s.History) == 0 {
		s.History = []*model.Node{s.Tree}
		s.HistoryIndex = 0
	}
	if s.HistoryIndex < 0 {
		s.HistoryIndex = 0
	}
	if s.HistoryIndex >= len(s.History) {
		s.HistoryIndex = len(s.History) - 1
	}
	return s
}

// push records tree as a new snapshot: forward history is discarded and the
// oldest snapshots are evicted past MaxHistory. The history slice is always
// freshly allocated, so earlier states never observe the change.
func (s State) push(tree *model.Node) State {
	s = s.normalized()
	history := make([]*model.Node, 0, s.HistoryIndex+2)
	history = append(history, s.History[:s.HistoryIndex+1]...)
	history = append(history, tree)
	if over := len(history) - s.MaxHistory; over > 0 {
		history = history[over:]
	}
	return State{
		Tree:         tree,
		History:      history,
		HistoryIndex: len(history) - 1,
		MaxHistory:   s.MaxHistory,
	}
}

func (s State) undo() State {
	s = s.normalized()
	if !s.CanUndo() {
		return s
	}
	s.HistoryIndex--
	s.Tree = s.History[s.HistoryIndex]
	return s
}

func (s State) redo() State {
	s = s.normalized()
	if !s.CanRedo() {
		return s
	}
	s.HistoryIndex++
	s.Tree = s.History[s.HistoryIndex]
	return s
}
