package editor

import (
	"strconv"
	"strings"

	"mindnoscape/editor/internal/layout"
	"mindnoscape/editor/internal/model"
	"mindnoscape/editor/internal/tree"
)

// Reducer applies actions to states. It never fails: actions naming unknown
// nodes, or that would break the tree's invariants, leave the state as is.
type Reducer struct {
	colors func(model.Kind) model.NodeColors
	layout *layout.Engine
}

// NewReducer creates a Reducer. factory resolves fallback colors; engine,
// when non-nil, relays the tree out after structural edits.
func NewReducer(factory *model.Factory, engine *layout.Engine) *Reducer {
	r := &Reducer{
		colors: model.DefaultColors,
		layout: engine,
	}
	if factory != nil {
		r.colors = factory.Colors
	}
	return r
}

// Reduce returns the state that results from applying action to s.
func (r *Reducer) Reduce(s State, action Action) State {
	switch a := action.(type) {
	case SetText:
		return r.pushIfChanged(s, tree.Update(s.Tree, a.ID, func(n model.Node) model.Node {
			n.Text = a.Text
			return n
		}))

	case SetPosition:
		return s.withTree(tree.Update(s.Tree, a.ID, func(n model.Node) model.Node {
			n.X, n.Y = a.X, a.Y
			return n
		}))

	case SetProperty:
		return r.pushIfChanged(s, tree.Update(s.Tree, a.ID, func(n model.Node) model.Node {
			return r.applyProperty(n, a.Property, a.Value)
		}))

	case AddChild:
		if a.Child == nil || !r.fits(s.Tree, a.Child, nil) {
			return s
		}
		return r.pushIfChanged(s, r.relayout(tree.AddChild(s.Tree, a.ParentID, a.Child), s.Tree))

	case AddChildren:
		if tree.FindByID(s.Tree, a.ParentID) == nil {
			return s
		}
		next := s.Tree
		batch := make(map[string]struct{})
		for _, child := range a.Children {
			if child == nil || !r.fits(s.Tree, child, batch) {
				continue
			}
			next = tree.AddChild(next, a.ParentID, child)
		}
		next = tree.Update(next, a.ParentID, func(n model.Node) model.Node {
			n.HasGeneratedChildren = true
			return n
		})
		return s.push(r.relayout(next, nil))

	case DeleteNode:
		next := tree.DeleteSubtree(s.Tree, a.ID)
		if next == nil || next == s.Tree {
			return s
		}
		return s.push(r.relayout(next, nil))

	case SetTree:
		if !tree.Validate(a.Tree).Valid {
			return s
		}
		return s.push(a.Tree)

	case ToggleCollapse:
		next := tree.Update(s.Tree, a.ID, func(n model.Node) model.Node {
			n.Collapsed = !n.Collapsed
			return n
		})
		return s.withTree(r.relayout(next, s.Tree))

	case ResetPositions:
		return r.pushIfChanged(s, tree.ResetPositions(s.Tree))

	case SwapNodes:
		return r.swap(s, a.A, a.B)

	case MarkGenerated:
		return s.withTree(tree.Update(s.Tree, a.ID, func(n model.Node) model.Node {
			n.HasGeneratedChildren = true
			return n
		}))

	case Relayout:
		if r.layout == nil {
			return s
		}
		return r.pushIfChanged(s, r.layout.Apply(s.Tree))

	case Undo:
		return s.undo()

	case Redo:
		return s.redo()

	default:
		return s
	}
}

func (r *Reducer) pushIfChanged(s State, next *model.Node) State {
	if next == s.Tree {
		return s
	}
	return s.push(next)
}

// relayout lays out next unless it is identical to unchanged.
func (r *Reducer) relayout(next, unchanged *model.Node) *model.Node {
	if r.layout == nil || next == unchanged {
		return next
	}
	return r.layout.Apply(next)
}

// fits reports whether subtree can be inserted without duplicating ids,
// either against the tree or against earlier members of the same batch.
func (r *Reducer) fits(root, subtree *model.Node, batch map[string]struct{}) bool {
	if !tree.Validate(subtree).Valid {
		return false
	}
	ids := tree.IDs(subtree)
	for id := range ids {
		if tree.FindByID(root, id) != nil {
			return false
		}
		if _, seen := batch[id]; seen {
			return false
		}
	}
	for id := range ids {
		if batch != nil {
			batch[id] = struct{}{}
		}
	}
	return true
}

func (r *Reducer) swap(s State, aID, bID string) State {
	if aID == bID {
		return s
	}
	a, b := tree.FindByID(s.Tree, aID), tree.FindByID(s.Tree, bID)
	if a == nil || b == nil {
		return s
	}
	ax, ay, bx, by := a.X, a.Y, b.X, b.Y
	next := tree.Update(s.Tree, aID, func(n model.Node) model.Node {
		n.X, n.Y = bx, by
		return n
	})
	next = tree.Update(next, bID, func(n model.Node) model.Node {
		n.X, n.Y = ax, ay
		return n
	})
	return s.push(next)
}

func (r *Reducer) applyProperty(n model.Node, prop model.Property, value any) model.Node {
	if prop.IsColor() {
		color, _ := value.(string)
		if !model.ValidColor(color) {
			fallback := r.colors(n.Kind)
			color = fallback.Background
			if prop == model.PropBorderColor {
				color = fallback.Border
			}
		}
		if prop == model.PropBackgroundColor {
			n.BackgroundColor = color
		} else {
			n.BorderColor = color
		}
		return n
	}

	rng, ok := prop.Range()
	if !ok {
		return n
	}
	v, ok := toFloat(value)
	if !ok {
		v = rng.Default
	}
	v = rng.Clamp(v)
	switch prop {
	case model.PropWidth:
		n.Width = v
	case model.PropHeight:
		n.Height = v
	case model.PropFontSize:
		n.FontSize = v
	case model.PropBorderWidth:
		n.BorderWidth = v
	}
	return n
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
