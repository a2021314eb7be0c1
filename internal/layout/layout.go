// Package layout assigns non-overlapping positions to the visible nodes of a tree.
package layout

import (
	"math"

	"mindnoscape/editor/internal/model"
)

// Config holds the spacing parameters of the layout.
type Config struct {
	HorizontalSpacing  float64
	MinVerticalSpacing float64
	OriginX            float64
	OriginY            float64
}

// DefaultConfig returns the standard spacing with the root at (200, 400).
func DefaultConfig() Config {
	return Config{
		HorizontalSpacing:  300,
		MinVerticalSpacing: 30,
		OriginX:            200,
		OriginY:            400,
	}
}

// Engine computes tree layouts. It holds no state besides its configuration
// and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine. Non-positive spacings are replaced by defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.HorizontalSpacing <= 0 {
		cfg.HorizontalSpacing = def.HorizontalSpacing
	}
	if cfg.MinVerticalSpacing <= 0 {
		cfg.MinVerticalSpacing = def.MinVerticalSpacing
	}
	return &Engine{cfg: cfg}
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// SubtreeHeight returns the vertical space needed by n and its visible
// descendants: the children's subtree heights plus the gaps between them,
// or the node's own height when it is a leaf, collapsed or taller than its
// children's block.
func (e *Engine) SubtreeHeight(n *model.Node) float64 {
	if n.Collapsed || len(n.Children) == 0 {
		return n.Height
	}
	return math.Max(n.Height, e.blockHeight(n.Children))
}

func (e *Engine) blockHeight(children []*model.Node) float64 {
	total := float64(len(children)-1) * e.cfg.MinVerticalSpacing
	for _, c := range children {
		total += e.SubtreeHeight(c)
	}
	return total
}

// Apply lays out the whole tree with the root at the configured origin and
// records the result as each node's initial position. Nodes whose position
// and subtree are unchanged are reused.
func (e *Engine) Apply(root *model.Node) *model.Node {
	if root == nil {
		return nil
	}
	return e.place(root, e.cfg.OriginX, e.cfg.OriginY)
}

func (e *Engine) place(n *model.Node, x, y float64) *model.Node {
	var children []*model.Node
	if !n.Collapsed && len(n.Children) > 0 {
		cursor := y - e.blockHeight(n.Children)/2
		for i, child := range n.Children {
			h := e.SubtreeHeight(child)
			placed := e.place(child, x+e.cfg.HorizontalSpacing, cursor+h/2)
			if placed != child && children == nil {
				children = make([]*model.Node, len(n.Children))
				copy(children, n.Children[:i])
			}
			if children != nil {
				children[i] = placed
			}
			cursor += h + e.cfg.MinVerticalSpacing
		}
	}

	if children == nil && n.X == x && n.Y == y && n.InitialX == x && n.InitialY == y {
		return n
	}
	placed := *n
	if children != nil {
		placed.Children = children
	}
	placed.X, placed.Y = x, y
	placed.InitialX, placed.InitialY = x, y
	return &placed
}

// Visible returns the nodes not hidden by a collapsed ancestor, in
// depth-first order.
func Visible(root *model.Node) []*model.Node {
	var out []*model.Node
	var walk func(n *model.Node)
	walk = func(n *model.Node) {
		out = append(out, n)
		if n.Collapsed {
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}
