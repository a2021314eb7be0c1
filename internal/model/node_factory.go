package model

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"mindnoscape/editor/internal/log"
)

// NodeColors holds the background and border colors of a node.
type NodeColors struct {
	Background string
	Border     string
}

// ColorSource supplies user-configured colors per node kind.
type ColorSource interface {
	NodeColors(kind Kind) (NodeColors, bool)
}

// DefaultColors returns the built-in colors of a kind.
func DefaultColors(kind Kind) NodeColors {
	switch kind {
	case KindRoot:
		return NodeColors{Background: "#581c87", Border: "#8b5cf6"}
	case KindQuestion:
		return NodeColors{Background: "#1e3a8a", Border: "#3b82f6"}
	case KindAnswer:
		return NodeColors{Background: "#065f46", Border: "#10b981"}
	default:
		return NodeColors{Background: "#0f1419", Border: "#8b5cf6"}
	}
}

// FactoryOption customizes a Factory.
type FactoryOption func(*Factory)

// WithClock replaces the time source used for timestamps and ids.
func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) { f.now = now }
}

// WithIDGenerator replaces the node id generator.
func WithIDGenerator(newID func() string) FactoryOption {
	return func(f *Factory) { f.newID = newID }
}

// Factory creates, clones and decodes nodes.
type Factory struct {
	colors ColorSource
	logger *log.Logger
	now    func() time.Time
	newID  func() string
}

// NewFactory creates a node factory. colors may be nil, in which case the
// built-in defaults apply.
func NewFactory(colors ColorSource, logger *log.Logger, opts ...FactoryOption) (*Factory, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	f := &Factory{
		colors: colors,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.newID == nil {
		f.newID = f.defaultID
	}
	return f, nil
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func (f *Factory) defaultID() string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return fmt.Sprintf("node-%d-%s", f.now().UnixMilli(), suffix)
}

// NewID returns a fresh node id.
func (f *Factory) NewID() string {
	return f.newID()
}

// timestamp is truncated to milliseconds so it survives a record round trip.
func (f *Factory) timestamp() time.Time {
	return time.UnixMilli(f.now().UnixMilli())
}

// Colors resolves the colors for a kind: configured values for question and
// answer nodes when valid, built-in defaults otherwise.
func (f *Factory) Colors(kind Kind) NodeColors {
	colors := DefaultColors(kind)
	if kind == KindRoot || f.colors == nil {
		return colors
	}
	configured, ok := f.colors.NodeColors(kind)
	if !ok {
		return colors
	}
	if ValidColor(configured.Background) {
		colors.Background = configured.Background
	}
	if ValidColor(configured.Border) {
		colors.Border = configured.Border
	}
	return colors
}

// NewNode creates a childless node with default geometry and kind colors.
func (f *Factory) NewNode(id, text string, x, y float64, kind Kind, description, source string) *Node {
	colors := f.Colors(kind)
	now := f.timestamp()
	return &Node{
		ID:              id,
		Text:            text,
		Kind:            kind,
		Description:     description,
		Source:          source,
		X:               x,
		Y:               y,
		InitialX:        x,
		InitialY:        y,
		Width:           WidthRange.Default,
		Height:          HeightRange.Default,
		FontSize:        FontSizeRange.Default,
		BackgroundColor: colors.Background,
		BorderColor:     colors.Border,
		BorderWidth:     BorderWidthRange.Default,
		Children:        []*Node{},
		CreatedAt:       now,
		LastModified:    now,
	}
}

// NewChild creates a node positioned relative to parent. The parent is not
// modified and the child is not attached.
func (f *Factory) NewChild(parent *Node, text string, offsetX, offsetY float64, kind Kind, description, source string) *Node {
	return f.NewNode(f.NewID(), text, parent.X+offsetX, parent.Y+offsetY, kind, description, source)
}

// Clone copies node under a fresh id without its children.
func (f *Factory) Clone(node *Node) *Node {
	clone := *node
	clone.ID = f.NewID()
	clone.Children = []*Node{}
	now := f.timestamp()
	clone.CreatedAt = now
	clone.LastModified = now
	return &clone
}

// DeepClone copies node and every descendant, each under a fresh id.
func (f *Factory) DeepClone(node *Node) *Node {
	clone := f.Clone(node)
	if len(node.Children) > 0 {
		clone.Children = make([]*Node, len(node.Children))
		for i, child := range node.Children {
			clone.Children[i] = f.DeepClone(child)
		}
	}
	return clone
}

func (f *Factory) warn(msg string, fields log.Fields) {
	f.logger.Warn(context.Background(), msg, fields)
}
