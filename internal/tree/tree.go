// Package tree provides pure query and mutation functions over node trees.
//
// Every mutation returns a new tree that shares all untouched subtrees with
// its input. When a mutation does not apply (unknown id, nothing changed)
// the input pointer itself is returned, so callers may compare trees by
// identity.
package tree

import (
	"fmt"
	"math"
	"strings"
	"time"

	"mindnoscape/editor/internal/model"
)

// now stamps lastModified on edited nodes.
var now = time.Now

// FindByID returns the first node with the given id in depth-first order.
func FindByID(root *model.Node, id string) *model.Node {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return root
	}
	for _, child := range root.Children {
		if found := FindByID(child, id); found != nil {
			return found
		}
	}
	return nil
}

// FindParent returns the direct owner of the node with the given id, or nil
// for the root and for unknown ids.
func FindParent(root *model.Node, id string) *model.Node {
	if root == nil {
		return nil
	}
	for _, child := range root.Children {
		if child.ID == id {
			return root
		}
		if found := FindParent(child, id); found != nil {
			return found
		}
	}
	return nil
}

// GetPath returns the nodes from root down to the node with the given id,
// or nil when it is absent.
func GetPath(root *model.Node, id string) []*model.Node {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return []*model.Node{root}
	}
	for _, child := range root.Children {
		if path := GetPath(child, id); path != nil {
			return append([]*model.Node{root}, path...)
		}
	}
	return nil
}

// Ancestry summarizes the position of a node for generation prompts.
type Ancestry struct {
	RootText    string
	ParentText  string
	CurrentText string
	Depth       int
}

// AncestryOf derives the ancestry of the node with the given id.
func AncestryOf(root *model.Node, id string) (Ancestry, bool) {
	path := GetPath(root, id)
	if path == nil {
		return Ancestry{}, false
	}
	a := Ancestry{
		RootText:    path[0].Text,
		CurrentText: path[len(path)-1].Text,
		Depth:       len(path) - 1,
	}
	if len(path) > 1 {
		a.ParentText = path[len(path)-2].Text
	}
	return a, true
}

// Update applies fn to a copy of the node with the given id and stamps its
// lastModified. The input tree is returned unchanged when no node matches.
func Update(root *model.Node, id string, fn func(model.Node) model.Node) *model.Node {
	return rewrite(root, id, func(n *model.Node) *model.Node {
		updated := fn(*n)
		updated.LastModified = now()
		return &updated
	})
}

// AddChild appends child to the children of the node with the given parent id.
func AddChild(root *model.Node, parentID string, child *model.Node) *model.Node {
	return rewrite(root, parentID, func(n *model.Node) *model.Node {
		updated := *n
		updated.Children = appendChild(n.Children, child)
		updated.LastModified = now()
		return &updated
	})
}

// DeleteSubtree removes the node with the given id and its descendants.
// It returns nil when id names the root itself, which may never be deleted,
// and the input tree when id is unknown.
func DeleteSubtree(root *model.Node, id string) *model.Node {
	if root == nil || root.ID == id {
		return nil
	}
	parent := FindParent(root, id)
	if parent == nil {
		return root
	}
	return rewrite(root, parent.ID, func(n *model.Node) *model.Node {
		updated := *n
		updated.Children = make([]*model.Node, 0, len(n.Children)-1)
		for _, c := range n.Children {
			if c.ID != id {
				updated.Children = append(updated.Children, c)
			}
		}
		updated.LastModified = now()
		return &updated
	})
}

// ResetPositions moves every node back to its initial coordinates.
func ResetPositions(root *model.Node) *model.Node {
	return Map(root, func(n *model.Node) *model.Node {
		if n.X == n.InitialX && n.Y == n.InitialY {
			return n
		}
		updated := *n
		updated.X, updated.Y = n.InitialX, n.InitialY
		return &updated
	})
}

// Map rebuilds the tree bottom-up, calling fn on each node after its
// children have been mapped. fn receives a node whose Children are already
// the mapped children and returns either that node or a replacement.
// Nodes whose subtree is unchanged keep their identity.
func Map(root *model.Node, fn func(*model.Node) *model.Node) *model.Node {
	if root == nil {
		return nil
	}
	node := root
	var children []*model.Node
	for i, child := range root.Children {
		mapped := Map(child, fn)
		if mapped != child && children == nil {
			children = make([]*model.Node, len(root.Children))
			copy(children, root.Children[:i])
		}
		if children != nil {
			children[i] = mapped
		}
	}
	if children != nil {
		copied := *root
		copied.Children = children
		node = &copied
	}
	return fn(node)
}

// rewrite replaces the node with the given id by fn's result and copies
// every ancestor on the way up. Unmatched trees are returned as is.
func rewrite(root *model.Node, id string, fn func(*model.Node) *model.Node) *model.Node {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return fn(root)
	}
	for i, child := range root.Children {
		replaced := rewrite(child, id, fn)
		if replaced == child {
			continue
		}
		updated := *root
		updated.Children = make([]*model.Node, len(root.Children))
		copy(updated.Children, root.Children)
		updated.Children[i] = replaced
		return &updated
	}
	return root
}

func appendChild(children []*model.Node, child *model.Node) []*model.Node {
	out := make([]*model.Node, len(children), len(children)+1)
	copy(out, children)
	return append(out, child)
}

// Traverse visits every node depth-first, pre-order. depth is 0 for the root.
// Returning false from fn skips the node's descendants.
func Traverse(root *model.Node, fn func(n *model.Node, depth int) bool) {
	var walk func(n *model.Node, depth int)
	walk = func(n *model.Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	if root != nil {
		walk(root, 0)
	}
}

// CountNodes returns the number of nodes in the tree.
func CountNodes(root *model.Node) int {
	count := 0
	Traverse(root, func(*model.Node, int) bool {
		count++
		return true
	})
	return count
}

// MaxDepth returns the number of levels in the tree, 1 for a lone root.
func MaxDepth(root *model.Node) int {
	depth := 0
	Traverse(root, func(_ *model.Node, d int) bool {
		if d+1 > depth {
			depth = d + 1
		}
		return true
	})
	return depth
}

// IDs returns the set of ids in the tree.
func IDs(root *model.Node) map[string]struct{} {
	ids := make(map[string]struct{})
	Traverse(root, func(n *model.Node, _ int) bool {
		ids[n.ID] = struct{}{}
		return true
	})
	return ids
}

// Copy returns a deep copy that keeps every id.
func Copy(root *model.Node) *model.Node {
	if root == nil {
		return nil
	}
	c := *root
	c.Children = make([]*model.Node, len(root.Children))
	for i, child := range root.Children {
		c.Children[i] = Copy(child)
	}
	return &c
}

// Find returns nodes whose text or description contains query, ignoring case.
func Find(root *model.Node, query string) []*model.Node {
	q := strings.ToLower(query)
	var found []*model.Node
	Traverse(root, func(n *model.Node, _ int) bool {
		if strings.Contains(strings.ToLower(n.Text), q) || strings.Contains(strings.ToLower(n.Description), q) {
			found = append(found, n)
		}
		return true
	})
	return found
}

// Report is the outcome of Validate.
type Report struct {
	Valid  bool
	Errors []string
}

// Validate checks the structural invariants of a tree: ids present and
// unique, coordinates finite, children slices non-nil.
func Validate(root *model.Node) Report {
	if root == nil {
		return Report{Errors: []string{"tree is empty"}}
	}
	var errs []string
	seen := make(map[string]struct{})
	Traverse(root, func(n *model.Node, depth int) bool {
		if n.ID == "" {
			errs = append(errs, fmt.Sprintf("node at depth %d has no id", depth))
		} else if _, dup := seen[n.ID]; dup {
			errs = append(errs, fmt.Sprintf("duplicate id: %s", n.ID))
		} else {
			seen[n.ID] = struct{}{}
		}
		for _, v := range []float64{n.X, n.Y, n.InitialX, n.InitialY} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				errs = append(errs, fmt.Sprintf("node %s has non-numeric coordinates", n.ID))
				break
			}
		}
		if n.Children == nil {
			errs = append(errs, fmt.Sprintf("node %s has nil children", n.ID))
		}
		return true
	})
	return Report{Valid: len(errs) == 0, Errors: errs}
}
