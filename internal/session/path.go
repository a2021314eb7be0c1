package session

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mindnoscape/editor/internal/model"
	"mindnoscape/editor/internal/tree"
)

var dottedPath = regexp.MustCompile(`^[1-9]\d*(\.[1-9]\d*)*$`)

// NodeRef identifies a node in command results.
type NodeRef struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	Text string `json:"text"`
}

// Resolve finds a node by reference. "0" is the root, a dotted path such as
// "1.2" walks 1-based child indexes from the root, anything else is an id.
func Resolve(root *model.Node, ref string) (*model.Node, error) {
	ref = strings.TrimSpace(ref)
	if root == nil {
		return nil, fmt.Errorf("document is empty")
	}
	if ref == "0" {
		return root, nil
	}
	if dottedPath.MatchString(ref) {
		node := root
		for _, part := range strings.Split(ref, ".") {
			i, _ := strconv.Atoi(part)
			if i > len(node.Children) {
				return nil, fmt.Errorf("no node at path %s", ref)
			}
			node = node.Children[i-1]
		}
		return node, nil
	}
	if node := tree.FindByID(root, ref); node != nil {
		return node, nil
	}
	return nil, fmt.Errorf("node not found: %s", ref)
}

// PathOf returns the dotted path of the node with the given id, "0" for the
// root and "" when the node is absent.
func PathOf(root *model.Node, id string) string {
	nodes := tree.GetPath(root, id)
	if nodes == nil {
		return ""
	}
	if len(nodes) == 1 {
		return "0"
	}
	parts := make([]string, 0, len(nodes)-1)
	for i := 1; i < len(nodes); i++ {
		for j, c := range nodes[i-1].Children {
			if c == nodes[i] {
				parts = append(parts, strconv.Itoa(j+1))
				break
			}
		}
	}
	return strings.Join(parts, ".")
}

func refOf(root, node *model.Node) NodeRef {
	return NodeRef{ID: node.ID, Path: PathOf(root, node.ID), Text: node.Text}
}
