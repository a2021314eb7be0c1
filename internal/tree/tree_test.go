package tree

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindnoscape/editor/internal/model"
)

func node(id string, children ...*model.Node) *model.Node {
	if children == nil {
		children = []*model.Node{}
	}
	return &model.Node{ID: id, Text: "text " + id, Children: children, Height: 80, Width: 200}
}

// root
// ├── a
// │   ├── a1
// │   └── a2
// └── b
func fixture() *model.Node {
	return node("root",
		node("a", node("a1"), node("a2")),
		node("b"),
	)
}

func TestFindByIDAndParent(t *testing.T) {
	root := fixture()

	assert.Same(t, root.Children[0].Children[1], FindByID(root, "a2"))
	assert.Nil(t, FindByID(root, "zz"))

	assert.Same(t, root.Children[0], FindParent(root, "a1"))
	assert.Same(t, root, FindParent(root, "b"))
	assert.Nil(t, FindParent(root, "root"))
	assert.Nil(t, FindParent(root, "zz"))
}

func TestGetPathAndAncestry(t *testing.T) {
	root := fixture()

	path := GetPath(root, "a2")
	require.Len(t, path, 3)
	assert.Equal(t, []string{"root", "a", "a2"}, []string{path[0].ID, path[1].ID, path[2].ID})
	assert.Nil(t, GetPath(root, "zz"))

	a, ok := AncestryOf(root, "a2")
	require.True(t, ok)
	assert.Equal(t, Ancestry{RootText: "text root", ParentText: "text a", CurrentText: "text a2", Depth: 2}, a)

	a, ok = AncestryOf(root, "root")
	require.True(t, ok)
	assert.Empty(t, a.ParentText)
}

func TestUpdateSharesUntouchedSubtrees(t *testing.T) {
	stamp := time.UnixMilli(42)
	now = func() time.Time { return stamp }
	defer func() { now = time.Now }()

	root := fixture()
	updated := Update(root, "a1", func(n model.Node) model.Node {
		n.Text = "changed"
		return n
	})

	require.NotSame(t, root, updated)
	assert.Equal(t, "text a1", root.Children[0].Children[0].Text)
	assert.Equal(t, "changed", updated.Children[0].Children[0].Text)
	assert.Equal(t, stamp, updated.Children[0].Children[0].LastModified)

	assert.NotSame(t, root.Children[0], updated.Children[0])
	assert.Same(t, root.Children[0].Children[1], updated.Children[0].Children[1])
	assert.Same(t, root.Children[1], updated.Children[1])
}

func TestUpdateUnknownIDReturnsSameTree(t *testing.T) {
	root := fixture()
	called := false
	out := Update(root, "missing", func(n model.Node) model.Node {
		called = true
		return n
	})
	assert.Same(t, root, out)
	assert.False(t, called)
}

func TestAddChild(t *testing.T) {
	root := fixture()
	child := node("b1")

	out := AddChild(root, "b", child)
	require.Len(t, out.Children[1].Children, 1)
	assert.Same(t, child, out.Children[1].Children[0])
	assert.Empty(t, root.Children[1].Children)
	assert.Same(t, root.Children[0], out.Children[0])

	out2 := AddChild(out, "a", node("a3"))
	assert.Equal(t, "a3", out2.Children[0].Children[2].ID)
	assert.Len(t, out.Children[0].Children, 2)

	assert.Same(t, root, AddChild(root, "missing", node("x")))
}

func TestDeleteSubtree(t *testing.T) {
	root := fixture()

	out := DeleteSubtree(root, "a")
	require.NotNil(t, out)
	require.Len(t, out.Children, 1)
	assert.Equal(t, "b", out.Children[0].ID)
	assert.Len(t, root.Children, 2)
	assert.Equal(t, 2, CountNodes(out))

	assert.Nil(t, DeleteSubtree(root, "root"))
	assert.Same(t, root, DeleteSubtree(root, "missing"))
}

func TestResetPositions(t *testing.T) {
	root := fixture()
	moved := Update(root, "a2", func(n model.Node) model.Node {
		n.X, n.Y = 999, -5
		return n
	})

	reset := ResetPositions(moved)
	a2 := FindByID(reset, "a2")
	assert.Equal(t, 0.0, a2.X)
	assert.Equal(t, 0.0, a2.Y)
	assert.Same(t, moved.Children[1], reset.Children[1])
	assert.Same(t, moved.Children[0].Children[0], reset.Children[0].Children[0])

	assert.Same(t, root, ResetPositions(root))
}

func TestCountAndDepth(t *testing.T) {
	root := fixture()
	assert.Equal(t, 5, CountNodes(root))
	assert.Equal(t, 3, MaxDepth(root))
	assert.Equal(t, 1, MaxDepth(node("solo")))
	assert.Equal(t, 0, CountNodes(nil))
}

func TestCopyKeepsIDsButNotPointers(t *testing.T) {
	root := fixture()
	c := Copy(root)
	assert.Equal(t, root, c)
	assert.NotSame(t, root.Children[0], c.Children[0])
}

func TestFind(t *testing.T) {
	root := fixture()
	root.Children[1].Description = "Important detail"

	found := Find(root, "IMPORTANT")
	require.Len(t, found, 1)
	assert.Equal(t, "b", found[0].ID)
	assert.Len(t, Find(root, "text a"), 3)
}

func TestValidate(t *testing.T) {
	assert.True(t, Validate(fixture()).Valid)
	assert.False(t, Validate(nil).Valid)

	dup := node("root", node("x"), node("x"))
	report := Validate(dup)
	assert.False(t, report.Valid)
	assert.Contains(t, report.Errors, "duplicate id: x")

	bad := node("root", &model.Node{ID: "", Children: []*model.Node{}})
	bad.Y = math.NaN()
	report = Validate(bad)
	assert.False(t, report.Valid)
	assert.Len(t, report.Errors, 2)
}

func TestTraverseCanSkipSubtrees(t *testing.T) {
	var visited []string
	Traverse(fixture(), func(n *model.Node, _ int) bool {
		visited = append(visited, n.ID)
		return n.ID != "a"
	})
	assert.Equal(t, []string{"root", "a", "b"}, visited)
}
