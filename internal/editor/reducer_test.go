package editor

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindnoscape/editor/internal/layout"
	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
	"mindnoscape/editor/internal/tree"
)

type fixture struct {
	factory *model.Factory
	reducer *Reducer
	root    *model.Node
}

func newFixture(t *testing.T, withLayout bool) fixture {
	t.Helper()
	seq := 0
	factory, err := model.NewFactory(nil, log.NewNopLogger(),
		model.WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
		model.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("n%d", seq)
		}),
	)
	require.NoError(t, err)
	var engine *layout.Engine
	if withLayout {
		engine = layout.NewEngine(layout.DefaultConfig())
	}
	return fixture{
		factory: factory,
		reducer: NewReducer(factory, engine),
		root:    factory.NewNode("root", "Topic", 200, 400, model.KindRoot, "", ""),
	}
}

func (f fixture) child(text string) *model.Node {
	return f.factory.NewChild(f.root, text, 300, 0, model.KindAnswer, "", "")
}

func TestUndoRedo(t *testing.T) {
	f := newFixture(t, false)
	s0 := NewState(f.root, 0)
	assert.Equal(t, DefaultMaxHistory, s0.MaxHistory)

	s1 := f.reducer.Reduce(s0, SetText{ID: "root", Text: "Renamed"})
	require.NotSame(t, s0.Tree, s1.Tree)
	assert.Equal(t, "Renamed", s1.Tree.Text)
	assert.Equal(t, 1, s1.HistoryIndex)

	undone := f.reducer.Reduce(s1, Undo{})
	assert.Same(t, s0.Tree, undone.Tree)
	assert.True(t, undone.CanRedo())

	redone := f.reducer.Reduce(undone, Redo{})
	assert.Same(t, s1.Tree, redone.Tree)

	diverged := f.reducer.Reduce(undone, SetText{ID: "root", Text: "Other"})
	assert.False(t, diverged.CanRedo())
	assert.Len(t, diverged.History, 2)
	assert.Equal(t, "Other", diverged.Tree.Text)

	// earlier states are unaffected by later pushes
	assert.Len(t, s1.History, 2)
	assert.Same(t, s1.Tree, s1.History[1])
}

func TestUndoRedoBoundaries(t *testing.T) {
	f := newFixture(t, false)
	s := NewState(f.root, 10)
	assert.Equal(t, s, f.reducer.Reduce(s, Undo{}))
	assert.Equal(t, s, f.reducer.Reduce(s, Redo{}))
}

func TestReduceHandBuiltState(t *testing.T) {
	f := newFixture(t, false)

	s := f.reducer.Reduce(State{Tree: f.root}, SetText{ID: "root", Text: "x"})
	assert.Equal(t, "x", s.Tree.Text)
	require.Len(t, s.History, 2)
	assert.Same(t, f.root, s.History[0])
	assert.Equal(t, 1, s.HistoryIndex)
	assert.Equal(t, DefaultMaxHistory, s.MaxHistory)

	undone := f.reducer.Reduce(s, Undo{})
	assert.Same(t, f.root, undone.Tree)

	assert.NotPanics(t, func() {
		out := f.reducer.Reduce(State{Tree: f.root, HistoryIndex: 5}, Undo{})
		assert.Same(t, f.root, out.Tree)
	})
	assert.NotPanics(t, func() {
		f.reducer.Reduce(State{Tree: f.root, HistoryIndex: -1}, Redo{})
	})
}

func TestHistoryEviction(t *testing.T) {
	f := newFixture(t, false)
	s := NewState(f.root, 3)
	for i := range 5 {
		s = f.reducer.Reduce(s, SetText{ID: "root", Text: fmt.Sprintf("v%d", i)})
	}
	require.Len(t, s.History, 3)
	assert.Equal(t, 2, s.HistoryIndex)
	assert.Equal(t, []string{"v2", "v3", "v4"}, []string{s.History[0].Text, s.History[1].Text, s.History[2].Text})

	for range 5 {
		s = f.reducer.Reduce(s, Undo{})
	}
	assert.Equal(t, "v2", s.Tree.Text)
}

func TestSetPositionIsNotRecorded(t *testing.T) {
	f := newFixture(t, true)
	s := NewState(f.root, 10)
	moved := f.reducer.Reduce(s, SetPosition{ID: "root", X: 50, Y: 60})

	assert.Equal(t, 50.0, moved.Tree.X)
	assert.Equal(t, 60.0, moved.Tree.Y)
	assert.Equal(t, 200.0, moved.Tree.InitialX)
	assert.Len(t, moved.History, 1)
	assert.Equal(t, 0, moved.HistoryIndex)
}

func TestSetPropertyClampsAndFallsBack(t *testing.T) {
	f := newFixture(t, false)
	s := NewState(f.root, 10)
	q := f.factory.NewNode("q", "Why?", 0, 0, model.KindQuestion, "", "")
	s = f.reducer.Reduce(s, AddChild{ParentID: "root", Child: q})

	apply := func(prop model.Property, v any) *model.Node {
		s = f.reducer.Reduce(s, SetProperty{ID: "q", Property: prop, Value: v})
		return tree.FindByID(s.Tree, "q")
	}

	assert.Equal(t, 100.0, apply(model.PropWidth, 20.0).Width)
	assert.Equal(t, 500.0, apply(model.PropWidth, "9000").Width)
	assert.Equal(t, 200.0, apply(model.PropWidth, "wide").Width)
	assert.Equal(t, 300.0, apply(model.PropHeight, 301).Height)
	assert.Equal(t, 10.0, apply(model.PropFontSize, 1).FontSize)
	assert.Equal(t, 0.0, apply(model.PropBorderWidth, 0).BorderWidth)
	assert.Equal(t, 10.0, apply(model.PropBorderWidth, 99.0).BorderWidth)
	assert.Equal(t, "#ABCDEF", apply(model.PropBackgroundColor, "#ABCDEF").BackgroundColor)
	assert.Equal(t, "#1e3a8a", apply(model.PropBackgroundColor, "blue").BackgroundColor)
	assert.Equal(t, "#3b82f6", apply(model.PropBorderColor, "#12345").BorderColor)

	assert.Len(t, s.History, 12)
}

func TestAddChildRejectsUnknownParentAndDuplicateIDs(t *testing.T) {
	f := newFixture(t, false)
	s := NewState(f.root, 10)

	same := f.reducer.Reduce(s, AddChild{ParentID: "missing", Child: f.child("x")})
	assert.Equal(t, s, same)

	c := f.child("x")
	s1 := f.reducer.Reduce(s, AddChild{ParentID: "root", Child: c})
	require.Len(t, s1.Tree.Children, 1)

	dup := f.reducer.Reduce(s1, AddChild{ParentID: c.ID, Child: c})
	assert.Equal(t, s1, dup)

	rootClash := f.factory.NewNode("root", "imposter", 0, 0, model.KindAnswer, "", "")
	assert.Equal(t, s1, f.reducer.Reduce(s1, AddChild{ParentID: "root", Child: rootClash}))

	assert.Equal(t, s1, f.reducer.Reduce(s1, AddChild{ParentID: "root"}))
}

func TestAddChildrenScenario(t *testing.T) {
	f := newFixture(t, true)
	s := NewState(f.root, 10)

	s = f.reducer.Reduce(s, AddChildren{ParentID: "root", Children: []*model.Node{
		f.child("A"), f.child("B"), f.child("C"),
	}})

	assert.True(t, s.Tree.HasGeneratedChildren)
	require.Len(t, tree.FindByID(s.Tree, "root").Children, 3)
	assert.Len(t, s.History, 2)

	var sum float64
	for i, c := range s.Tree.Children {
		assert.Equal(t, 500.0, c.X)
		sum += c.Y
		if i > 0 {
			assert.GreaterOrEqual(t, c.Y-s.Tree.Children[i-1].Y, c.Height+30)
		}
	}
	assert.InDelta(t, s.Tree.Y, sum/3, 1e-9)
	assert.Equal(t, 400.0, s.Tree.Y)
}

func TestAddChildrenDropsCollidingMembers(t *testing.T) {
	f := newFixture(t, false)
	s := NewState(f.root, 10)
	a := f.child("A")
	twin := *a

	s = f.reducer.Reduce(s, AddChildren{ParentID: "root", Children: []*model.Node{a, &twin, nil, f.child("B")}})

	require.Len(t, s.Tree.Children, 2)
	assert.True(t, tree.Validate(s.Tree).Valid)

	missing := f.reducer.Reduce(s, AddChildren{ParentID: "nope", Children: []*model.Node{f.child("C")}})
	assert.Equal(t, s, missing)
}

func TestDeleteNode(t *testing.T) {
	f := newFixture(t, true)
	s := NewState(f.root, 10)
	c := f.child("A")
	s = f.reducer.Reduce(s, AddChild{ParentID: "root", Child: c})

	rootDelete := f.reducer.Reduce(s, DeleteNode{ID: "root"})
	assert.Same(t, s.Tree, rootDelete.Tree)
	assert.Equal(t, "root", rootDelete.Tree.ID)
	assert.Equal(t, s, rootDelete)

	assert.Equal(t, s, f.reducer.Reduce(s, DeleteNode{ID: "missing"}))

	deleted := f.reducer.Reduce(s, DeleteNode{ID: c.ID})
	assert.Empty(t, deleted.Tree.Children)
	assert.Len(t, deleted.History, 3)
}

func TestSetTree(t *testing.T) {
	f := newFixture(t, false)
	s := NewState(f.root, 10)

	replacement := f.factory.NewNode("other", "Other", 0, 0, model.KindRoot, "", "")
	s1 := f.reducer.Reduce(s, SetTree{Tree: replacement})
	assert.Same(t, replacement, s1.Tree)
	assert.Len(t, s1.History, 2)

	broken := f.factory.NewNode("x", "x", 0, 0, model.KindRoot, "", "")
	broken.Children = []*model.Node{f.factory.NewNode("x", "dup", 0, 0, model.KindAnswer, "", "")}
	assert.Equal(t, s1, f.reducer.Reduce(s1, SetTree{Tree: broken}))
	assert.Equal(t, s1, f.reducer.Reduce(s1, SetTree{}))
}

func TestToggleCollapseTwice(t *testing.T) {
	f := newFixture(t, true)
	s := NewState(f.root, 10)
	s = f.reducer.Reduce(s, AddChild{ParentID: "root", Child: f.child("A")})
	index := s.HistoryIndex

	once := f.reducer.Reduce(s, ToggleCollapse{ID: "root"})
	assert.True(t, once.Tree.Collapsed)
	twice := f.reducer.Reduce(once, ToggleCollapse{ID: "root"})
	assert.False(t, twice.Tree.Collapsed)

	assert.Equal(t, index, twice.HistoryIndex)
	assert.Len(t, twice.History, len(s.History))
}

func TestSwapNodesExchangesOnlyPositions(t *testing.T) {
	f := newFixture(t, false)
	s := NewState(f.root, 10)
	a := f.factory.NewChild(f.root, "A", 300, -60, model.KindAnswer, "a", "")
	b := f.factory.NewChild(f.root, "B", 300, 60, model.KindAnswer, "b", "")
	b.Width = 250
	s = f.reducer.Reduce(s, AddChild{ParentID: "root", Child: a})
	s = f.reducer.Reduce(s, AddChild{ParentID: "root", Child: b})

	swapped := f.reducer.Reduce(s, SwapNodes{A: a.ID, B: b.ID})
	sa, sb := tree.FindByID(swapped.Tree, a.ID), tree.FindByID(swapped.Tree, b.ID)

	assert.Equal(t, [2]float64{b.X, b.Y}, [2]float64{sa.X, sa.Y})
	assert.Equal(t, [2]float64{a.X, a.Y}, [2]float64{sb.X, sb.Y})
	ignore := cmpopts.IgnoreFields(model.Node{}, "X", "Y", "LastModified")
	assert.Empty(t, cmp.Diff(a, sa, ignore))
	assert.Empty(t, cmp.Diff(b, sb, ignore))
	assert.Equal(t, s.HistoryIndex+1, swapped.HistoryIndex)

	assert.Equal(t, s, f.reducer.Reduce(s, SwapNodes{A: a.ID, B: "missing"}))
	assert.Equal(t, s, f.reducer.Reduce(s, SwapNodes{A: a.ID, B: a.ID}))
}

func TestResetPositionsAndRelayout(t *testing.T) {
	f := newFixture(t, true)
	s := NewState(f.root, 10)
	s = f.reducer.Reduce(s, AddChild{ParentID: "root", Child: f.child("A")})
	laidOut := s.Tree.Children[0]

	s = f.reducer.Reduce(s, SetPosition{ID: laidOut.ID, X: 9, Y: 9})
	s = f.reducer.Reduce(s, ResetPositions{})
	assert.Equal(t, laidOut.X, s.Tree.Children[0].X)
	assert.Equal(t, laidOut.Y, s.Tree.Children[0].Y)

	unchanged := f.reducer.Reduce(s, Relayout{})
	assert.Equal(t, s, unchanged)
}

func TestMarkGeneratedIsNotRecorded(t *testing.T) {
	f := newFixture(t, false)
	s := NewState(f.root, 10)
	marked := f.reducer.Reduce(s, MarkGenerated{ID: "root"})
	assert.True(t, marked.Tree.HasGeneratedChildren)
	assert.Len(t, marked.History, 1)
}

func TestIDsStayUniqueUnderRandomActions(t *testing.T) {
	f := newFixture(t, true)
	s := NewState(f.root, 20)
	r := rand.New(rand.NewPCG(3, 5))

	pick := func() string {
		ids := make([]string, 0)
		for id := range tree.IDs(s.Tree) {
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			return ""
		}
		return ids[r.IntN(len(ids))]
	}

	for range 300 {
		var a Action
		switch r.IntN(9) {
		case 0, 1:
			parent := tree.FindByID(s.Tree, pick())
			a = AddChild{ParentID: parent.ID, Child: f.factory.NewChild(parent, "c", 300, 0, parent.Kind.ChildKind(), "", "")}
		case 2:
			a = AddChildren{ParentID: pick(), Children: []*model.Node{f.child("x"), f.child("y")}}
		case 3:
			a = DeleteNode{ID: pick()}
		case 4:
			a = Undo{}
		case 5:
			a = Redo{}
		case 6:
			a = ToggleCollapse{ID: pick()}
		case 7:
			a = SwapNodes{A: pick(), B: pick()}
		case 8:
			// re-adding an existing subtree must be refused
			existing := tree.FindByID(s.Tree, pick())
			a = AddChild{ParentID: "root", Child: existing}
		}
		s = f.reducer.Reduce(s, a)
		report := tree.Validate(s.Tree)
		require.True(t, report.Valid, "after %s: %v", a.Name(), report.Errors)
		require.Equal(t, "root", s.Tree.ID)
	}
}
