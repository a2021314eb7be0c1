package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindnoscape/editor/internal/log"
)

func newTestFactory(t *testing.T, colors ColorSource) *Factory {
	t.Helper()
	seq := 0
	f, err := NewFactory(colors, log.NewNopLogger(),
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("n%d", seq)
		}),
	)
	require.NoError(t, err)
	return f
}

func TestNewFactoryRequiresLogger(t *testing.T) {
	_, err := NewFactory(nil, nil)
	assert.Error(t, err)
}

func TestDefaultIDFormat(t *testing.T) {
	f, err := NewFactory(nil, log.NewNopLogger())
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^node-\d+-[0-9a-z]{9}$`), f.NewID())
	assert.NotEqual(t, f.NewID(), f.NewID())
}

func TestNewNodeDefaults(t *testing.T) {
	f := newTestFactory(t, nil)
	n := f.NewNode("a", "Topic", 10, 20, KindRoot, "", "")

	assert.Equal(t, 200.0, n.Width)
	assert.Equal(t, 80.0, n.Height)
	assert.Equal(t, 16.0, n.FontSize)
	assert.Equal(t, 2.0, n.BorderWidth)
	assert.Equal(t, "#581c87", n.BackgroundColor)
	assert.Equal(t, "#8b5cf6", n.BorderColor)
	assert.Equal(t, 10.0, n.InitialX)
	assert.Equal(t, 20.0, n.InitialY)
	assert.NotNil(t, n.Children)
	assert.Empty(t, n.Children)
	assert.Equal(t, n.CreatedAt, n.LastModified)
}

func TestColorsFromConfig(t *testing.T) {
	cfg := &Config{Colors: ColorConfig{
		QuestionBackground: "#112233",
		QuestionBorder:     "not-a-color",
		AnswerBackground:   "#AABBCC",
		AnswerBorder:       "#ddeeff",
	}}
	f := newTestFactory(t, cfg)

	q := f.NewNode("q", "?", 0, 0, KindQuestion, "", "")
	assert.Equal(t, "#112233", q.BackgroundColor)
	assert.Equal(t, "#3b82f6", q.BorderColor)

	a := f.NewNode("a", "!", 0, 0, KindAnswer, "", "")
	assert.Equal(t, "#AABBCC", a.BackgroundColor)
	assert.Equal(t, "#ddeeff", a.BorderColor)

	r := f.NewNode("r", "root", 0, 0, KindRoot, "", "")
	assert.Equal(t, DefaultColors(KindRoot), NodeColors{Background: r.BackgroundColor, Border: r.BorderColor})
}

func TestChildKind(t *testing.T) {
	assert.Equal(t, KindAnswer, KindRoot.ChildKind())
	assert.Equal(t, KindAnswer, KindQuestion.ChildKind())
	assert.Equal(t, KindQuestion, KindAnswer.ChildKind())
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"question":  KindQuestion,
		"Answer":    KindAnswer,
		"root":      KindRoot,
		"pregunta":  KindQuestion,
		"respuesta": KindAnswer,
	} {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseKind("leaf")
	assert.Error(t, err)
}

func TestNewChildPositionsRelativeToParent(t *testing.T) {
	f := newTestFactory(t, nil)
	parent := f.NewNode("p", "parent", 200, 400, KindRoot, "", "")
	child := f.NewChild(parent, "child", 300, 120, KindAnswer, "why", "wiki")

	assert.Equal(t, 500.0, child.X)
	assert.Equal(t, 520.0, child.Y)
	assert.Equal(t, "why", child.Description)
	assert.Equal(t, "wiki", child.Source)
	assert.Empty(t, parent.Children)
	assert.NotEqual(t, parent.ID, child.ID)
}

func sampleTree(f *Factory) *Node {
	root := f.NewNode("root", "Topic", 200, 400, KindRoot, "", "")
	a := f.NewChild(root, "A", 300, 0, KindAnswer, "desc", "src")
	a.Width = 320
	a.BorderWidth = 0
	a.Collapsed = true
	b := f.NewChild(a, "B", 300, 0, KindQuestion, "", "")
	b.HasGeneratedChildren = true
	a.Children = []*Node{b}
	root.Children = []*Node{a}
	return root
}

func TestRecordRoundTrip(t *testing.T) {
	f := newTestFactory(t, nil)
	root := sampleTree(f)

	decoded, err := f.FromRecord(ToRecord(root))
	require.NoError(t, err)

	diff := cmp.Diff(root, decoded, cmpopts.IgnoreFields(Node{}, "CreatedAt", "LastModified"))
	assert.Empty(t, diff)
}

func TestRecordRoundTripThroughJSON(t *testing.T) {
	f := newTestFactory(t, nil)
	root := sampleTree(f)

	data, err := json.Marshal(ToRecord(root))
	require.NoError(t, err)
	decoded, err := f.FromJSON(data)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(root, decoded))
}

func TestFromRecordValidation(t *testing.T) {
	f := newTestFactory(t, nil)
	cases := map[string]any{
		"not an object": []any{1, 2},
		"missing id":    map[string]any{"text": "t", "x": 1.0, "y": 1.0},
		"numeric id":    map[string]any{"id": 4.0, "text": "t", "x": 1.0, "y": 1.0},
		"text number":   map[string]any{"id": "a", "text": 3.0, "x": 1.0, "y": 1.0},
		"x string":      map[string]any{"id": "a", "text": "t", "x": "1", "y": 1.0},
		"y missing":     map[string]any{"id": "a", "text": "t", "x": 1.0},
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.FromRecord(data)
			require.Error(t, err)
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
			assert.ErrorIs(t, err, ErrInvalidRecord)
		})
	}
}

func TestFromRecordDefaultsAndDroppedChildren(t *testing.T) {
	f := newTestFactory(t, nil)
	node, err := f.FromRecord(map[string]any{
		"id":          "a",
		"text":        "t",
		"x":           5,
		"y":           int64(6),
		"kind":        "mystery",
		"width":       -4.0,
		"borderWidth": 0.0,
		"children": []any{
			map[string]any{"id": "ok", "text": "fine", "x": 1.0, "y": 2.0, "kind": "answer"},
			map[string]any{"text": "no id", "x": 1.0, "y": 2.0},
			"garbage",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, KindQuestion, node.Kind)
	assert.Equal(t, 200.0, node.Width)
	assert.Equal(t, 0.0, node.BorderWidth)
	assert.Equal(t, 5.0, node.InitialX)
	assert.Equal(t, "#1e3a8a", node.BackgroundColor)
	require.Len(t, node.Children, 1)
	assert.Equal(t, "ok", node.Children[0].ID)
	assert.Equal(t, KindAnswer, node.Children[0].Kind)
}

func TestCloneAndDeepClone(t *testing.T) {
	f := newTestFactory(t, nil)
	root := sampleTree(f)

	shallow := f.Clone(root)
	assert.NotEqual(t, root.ID, shallow.ID)
	assert.Empty(t, shallow.Children)
	assert.Equal(t, root.Text, shallow.Text)
	assert.Len(t, root.Children, 1)

	deep := f.DeepClone(root)
	require.Len(t, deep.Children, 1)
	require.Len(t, deep.Children[0].Children, 1)
	assert.NotEqual(t, root.Children[0].ID, deep.Children[0].ID)
	assert.NotEqual(t, root.Children[0].Children[0].ID, deep.Children[0].Children[0].ID)
	assert.Equal(t, "B", deep.Children[0].Children[0].Text)
	assert.NotSame(t, root.Children[0], deep.Children[0])
}

func TestRangeClamp(t *testing.T) {
	assert.Equal(t, 100.0, WidthRange.Clamp(20))
	assert.Equal(t, 500.0, WidthRange.Clamp(900))
	assert.Equal(t, 0.0, BorderWidthRange.Clamp(0))
	assert.Equal(t, 32.0, FontSizeRange.Clamp(33))
}

func TestParseProperty(t *testing.T) {
	p, err := ParseProperty("fontsize")
	require.NoError(t, err)
	assert.Equal(t, PropFontSize, p)
	assert.True(t, PropBorderColor.IsColor())
	_, ok := PropBackgroundColor.Range()
	assert.False(t, ok)
	_, err = ParseProperty("shadow")
	assert.Error(t, err)
}
