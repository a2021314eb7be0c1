package session

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"mindnoscape/editor/internal/data"
	"mindnoscape/editor/internal/editor"
	"mindnoscape/editor/internal/event"
	"mindnoscape/editor/internal/expand"
	"mindnoscape/editor/internal/generate"
	"mindnoscape/editor/internal/layout"
	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
	"mindnoscape/editor/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newServices(t *testing.T) *Services {
	t.Helper()
	logger := log.NewNopLogger()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "s.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	var seq atomic.Int64
	factory, err := model.NewFactory(nil, logger, model.WithIDGenerator(func() string {
		return fmt.Sprintf("n%d", seq.Add(1))
	}))
	require.NoError(t, err)
	events := event.NewEventManager(logger)
	t.Cleanup(events.Wait)

	mindmaps, err := data.NewMindmapManager(store, factory, events, model.EditorConfig{OriginX: 200, OriginY: 400}, logger)
	require.NoError(t, err)
	expander, err := expand.NewExpander(generate.NewStatic(), factory, events, 2, logger)
	require.NoError(t, err)

	return &Services{
		Mindmaps:          mindmaps,
		Factory:           factory,
		Reducer:           editor.NewReducer(factory, layout.NewEngine(layout.DefaultConfig())),
		Events:            events,
		Expander:          expander,
		MaxHistory:        10,
		ExpandConcurrency: 2,
	}
}

func newManager(t *testing.T) *SessionManager {
	t.Helper()
	sm, err := NewSessionManager(newServices(t), log.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(sm.Close)
	return sm
}

// runner executes commands in one session and fails the test on error.
type runner struct {
	t  *testing.T
	sm *SessionManager
	id string
}

func newRunner(t *testing.T) runner {
	sm := newManager(t)
	id, err := sm.SessionAdd()
	require.NoError(t, err)
	return runner{t: t, sm: sm, id: id}
}

func (r runner) try(scope, op string, args ...string) (interface{}, error) {
	return r.sm.SessionRun(context.Background(), r.id, model.Command{Scope: scope, Operation: op, Args: args})
}

func (r runner) run(scope, op string, args ...string) interface{} {
	r.t.Helper()
	out, err := r.try(scope, op, args...)
	require.NoError(r.t, err, "%s %s %v", scope, op, args)
	return out
}

func (r runner) tree() *model.Node {
	r.t.Helper()
	s, ok := r.sm.SessionGet(r.id)
	require.True(r.t, ok)
	doc, err := s.Document()
	require.NoError(r.t, err)
	return doc.Tree()
}

func TestMindmapLifecycle(t *testing.T) {
	r := newRunner(t)

	_, err := r.try("node", "add", "0", "x")
	assert.ErrorIs(t, err, ErrNoMindmap)

	m := r.run("mindmap", "add", "Plans").(model.Mindmap)
	assert.Equal(t, "Plans", m.Name)
	assert.Equal(t, "Plans", r.tree().Text)

	r.run("node", "add", "0", "First")
	assert.Equal(t, "saved", r.run("mindmap", "save"))
	assert.Equal(t, "no changes to save", r.run("mindmap", "save"))

	r.run("mindmap", "close")
	_, err = r.try("mindmap", "view")
	assert.ErrorIs(t, err, ErrNoMindmap)

	r.run("mindmap", "open", "Plans")
	assert.Equal(t, "First", r.tree().Children[0].Text)

	list := r.run("mindmap", "list").([]model.Mindmap)
	require.Len(t, list, 1)

	r.run("mindmap", "delete")
	_, err = r.try("mindmap", "save")
	assert.ErrorIs(t, err, ErrNoMindmap)
	assert.Empty(t, r.run("mindmap", "list"))
}

func TestNodeCommands(t *testing.T) {
	r := newRunner(t)
	r.run("mindmap", "add", "Root topic")

	a := r.run("node", "add", "0", "A", "first child").(NodeRef)
	assert.Equal(t, "1", a.Path)
	b := r.run("node", "add", "0", "B").(NodeRef)
	assert.Equal(t, "2", b.Path)
	c := r.run("node", "add", "1", "C").(NodeRef)
	assert.Equal(t, "1.1", c.Path)

	root := r.tree()
	assert.Equal(t, model.KindAnswer, root.Children[0].Kind)
	assert.Equal(t, model.KindQuestion, root.Children[0].Children[0].Kind)
	assert.Equal(t, "first child", root.Children[0].Description)

	r.run("node", "text", "1.1", "C2")
	assert.Equal(t, "C2", r.tree().Children[0].Children[0].Text)
	r.run("node", "text", b.ID, "B2")
	assert.Equal(t, "B2", r.tree().Children[1].Text)

	r.run("node", "prop", "1", "width", "9999")
	assert.Equal(t, model.WidthRange.Max, r.tree().Children[0].Width)
	r.run("node", "prop", "1", "backgroundColor", "nope")
	assert.Equal(t, model.DefaultColors(model.KindAnswer).Background, r.tree().Children[0].BackgroundColor)
	_, err := r.try("node", "prop", "1", "width", "wide")
	assert.Error(t, err)
	_, err = r.try("node", "prop", "1", "opacity", "1")
	assert.Error(t, err)

	r.run("node", "move", "2", "10", "20")
	assert.Equal(t, 10.0, r.tree().Children[1].X)
	_, err = r.try("node", "move", "2", "x", "20")
	assert.Error(t, err)

	before := r.tree()
	r.run("node", "swap", "1", "2")
	after := r.tree()
	assert.Equal(t, before.Children[0].Y, after.Children[1].Y)

	found := r.run("node", "find", "c2").([]NodeRef)
	require.Len(t, found, 1)
	assert.Equal(t, "1.1", found[0].Path)

	r.run("node", "collapse", "1")
	assert.True(t, r.tree().Children[0].Collapsed)

	r.run("node", "delete", "1.1")
	assert.Empty(t, r.tree().Children[0].Children)
	_, err = r.try("node", "delete", "0")
	assert.Error(t, err)

	r.run("node", "undo")
	assert.Len(t, r.tree().Children[0].Children, 1)
	r.run("node", "redo")
	assert.Empty(t, r.tree().Children[0].Children)
	_, err = r.try("node", "redo")
	assert.ErrorContains(t, err, "nothing to redo")

	_, err = r.try("node", "text", "9.9", "x")
	assert.ErrorContains(t, err, "no node at path")
}

func TestNodeExpand(t *testing.T) {
	r := newRunner(t)
	r.run("mindmap", "add", "Programming")

	refs := r.run("node", "expand", "0").([]NodeRef)
	require.Len(t, refs, 2)
	assert.Equal(t, "Frontend", refs[0].Text)
	assert.Equal(t, "1", refs[0].Path)

	_, err := r.try("node", "expand", "0")
	assert.ErrorIs(t, err, expand.ErrAlreadyExpanded)

	assert.Equal(t, "expanded 2 nodes", r.run("node", "expand", "--all"))
	assert.Len(t, r.tree().Children[1].Children, 2)
}

func TestMindmapExportImportCommands(t *testing.T) {
	r := newRunner(t)
	r.run("mindmap", "add", "Source")
	r.run("node", "add", "0", "unsaved child")

	path := filepath.Join(t.TempDir(), "source.json")
	r.run("mindmap", "export", path)

	m := r.run("mindmap", "import", path, "json", "Copy").(model.Mindmap)
	assert.Equal(t, "Copy", m.Name)
	assert.Equal(t, "unsaved child", r.tree().Children[0].Text)
	assert.Equal(t, m.ID, r.sm.sessions[r.id].Mindmap().ID)
}

func TestLayoutCommands(t *testing.T) {
	r := newRunner(t)
	r.run("mindmap", "add", "L")
	r.run("node", "add", "0", "A")
	r.run("node", "move", "1", "900", "900")

	r.run("mindmap", "reorganize")
	a := r.tree().Children[0]
	assert.Equal(t, a.InitialX, a.X)

	r.run("node", "move", "1", "900", "900")
	r.run("mindmap", "layout")
	assert.Equal(t, 500.0, r.tree().Children[0].X)
}

func TestCommandValidation(t *testing.T) {
	r := newRunner(t)
	for _, cmd := range []model.Command{
		{Scope: "", Operation: "add"},
		{Scope: "user", Operation: "add"},
		{Scope: "node", Operation: "sort"},
		{Scope: "mindmap", Operation: "add"},
		{Scope: "mindmap", Operation: "list", Args: []string{"x"}},
		{Scope: "node", Operation: "move", Args: []string{"1", "2"}},
	} {
		_, err := r.sm.SessionRun(context.Background(), r.id, cmd)
		assert.Error(t, err, "%+v", cmd)
	}

	_, err := r.sm.SessionRun(context.Background(), "nope", model.Command{Scope: "system", Operation: "exit"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSystemExitEndsSession(t *testing.T) {
	r := newRunner(t)
	r.run("system", "quit")
	_, ok := r.sm.SessionGet(r.id)
	assert.False(t, ok)
	assert.Equal(t, 0, r.sm.SessionCount())
}

func TestCleanupInactiveSessions(t *testing.T) {
	sm, err := NewSessionManager(newServices(t), log.NewNopLogger(), WithTimeouts(time.Hour, time.Minute))
	require.NoError(t, err)
	defer sm.Close()

	idle, err := sm.SessionAdd()
	require.NoError(t, err)
	active, err := sm.SessionAdd()
	require.NoError(t, err)

	sm.sessions[idle].lastActivity = time.Now().Add(-2 * time.Minute)
	assert.Equal(t, 1, sm.cleanupInactiveSessions(time.Now()))

	_, ok := sm.SessionGet(idle)
	assert.False(t, ok)
	_, ok = sm.SessionGet(active)
	assert.True(t, ok)
}

func TestCommandsListsEveryHandler(t *testing.T) {
	cmds := Commands()
	count := 0
	for _, ops := range commandHandlers {
		count += len(ops)
	}
	assert.Len(t, cmds, count)
	for _, c := range cmds {
		_, ok := commandHandlers[c.Scope][c.Operation]
		assert.True(t, ok, c.Usage)
	}
	assert.Equal(t, "mindmap", cmds[0].Scope)
}
