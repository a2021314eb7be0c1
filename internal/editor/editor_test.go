package editor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindnoscape/editor/internal/event"
	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
)

type countingRecorder struct {
	mu      sync.Mutex
	applied map[string]int
}

func (r *countingRecorder) ActionApplied(action string, changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applied == nil {
		r.applied = make(map[string]int)
	}
	if changed {
		r.applied[action]++
	}
}

func TestEditorDispatchPublishesChanges(t *testing.T) {
	f := newFixture(t, true)
	events := event.NewEventManager(log.NewNopLogger())
	var (
		mu      sync.Mutex
		changes []event.DocumentChange
	)
	events.Subscribe(event.DocumentChanged, func(e event.Event) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, e.Data.(event.DocumentChange))
	})
	rec := &countingRecorder{}

	ed, err := NewEditor("m1", f.root, 10, f.reducer, log.NewNopLogger(), WithEvents(events), WithRecorder(rec))
	require.NoError(t, err)
	ctx := context.Background()

	_, changed := ed.Dispatch(ctx, SetText{ID: "root", Text: "New"})
	assert.True(t, changed)
	_, changed = ed.Dispatch(ctx, DeleteNode{ID: "root"})
	assert.False(t, changed)
	_, changed = ed.Dispatch(ctx, Undo{})
	assert.True(t, changed)
	events.Wait()

	assert.Equal(t, uint64(2), ed.Revision())
	assert.Equal(t, "Topic", ed.Tree().Text)
	assert.True(t, ed.Snapshot().CanRedo())
	assert.Equal(t, map[string]int{"set_text": 1, "undo": 1}, rec.applied)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 2)
	assert.Equal(t, "m1", changes[0].MindmapID)
	assert.ElementsMatch(t, []string{"set_text", "undo"}, []string{changes[0].Action, changes[1].Action})
}

func TestEditorDispatchIfGuard(t *testing.T) {
	f := newFixture(t, false)
	ed, err := NewEditor("m1", f.root, 10, f.reducer, log.NewNopLogger())
	require.NoError(t, err)
	ctx := context.Background()
	stale := errors.New("stale")

	_, changed, err := ed.DispatchIf(ctx, func(State) error { return stale }, SetText{ID: "root", Text: "x"})
	assert.False(t, changed)
	assert.ErrorIs(t, err, ErrRejected)
	assert.ErrorIs(t, err, stale)
	assert.Equal(t, "Topic", ed.Tree().Text)

	state, changed, err := ed.DispatchIf(ctx, func(State) error { return nil }, SetText{ID: "root", Text: "x"})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "x", state.Tree.Text)
}

func TestEditorConcurrentDispatch(t *testing.T) {
	f := newFixture(t, true)
	ed, err := NewEditor("m1", f.root, 1000, f.reducer, log.NewNopLogger())
	require.NoError(t, err)

	children := make([]*model.Node, 20)
	for i := range children {
		children[i] = f.child("c")
	}
	var wg sync.WaitGroup
	for _, c := range children {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ed.Dispatch(context.Background(), AddChild{ParentID: "root", Child: c})
		}()
	}
	wg.Wait()

	assert.Len(t, ed.Tree().Children, 20)
	assert.Equal(t, uint64(20), ed.Revision())
}

func TestNewEditorValidatesDependencies(t *testing.T) {
	f := newFixture(t, false)
	_, err := NewEditor("m", f.root, 1, f.reducer, nil)
	assert.Error(t, err)
	_, err = NewEditor("m", f.root, 1, nil, log.NewNopLogger())
	assert.Error(t, err)
	_, err = NewEditor("m", nil, 1, f.reducer, log.NewNopLogger())
	assert.Error(t, err)
}
