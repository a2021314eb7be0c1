package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"mindnoscape/editor/internal/event"
	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
)

// ErrRejected is returned by DispatchIf when the guard refuses the action.
var ErrRejected = errors.New("action rejected")

var epochs atomic.Uint64

// Recorder observes applied actions, e.g. for metrics.
type Recorder interface {
	ActionApplied(action string, changed bool)
}

// Editor serializes edits to one open document. Reads get immutable
// snapshots and never block on the reducer for longer than a pointer copy.
type Editor struct {
	mu        sync.RWMutex
	mindmapID string
	epoch     uint64
	state     State
	revision  uint64
	reducer   *Reducer
	events    *event.EventManager
	recorder  Recorder
	logger    *log.Logger
}

// Option customizes an Editor.
type Option func(*Editor)

// WithEvents publishes DocumentChanged events to em.
func WithEvents(em *event.EventManager) Option {
	return func(e *Editor) { e.events = em }
}

// WithRecorder reports every dispatched action to rec.
func WithRecorder(rec Recorder) Option {
	return func(e *Editor) { e.recorder = rec }
}

// NewEditor opens root for editing.
func NewEditor(mindmapID string, root *model.Node, maxHistory int, reducer *Reducer, logger *log.Logger, opts ...Option) (*Editor, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	if reducer == nil {
		return nil, fmt.Errorf("reducer not initialized")
	}
	if root == nil {
		return nil, fmt.Errorf("document has no root node")
	}
	e := &Editor{
		mindmapID: mindmapID,
		epoch:     epochs.Add(1),
		state:     NewState(root, maxHistory),
		reducer:   reducer,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// MindmapID returns the id of the edited mind map.
func (e *Editor) MindmapID() string {
	return e.mindmapID
}

// Epoch identifies this editor instance. Revisions restart for every epoch.
func (e *Editor) Epoch() uint64 {
	return e.epoch
}

// Snapshot returns the current state.
func (e *Editor) Snapshot() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Tree returns the current tree.
func (e *Editor) Tree() *model.Node {
	return e.Snapshot().Tree
}

// Revision counts the state changes applied so far.
func (e *Editor) Revision() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.revision
}

// Dispatch applies action and reports whether the state changed.
func (e *Editor) Dispatch(ctx context.Context, action Action) (State, bool) {
	state, changed, _ := e.DispatchIf(ctx, nil, action)
	return state, changed
}

// DispatchIf applies action only if guard, evaluated against the current
// state under the document lock, returns nil. A guard error is wrapped with
// ErrRejected.
func (e *Editor) DispatchIf(ctx context.Context, guard func(State) error, action Action) (State, bool, error) {
	e.mu.Lock()
	if guard != nil {
		if err := guard(e.state); err != nil {
			state := e.state
			e.mu.Unlock()
			e.logger.Info(ctx, "Action rejected", log.Fields{"mindmapID": e.mindmapID, "action": action.Name(), "reason": err.Error()})
			return state, false, fmt.Errorf("%w: %w", ErrRejected, err)
		}
	}

	prev := e.state
	next := e.reducer.Reduce(prev, action)
	changed := next.Tree != prev.Tree || next.HistoryIndex != prev.HistoryIndex || len(next.History) != len(prev.History)
	if changed {
		e.state = next
		e.revision++
	}
	revision := e.revision
	e.mu.Unlock()

	e.logger.Debug(ctx, "Action dispatched", log.Fields{
		"mindmapID": e.mindmapID,
		"action":    action.Name(),
		"changed":   changed,
		"revision":  revision,
	})
	if e.recorder != nil {
		e.recorder.ActionApplied(action.Name(), changed)
	}
	if changed && e.events != nil {
		e.events.Publish(event.Event{Type: event.DocumentChanged, Data: event.DocumentChange{
			MindmapID: e.mindmapID,
			Epoch:     e.epoch,
			Action:    action.Name(),
			Revision:  revision,
			Tree:      next.Tree,
		}})
	}
	return next, changed, nil
}
