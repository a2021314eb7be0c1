// Package session runs user commands against open mind map documents.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mindnoscape/editor/internal/data"
	"mindnoscape/editor/internal/editor"
	"mindnoscape/editor/internal/event"
	"mindnoscape/editor/internal/expand"
	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
)

// ErrNoMindmap is returned by commands that need an open mindmap.
var ErrNoMindmap = errors.New("no mindmap open")

// Services are the shared dependencies of every session.
type Services struct {
	Mindmaps *data.MindmapManager
	Factory  *model.Factory
	Reducer  *editor.Reducer
	Events   *event.EventManager
	// Expander is optional; without it node expand fails.
	Expander *expand.Expander
	// Recorder is optional.
	Recorder          editor.Recorder
	MaxHistory        int
	ExpandConcurrency int
}

func (s *Services) validate() error {
	switch {
	case s == nil:
		return fmt.Errorf("services not initialized")
	case s.Mindmaps == nil:
		return fmt.Errorf("mindmap manager not initialized")
	case s.Factory == nil:
		return fmt.Errorf("node factory not initialized")
	case s.Reducer == nil:
		return fmt.Errorf("reducer not initialized")
	}
	return nil
}

// CommandHandler is a function type for command handlers
type CommandHandler func(ctx context.Context, s *Session, cmd model.Command) (interface{}, error)

var commandHandlers = map[string]map[string]CommandHandler{
	"mindmap": {
		"add":        handleMindmapAdd,
		"open":       handleMindmapOpen,
		"close":      handleMindmapClose,
		"save":       handleMindmapSave,
		"delete":     handleMindmapDelete,
		"list":       handleMindmapList,
		"view":       handleMindmapView,
		"export":     handleMindmapExport,
		"import":     handleMindmapImport,
		"layout":     handleMindmapLayout,
		"reorganize": handleMindmapReorganize,
	},
	"node": {
		"add":      handleNodeAdd,
		"text":     handleNodeText,
		"prop":     handleNodeProp,
		"move":     handleNodeMove,
		"swap":     handleNodeSwap,
		"delete":   handleNodeDelete,
		"collapse": handleNodeCollapse,
		"expand":   handleNodeExpand,
		"find":     handleNodeFind,
		"undo":     handleNodeUndo,
		"redo":     handleNodeRedo,
	},
	"system": {
		"exit": handleSystemExit,
		"quit": handleSystemExit,
	},
}

// Session represents an individual user session with at most one open mindmap.
// Commands of one session may run concurrently; every document edit goes
// through the session's editor, which applies them one at a time.
type Session struct {
	ID       string
	services *Services
	logger   *log.Logger

	mu           sync.RWMutex
	mindmap      *model.Mindmap
	doc          *editor.Editor
	lastActivity time.Time
}

// NewSession creates a new Session instance
func NewSession(id string, services *Services, logger *log.Logger) *Session {
	logger.Info(context.Background(), "Creating new Session", log.Fields{"sessionID": id})
	return &Session{
		ID:           id,
		services:     services,
		logger:       logger,
		lastActivity: time.Now(),
	}
}

// CommandRun executes a command within the session context
func (s *Session) CommandRun(ctx context.Context, cmd model.Command) (interface{}, error) {
	s.logger.Info(ctx, "Running command", log.Fields{"sessionID": s.ID, "scope": cmd.Scope, "operation": cmd.Operation})
	s.touch()

	sc := NewSessionCommand(cmd, s.logger)
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	handler := commandHandlers[cmd.Scope][cmd.Operation]

	result, err := handler(ctx, s, cmd)
	if err != nil {
		s.logger.Error(ctx, "Command execution failed", log.Fields{"sessionID": s.ID, "error": err})
		return nil, err
	}
	s.logger.Debug(ctx, "Command executed successfully", log.Fields{"sessionID": s.ID})
	return result, nil
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// LastActivity returns when the session last ran a command.
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// Mindmap returns the open mindmap, or nil.
func (s *Session) Mindmap() *model.Mindmap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.mindmap == nil {
		return nil
	}
	m := *s.mindmap
	return &m
}

// Document returns the editor of the open mindmap.
func (s *Session) Document() (*editor.Editor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil, ErrNoMindmap
	}
	return s.doc, nil
}

func (s *Session) open(mindmap model.Mindmap, root *model.Node) error {
	opts := []editor.Option{}
	if s.services.Events != nil {
		opts = append(opts, editor.WithEvents(s.services.Events))
	}
	if s.services.Recorder != nil {
		opts = append(opts, editor.WithRecorder(s.services.Recorder))
	}
	doc, err := editor.NewEditor(mindmap.ID, root, s.services.MaxHistory, s.services.Reducer, s.logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to open mindmap: %w", err)
	}

	s.mu.Lock()
	s.mindmap = &mindmap
	s.doc = doc
	s.mu.Unlock()
	s.logger.Info(context.Background(), "Mindmap opened", log.Fields{"sessionID": s.ID, "mindmapID": mindmap.ID})
	return nil
}

func (s *Session) close() {
	s.mu.Lock()
	s.mindmap = nil
	s.doc = nil
	s.mu.Unlock()
}

func handleSystemExit(ctx context.Context, s *Session, cmd model.Command) (interface{}, error) {
	s.logger.Info(ctx, "Exit requested", log.Fields{"sessionID": s.ID})
	s.close()
	return nil, nil
}
