// Package data provides data management functionality for the Mindnoscape application.
// This file contains operations related to mindmap management.
package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mindnoscape/editor/internal/event"
	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
	"mindnoscape/editor/internal/storage"
	"mindnoscape/editor/internal/tree"
)

// ErrMindmapNotFound is returned when no mindmap matches an id or name.
var ErrMindmapNotFound = errors.New("mindmap not found")

// MindmapOperations defines the interface for mindmap-related operations
type MindmapOperations interface {
	MindmapAdd(ctx context.Context, name string) (model.Mindmap, *model.Node, error)
	MindmapGet(ctx context.Context, id string) (model.Mindmap, *model.Node, error)
	MindmapFind(ctx context.Context, idOrName string) (model.Mindmap, error)
	MindmapSave(ctx context.Context, id string, root *model.Node) (bool, error)
	MindmapDelete(ctx context.Context, id string) error
	MindmapList(ctx context.Context) ([]model.Mindmap, error)
	MindmapExport(ctx context.Context, id, filename, format string) error
	MindmapImport(ctx context.Context, filename, format, name string) (model.Mindmap, error)
}

// MindmapManager stores mind map documents and keeps them in sync with
// editor changes when autosave is on.
type MindmapManager struct {
	store        storage.DocumentStore
	factory      *model.Factory
	eventManager *event.EventManager
	originX      float64
	originY      float64
	now          func() time.Time
	logger       *log.Logger

	// saveMu serializes autosaves; saved tracks the newest revision written
	// per editor so late events cannot overwrite newer state.
	saveMu sync.Mutex
	saved  map[editorKey]uint64
}

type editorKey struct {
	mindmapID string
	epoch     uint64
}

// NewMindmapManager creates a MindmapManager. If cfg.AutoSave is set it
// subscribes to DocumentChanged.
func NewMindmapManager(store storage.DocumentStore, factory *model.Factory, eventManager *event.EventManager, cfg model.EditorConfig, logger *log.Logger) (*MindmapManager, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	ctx := context.Background()
	logger.Info(ctx, "Creating new MindmapManager", nil)

	if store == nil {
		logger.Error(ctx, "DocumentStore not initialized", nil)
		return nil, fmt.Errorf("document store not initialized")
	}
	if factory == nil {
		return nil, fmt.Errorf("node factory not initialized")
	}
	if eventManager == nil {
		logger.Error(ctx, "EventManager not initialized", nil)
		return nil, fmt.Errorf("eventManager not initialized")
	}

	mm := &MindmapManager{
		store:        store,
		factory:      factory,
		eventManager: eventManager,
		originX:      cfg.OriginX,
		originY:      cfg.OriginY,
		now:          time.Now,
		saved:        make(map[editorKey]uint64),
		logger:       logger,
	}
	if cfg.AutoSave {
		eventManager.Subscribe(event.DocumentChanged, mm.handleDocumentChanged)
	}

	logger.Info(ctx, "MindmapManager created successfully", log.Fields{"autoSave": cfg.AutoSave})
	return mm, nil
}

func encodeTree(root *model.Node) ([]byte, error) {
	payload, err := json.Marshal(model.ToRecord(root))
	if err != nil {
		return nil, fmt.Errorf("failed to encode tree: %w", err)
	}
	return payload, nil
}

func describe(doc storage.Document, root *model.Node) model.Mindmap {
	m := model.Mindmap{ID: doc.ID, Name: doc.Name, Created: doc.Created, Updated: doc.Updated}
	if root != nil {
		m.NodeCount = tree.CountNodes(root)
		m.Depth = tree.MaxDepth(root)
	}
	return m
}

// MindmapAdd creates a new mindmap whose root node carries the mindmap name.
func (mm *MindmapManager) MindmapAdd(ctx context.Context, name string) (model.Mindmap, *model.Node, error) {
	name = strings.TrimSpace(name)
	mm.logger.Info(ctx, "Adding new mindmap", log.Fields{"mindmapName": name})
	if name == "" {
		return model.Mindmap{}, nil, fmt.Errorf("mindmap name cannot be empty")
	}

	root := mm.factory.NewNode(mm.factory.NewID(), name, mm.originX, mm.originY, model.KindRoot, "", "")
	return mm.add(ctx, name, root)
}

func (mm *MindmapManager) add(ctx context.Context, name string, root *model.Node) (model.Mindmap, *model.Node, error) {
	payload, err := encodeTree(root)
	if err != nil {
		return model.Mindmap{}, nil, err
	}
	now := mm.now()
	doc := storage.Document{ID: uuid.NewString(), Name: name, Payload: payload, Created: now, Updated: now}
	if err := mm.store.DocumentAdd(ctx, doc); err != nil {
		if errors.Is(err, storage.ErrExists) {
			mm.logger.Warn(ctx, "Mindmap with the same name already exists", log.Fields{"mindmapName": name})
			return model.Mindmap{}, nil, fmt.Errorf("mindmap with name '%s' already exists: %w", name, err)
		}
		mm.logger.Error(ctx, "Failed to add mindmap", log.Fields{"error": err, "mindmapName": name})
		return model.Mindmap{}, nil, fmt.Errorf("failed to add mindmap: %w", err)
	}

	mindmap := describe(doc, root)
	mm.eventManager.Publish(event.Event{Type: event.MindmapAdded, Data: mindmap})
	mm.logger.Info(ctx, "Mindmap added successfully", log.Fields{"mindmapID": doc.ID, "mindmapName": name})
	return mindmap, root, nil
}

// MindmapGet loads a mindmap and its tree.
func (mm *MindmapManager) MindmapGet(ctx context.Context, id string) (model.Mindmap, *model.Node, error) {
	doc, err := mm.store.DocumentGet(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return model.Mindmap{}, nil, fmt.Errorf("%w: %s", ErrMindmapNotFound, id)
	}
	if err != nil {
		mm.logger.Error(ctx, "Failed to get mindmap", log.Fields{"error": err, "mindmapID": id})
		return model.Mindmap{}, nil, fmt.Errorf("failed to get mindmap: %w", err)
	}
	root, err := mm.factory.FromJSON(doc.Payload)
	if err != nil {
		mm.logger.Error(ctx, "Stored mindmap is corrupt", log.Fields{"error": err, "mindmapID": id})
		return model.Mindmap{}, nil, fmt.Errorf("failed to decode mindmap %s: %w", id, err)
	}
	return describe(doc, root), root, nil
}

// MindmapFind resolves a mindmap by id, or by name when no id matches.
func (mm *MindmapManager) MindmapFind(ctx context.Context, idOrName string) (model.Mindmap, error) {
	list, err := mm.MindmapList(ctx)
	if err != nil {
		return model.Mindmap{}, err
	}
	for _, m := range list {
		if m.ID == idOrName {
			return m, nil
		}
	}
	for _, m := range list {
		if m.Name == idOrName {
			return m, nil
		}
	}
	return model.Mindmap{}, fmt.Errorf("%w: %s", ErrMindmapNotFound, idOrName)
}

// MindmapSave writes the tree of a mindmap. It reports false when the stored
// tree is already identical.
func (mm *MindmapManager) MindmapSave(ctx context.Context, id string, root *model.Node) (bool, error) {
	if report := tree.Validate(root); !report.Valid {
		return false, fmt.Errorf("refusing to save invalid tree: %s", strings.Join(report.Errors, "; "))
	}
	stored, err := mm.store.DocumentGet(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("%w: %s", ErrMindmapNotFound, id)
	}
	if err != nil {
		return false, fmt.Errorf("failed to get mindmap: %w", err)
	}
	payload, err := encodeTree(root)
	if err != nil {
		return false, err
	}

	err = mm.store.DocumentUpdate(ctx, storage.Document{ID: id, Name: stored.Name, Payload: payload, Updated: mm.now()})
	if errors.Is(err, storage.ErrUnchanged) {
		mm.logger.Debug(ctx, "Mindmap unchanged, skipping save", log.Fields{"mindmapID": id})
		return false, nil
	}
	if err != nil {
		mm.logger.Error(ctx, "Failed to save mindmap", log.Fields{"error": err, "mindmapID": id})
		return false, fmt.Errorf("failed to save mindmap: %w", err)
	}

	mm.eventManager.Publish(event.Event{Type: event.MindmapSaved, Data: describe(stored, root)})
	mm.logger.Info(ctx, "Mindmap saved", log.Fields{"mindmapID": id, "nodes": tree.CountNodes(root)})
	return true, nil
}

// MindmapDelete removes a mindmap.
func (mm *MindmapManager) MindmapDelete(ctx context.Context, id string) error {
	mm.logger.Info(ctx, "Deleting mindmap", log.Fields{"mindmapID": id})
	err := mm.store.DocumentDelete(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrMindmapNotFound, id)
	}
	if err != nil {
		mm.logger.Error(ctx, "Failed to delete mindmap", log.Fields{"error": err, "mindmapID": id})
		return fmt.Errorf("failed to delete mindmap: %w", err)
	}

	mm.saveMu.Lock()
	for key := range mm.saved {
		if key.mindmapID == id {
			delete(mm.saved, key)
		}
	}
	mm.saveMu.Unlock()

	mm.eventManager.Publish(event.Event{Type: event.MindmapDeleted, Data: id})
	return nil
}

// MindmapList returns the metadata of every stored mindmap, ordered by name.
// Node counts are not filled in.
func (mm *MindmapManager) MindmapList(ctx context.Context) ([]model.Mindmap, error) {
	docs, err := mm.store.DocumentList(ctx)
	if err != nil {
		mm.logger.Error(ctx, "Failed to list mindmaps", log.Fields{"error": err})
		return nil, fmt.Errorf("failed to list mindmaps: %w", err)
	}
	out := make([]model.Mindmap, len(docs))
	for i, doc := range docs {
		out[i] = describe(doc, nil)
	}
	return out, nil
}

// MindmapExport writes a mindmap to a file. An empty format is derived from
// the file extension.
func (mm *MindmapManager) MindmapExport(ctx context.Context, id, filename, format string) error {
	if format == "" {
		var err error
		if format, err = storage.FormatFromPath(filename); err != nil {
			return err
		}
	}
	mindmap, root, err := mm.MindmapGet(ctx, id)
	if err != nil {
		return err
	}
	if err := storage.FileExport(storage.Export{Mindmap: mindmap, Root: root}, filename, format); err != nil {
		mm.logger.Error(ctx, "Failed to export mindmap", log.Fields{"error": err, "mindmapID": id, "file": filename})
		return err
	}
	mm.logger.Info(ctx, "Mindmap exported", log.Fields{"mindmapID": id, "file": filename, "format": format})
	return nil
}

// MindmapImport reads a mindmap file and stores it as a new mindmap under a
// fresh id. name overrides the name recorded in the file.
func (mm *MindmapManager) MindmapImport(ctx context.Context, filename, format, name string) (model.Mindmap, error) {
	if format == "" {
		var err error
		if format, err = storage.FormatFromPath(filename); err != nil {
			return model.Mindmap{}, err
		}
	}
	imported, err := storage.FileImport(filename, format, mm.factory)
	if err != nil {
		mm.logger.Error(ctx, "Failed to import mindmap", log.Fields{"error": err, "file": filename})
		return model.Mindmap{}, err
	}
	if report := tree.Validate(imported.Root); !report.Valid {
		return model.Mindmap{}, fmt.Errorf("imported tree is invalid: %s", strings.Join(report.Errors, "; "))
	}

	if name = strings.TrimSpace(name); name == "" {
		name = imported.Mindmap.Name
	}
	if name == "" {
		name = imported.Root.Text
	}
	mindmap, _, err := mm.add(ctx, name, imported.Root)
	return mindmap, err
}

func (mm *MindmapManager) handleDocumentChanged(e event.Event) {
	change, ok := e.Data.(event.DocumentChange)
	if !ok || change.Tree == nil {
		return
	}
	ctx := context.Background()

	key := editorKey{mindmapID: change.MindmapID, epoch: change.Epoch}
	mm.saveMu.Lock()
	defer mm.saveMu.Unlock()
	if change.Revision <= mm.saved[key] {
		return
	}
	if _, err := mm.MindmapSave(ctx, change.MindmapID, change.Tree); err != nil {
		mm.logger.Error(ctx, "Autosave failed", log.Fields{"error": err, "mindmapID": change.MindmapID, "revision": change.Revision})
		return
	}
	mm.saved[key] = change.Revision
}
