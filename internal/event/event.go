// Package event handles triggering of operations without direct dependency
package event

import (
	"context"
	"sync"

	"mindnoscape/editor/internal/log"
	"mindnoscape/editor/internal/model"
)

// EventType represents the type of event
type EventType int

const (
	MindmapAdded EventType = iota
	MindmapDeleted
	MindmapSaved
	DocumentChanged
	NodesGenerated
	GenerationDropped
)

func (t EventType) String() string {
	switch t {
	case MindmapAdded:
		return "mindmap_added"
	case MindmapDeleted:
		return "mindmap_deleted"
	case MindmapSaved:
		return "mindmap_saved"
	case DocumentChanged:
		return "document_changed"
	case NodesGenerated:
		return "nodes_generated"
	case GenerationDropped:
		return "generation_dropped"
	default:
		return "unknown"
	}
}

// Event represents an event with its type and associated data
type Event struct {
	Type EventType
	Data interface{}
}

// DocumentChange is the payload of DocumentChanged.
// Revisions are only comparable between changes of the same Epoch; every
// editor opened on a document gets a new one.
type DocumentChange struct {
	MindmapID string
	Epoch     uint64
	Action    string
	Revision  uint64
	Tree      *model.Node
}

// Generation is the payload of NodesGenerated and GenerationDropped.
type Generation struct {
	MindmapID string
	NodeID    string
	Count     int
	Reason    string
}

// EventHandler is a function type for event handlers
type EventHandler func(Event)

// EventManager manages event subscriptions and publications
type EventManager struct {
	subscribers map[EventType][]EventHandler
	mu          sync.RWMutex
	inflight    sync.WaitGroup
	logger      *log.Logger
}

// NewEventManager creates a new EventManager instance
func NewEventManager(logger *log.Logger) *EventManager {
	return &EventManager{
		subscribers: make(map[EventType][]EventHandler),
		logger:      logger,
	}
}

// Subscribe adds a new event handler for a specific event type
func (em *EventManager) Subscribe(eventType EventType, handler EventHandler) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.subscribers[eventType] = append(em.subscribers[eventType], handler)
}

// Publish sends an event to all subscribed handlers, each on its own goroutine
func (em *EventManager) Publish(event Event) {
	em.mu.RLock()
	defer em.mu.RUnlock()
	for _, handler := range em.subscribers[event.Type] {
		em.inflight.Add(1)
		go func(h EventHandler) {
			defer em.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					em.logger.Error(context.Background(), "Panic in event handler", log.Fields{
						"event": event.Type.String(),
						"panic": r,
					})
				}
			}()
			h(event)
		}(handler)
	}
}

// Wait blocks until every handler started so far has returned
func (em *EventManager) Wait() {
	em.inflight.Wait()
}
