package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"mindnoscape/editor/internal/log"
)

const (
	docPrefix  = "mindmap/"
	namePrefix = "name/"
)

// BadgerOptions selects where a BadgerStore keeps its files.
type BadgerOptions struct {
	Path     string
	InMemory bool
}

// BadgerStore implements DocumentStore on an embedded key-value store.
// Documents live under mindmap/<id>; name/<name> maps a name to its id.
type BadgerStore struct {
	db     *badger.DB
	logger *log.Logger
}

type envelope struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Payload     json.RawMessage `json:"payload"`
	Fingerprint []byte          `json:"fingerprint"`
	Created     int64           `json:"created"`
	Updated     int64           `json:"updated"`
}

func (e envelope) document(withPayload bool) Document {
	doc := Document{
		ID:          e.ID,
		Name:        e.Name,
		Fingerprint: e.Fingerprint,
		Created:     time.UnixMilli(e.Created),
		Updated:     time.UnixMilli(e.Updated),
	}
	if withPayload {
		doc.Payload = []byte(e.Payload)
	}
	return doc
}

// badgerLogger routes badger's internal messages to our logger.
type badgerLogger struct {
	logger *log.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(context.Background(), fmt.Sprintf(format, args...), log.Fields{"component": "badger"})
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(context.Background(), fmt.Sprintf(format, args...), log.Fields{"component": "badger"})
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(context.Background(), fmt.Sprintf(format, args...), log.Fields{"component": "badger"})
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(context.Background(), fmt.Sprintf(format, args...), log.Fields{"component": "badger"})
}

// NewBadgerStore opens a badger database.
func NewBadgerStore(opts BadgerOptions, logger *log.Logger) (*BadgerStore, error) {
	if !opts.InMemory && opts.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(opts.Path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory '%s': %w", opts.Path, err)
		}
		bopts = badger.DefaultOptions(opts.Path).WithSyncWrites(true)
	}
	bopts = bopts.WithNumVersionsToKeep(1).WithLogger(badgerLogger{logger: logger})

	db, err := badger.Open(bopts)
	if err != nil {
		logger.Error(context.Background(), "Failed to open badger database", log.Fields{"error": err, "path": opts.Path})
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	logger.Info(context.Background(), "Badger database opened successfully", log.Fields{"path": opts.Path, "inMemory": opts.InMemory})
	return &BadgerStore{db: db, logger: logger}, nil
}

func docKey(id string) []byte    { return []byte(docPrefix + id) }
func nameKey(name string) []byte { return []byte(namePrefix + name) }

func readEnvelope(txn *badger.Txn, id string) (envelope, error) {
	var env envelope
	item, err := txn.Get(docKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return env, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return env, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &env)
	})
	return env, err
}

func writeEnvelope(txn *badger.Txn, env envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode mindmap %s: %w", env.ID, err)
	}
	return txn.Set(docKey(env.ID), data)
}

func nameTaken(txn *badger.Txn, name, id string) (bool, error) {
	item, err := txn.Get(nameKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	owner, err := item.ValueCopy(nil)
	if err != nil {
		return false, err
	}
	return string(owner) != id, nil
}

// DocumentAdd implements DocumentStore.
func (s *BadgerStore) DocumentAdd(ctx context.Context, doc Document) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(docKey(doc.ID)); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, doc.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		taken, err := nameTaken(txn, doc.Name, doc.ID)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %s", ErrExists, doc.Name)
		}
		if err := txn.Set(nameKey(doc.Name), []byte(doc.ID)); err != nil {
			return err
		}
		return writeEnvelope(txn, envelope{
			ID:          doc.ID,
			Name:        doc.Name,
			Payload:     doc.Payload,
			Fingerprint: Fingerprint(doc.Payload),
			Created:     doc.Created.UnixMilli(),
			Updated:     doc.Updated.UnixMilli(),
		})
	})
	if err != nil {
		s.logger.Debug(ctx, "Failed to insert mindmap", log.Fields{"error": err, "mindmapID": doc.ID})
		return err
	}
	return nil
}

// DocumentGet implements DocumentStore.
func (s *BadgerStore) DocumentGet(ctx context.Context, id string) (Document, error) {
	var doc Document
	err := s.db.View(func(txn *badger.Txn) error {
		env, err := readEnvelope(txn, id)
		if err != nil {
			return err
		}
		doc = env.document(true)
		return nil
	})
	return doc, err
}

// DocumentUpdate implements DocumentStore.
func (s *BadgerStore) DocumentUpdate(ctx context.Context, doc Document) error {
	return s.db.Update(func(txn *badger.Txn) error {
		env, err := readEnvelope(txn, doc.ID)
		if err != nil {
			return err
		}
		fp := Fingerprint(doc.Payload)
		if unchanged(env.document(false), doc.Name, fp) {
			return ErrUnchanged
		}
		if env.Name != doc.Name {
			taken, err := nameTaken(txn, doc.Name, doc.ID)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: %s", ErrExists, doc.Name)
			}
			if err := txn.Delete(nameKey(env.Name)); err != nil {
				return err
			}
			if err := txn.Set(nameKey(doc.Name), []byte(doc.ID)); err != nil {
				return err
			}
		}
		env.Name = doc.Name
		env.Payload = doc.Payload
		env.Fingerprint = fp
		env.Updated = doc.Updated.UnixMilli()
		return writeEnvelope(txn, env)
	})
}

// DocumentDelete implements DocumentStore.
func (s *BadgerStore) DocumentDelete(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		env, err := readEnvelope(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(nameKey(env.Name)); err != nil {
			return err
		}
		return txn.Delete(docKey(id))
	})
}

// DocumentList implements DocumentStore.
func (s *BadgerStore) DocumentList(ctx context.Context) ([]Document, error) {
	var docs []Document
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(docPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var env envelope
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); err != nil {
				return err
			}
			docs = append(docs, env.document(false))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list mindmaps: %w", err)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// Close closes the badger database.
func (s *BadgerStore) Close() error {
	s.logger.Info(context.Background(), "Closing badger database", nil)
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close badger database: %w", err)
	}
	return nil
}
