package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"github.com/voxchat/voxchat-backend/internal/conversation"
)

var (
	conversationsBucket = []byte("conversations")
	indexBucket         = []byte("index")
	orderKey            = []byte("order")
)

// ErrNotFound is returned when a conversation id is not in the store.
var ErrNotFound = errors.New("conversation not found")

// Titler derives a short title for a conversation. Implemented by the
// summary generator.
type Titler interface {
	Generate(ctx context.Context, messages []conversation.Message) string
}

// Store is the durable transcript store: an update-or-insert collection of
// conversation records ordered most-recently-saved-first and capped at a
// fixed size. Writes are atomic; a failed write leaves prior entries
// untouched.
type Store struct {
	db           *bolt.DB
	titler       Titler
	cap          int
	refreshEvery int
	log          *logrus.Logger
}

// Open opens (creating if needed) the store at path.
func Open(path string, titler Titler, maxConversations, refreshEvery int, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.New()
	}
	if maxConversations <= 0 {
		maxConversations = 50
	}
	if refreshEvery <= 0 {
		refreshEvery = 5
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(conversationsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(indexBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize store buckets: %w", err)
	}

	return &Store{
		db:           db,
		titler:       titler,
		cap:          maxConversations,
		refreshEvery: refreshEvery,
		log:          log,
	}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save performs an update-or-insert by record id. The saved record moves to
// the front of the ordering; entries beyond the cap are evicted silently.
// The title is reused when present and refreshed lazily, so the external
// summarization call is bounded.
func (s *Store) Save(ctx context.Context, record *conversation.Record) error {
	if record == nil || record.ID == "" {
		return errors.New("record id required")
	}

	record.SavedAt = time.Now()
	record.MessageCount = len(record.Messages)

	if s.titler != nil && (record.Title == "" || record.MessageCount%s.refreshEvery == 0) {
		record.Title = s.titler.Generate(ctx, record.Messages)
	}
	if record.Title == "" {
		record.Title = "Untitled Conversation"
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to serialize conversation: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		conversations := tx.Bucket(conversationsBucket)
		if err := conversations.Put([]byte(record.ID), data); err != nil {
			return err
		}

		order := readOrder(tx)
		order = moveToFront(order, record.ID)

		// Evict beyond the cap, oldest first.
		for len(order) > s.cap {
			evicted := order[len(order)-1]
			order = order[:len(order)-1]
			if err := conversations.Delete([]byte(evicted)); err != nil {
				return err
			}
		}

		return writeOrder(tx, order)
	})
}

// Get returns the record for id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*conversation.Record, error) {
	var record *conversation.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(conversationsBucket).Get([]byte(id))
		if data == nil {
			return ErrNotFound
		}
		record = &conversation.Record{}
		return json.Unmarshal(data, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List returns all records, most recently saved first.
func (s *Store) List(ctx context.Context) ([]*conversation.Record, error) {
	var records []*conversation.Record
	err := s.db.View(func(tx *bolt.Tx) error {
		conversations := tx.Bucket(conversationsBucket)
		for _, id := range readOrder(tx) {
			data := conversations.Get([]byte(id))
			if data == nil {
				continue
			}
			var record conversation.Record
			if err := json.Unmarshal(data, &record); err != nil {
				s.log.WithError(err).WithField("conversation", id).Warn("skipping unreadable record")
				continue
			}
			records = append(records, &record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Search returns records whose title contains the query,
// case-insensitively, preserving store order.
func (s *Store) Search(ctx context.Context, query string) ([]*conversation.Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	matched := make([]*conversation.Record, 0, len(records))
	for _, record := range records {
		if strings.Contains(strings.ToLower(record.Title), query) {
			matched = append(matched, record)
		}
	}
	return matched, nil
}

// Delete removes one record. Returns ErrNotFound when absent.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		conversations := tx.Bucket(conversationsBucket)
		if conversations.Get([]byte(id)) == nil {
			return ErrNotFound
		}
		if err := conversations.Delete([]byte(id)); err != nil {
			return err
		}
		return writeOrder(tx, remove(readOrder(tx), id))
	})
}

// DeleteAll clears the store.
func (s *Store) DeleteAll(ctx context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(conversationsBucket); err != nil {
			return err
		}
		if _, err := tx.CreateBucket(conversationsBucket); err != nil {
			return err
		}
		return tx.Bucket(indexBucket).Delete(orderKey)
	})
}

func readOrder(tx *bolt.Tx) []string {
	data := tx.Bucket(indexBucket).Get(orderKey)
	if data == nil {
		return nil
	}
	var order []string
	if err := json.Unmarshal(data, &order); err != nil {
		return nil
	}
	return order
}

func writeOrder(tx *bolt.Tx, order []string) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return tx.Bucket(indexBucket).Put(orderKey, data)
}

func moveToFront(order []string, id string) []string {
	order = remove(order, id)
	return append([]string{id}, order...)
}

func remove(order []string, id string) []string {
	for i, existing := range order {
		if existing == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
