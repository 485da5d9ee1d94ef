// Package queue keeps captures taken while offline until a reconciliation
// pass can submit them.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"jardin/internal/model"
)

const DefaultSlot = "pending_progress"

var ErrItemIDRequired = errors.New("item id is required")

// Slot is a single named, whole-value persisted location.
type Slot interface {
	ReadSlot(ctx context.Context, name string) ([]byte, bool, error)
	WriteSlot(ctx context.Context, name string, data []byte) error
}

// Queue is an ordered list of pending items, unique by item id. Every
// mutation rewrites the whole slot; writers in other processes race with
// last-write-wins.
type Queue struct {
	slot Slot
	name string
	mu   sync.Mutex
}

func New(slot Slot, name string) *Queue {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultSlot
	}
	return &Queue{slot: slot, name: name}
}

// Enqueue appends the item unless one with the same id is already queued.
// The first capture wins; added reports whether the list changed.
func (q *Queue) Enqueue(ctx context.Context, itemID string, photo string) (bool, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return false, ErrItemIDRequired
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.readLocked(ctx)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if item.ItemID == itemID {
			return false, nil
		}
	}
	items = append(items, model.PendingItem{ItemID: itemID, Photo: photo})
	if err := q.writeLocked(ctx, items); err != nil {
		return false, err
	}
	return true, nil
}

// List returns the queued items in insertion order.
func (q *Queue) List(ctx context.Context) ([]model.PendingItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.readLocked(ctx)
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	items, err := q.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Remove rewrites the queue without the given ids and returns how many were dropped.
func (q *Queue) Remove(ctx context.Context, ids map[string]struct{}) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.readLocked(ctx)
	if err != nil {
		return 0, err
	}
	kept := make([]model.PendingItem, 0, len(items))
	for _, item := range items {
		if _, drop := ids[item.ItemID]; drop {
			continue
		}
		kept = append(kept, item)
	}
	removed := len(items) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := q.writeLocked(ctx, kept); err != nil {
		return 0, err
	}
	return removed, nil
}

func (q *Queue) readLocked(ctx context.Context) ([]model.PendingItem, error) {
	data, ok, err := q.slot.ReadSlot(ctx, q.name)
	if err != nil {
		return nil, fmt.Errorf("read queue slot %s: %w", q.name, err)
	}
	items := make([]model.PendingItem, 0)
	if !ok || len(strings.TrimSpace(string(data))) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode queue slot %s: %w", q.name, err)
	}
	return items, nil
}

func (q *Queue) writeLocked(ctx context.Context, items []model.PendingItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := q.slot.WriteSlot(ctx, q.name, data); err != nil {
		return fmt.Errorf("write queue slot %s: %w", q.name, err)
	}
	return nil
}
