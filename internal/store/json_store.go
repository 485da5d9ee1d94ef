package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"jardin/internal/model"
)

type fileState struct {
	Users map[string]model.UserProgress `json:"users"`
	Slots map[string]json.RawMessage    `json:"slots"`
}

// JSONStore keeps the whole state in one file and rewrites it on every mutation.
type JSONStore struct {
	filePath string
	mu       sync.RWMutex
	state    fileState
}

func NewJSONStore(filePath string) (*JSONStore, error) {
	s := &JSONStore{
		filePath: filePath,
		state: fileState{
			Users: make(map[string]model.UserProgress),
			Slots: make(map[string]json.RawMessage),
		},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStore) GetProgress(_ context.Context, userID string) (model.UserProgress, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.state.Users[userID]
	if !ok {
		return model.UserProgress{}, false, nil
	}
	return cloneProgress(doc), true, nil
}

func (s *JSONStore) MergeProgress(_ context.Context, userID string, patch model.ProgressPatch) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUserIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.state.Users[userID]
	if !ok {
		doc = model.UserProgress{UserID: userID}
	}
	doc = mergePatch(doc, patch)
	s.state.Users[userID] = doc
	return s.persistLocked()
}

func (s *JSONStore) ReadSlot(_ context.Context, name string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.state.Slots[name]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, true, nil
}

func (s *JSONStore) WriteSlot(_ context.Context, name string, data []byte) error {
	if !json.Valid(data) {
		return ErrSlotNotJSON
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	raw := make(json.RawMessage, len(data))
	copy(raw, data)
	s.state.Slots[name] = raw
	return s.persistLocked()
}

func (s *JSONStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	if state.Users == nil {
		state.Users = make(map[string]model.UserProgress)
	}
	if state.Slots == nil {
		state.Slots = make(map[string]json.RawMessage)
	}
	s.state = state
	return nil
}

func (s *JSONStore) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.filePath)
}

func mergePatch(doc model.UserProgress, patch model.ProgressPatch) model.UserProgress {
	doc = cloneProgress(doc)
	if email := strings.TrimSpace(patch.Email); email != "" {
		doc.Email = email
	}
	at := patch.At
	if at.IsZero() {
		at = time.Now()
	}
	if itemID := strings.TrimSpace(patch.ItemID); itemID != "" {
		status := patch.Status
		if status == "" {
			status = model.StatusConfirmed
		}
		doc.Progress[itemID] = status
		if _, seen := doc.Confirmed[itemID]; !seen {
			doc.Confirmed[itemID] = at.UTC()
		}
	}
	doc.UpdatedAt = at.UTC()
	return doc
}

func cloneProgress(doc model.UserProgress) model.UserProgress {
	progress := make(map[string]string, len(doc.Progress))
	for k, v := range doc.Progress {
		progress[k] = v
	}
	confirmed := make(map[string]time.Time, len(doc.Confirmed))
	for k, v := range doc.Confirmed {
		confirmed[k] = v
	}
	doc.Progress = progress
	doc.Confirmed = confirmed
	return doc
}
