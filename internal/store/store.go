package store

import (
	"context"
	"errors"

	"jardin/internal/model"
)

var (
	ErrUserIDRequired = errors.New("user id is required")
	ErrSlotNotJSON    = errors.New("slot payload must be valid JSON")
)

// Store is the document store holding per-user progress plus named local slots.
type Store interface {
	GetProgress(ctx context.Context, userID string) (model.UserProgress, bool, error)
	// MergeProgress folds patch into the user's document, creating it when absent.
	MergeProgress(ctx context.Context, userID string, patch model.ProgressPatch) error

	ReadSlot(ctx context.Context, name string) ([]byte, bool, error)
	WriteSlot(ctx context.Context, name string, data []byte) error
}
