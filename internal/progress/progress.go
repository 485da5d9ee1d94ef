// Package progress reads and writes a user's confirmed plants in the
// document store.
package progress

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"jardin/internal/auth"
	"jardin/internal/model"
	"jardin/internal/store"
)

type Adapter struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewAdapter(st store.Store, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{store: st, logger: logger, now: time.Now}
}

// Load returns the user's item -> status map. It never fails: a missing
// user, a missing record or a store error all yield an empty map.
func (a *Adapter) Load(ctx context.Context, userID string) map[string]string {
	result := make(map[string]string)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return result
	}
	doc, ok, err := a.store.GetProgress(ctx, userID)
	if err != nil {
		a.logger.Error("load progress failed", zap.String("user_id", userID), zap.Error(err))
		return result
	}
	if !ok {
		return result
	}
	for itemID, status := range doc.Progress {
		result[itemID] = status
	}
	a.logger.Debug("progress restored", zap.String("user_id", userID), zap.Int("seen", len(result)))
	return result
}

// Save merges {itemID: confirmed} and the signed-in user's email into the
// user document. It is a no-op without a user id or an authenticated user in ctx.
func (a *Adapter) Save(ctx context.Context, userID string, itemID string) error {
	userID = strings.TrimSpace(userID)
	user, ok := auth.FromContext(ctx)
	if userID == "" || !ok {
		return nil
	}
	err := a.store.MergeProgress(ctx, userID, model.ProgressPatch{
		Email:  user.Email,
		ItemID: itemID,
		Status: model.StatusConfirmed,
		At:     a.now(),
	})
	if err != nil {
		return fmt.Errorf("save progress for %s: %w", itemID, err)
	}
	a.logger.Info("progress saved", zap.String("user_id", userID), zap.String("item_id", itemID))
	return nil
}
