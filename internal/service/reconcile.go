package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"jardin/internal/model"
	"jardin/internal/queue"
)

// ReconcileReport summarizes one pass over the offline queue.
type ReconcileReport struct {
	Attempted  int               `json:"attempted"`
	Confirmed  []string          `json:"confirmed"`
	Retained   []string          `json:"retained"`
	Milestones []model.Milestone `json:"milestones,omitempty"`
	Unlocked   []model.Plant     `json:"unlocked,omitempty"`
}

// Reconcile replays every queued capture against the classifier, one at a
// time. Accepted items are committed and removed; anything else stays queued
// for the next pass. Without a signed-in user or queued items it does nothing.
func (s *Service) Reconcile(ctx context.Context, sess Session) (Session, ReconcileReport, error) {
	sess = sess.clone()
	report := ReconcileReport{Confirmed: []string{}, Retained: []string{}}
	if !sess.User.SignedIn() {
		return sess, report, nil
	}
	items, err := s.queue.List(ctx)
	if err != nil {
		return sess, report, fmt.Errorf("list pending: %w", err)
	}
	if len(items) == 0 {
		return sess, report, nil
	}

	logger := s.logger.With(zap.String("user_id", sess.User.ID))
	logger.Info("reconciliation started", zap.Int("pending", len(items)))

	removed := make(map[string]struct{})
	for _, item := range items {
		if ctx.Err() != nil {
			report.Retained = append(report.Retained, item.ItemID)
			continue
		}
		report.Attempted++
		if err := s.replay(ctx, sess, item); err != nil {
			logger.Debug("pending capture kept", zap.String("item_id", item.ItemID), zap.Error(err))
			report.Retained = append(report.Retained, item.ItemID)
			continue
		}
		removed[item.ItemID] = struct{}{}
		report.Confirmed = append(report.Confirmed, item.ItemID)
	}

	if len(removed) > 0 {
		// Commits already happened; the queue must follow even if ctx is gone.
		if _, err := s.queue.Remove(context.WithoutCancel(ctx), removed); err != nil {
			return sess, report, fmt.Errorf("rewrite pending: %w", err)
		}
	}
	sess, report.Milestones, report.Unlocked = s.advance(ctx, sess)
	logger.Info("reconciliation finished",
		zap.Int("attempted", report.Attempted),
		zap.Int("confirmed", len(report.Confirmed)),
		zap.Int("retained", len(report.Retained)),
	)
	return sess, report, nil
}

var errNotAccepted = errors.New("classification below threshold")

func (s *Service) replay(ctx context.Context, sess Session, item model.PendingItem) error {
	photo, mime, err := queue.DecodePhoto(item.Photo)
	if err != nil {
		return err
	}
	result, err := s.classifier.Classify(ctx, photo, fileNameFor(item.ItemID, mime), item.ItemID)
	if err != nil {
		return err
	}
	if !result.Accepted() {
		return fmt.Errorf("%w: %s at %.0f%%", errNotAccepted, result.PredictedLabel, result.Confidence)
	}
	return s.commit(ctx, sess, item.ItemID, photo, mime)
}
