package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"jardin/internal/model"
)

// Notifier receives milestones as they are reached.
type Notifier interface {
	Notify(ctx context.Context, userID string, m model.Milestone)
}

type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, userID string, m model.Milestone) {
	n.logger.Info("milestone reached",
		zap.String("user_id", userID),
		zap.Int("level", m.Level),
		zap.String("title", m.Title),
		zap.String("message", m.Message),
	)
}

// Recorder keeps every milestone it receives, newest last.
type Recorder struct {
	mu    sync.Mutex
	items []model.Milestone
}

func (r *Recorder) Notify(_ context.Context, _ string, m model.Milestone) {
	r.mu.Lock()
	r.items = append(r.items, m)
	r.mu.Unlock()
}

func (r *Recorder) Milestones() []model.Milestone {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Milestone(nil), r.items...)
}

// Fanout delivers to every notifier in order.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, userID string, m model.Milestone) {
	for _, n := range f {
		if n != nil {
			n.Notify(ctx, userID, m)
		}
	}
}
