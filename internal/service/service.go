package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"jardin/internal/archive"
	"jardin/internal/auth"
	"jardin/internal/catalog"
	"jardin/internal/level"
	"jardin/internal/model"
	"jardin/internal/progress"
	"jardin/internal/queue"
)

var (
	ErrItemRequired       = errors.New("item id is required")
	ErrClassification     = errors.New("the plant could not be classified")
	ErrCommit             = errors.New("the confirmation could not be saved")
	ErrQueueWrite         = errors.New("the capture could not be queued")
	ErrCatalogUnavailable = errors.New("the plant catalog is unavailable")
)

const (
	CardConfirmed = model.StatusConfirmed
	CardQueued    = "queued"
	CardWaiting   = "waiting"
)

// Classifier decides whether a photo shows the expected plant.
type Classifier interface {
	Classify(ctx context.Context, image []byte, fileName string, expected string) (model.Classification, error)
}

// Session is the per-user state threaded through every operation. Level only
// rises within a session.
type Session struct {
	User     auth.User         `json:"user"`
	Level    int               `json:"level"`
	Progress map[string]string `json:"progress"`
}

func (s Session) clone() Session {
	progress := make(map[string]string, len(s.Progress))
	for k, v := range s.Progress {
		progress[k] = v
	}
	s.Progress = progress
	if s.Level < level.Min {
		s.Level = level.Min
	}
	return s
}

// Confirmed counts the plants marked as confirmed.
func (s Session) Confirmed() int {
	n := 0
	for _, status := range s.Progress {
		if status == model.StatusConfirmed {
			n++
		}
	}
	return n
}

type Deps struct {
	Progress   *progress.Adapter
	Queue      *queue.Queue
	Classifier Classifier
	Catalog    catalog.Source
	Archiver   archive.Archiver
	Notifier   Notifier
	Logger     *zap.Logger
}

type Service struct {
	progress   *progress.Adapter
	queue      *queue.Queue
	classifier Classifier
	catalog    catalog.Source
	archiver   archive.Archiver
	notifier   Notifier
	logger     *zap.Logger
	now        func() time.Time
}

func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	archiver := d.Archiver
	if archiver == nil {
		archiver = archive.Nop{}
	}
	notifier := d.Notifier
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &Service{
		progress:   d.Progress,
		queue:      d.Queue,
		classifier: d.Classifier,
		catalog:    d.Catalog,
		archiver:   archiver,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
}

// Open starts a session from the stored progress. Loading never fails and
// never fires milestones.
func (s *Service) Open(ctx context.Context, user auth.User) Session {
	user.ID = strings.TrimSpace(user.ID)
	sess := Session{User: user, Progress: s.progress.Load(ctx, user.ID)}
	sess.Level = level.For(sess.Confirmed())
	s.logger.Info("session opened",
		zap.String("user_id", user.ID),
		zap.Int("seen", len(sess.Progress)),
		zap.Int("level", sess.Level),
	)
	return sess
}

// View projects the session onto the catalog entries unlocked at its level.
// Counters come from the progress map, never from rendered output.
func (s *Service) View(ctx context.Context, sess Session) (model.ProgressView, error) {
	sess = sess.clone()
	cat, err := s.catalog.Fetch(ctx)
	if err != nil {
		return model.ProgressView{}, errors.Join(ErrCatalogUnavailable, err)
	}

	pending := make(map[string]struct{})
	items, err := s.queue.List(ctx)
	if err != nil {
		s.logger.Warn("list pending failed", zap.Error(err))
	}
	for _, item := range items {
		pending[item.ItemID] = struct{}{}
	}

	visible := catalog.Visible(cat, sess.Level)
	view := model.ProgressView{
		UserID:       sess.User.ID,
		Level:        sess.Level,
		Title:        level.Title(sess.Level),
		Visible:      len(visible),
		TotalSeen:    sess.Confirmed(),
		Cards:        make([]model.PlantCard, 0, len(visible)),
		PendingCount: len(items),
		GeneratedAt:  s.now(),
	}
	for _, plant := range visible {
		status := CardWaiting
		if sess.Progress[plant.ID] == model.StatusConfirmed {
			status = CardConfirmed
			view.Confirmed++
		} else if _, ok := pending[plant.ID]; ok {
			status = CardQueued
		}
		view.Cards = append(view.Cards, model.PlantCard{Plant: plant, Status: status})
	}
	if view.Visible > 0 {
		view.Percent = int(math.Round(float64(view.Confirmed) * 100 / float64(view.Visible)))
	}
	if next, ok := level.Next(view.TotalSeen); ok {
		view.NextLevelAt = next
	}
	return view, nil
}

// Pending lists the queued captures in insertion order.
func (s *Service) Pending(ctx context.Context) ([]model.PendingItem, error) {
	return s.queue.List(ctx)
}

// Discard drops queued captures by item id and reports how many were removed.
func (s *Service) Discard(ctx context.Context, itemIDs ...string) (int, error) {
	ids := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids[id] = struct{}{}
		}
	}
	if len(ids) == 0 {
		return 0, ErrItemRequired
	}
	n, err := s.queue.Remove(ctx, ids)
	if err != nil {
		return 0, err
	}
	s.logger.Info("pending captures discarded", zap.Int("count", n))
	return n, nil
}

// advance raises the session level after commits. Each crossed level fires
// its own milestone; the level never goes down.
func (s *Service) advance(ctx context.Context, sess Session) (Session, []model.Milestone, []model.Plant) {
	next := level.For(sess.Confirmed())
	if next <= sess.Level {
		return sess, nil, nil
	}
	from := sess.Level
	milestones := make([]model.Milestone, 0, next-from)
	for _, lvl := range level.Crossed(from, next) {
		msg, ok := level.Milestone(lvl)
		if !ok {
			continue
		}
		m := model.Milestone{Level: lvl, Title: level.Title(lvl), Message: msg}
		milestones = append(milestones, m)
		s.notifier.Notify(ctx, sess.User.ID, m)
	}
	sess.Level = next
	s.logger.Info("level up", zap.String("user_id", sess.User.ID), zap.Int("from", from), zap.Int("to", next))

	var unlocked []model.Plant
	cat, err := s.catalog.Fetch(ctx)
	if err != nil {
		s.logger.Warn("catalog refresh after level up failed", zap.Error(err))
	} else {
		unlocked = catalog.Unlocked(cat, from, next)
	}
	return sess, milestones, unlocked
}

// commit persists a confirmation for the session user and archives the photo.
func (s *Service) commit(ctx context.Context, sess Session, itemID string, photo []byte, mime string) error {
	ctx = auth.WithUser(ctx, sess.User)
	if err := s.progress.Save(ctx, sess.User.ID, itemID); err != nil {
		return err
	}
	sess.Progress[itemID] = model.StatusConfirmed
	if !sess.User.SignedIn() {
		return nil
	}
	url, err := s.archiver.Store(ctx, sess.User.ID, itemID, photo, mime)
	if err != nil {
		s.logger.Warn("archive photo failed", zap.String("item_id", itemID), zap.Error(err))
	} else if url != "" {
		s.logger.Debug("photo archived", zap.String("item_id", itemID), zap.String("url", url))
	}
	return nil
}
