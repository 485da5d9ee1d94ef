package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"jardin/internal/auth"
	"jardin/internal/connectivity"
	"jardin/internal/model"
)

// Agent owns the current session and runs every operation on it one at a
// time. It reconciles the offline queue after sign-in and on every reconnect.
type Agent struct {
	svc     *Service
	monitor *connectivity.Monitor
	logger  *zap.Logger

	mu   sync.Mutex
	sess Session
}

func NewAgent(svc *Service, monitor *connectivity.Monitor, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	if monitor == nil {
		monitor = connectivity.NewMonitor(true, logger)
	}
	return &Agent{
		svc:     svc,
		monitor: monitor,
		logger:  logger,
		sess:    Session{Level: 1, Progress: map[string]string{}},
	}
}

// Session returns a copy of the current session.
func (a *Agent) Session() Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sess.clone()
}

func (a *Agent) Online() bool {
	return a.monitor.Online()
}

// SetOnline feeds the connectivity signal; going online triggers a pass in Run.
func (a *Agent) SetOnline(online bool) bool {
	return a.monitor.Set(online)
}

// SignIn runs the load flow: restore progress, render, then reconcile while
// online. The returned view reflects the reconciled state.
func (a *Agent) SignIn(ctx context.Context, user auth.User) (model.ProgressView, ReconcileReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sess = a.svc.Open(ctx, user)
	if _, err := a.viewLocked(ctx); err != nil {
		a.logger.Warn("initial render failed", zap.Error(err))
	}

	var report ReconcileReport
	if a.monitor.Online() {
		var err error
		report, err = a.reconcileLocked(ctx)
		if err != nil {
			a.logger.Warn("initial reconciliation failed", zap.Error(err))
		}
	}
	view, err := a.viewLocked(ctx)
	return view, report, err
}

// SignOut drops the session; queued captures stay on disk.
func (a *Agent) SignOut() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logger.Info("session closed", zap.String("user_id", a.sess.User.ID))
	a.sess = Session{Level: 1, Progress: map[string]string{}}
}

func (a *Agent) View(ctx context.Context) (model.ProgressView, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.viewLocked(ctx)
}

func (a *Agent) Capture(ctx context.Context, req CaptureRequest) (CaptureOutcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sess, out, err := a.svc.Capture(ctx, a.sess, req, a.monitor.Online())
	a.sess = sess
	return out, err
}

// Sync runs one reconciliation pass now.
func (a *Agent) Sync(ctx context.Context) (ReconcileReport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reconcileLocked(ctx)
}

func (a *Agent) Pending(ctx context.Context) ([]model.PendingItem, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.svc.Pending(ctx)
}

func (a *Agent) Discard(ctx context.Context, itemIDs ...string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.svc.Discard(ctx, itemIDs...)
}

// Run reconciles on every reconnect until ctx is done.
func (a *Agent) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.monitor.Reconnects():
			report, err := a.Sync(ctx)
			if err != nil {
				a.logger.Warn("reconciliation after reconnect failed", zap.Error(err))
				continue
			}
			if report.Attempted > 0 {
				a.logger.Info("reconnect pass done",
					zap.Int("confirmed", len(report.Confirmed)),
					zap.Int("retained", len(report.Retained)),
				)
			}
		}
	}
}

func (a *Agent) reconcileLocked(ctx context.Context) (ReconcileReport, error) {
	sess, report, err := a.svc.Reconcile(ctx, a.sess)
	a.sess = sess
	return report, err
}

func (a *Agent) viewLocked(ctx context.Context) (model.ProgressView, error) {
	view, err := a.svc.View(ctx, a.sess)
	if err != nil {
		return view, err
	}
	view.Online = a.monitor.Online()
	return view, nil
}
