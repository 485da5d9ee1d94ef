// Package connectivity tracks whether the classification endpoint is reachable.
package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Probe checks reachability; nil means online.
type Probe func(ctx context.Context) error

// Monitor holds the online flag and signals offline to online transitions.
// Reconnect events are coalesced: a burst of transitions yields at most one
// pending event.
type Monitor struct {
	online     atomic.Bool
	reconnects chan struct{}
	logger     *zap.Logger

	mu      sync.Mutex
	changed time.Time
}

func NewMonitor(online bool, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		reconnects: make(chan struct{}, 1),
		logger:     logger,
	}
	m.online.Store(online)
	return m
}

func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Set records the current state and reports whether it changed.
func (m *Monitor) Set(online bool) bool {
	prev := m.online.Swap(online)
	if prev == online {
		return false
	}
	m.mu.Lock()
	m.changed = time.Now()
	m.mu.Unlock()

	if online {
		m.logger.Info("connectivity restored")
		select {
		case m.reconnects <- struct{}{}:
		default:
		}
	} else {
		m.logger.Info("connectivity lost")
	}
	return true
}

// Reconnects delivers one event per offline to online transition.
func (m *Monitor) Reconnects() <-chan struct{} {
	return m.reconnects
}

// ChangedAt is the time of the last transition, zero if none.
func (m *Monitor) ChangedAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changed
}

// Run probes every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, probe Probe, interval time.Duration) error {
	if probe == nil {
		<-ctx.Done()
		return nil
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	check := func() {
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		err := probe(probeCtx)
		if err != nil && ctx.Err() != nil {
			return
		}
		if err != nil && m.Online() {
			m.logger.Debug("connectivity probe failed", zap.Error(err))
		}
		m.Set(err == nil)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			check()
		}
	}
}
