package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"jardin/internal/connectivity"
	"jardin/internal/model"
	"jardin/internal/service"
)

func TestAgentReconcilesOnReconnect(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFixture(t)
	monitor := connectivity.NewMonitor(false, nil)
	agent := service.NewAgent(f.svc, monitor, nil)
	ctx := context.Background()

	_, report, err := agent.SignIn(ctx, ana)
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)

	out, err := agent.Capture(ctx, service.CaptureRequest{ItemID: "a1", Photo: jpeg})
	require.NoError(t, err)
	assert.Equal(t, model.CaptureOfflineQueued, out.State)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- agent.Run(runCtx) }()

	assert.True(t, agent.SetOnline(true))
	require.Eventually(t, func() bool {
		items, err := agent.Pending(ctx)
		return err == nil && len(items) == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, model.StatusConfirmed, agent.Session().Progress["a1"])

	cancel()
	require.NoError(t, <-done)
}

func TestAgentSignInReconcilesWhenOnline(t *testing.T) {
	f := newFixture(t)
	f.seed(t, 9)
	f.enqueue(t, "a2")
	agent := service.NewAgent(f.svc, connectivity.NewMonitor(true, nil), nil)

	view, report, err := agent.SignIn(context.Background(), ana)
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, report.Confirmed)
	require.Len(t, report.Milestones, 1)
	assert.Equal(t, 2, view.Level)
	assert.True(t, view.Online)
	assert.Zero(t, view.PendingCount)
}

func TestAgentSignOutKeepsQueue(t *testing.T) {
	f := newFixture(t)
	agent := service.NewAgent(f.svc, connectivity.NewMonitor(false, nil), nil)
	_, _, err := agent.SignIn(context.Background(), ana)
	require.NoError(t, err)
	_, err = agent.Capture(context.Background(), service.CaptureRequest{ItemID: "a3", Photo: jpeg})
	require.NoError(t, err)

	agent.SignOut()
	assert.False(t, agent.Session().User.SignedIn())
	assert.Equal(t, 1, agent.Session().Level)
	assert.Equal(t, []string{"a3"}, pendingIDs(t, f.queue))

	report, err := agent.Sync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Attempted)
}
