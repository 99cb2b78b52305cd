package schedext

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitStatus(t *testing.T, sub *Subscription) Status {
	t.Helper()
	select {
	case status, ok := <-sub.Updates:
		require.True(t, ok, "subscription closed unexpectedly")
		return status
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a status observation")
		return Status{}
	}
}

func TestPollerBroadcastsObservations(t *testing.T) {
	dir := t.TempDir()
	reader := StatusReader{
		StateFile: writeSysfs(t, dir, "state", "enabled\n"),
		OpsFile:   writeSysfs(t, dir, "ops", "scx_rusty\n"),
	}

	p := NewPoller(reader, 10*time.Millisecond)
	sub := p.Subscribe()
	require.NotNil(t, sub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	status := waitStatus(t, sub)
	assert.Equal(t, "scx_rusty", status.Value)
	assert.True(t, status.Enabled)
	assert.False(t, status.At.IsZero())
}

func TestPollerObservesChanges(t *testing.T) {
	dir := t.TempDir()
	statePath := writeSysfs(t, dir, "state", "disabled\n")
	opsPath := writeSysfs(t, dir, "ops", "")
	reader := StatusReader{StateFile: statePath, OpsFile: opsPath}

	p := NewPoller(reader, 10*time.Millisecond)
	sub := p.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	first := waitStatus(t, sub)
	assert.Equal(t, "disabled", first.Value)

	require.NoError(t, os.WriteFile(statePath, []byte("enabled\n"), 0o644))
	require.NoError(t, os.WriteFile(opsPath, []byte("scx_lavd\n"), 0o644))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case status := <-sub.Updates:
			if status.Value == "scx_lavd" {
				assert.True(t, status.Enabled)
				return
			}
		case <-deadline:
			t.Fatal("poller never observed the new scheduler")
		}
	}
}

func TestPollerLast(t *testing.T) {
	dir := t.TempDir()
	reader := StatusReader{
		StateFile: writeSysfs(t, dir, "state", "disabled\n"),
		OpsFile:   writeSysfs(t, dir, "ops", ""),
	}

	p := NewPoller(reader, 10*time.Millisecond)
	sub := p.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	waitStatus(t, sub)
	assert.Equal(t, "disabled", p.Last().Value)
}

func TestPollerUnsubscribe(t *testing.T) {
	p := NewPoller(NewStatusReader(), time.Hour)
	sub := p.Subscribe()
	require.Equal(t, 1, p.SubscriberCount())

	p.Unsubscribe(sub.ID)
	assert.Equal(t, 0, p.SubscriberCount())

	_, ok := <-sub.Updates
	assert.False(t, ok, "channel closed after unsubscribe")
}

func TestPollerClosesSubscribersOnStop(t *testing.T) {
	dir := t.TempDir()
	reader := StatusReader{
		StateFile: writeSysfs(t, dir, "state", "disabled\n"),
		OpsFile:   writeSysfs(t, dir, "ops", ""),
	}

	p := NewPoller(reader, 10*time.Millisecond)
	sub := p.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	waitStatus(t, sub)

	cancel()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on cancellation")
	}

	assert.Nil(t, p.Subscribe(), "subscriptions rejected after stop")
}
