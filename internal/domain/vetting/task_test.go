package vetting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTimeProvider implements TimeProvider for testing.
type mockTimeProvider struct{ currentTime time.Time }

func (m *mockTimeProvider) Now() time.Time { return m.currentTime }

func (m *mockTimeProvider) advance(d time.Duration) { m.currentTime = m.currentTime.Add(d) }

func TestNewTask(t *testing.T) {
	t.Parallel()

	mockTime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	task := NewTask("de", "acme", LevelModern, 1000,
		WithTimeProvider(&mockTimeProvider{currentTime: mockTime}))

	assert.Equal(t, Locale("de"), task.Locale())
	assert.Equal(t, Organization("acme"), task.Organization())
	assert.Equal(t, LevelModern, task.Level())
	assert.False(t, task.IsSummary())
	assert.Equal(t, StatusWaiting, task.Status())
	assert.Equal(t, "Waiting for a spot in line", task.StatusLine())
	assert.False(t, task.StopRequested())
	assert.False(t, task.Abandoned())
	assert.True(t, task.StartedAt().IsZero())

	p := task.Progress()
	assert.Equal(t, 0, p.ItemsProcessed())
	assert.Equal(t, 1000, p.TotalEstimate())
	assert.Equal(t, float64(0), p.Fraction())
}

func TestNewTask_SummaryLocale(t *testing.T) {
	t.Parallel()

	task := NewTask(SummaryLocale, "acme", LevelModern, 5000)
	assert.True(t, task.IsSummary())
}

func TestTaskLifecycle(t *testing.T) {
	t.Parallel()

	mock := &mockTimeProvider{currentTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	task := NewTask("fr", "acme", LevelModern, 100, WithTimeProvider(mock))

	mock.advance(time.Second)
	require.NoError(t, task.Begin())
	assert.Equal(t, StatusProcessing, task.Status())
	assert.Equal(t, "Beginning process, calculating", task.StatusLine())
	assert.Equal(t, mock.currentTime, task.StartedAt())

	require.NoError(t, task.Ready())
	assert.Equal(t, StatusReady, task.Status())
	assert.Equal(t, "Finished", task.StatusLine())
}

func TestTaskBegin_InvalidFromTerminal(t *testing.T) {
	t.Parallel()

	task := NewTask("fr", "acme", LevelModern, 100)
	require.NoError(t, task.Stop("Stopped on request"))
	assert.Error(t, task.Begin())
}

func TestTaskStop(t *testing.T) {
	t.Parallel()

	t.Run("from waiting", func(t *testing.T) {
		t.Parallel()
		task := NewTask("de", "acme", LevelModern, 100)
		require.NoError(t, task.Stop("Stopped on request"))
		assert.Equal(t, StatusStopped, task.Status())
		assert.Equal(t, "Stopped on request", task.StatusLine())
	})

	t.Run("from processing", func(t *testing.T) {
		t.Parallel()
		task := NewTask("de", "acme", LevelModern, 100)
		require.NoError(t, task.Begin())
		require.NoError(t, task.Stop("Superseded"))
		assert.Equal(t, StatusStopped, task.Status())
	})

	t.Run("terminal stop is a no-op", func(t *testing.T) {
		t.Parallel()
		task := NewTask("de", "acme", LevelModern, 100)
		require.NoError(t, task.Begin())
		require.NoError(t, task.Ready())
		require.NoError(t, task.Stop("too late"))
		assert.Equal(t, StatusReady, task.Status())
		assert.Equal(t, "Finished", task.StatusLine())
	})
}

func TestTaskRequestStop_OnlyFirstWins(t *testing.T) {
	t.Parallel()

	task := NewTask("de", "acme", LevelModern, 100)
	assert.True(t, task.RequestStop())
	assert.False(t, task.RequestStop())
	assert.True(t, task.StopRequested())
}

func TestTaskSnapshot(t *testing.T) {
	t.Parallel()

	mock := &mockTimeProvider{currentTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	task := NewTask("de", "acme", LevelModern, 200, WithTimeProvider(mock))
	require.NoError(t, task.Begin())

	mock.advance(time.Second)
	task.SetProgress(NewProgress(50, 200, mock.Now()))
	task.SetStatusLine("Processed 50 of about 200 items")

	snap := task.Snapshot()
	assert.Equal(t, task.ID(), snap.ID)
	assert.Equal(t, Locale("de"), snap.Locale)
	assert.Equal(t, StatusProcessing, snap.Status)
	assert.Equal(t, "Processed 50 of about 200 items", snap.StatusLine)
	assert.Equal(t, 50, snap.ItemsProcessed)
	assert.Equal(t, 200, snap.TotalEstimate)
	assert.InDelta(t, 0.25, snap.Fraction, 1e-9)
	assert.Equal(t, mock.currentTime, snap.LastUpdate)
}

func TestTaskAbandoned(t *testing.T) {
	t.Parallel()

	task := NewTask("de", "acme", LevelModern, 100)
	assert.False(t, task.Abandoned())
	task.MarkAbandoned()
	assert.True(t, task.Abandoned())
}
