package bot

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/readlater-bot/internal/models"
	"github.com/xaenox/readlater-bot/internal/storage"
	"go.uber.org/zap"
)

var tokyo = time.FixedZone("JST", 9*60*60)

type schedulerFixture struct {
	store     *storage.MemoryStorage
	workspace *fakeWorkspace
	messenger *fakeMessenger
	now       time.Time
	s         *Scheduler
}

func newSchedulerFixture(t *testing.T, notes ...*models.NoteItem) *schedulerFixture {
	t.Helper()
	f := &schedulerFixture{
		store:     storage.NewMemoryStorage(),
		workspace: newFakeWorkspace(notes...),
		messenger: &fakeMessenger{failFor: map[int64]bool{}},
		now:       time.Date(2024, 5, 17, 9, 0, 30, 0, tokyo),
	}
	f.s = NewScheduler(f.store, f.store, f.workspace, f.messenger, tokyo, zap.NewNop()).
		WithClock(func() time.Time { return f.now }).
		WithRand(rand.New(rand.NewSource(1)))
	return f
}

func (f *schedulerFixture) addUser(t *testing.T, userID int64, token, deliveryTime string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.store.SaveUser(ctx, &models.UserRegistration{UserID: userID, WorkspaceToken: token, DatabaseID: "db"}))
	if deliveryTime != "" {
		require.NoError(t, f.store.SetDeliveryTime(ctx, userID, deliveryTime))
	}
}

func sampleNotes() []*models.NoteItem {
	return []*models.NoteItem{
		{ID: "a", Title: "A", URL: "https://example.com/a"},
		{ID: "b", Title: "B", URL: "https://example.com/b"},
		{ID: "c", Title: "C", URL: "https://example.com/c", ReadFlag: "read"},
	}
}

func TestRunOnceDeliversRandomUnread(t *testing.T) {
	f := newSchedulerFixture(t, sampleNotes()...)
	f.addUser(t, 1, "tok", "09:00:00")

	report, err := f.s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Checked: 1, Delivered: 1}, report)

	sent := f.messenger.sentTo(1)
	require.Len(t, sent, 1)
	assert.Contains(t, []string{"A\n\nhttps://example.com/a", "B\n\nhttps://example.com/b"}, sent[0].text)
}

func TestRunOnceRespectsWindow(t *testing.T) {
	f := newSchedulerFixture(t, sampleNotes()...)
	f.addUser(t, 1, "tok", "09:00:00")
	f.addUser(t, 2, "tok", "")

	f.now = time.Date(2024, 5, 17, 9, 1, 5, 0, tokyo)
	report, err := f.s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Checked: 1}, report)
	assert.Empty(t, f.messenger.sent)
}

func TestRunOncePinnedOverridesRandom(t *testing.T) {
	f := newSchedulerFixture(t, sampleNotes()...)
	f.addUser(t, 1, "tok", "09:00:00")
	ctx := context.Background()
	require.NoError(t, f.store.SavePin(ctx, &models.PinnedContent{UserID: 1, Title: "Pinned", URL: "https://example.com/pinned"}))

	for i := 0; i < 5; i++ {
		_, err := f.s.RunOnce(ctx)
		require.NoError(t, err)
	}
	for _, msg := range f.messenger.sentTo(1) {
		assert.Equal(t, "Pinned\n\nhttps://example.com/pinned", msg.text)
	}

	require.NoError(t, f.store.DeletePin(ctx, 1))
	_, err := f.s.RunOnce(ctx)
	require.NoError(t, err)
	sent := f.messenger.sentTo(1)
	require.Len(t, sent, 6)
	assert.NotEqual(t, "Pinned\n\nhttps://example.com/pinned", sent[5].text)
}

func TestRunOncePinnedWithoutUnreadNotes(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addUser(t, 1, "tok", "09:00:00")
	require.NoError(t, f.store.SavePin(context.Background(), &models.PinnedContent{UserID: 1, Title: "P", URL: "https://p"}))

	report, err := f.s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Delivered)
}

func TestRunOnceSkipsUserWithoutUnreadNotes(t *testing.T) {
	f := newSchedulerFixture(t)
	f.addUser(t, 1, "tok", "09:00:00")

	report, err := f.s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Checked: 1, Skipped: 1}, report)
	assert.Empty(t, f.messenger.sent)
}

func TestRunOnceContinuesAfterFailures(t *testing.T) {
	f := newSchedulerFixture(t, sampleNotes()...)
	f.addUser(t, 1, "broken", "09:00:00")
	f.addUser(t, 2, "tok", "09:00:00")
	f.addUser(t, 3, "tok", "09:00:00")
	f.addUser(t, 4, "tok", "09:00:00")
	f.workspace.queryErr["broken"] = errors.New("notion unavailable")
	f.messenger.failFor[2] = true

	report, err := f.s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Checked: 4, Delivered: 2, Failed: 2}, report)
	assert.Len(t, f.messenger.sentTo(3), 1)
	assert.Len(t, f.messenger.sentTo(4), 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newSchedulerFixture(t, sampleNotes()...)
	f.addUser(t, 1, "tok", "09:00:00")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.s.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(f.messenger.sentTo(1)) > 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

// flakyUsers fails the first scans and then behaves like the wrapped store
type flakyUsers struct {
	*storage.MemoryStorage
	failures atomic.Int32
}

func (u *flakyUsers) ListScheduledUsers(ctx context.Context) ([]*models.UserRegistration, error) {
	if u.failures.Add(-1) >= 0 {
		return nil, errors.New("db down")
	}
	return u.MemoryStorage.ListScheduledUsers(ctx)
}

func TestRunKeepsTickingAfterScanFailure(t *testing.T) {
	f := newSchedulerFixture(t, sampleNotes()...)
	f.addUser(t, 1, "tok", "09:00:00")

	users := &flakyUsers{MemoryStorage: f.store}
	users.failures.Store(2)
	s := NewScheduler(users, f.store, f.workspace, f.messenger, tokyo, zap.NewNop()).
		WithClock(func() time.Time { return f.now }).
		WithRand(rand.New(rand.NewSource(1)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx, 10*time.Millisecond)

	require.Eventually(t, func() bool { return len(f.messenger.sentTo(1)) > 0 }, time.Second, 5*time.Millisecond)
	assert.Less(t, users.failures.Load(), int32(0))
}
